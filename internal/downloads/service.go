// Package downloads gates asset downloads on license entitlement and
// records every attempt. A decision is made first and only committed once
// the file is ready to stream, so a storage failure never spends a
// licensed download.
package downloads

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/LLTIGER/pulse-architects-sub001/pkg/db/models"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/enums"
	pkgerrors "github.com/LLTIGER/pulse-architects-sub001/pkg/errors"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/logger"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/metrics"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/visibility"
)

// Reason explains a download decision. Denial reasons double as the public error message.
type Reason string

const (
	ReasonPreview                Reason = "Preview"
	ReasonLicensed               Reason = "Licensed"
	ReasonAuthenticationRequired Reason = "AuthenticationRequired"
	ReasonNotEntitled            Reason = "NotEntitled"
	ReasonNotFound               Reason = "NotFound"
	ReasonInvalidTier            Reason = "InvalidTier"
	ReasonStorageUnavailable     Reason = "StorageUnavailable"
)

type assetReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Asset, error)
}

type licenseStore interface {
	FindActive(ctx context.Context, userID, assetID uuid.UUID, tier enums.LicenseTier, now time.Time) (*models.License, error)
	IncrementDownloads(ctx context.Context, licenseID uuid.UUID) (bool, error)
}

type eventRecorder interface {
	Record(ctx context.Context, event *models.DownloadEvent) error
}

type Request struct {
	AssetID uuid.UUID
	Tier    string
	UserID  *uuid.UUID
	IP      string
}

// Decision is returned only for allowed downloads. It is not final until
// Commit accepts it.
type Decision struct {
	Request  Request
	Asset    *models.Asset
	Tier     enums.LicenseTier
	License  *models.License
	Reason   Reason
	Filename string
}

type Service interface {
	// Authorize decides without spending a download. Denials are recorded.
	Authorize(ctx context.Context, req Request) (*Decision, error)
	// Commit spends the licensed download and records the allowed attempt.
	Commit(ctx context.Context, decision *Decision) error
	// Abandon records an allowed decision that could not be delivered.
	Abandon(ctx context.Context, decision *Decision, cause error)
}

type service struct {
	assets   assetReader
	licenses licenseStore
	events   eventRecorder
	metrics  *metrics.PipelineMetrics
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(assets assetReader, licenses licenseStore, events eventRecorder, m *metrics.PipelineMetrics, logg *logger.Logger) (Service, error) {
	if assets == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "asset reader required")
	}
	if licenses == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "license store required")
	}
	if events == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "download event recorder required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		assets:   assets,
		licenses: licenses,
		events:   events,
		metrics:  m,
		logg:     logg,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Authorize(ctx context.Context, req Request) (*Decision, error) {
	tier, err := enums.ParseLicenseTier(req.Tier)
	if err != nil {
		s.record(ctx, req.event(enums.LicenseTier(req.Tier), false, ReasonInvalidTier))
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown license tier").
			WithDetails(map[string]any{"tier": req.Tier})
	}

	asset, err := s.assets.FindByID(ctx, req.AssetID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load asset")
	}
	if err := visibility.EnsureAssetVisible(asset); err != nil {
		s.record(ctx, req.event(tier, false, ReasonNotFound))
		return nil, err
	}

	if tier == enums.LicenseTierPreview {
		return s.decide(req, asset, tier, nil, ReasonPreview), nil
	}
	if req.UserID == nil || *req.UserID == uuid.Nil {
		return nil, s.deny(ctx, req, tier, ReasonAuthenticationRequired)
	}

	now := s.now()
	license, err := s.licenses.FindActive(ctx, *req.UserID, asset.ID, tier, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load license")
	}
	if license == nil || !license.Usable(now) {
		return nil, s.deny(ctx, req, tier, ReasonNotEntitled)
	}
	return s.decide(req, asset, tier, license, ReasonLicensed), nil
}

func (s *service) Commit(ctx context.Context, decision *Decision) error {
	if decision == nil || decision.Asset == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "download decision required")
	}
	if decision.License != nil {
		// the conditional increment is the authority on the download cap
		counted, err := s.licenses.IncrementDownloads(ctx, decision.License.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count download")
		}
		if !counted {
			return s.deny(ctx, decision.Request, decision.Tier, ReasonNotEntitled)
		}
		decision.License.DownloadCount++
	}
	s.record(ctx, decision.event(true, decision.Reason))
	return nil
}

func (s *service) Abandon(ctx context.Context, decision *Decision, cause error) {
	if decision == nil || decision.Asset == nil {
		return
	}
	s.record(ctx, decision.event(false, ReasonStorageUnavailable))
	if cause != nil {
		logCtx := s.logg.WithField(ctx, "asset_id", decision.Asset.ID.String())
		s.logg.Error(logCtx, "download.abandoned", cause)
	}
}

func (s *service) decide(req Request, asset *models.Asset, tier enums.LicenseTier, license *models.License, reason Reason) *Decision {
	return &Decision{
		Request:  req,
		Asset:    asset,
		Tier:     tier,
		License:  license,
		Reason:   reason,
		Filename: AttachmentFilename(asset, tier),
	}
}

func (r Request) event(tier enums.LicenseTier, allowed bool, reason Reason) *models.DownloadEvent {
	return &models.DownloadEvent{
		AssetID:   r.AssetID,
		UserID:    r.UserID,
		Tier:      tier,
		Allowed:   allowed,
		Reason:    string(reason),
		IPAddress: r.IP,
	}
}

func (d *Decision) event(allowed bool, reason Reason) *models.DownloadEvent {
	event := d.Request.event(d.Tier, allowed, reason)
	event.AssetID = d.Asset.ID
	if d.License != nil {
		event.LicenseID = &d.License.ID
	}
	return event
}

func (s *service) deny(ctx context.Context, req Request, tier enums.LicenseTier, reason Reason) error {
	s.record(ctx, req.event(tier, false, reason))
	return pkgerrors.New(pkgerrors.CodeForbidden, string(reason))
}

// record never fails the download; a lost audit row is logged instead.
func (s *service) record(ctx context.Context, event *models.DownloadEvent) {
	tierLabel := event.Tier.String()
	if event.Reason == string(ReasonInvalidTier) {
		tierLabel = "invalid"
	}
	s.metrics.DownloadDecision(tierLabel, event.Reason)
	if err := s.events.Record(ctx, event); err != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"asset_id": event.AssetID.String(),
			"reason":   event.Reason,
		})
		s.logg.Error(logCtx, "failed to record download event", err)
	}
}
