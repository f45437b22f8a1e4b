// Package licenses issues, lists, and revokes download entitlements.
package licenses

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/LLTIGER/pulse-architects-sub001/internal/pricing"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/db"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/db/models"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/enums"
	pkgerrors "github.com/LLTIGER/pulse-architects-sub001/pkg/errors"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/logger"
	pkgpagination "github.com/LLTIGER/pulse-architects-sub001/pkg/pagination"
)

// PreviewValidity bounds how long a free preview license stays usable.
const PreviewValidity = 7 * 24 * time.Hour

const uniqueOrderAssetConstraint = "licenses_order_asset_key"

type IssueInput struct {
	OrderID       uuid.UUID
	UserID        uuid.UUID
	AssetID       uuid.UUID
	Tier          enums.LicenseTier
	PurchasePrice decimal.Decimal
	Currency      string
	MaxDownloads  *int
	Now           time.Time
}

type Service struct {
	repo *Repository
	logg *logger.Logger
}

func NewService(repo *Repository, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, errors.New("license repository required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{repo: repo, logg: logg}, nil
}

// Issue creates the single license for (order, asset) inside tx. When one
// already exists it is returned with created=false.
func (s *Service) Issue(ctx context.Context, tx *gorm.DB, in IssueInput) (*models.License, bool, error) {
	if tx == nil {
		return nil, false, errors.New("transaction required")
	}
	if in.OrderID == uuid.Nil || in.UserID == uuid.Nil || in.AssetID == uuid.Nil {
		return nil, false, errors.New("order, user and asset ids are required")
	}
	entry, ok := pricing.Lookup(in.Tier)
	if !ok {
		return nil, false, fmt.Errorf("unknown license tier %q", in.Tier)
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	repo := s.repo.WithTx(tx)

	existing, err := repo.FindByOrderAndAsset(ctx, in.OrderID, in.AssetID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	currency := in.Currency
	if currency == "" {
		currency = entry.Currency
	}
	license := &models.License{
		LicenseKey:          NewLicenseKey(in.Tier, in.OrderID, in.AssetID, now),
		Tier:                in.Tier,
		UserID:              in.UserID,
		OrderID:             in.OrderID,
		AssetID:             in.AssetID,
		CommercialUse:       entry.Capabilities.CommercialUse,
		ResaleAllowed:       entry.Capabilities.ResaleAllowed,
		ModificationAllowed: entry.Capabilities.ModificationAllowed,
		PurchasePrice:       in.PurchasePrice,
		Currency:            currency,
		MaxDownloads:        in.MaxDownloads,
		IsActive:            true,
	}
	if in.Tier == enums.LicenseTierPreview {
		expires := now.Add(PreviewValidity)
		license.ExpiresAt = &expires
	}

	created, err := repo.InsertIfAbsent(ctx, license)
	if err != nil {
		if !db.IsUniqueViolation(err, uniqueOrderAssetConstraint) {
			return nil, false, err
		}
		created = false
	}
	if !created {
		existing, err := repo.FindByOrderAndAsset(ctx, in.OrderID, in.AssetID)
		if err != nil {
			return nil, false, err
		}
		if existing == nil {
			return nil, false, errors.New("license conflict without existing row")
		}
		return existing, false, nil
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"license_id": license.ID.String(),
		"order_id":   in.OrderID.String(),
		"asset_id":   in.AssetID.String(),
		"tier":       in.Tier,
	})
	s.logg.Info(logCtx, "license issued")
	return license, true, nil
}

// FindActive returns nil when the user holds no usable license for the asset tier.
func (s *Service) FindActive(ctx context.Context, userID, assetID uuid.UUID, tier enums.LicenseTier, now time.Time) (*models.License, error) {
	return s.repo.FindActive(ctx, userID, assetID, tier, now)
}

func (s *Service) DeactivateByOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (int64, error) {
	if tx == nil {
		return 0, errors.New("transaction required")
	}
	return s.repo.WithTx(tx).DeactivateByOrder(ctx, orderID)
}

func (s *Service) IncrementDownloads(ctx context.Context, licenseID uuid.UUID) (bool, error) {
	return s.repo.IncrementDownloads(ctx, licenseID)
}

// List returns one page of the caller's licenses.
func (s *Service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	cursor, err := pkgpagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListByUser(ctx, params.UserID, pkgpagination.LimitWithBuffer(params.Limit), cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list licenses")
	}

	page, next := pkgpagination.Next(rows, params.Limit, func(l models.License) pkgpagination.Cursor {
		return pkgpagination.Cursor{CreatedAt: l.CreatedAt, ID: l.ID}
	})
	now := time.Now().UTC()
	items := make([]ListItem, 0, len(page))
	for _, row := range page {
		items = append(items, toListItem(row, now))
	}
	return &ListResult{Items: items, Cursor: next}, nil
}
