// Package stripewebhook reconciles payment gateway events with orders,
// licenses and the outbox.
package stripewebhook

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/LLTIGER/pulse-architects-sub001/internal/licenses"
	"github.com/LLTIGER/pulse-architects-sub001/internal/orders"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/db"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/db/models"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/enums"
	pkgerrors "github.com/LLTIGER/pulse-architects-sub001/pkg/errors"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/logger"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/metrics"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/outbox"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/outbox/payloads"
)

const maxNotesLength = 2000

// errSkip aborts the transaction without surfacing an error to the caller.
var errSkip = errors.New("skip")

type licenseIssuer interface {
	Issue(ctx context.Context, tx *gorm.DB, in licenses.IssueInput) (*models.License, bool, error)
	DeactivateByOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (int64, error)
}

type eventRecorder interface {
	Record(ctx context.Context, tx *gorm.DB, eventID, eventType string, now time.Time) (bool, error)
	Exists(ctx context.Context, eventID string) (bool, error)
}

type ServiceParams struct {
	TransactionRunner db.TxRunner
	Orders            orders.Repository
	Licenses          licenseIssuer
	Events            eventRecorder
	Outbox            outbox.Emitter
	Metrics           *metrics.PipelineMetrics
	Logger            *logger.Logger
	Clock             func() time.Time
}

type Service struct {
	txRunner db.TxRunner
	orders   orders.Repository
	licenses licenseIssuer
	events   eventRecorder
	outbox   outbox.Emitter
	metrics  *metrics.PipelineMetrics
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repo required")
	}
	if params.Licenses == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "license issuer required")
	}
	if params.Events == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "event recorder required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox emitter required")
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	if params.Clock == nil {
		params.Clock = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		txRunner: params.TransactionRunner,
		orders:   params.Orders,
		licenses: params.Licenses,
		events:   params.Events,
		outbox:   params.Outbox,
		metrics:  params.Metrics,
		logg:     params.Logger,
		now:      params.Clock,
	}, nil
}

// HandleEvent applies one verified gateway event. Typed errors with a
// client-side code mean the event was rejected and should be acknowledged;
// anything else is an infrastructure failure the gateway should retry.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	decoded, err := DecodeEvent(event)
	if err != nil {
		s.metrics.WebhookOutcome(typeOf(event), "malformed")
		return err
	}
	ctx = s.logg.WithFields(ctx, map[string]any{"event_id": event.ID, "event_type": string(event.Type)})

	if s.alreadyProcessed(ctx, event.ID) {
		s.metrics.WebhookOutcome(decoded.eventType(), "noop")
		return nil
	}

	switch evt := decoded.(type) {
	case CheckoutCompleted:
		err = s.handleCheckoutCompleted(ctx, event.ID, evt)
	case PaymentSucceeded:
		err = s.handlePaymentSucceeded(ctx, event.ID, evt)
	case PaymentFailed:
		err = s.handlePaymentFailed(ctx, event.ID, evt)
	case DisputeCreated:
		err = s.handleDisputeCreated(ctx, event.ID, evt)
	default:
		s.metrics.WebhookOutcome(decoded.eventType(), "ignored")
		s.logg.Debug(ctx, "stripe event ignored")
		return nil
	}

	switch {
	case errors.Is(err, errSkip):
		s.metrics.WebhookOutcome(decoded.eventType(), "noop")
		return nil
	case err != nil:
		s.metrics.WebhookOutcome(decoded.eventType(), "failed")
		return err
	}
	s.metrics.WebhookOutcome(decoded.eventType(), "applied")
	return nil
}

func (s *Service) handleCheckoutCompleted(ctx context.Context, eventID string, evt CheckoutCompleted) error {
	meta, err := ParseCheckoutMetadata(evt.Metadata)
	if err != nil {
		return err
	}
	ctx = s.logg.WithOrderID(ctx, meta.OrderID.String())

	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		now := s.now()
		if fresh, err := s.record(ctx, tx, eventID, evt.eventType(), now); err != nil || !fresh {
			return err
		}

		repo := s.orders.WithTx(tx)
		order, err := repo.FindByIDForUpdate(ctx, meta.OrderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock order")
		}
		if order == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found for checkout session")
		}
		item, err := matchOrder(order, meta)
		if err != nil {
			return err
		}
		if order.PaymentStatus == enums.PaymentStatusRefunded {
			s.logg.Warn(ctx, "checkout completed for refunded order; leaving as is")
			return errSkip
		}

		alreadyFulfilled := order.IsFulfilled()
		if !alreadyFulfilled {
			updates := map[string]any{
				"status":             enums.OrderStatusConfirmed,
				"payment_status":     enums.PaymentStatusPaid,
				"fulfillment_status": enums.FulfillmentStatusFulfilled,
				"completed_at":       now,
			}
			if evt.PaymentIntentID != "" {
				updates["stripe_payment_intent_id"] = evt.PaymentIntentID
			}
			if evt.SessionID != "" {
				updates["stripe_session_id"] = evt.SessionID
			}
			if err := repo.Update(ctx, order.ID, updates); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "fulfil order")
			}
		}

		license, created, err := s.licenses.Issue(ctx, tx, licenses.IssueInput{
			OrderID:       order.ID,
			UserID:        order.UserID,
			AssetID:       item.AssetID,
			Tier:          item.LicenseTier,
			PurchasePrice: item.TotalPrice,
			Currency:      item.Currency,
			Now:           now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "issue license")
		}
		if alreadyFulfilled && !created {
			return errSkip
		}

		completedAt := now
		if order.CompletedAt != nil {
			completedAt = *order.CompletedAt
		}
		payload := payloads.OrderFulfilledEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			UserID:      order.UserID,
			AssetID:     item.AssetID,
			LicenseID:   license.ID,
			LicenseKey:  license.LicenseKey,
			LicenseTier: license.Tier,
			Total:       order.Total,
			Currency:    order.Currency,
			CompletedAt: completedAt,
		}
		if order.BillingEmail != nil {
			payload.BillingEmail = *order.BillingEmail
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderFulfilled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: order.UserID, Source: providerStripe},
			Data:          payload,
			OccurredAt:    now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit order fulfilled")
		}

		s.logg.Info(s.logg.WithField(ctx, "license_id", license.ID.String()), "order fulfilled")
		return nil
	})
}

func (s *Service) handlePaymentSucceeded(ctx context.Context, eventID string, evt PaymentSucceeded) error {
	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		if fresh, err := s.record(ctx, tx, eventID, evt.eventType(), s.now()); err != nil || !fresh {
			return err
		}
		repo := s.orders.WithTx(tx)
		order, err := lockOrder(ctx, repo, evt.OrderID, evt.PaymentIntentID)
		if err != nil {
			return err
		}

		switch order.PaymentStatus {
		case enums.PaymentStatusRefunded, enums.PaymentStatusFailed:
			s.logg.Warn(s.logg.WithOrderID(ctx, order.ID.String()), "payment succeeded after terminal payment state; ignoring")
			return errSkip
		case enums.PaymentStatusPaid:
			if order.StripePaymentIntentID != nil && *order.StripePaymentIntentID == evt.PaymentIntentID {
				return errSkip
			}
		}

		updates := map[string]any{"payment_status": enums.PaymentStatusPaid}
		if evt.PaymentIntentID != "" {
			updates["stripe_payment_intent_id"] = evt.PaymentIntentID
		}
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark order paid")
		}
		return nil
	})
}

func (s *Service) handlePaymentFailed(ctx context.Context, eventID string, evt PaymentFailed) error {
	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		if fresh, err := s.record(ctx, tx, eventID, evt.eventType(), s.now()); err != nil || !fresh {
			return err
		}
		repo := s.orders.WithTx(tx)
		order, err := lockOrder(ctx, repo, evt.OrderID, evt.PaymentIntentID)
		if err != nil {
			return err
		}
		logCtx := s.logg.WithOrderID(ctx, order.ID.String())

		// a superseded attempt failing late must not undo a paid order
		if order.PaymentStatus == enums.PaymentStatusPaid ||
			order.PaymentStatus == enums.PaymentStatusRefunded ||
			order.FulfillmentStatus == enums.FulfillmentStatusFulfilled {
			s.logg.Info(logCtx, "payment failure ignored for settled order")
			return errSkip
		}
		if order.Status == enums.OrderStatusCancelled && order.PaymentStatus == enums.PaymentStatusFailed {
			return errSkip
		}

		reason := "payment failed"
		if evt.Message != "" {
			reason += ": " + evt.Message
		}
		updates := map[string]any{
			"status":             enums.OrderStatusCancelled,
			"payment_status":     enums.PaymentStatusFailed,
			"fulfillment_status": enums.FulfillmentStatusCancelled,
			"internal_notes":     appendNote(order.InternalNotes, reason),
		}
		if evt.PaymentIntentID != "" {
			updates["stripe_payment_intent_id"] = evt.PaymentIntentID
		}
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancel order")
		}
		s.logg.Info(logCtx, "order cancelled after payment failure")
		return nil
	})
}

func (s *Service) handleDisputeCreated(ctx context.Context, eventID string, evt DisputeCreated) error {
	if evt.PaymentIntentID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "dispute has no payment intent")
	}
	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		now := s.now()
		if fresh, err := s.record(ctx, tx, eventID, evt.eventType(), now); err != nil || !fresh {
			return err
		}
		repo := s.orders.WithTx(tx)
		order, err := repo.FindByPaymentIntentIDForUpdate(ctx, evt.PaymentIntentID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock order")
		}
		if order == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "no order for disputed payment").
				WithDetails(map[string]any{"paymentIntentId": evt.PaymentIntentID})
		}
		logCtx := s.logg.WithOrderID(ctx, order.ID.String())
		if order.PaymentStatus == enums.PaymentStatusRefunded {
			return errSkip
		}

		reason := evt.Reason
		if reason == "" {
			reason = "unspecified"
		}
		if err := repo.Update(ctx, order.ID, map[string]any{
			"status":             enums.OrderStatusCancelled,
			"payment_status":     enums.PaymentStatusRefunded,
			"fulfillment_status": enums.FulfillmentStatusCancelled,
			"internal_notes":     appendNote(order.InternalNotes, "dispute: "+reason),
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "refund order")
		}

		deactivated, err := s.licenses.DeactivateByOrder(ctx, tx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deactivate licenses")
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderRefunded,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: order.UserID, Source: providerStripe},
			Data: payloads.OrderRefundedEvent{
				OrderID:             order.ID,
				OrderNumber:         order.OrderNumber,
				UserID:              order.UserID,
				PaymentIntentID:     evt.PaymentIntentID,
				Reason:              reason,
				DeactivatedLicenses: deactivated,
			},
			OccurredAt: now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit order refunded")
		}

		s.logg.Warn(s.logg.WithField(logCtx, "deactivated_licenses", deactivated), "order disputed; licenses revoked")
		return nil
	})
}

// alreadyProcessed is a read-only check ahead of the transaction. The
// insert in record stays the authority, so a lookup failure only logs.
func (s *Service) alreadyProcessed(ctx context.Context, eventID string) bool {
	if eventID == "" {
		return false
	}
	seen, err := s.events.Exists(ctx, eventID)
	if err != nil {
		s.logg.Error(ctx, "stripe event lookup failed", err)
		return false
	}
	if seen {
		s.logg.Info(ctx, "stripe event already processed")
	}
	return seen
}

// record writes the durable dedupe row; fresh=false means an earlier
// delivery already committed and the handler should stop.
func (s *Service) record(ctx context.Context, tx *gorm.DB, eventID, eventType string, now time.Time) (bool, error) {
	if eventID == "" {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "stripe event id required")
	}
	fresh, err := s.events.Record(ctx, tx, eventID, eventType, now)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record webhook event")
	}
	if !fresh {
		s.logg.Info(ctx, "stripe event already processed")
		return false, errSkip
	}
	return true, nil
}

func lockOrder(ctx context.Context, repo orders.Repository, orderID uuid.UUID, paymentIntentID string) (*models.Order, error) {
	var (
		order *models.Order
		err   error
	)
	if orderID != uuid.Nil {
		order, err = repo.FindByIDForUpdate(ctx, orderID)
	} else {
		order, err = repo.FindByPaymentIntentIDForUpdate(ctx, paymentIntentID)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found for payment intent").
			WithDetails(map[string]any{"paymentIntentId": paymentIntentID})
	}
	return order, nil
}

// matchOrder rejects metadata that disagrees with the stored order snapshot.
func matchOrder(order *models.Order, meta CheckoutMetadata) (*models.OrderItem, error) {
	if order.UserID != meta.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "checkout metadata user does not match order")
	}
	for i := range order.Items {
		item := &order.Items[i]
		if item.AssetID == meta.AssetID && item.LicenseTier == meta.Tier {
			return item, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeConflict, "checkout metadata item does not match order").
		WithDetails(map[string]any{"assetId": meta.AssetID.String(), "licenseTier": meta.Tier.String()})
}

func appendNote(existing *string, note string) string {
	out := note
	if existing != nil && strings.TrimSpace(*existing) != "" {
		out = fmt.Sprintf("%s\n%s", *existing, note)
	}
	if len(out) > maxNotesLength {
		out = out[len(out)-maxNotesLength:]
	}
	return out
}

func typeOf(event *stripe.Event) string {
	if event == nil {
		return "unknown"
	}
	return string(event.Type)
}
