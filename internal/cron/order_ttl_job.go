package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/LLTIGER/pulse-architects-sub001/internal/orders"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/db/models"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/enums"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/logger"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/outbox"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/outbox/payloads"
)

const (
	defaultPendingOrderTTL = 48 * time.Hour
	orderTTLBatchSize      = 200
	expiredNote            = "expired: checkout abandoned"
)

type outboxEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type OrderTTLJobParams struct {
	Logger *logger.Logger
	DB     txRunner
	Orders orders.Repository
	Outbox outboxEmitter
	TTL    time.Duration
}

// NewOrderTTLJob builds the job that cancels checkouts left PENDING past the TTL.
func NewOrderTTLJob(params OrderTTLJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultPendingOrderTTL
	}
	return &orderTTLJob{
		logg:   params.Logger,
		db:     params.DB,
		orders: params.Orders,
		outbox: params.Outbox,
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

type orderTTLJob struct {
	logg   *logger.Logger
	db     txRunner
	orders orders.Repository
	outbox outboxEmitter
	ttl    time.Duration
	now    func() time.Time
}

func (j *orderTTLJob) Name() string { return "order-ttl" }

// Run expires every stale order it finds. One failing order does not stop
// the sweep; all failures are returned together.
func (j *orderTTLJob) Run(ctx context.Context) error {
	cutoff := j.now().Add(-j.ttl)
	stale, err := j.orders.FindPendingBefore(ctx, cutoff, orderTTLBatchSize)
	if err != nil {
		return fmt.Errorf("query pending orders: %w", err)
	}

	var errs error
	expired := 0
	for _, order := range stale {
		done, err := j.expireOrder(ctx, order)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("expire order %s: %w", order.ID, err))
			continue
		}
		if done {
			expired++
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":     cutoff,
		"candidates": len(stale),
		"expired":    expired,
	})
	j.logg.Info(logCtx, "pending order expiration complete")
	return errs
}

func (j *orderTTLJob) expireOrder(ctx context.Context, order models.Order) (bool, error) {
	expired := false
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := j.orders.WithTx(tx)
		current, err := repo.FindByIDForUpdate(ctx, order.ID)
		if err != nil {
			return err
		}
		// a webhook may have settled the order since it was listed
		if current == nil || current.Status != enums.OrderStatusPending {
			return nil
		}

		now := j.now()
		updates := map[string]any{
			"status":             enums.OrderStatusCancelled,
			"fulfillment_status": enums.FulfillmentStatusCancelled,
			"internal_notes":     expiredNote,
		}
		if current.PaymentStatus != enums.PaymentStatusPaid {
			updates["payment_status"] = enums.PaymentStatusFailed
		}
		if err := repo.Update(ctx, current.ID, updates); err != nil {
			return err
		}

		if err := j.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderExpired,
			AggregateType: enums.AggregateOrder,
			AggregateID:   current.ID,
			Actor:         &outbox.ActorRef{UserID: current.UserID, Source: "cron"},
			OccurredAt:    now,
			Data: payloads.OrderExpiredEvent{
				OrderID:     current.ID,
				OrderNumber: current.OrderNumber,
				UserID:      current.UserID,
				CreatedAt:   current.CreatedAt,
				ExpiredAt:   now,
			},
		}); err != nil {
			return err
		}
		expired = true
		return nil
	})
	return expired, err
}
