package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/LLTIGER/pulse-architects-sub001/internal/repo"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/db/models"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/enums"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/pagination"
)

type repository struct {
	orders repo.Table[models.Order]
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{orders: repo.NewTable[models.Order](db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{orders: r.orders.WithTx(tx)}
}

// Create inserts the order together with its items.
func (r *repository) Create(ctx context.Context, order *models.Order) error {
	if order == nil {
		return errors.New("order is required")
	}
	if order.OrderNumber == "" {
		order.OrderNumber = NewOrderNumber(time.Now().UTC())
	}
	return r.orders.Insert(ctx, order)
}

// FindByID returns nil without error when the order does not exist.
func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return repo.First[models.Order](r.orders.DB(ctx).Preload("Items").Where("id = ?", id))
}

// FindByIDForUpdate locks the order row for the rest of the transaction.
func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return repo.First[models.Order](r.orders.DB(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Items").
		Where("id = ?", id))
}

func (r *repository) FindByPaymentIntentIDForUpdate(ctx context.Context, paymentIntentID string) (*models.Order, error) {
	if paymentIntentID == "" {
		return nil, nil
	}
	return repo.First[models.Order](r.orders.DB(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Items").
		Where("stripe_payment_intent_id = ?", paymentIntentID))
}

// FindPendingBefore lists orders still in PENDING status created before cutoff, oldest first.
func (r *repository) FindPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	var rows []models.Order
	q := r.orders.DB(ctx).
		Where("status = ? AND created_at < ?", enums.OrderStatusPending, cutoff).
		Order("created_at ASC").
		Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	res := r.orders.Model(ctx).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListByUser pages through a user's orders, newest first, items included.
func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Order, error) {
	var rows []models.Order
	err := r.orders.DB(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Scopes(pagination.After(cursor)).
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
