package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/LLTIGER/pulse-architects-sub001/pkg/enums"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/types"
)

// Order is one purchase attempt. Rows are never deleted; they are
// transitioned to CANCELLED or REFUNDED instead.
type Order struct {
	ID                    uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber           string                  `gorm:"column:order_number;not null;unique"`
	UserID                uuid.UUID               `gorm:"column:user_id;type:uuid;not null"`
	Status                enums.OrderStatus       `gorm:"column:status;not null"`
	PaymentStatus         enums.PaymentStatus     `gorm:"column:payment_status;not null"`
	FulfillmentStatus     enums.FulfillmentStatus `gorm:"column:fulfillment_status;not null"`
	Subtotal              decimal.Decimal         `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Tax                   decimal.Decimal         `gorm:"column:tax;type:numeric(12,2);not null"`
	Total                 decimal.Decimal         `gorm:"column:total;type:numeric(12,2);not null"`
	Currency              string                  `gorm:"column:currency;not null"`
	BillingEmail          *string                 `gorm:"column:billing_email"`
	BillingName           *string                 `gorm:"column:billing_name"`
	BillingAddress        *types.BillingAddress   `gorm:"column:billing_address;type:jsonb"`
	StripeSessionID       *string                 `gorm:"column:stripe_session_id"`
	StripePaymentIntentID *string                 `gorm:"column:stripe_payment_intent_id"`
	InternalNotes         *string                 `gorm:"column:internal_notes"`
	CreatedAt             time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time               `gorm:"column:updated_at;autoUpdateTime"`
	CompletedAt           *time.Time              `gorm:"column:completed_at"`

	Items []OrderItem `gorm:"foreignKey:OrderID"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// IsFulfilled reports the terminal success state of both tracks.
func (o *Order) IsFulfilled() bool {
	return o.PaymentStatus == enums.PaymentStatusPaid && o.FulfillmentStatus == enums.FulfillmentStatusFulfilled
}

// OrderItem is an immutable price and catalog snapshot of one purchased asset tier.
type OrderItem struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderID     uuid.UUID         `gorm:"column:order_id;type:uuid;not null"`
	AssetID     uuid.UUID         `gorm:"column:asset_id;type:uuid;not null"`
	LicenseTier enums.LicenseTier `gorm:"column:license_tier;not null"`
	Quantity    int               `gorm:"column:quantity;not null;default:1"`
	UnitPrice   decimal.Decimal   `gorm:"column:unit_price;type:numeric(12,2);not null"`
	TotalPrice  decimal.Decimal   `gorm:"column:total_price;type:numeric(12,2);not null"`
	Currency    string            `gorm:"column:currency;not null"`
	Title       string            `gorm:"column:title;not null"`
	Description *string           `gorm:"column:description"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
