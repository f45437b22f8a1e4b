package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/LLTIGER/pulse-architects-sub001/pkg/enums"
)

// OrderFulfilledEvent is emitted once a paid order has its license issued.
type OrderFulfilledEvent struct {
	OrderID      uuid.UUID         `json:"orderId"`
	OrderNumber  string            `json:"orderNumber"`
	UserID       uuid.UUID         `json:"userId"`
	AssetID      uuid.UUID         `json:"assetId"`
	LicenseID    uuid.UUID         `json:"licenseId"`
	LicenseKey   string            `json:"licenseKey"`
	LicenseTier  enums.LicenseTier `json:"licenseTier"`
	Total        decimal.Decimal   `json:"total"`
	Currency     string            `json:"currency"`
	BillingEmail string            `json:"billingEmail,omitempty"`
	CompletedAt  time.Time         `json:"completedAt"`
}

// OrderRefundedEvent is emitted when a dispute reverses a paid order.
type OrderRefundedEvent struct {
	OrderID             uuid.UUID `json:"orderId"`
	OrderNumber         string    `json:"orderNumber"`
	UserID              uuid.UUID `json:"userId"`
	PaymentIntentID     string    `json:"paymentIntentId"`
	Reason              string    `json:"reason"`
	DeactivatedLicenses int64     `json:"deactivatedLicenses"`
}

// OrderExpiredEvent is emitted when a pending order is abandoned past its TTL.
type OrderExpiredEvent struct {
	OrderID     uuid.UUID `json:"orderId"`
	OrderNumber string    `json:"orderNumber"`
	UserID      uuid.UUID `json:"userId"`
	CreatedAt   time.Time `json:"createdAt"`
	ExpiredAt   time.Time `json:"expiredAt"`
}
