package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/LLTIGER/pulse-architects-sub001/pkg/db/models"
	"github.com/LLTIGER/pulse-architects-sub001/pkg/enums"
)

// OrderView is the caller-facing order summary shown after returning from checkout.
type OrderView struct {
	ID                uuid.UUID               `json:"id"`
	OrderNumber       string                  `json:"orderNumber"`
	Status            enums.OrderStatus       `json:"status"`
	PaymentStatus     enums.PaymentStatus     `json:"paymentStatus"`
	FulfillmentStatus enums.FulfillmentStatus `json:"fulfillmentStatus"`
	Subtotal          decimal.Decimal         `json:"subtotal"`
	Tax               decimal.Decimal         `json:"tax"`
	Total             decimal.Decimal         `json:"total"`
	Currency          string                  `json:"currency"`
	Items             []OrderItemView         `json:"items"`
	CreatedAt         time.Time               `json:"createdAt"`
	CompletedAt       *time.Time              `json:"completedAt,omitempty"`
}

// OrderPage is one page of a user's order history.
type OrderPage struct {
	Items  []OrderView `json:"items"`
	Cursor string      `json:"cursor"`
}

type OrderItemView struct {
	AssetID     uuid.UUID         `json:"assetId"`
	LicenseTier enums.LicenseTier `json:"licenseTier"`
	Title       string            `json:"title"`
	UnitPrice   decimal.Decimal   `json:"unitPrice"`
	TotalPrice  decimal.Decimal   `json:"totalPrice"`
	Quantity    int               `json:"quantity"`
}

func toOrderView(o models.Order) OrderView {
	items := make([]OrderItemView, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderItemView{
			AssetID:     item.AssetID,
			LicenseTier: item.LicenseTier,
			Title:       item.Title,
			UnitPrice:   item.UnitPrice,
			TotalPrice:  item.TotalPrice,
			Quantity:    item.Quantity,
		})
	}
	return OrderView{
		ID:                o.ID,
		OrderNumber:       o.OrderNumber,
		Status:            o.Status,
		PaymentStatus:     o.PaymentStatus,
		FulfillmentStatus: o.FulfillmentStatus,
		Subtotal:          o.Subtotal,
		Tax:               o.Tax,
		Total:             o.Total,
		Currency:          o.Currency,
		Items:             items,
		CreatedAt:         o.CreatedAt,
		CompletedAt:       o.CompletedAt,
	}
}
