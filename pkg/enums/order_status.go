package enums

// OrderStatus is the lifecycle track of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

var orderStatuses = set[OrderStatus]{OrderStatusPending, OrderStatusConfirmed, OrderStatusCancelled}

func (s OrderStatus) String() string { return string(s) }

func (s OrderStatus) IsValid() bool { return orderStatuses.has(s) }

func ParseOrderStatus(value string) (OrderStatus, error) {
	return orderStatuses.parse("order status", value)
}

// FulfillmentStatus tracks delivery of the purchased entitlement.
type FulfillmentStatus string

const (
	FulfillmentStatusPending    FulfillmentStatus = "PENDING"
	FulfillmentStatusProcessing FulfillmentStatus = "PROCESSING"
	FulfillmentStatusFulfilled  FulfillmentStatus = "FULFILLED"
	FulfillmentStatusCancelled  FulfillmentStatus = "CANCELLED"
)

var fulfillmentStatuses = set[FulfillmentStatus]{
	FulfillmentStatusPending,
	FulfillmentStatusProcessing,
	FulfillmentStatusFulfilled,
	FulfillmentStatusCancelled,
}

func (s FulfillmentStatus) String() string { return string(s) }

func (s FulfillmentStatus) IsValid() bool { return fulfillmentStatuses.has(s) }
