package enums

// OutboxAggregateType names the entity an outbox event is about. The
// aggregate id doubles as the Pub/Sub ordering key.
type OutboxAggregateType string

const (
	AggregateOrder   OutboxAggregateType = "order"
	AggregateLicense OutboxAggregateType = "license"
)

var aggregateTypes = set[OutboxAggregateType]{AggregateOrder, AggregateLicense}

func (a OutboxAggregateType) String() string { return string(a) }

func (a OutboxAggregateType) IsValid() bool { return aggregateTypes.has(a) }

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return aggregateTypes.parse("outbox aggregate type", value)
}

// OutboxEventType is the domain event carried by an outbox row. The value
// is published as the event_type message attribute.
type OutboxEventType string

const (
	EventOrderFulfilled OutboxEventType = "order.fulfilled"
	EventOrderRefunded  OutboxEventType = "order.refunded"
	EventOrderExpired   OutboxEventType = "order.expired"
)

var eventTypes = set[OutboxEventType]{EventOrderFulfilled, EventOrderRefunded, EventOrderExpired}

func (e OutboxEventType) String() string { return string(e) }

func (e OutboxEventType) IsValid() bool { return eventTypes.has(e) }

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return eventTypes.parse("outbox event type", value)
}
