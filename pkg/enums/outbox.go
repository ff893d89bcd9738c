package enums

// OutboxEventType names the domain events written through the outbox and
// carried as the event_type attribute on published messages.
type OutboxEventType string

const (
	EventPaymentCaptured     OutboxEventType = "payment.captured"
	EventPaymentFailed       OutboxEventType = "payment.failed"
	EventOrdersCreated       OutboxEventType = "orders.created"
	EventOrderPlaced         OutboxEventType = "order.placed"
	EventOrderPlacementError OutboxEventType = "order.placement_failed"
	EventOrderManualQueued   OutboxEventType = "order.manual_queued"
	EventOrderManualClosed   OutboxEventType = "order.manual_closed"
)

func (o OutboxEventType) String() string { return string(o) }

func (o OutboxEventType) IsValid() bool {
	switch o {
	case EventPaymentCaptured, EventPaymentFailed, EventOrdersCreated,
		EventOrderPlaced, EventOrderPlacementError,
		EventOrderManualQueued, EventOrderManualClosed:
		return true
	}
	return false
}

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateCheckoutSession OutboxAggregateType = "checkout_session"
	AggregateRetailerOrder   OutboxAggregateType = "retailer_order"
)

func (o OutboxAggregateType) String() string { return string(o) }

func (o OutboxAggregateType) IsValid() bool {
	switch o {
	case AggregateCheckoutSession, AggregateRetailerOrder:
		return true
	}
	return false
}
