package domain

import "time"

const (
	EventOrderCreated     = "order.created"
	EventOrderCancelled   = "order.cancelled"
	EventOrderStatus      = "order.status_changed"
	EventPaymentCompleted = "payment.completed"
	EventPaymentFailed    = "payment.failed"
	EventPaymentRefunded  = "payment.refunded"
)

// OutboxEvent is a domain event waiting to be published to the broker.
type OutboxEvent struct {
	ID          string     `bson:"_id"`
	AggregateID string     `bson:"aggregate_id"`
	EventType   string     `bson:"event_type"`
	Payload     []byte     `bson:"payload"`
	CreatedAt   time.Time  `bson:"created_at"`
	ProcessedAt *time.Time `bson:"processed_at,omitempty"`
}
