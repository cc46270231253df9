package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/SubodhIkites/Full-stack-cuddly/internal/domain"
	"github.com/SubodhIkites/Full-stack-cuddly/internal/repository"
	"github.com/google/uuid"
)

// eventRecorder appends domain events to the outbox. Recording never fails
// the operation that produced the event.
type eventRecorder struct {
	outbox repository.OutboxRepository
	now    func() time.Time
}

func newEventRecorder(outbox repository.OutboxRepository) *eventRecorder {
	return &eventRecorder{outbox: outbox, now: time.Now}
}

func (r *eventRecorder) record(ctx context.Context, aggregateID, eventType string, payload any) {
	if r == nil || r.outbox == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("marshal %s event for %s failed: %v", eventType, aggregateID, err)
		return
	}
	event := &domain.OutboxEvent{
		ID:          uuid.NewString(),
		AggregateID: aggregateID,
		EventType:   eventType,
		Payload:     data,
		CreatedAt:   r.now(),
	}
	if err := r.outbox.AddEvent(context.WithoutCancel(ctx), event); err != nil {
		log.Printf("outbox add %s event for %s failed: %v", eventType, aggregateID, err)
	}
}
