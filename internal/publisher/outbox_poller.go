package publisher

import (
	"context"
	"log"
	"time"

	"github.com/SubodhIkites/Full-stack-cuddly/internal/domain"
	"github.com/SubodhIkites/Full-stack-cuddly/internal/repository"
	"github.com/segmentio/kafka-go"
)

const DefaultTopic = "storefront-events"

// MessageWriter is the part of *kafka.Writer the poller uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// StuckPaymentRecoverer fails payments whose confirmation never recorded an
// outcome.
type StuckPaymentRecoverer interface {
	RecoverStuckPayments(ctx context.Context, olderThan time.Duration) (int, error)
}

type OutboxPoller struct {
	timeout      time.Duration
	eventTick    time.Duration
	recoveryTick time.Duration
	stuckAfter   time.Duration
	batchSize    int
	repo         repository.OutboxRepository
	recoverer    StuckPaymentRecoverer
	writer       MessageWriter
}

func NewOutboxPoller(repo repository.OutboxRepository, recoverer StuckPaymentRecoverer, topic string, brokers ...string) *OutboxPoller {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{}, // same aggregate, same partition
		AllowAutoTopicCreation: true,
	}
	return newOutboxPoller(repo, recoverer, w)
}

// NewRecoveryPoller runs stuck payment recovery only, for deployments without
// a broker.
func NewRecoveryPoller(recoverer StuckPaymentRecoverer) *OutboxPoller {
	return newOutboxPoller(nil, recoverer, nil)
}

func newOutboxPoller(repo repository.OutboxRepository, recoverer StuckPaymentRecoverer, w MessageWriter) *OutboxPoller {
	return &OutboxPoller{
		timeout:      time.Second * 5,
		eventTick:    time.Second,
		recoveryTick: time.Minute,
		stuckAfter:   time.Minute * 10,
		batchSize:    100,
		repo:         repo,
		recoverer:    recoverer,
		writer:       w,
	}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	eventTicker := time.NewTicker(p.eventTick)
	recoveryTicker := time.NewTicker(p.recoveryTick)
	defer eventTicker.Stop()
	defer recoveryTicker.Stop()
	for {
		select {
		case <-eventTicker.C:
			p.processUnpublishedEvents(ctx)
		case <-recoveryTicker.C:
			p.recoverStuckPayments(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) {
	if p.writer == nil || p.repo == nil {
		return
	}
	events, err := p.repo.GetUnprocessedEvents(ctx, p.batchSize)
	if err != nil {
		log.Printf("failed to fetch events %v", err)
		return
	}

	for _, event := range events {
		if err := p.publishToKafka(ctx, event); err != nil {
			log.Printf("failed to publish event id = %v with error %v", event.ID, err)
			// keep per-aggregate order: later events wait for this one
			return
		}

		if err := p.repo.MarkEventAsProcessed(ctx, event.ID); err != nil {
			log.Printf("failed to mark event as processed id = %v with error %v", event.ID, err)
		}
	}
}

func (p *OutboxPoller) recoverStuckPayments(ctx context.Context) {
	if p.recoverer == nil {
		return
	}
	n, err := p.recoverer.RecoverStuckPayments(ctx, p.stuckAfter)
	if err != nil {
		log.Printf("failed to recover stuck payments: %v", err)
		return
	}
	if n > 0 {
		log.Printf("recovered %d stuck payments", n)
	}
}

func (p *OutboxPoller) publishToKafka(ctx context.Context, event *domain.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(event.AggregateID), // order or payment id for ordering
		Value: event.Payload,             // Already JSON from database
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
		Time: event.CreatedAt,
	}

	writeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.writer.WriteMessages(writeCtx, msg)
}
