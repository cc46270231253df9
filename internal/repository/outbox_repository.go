package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/SubodhIkites/Full-stack-cuddly/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoOutboxRepository struct {
	collection *mongo.Collection
}

func NewMongoOutboxRepository(db *mongo.Database) OutboxRepository {
	return &mongoOutboxRepository{
		collection: db.Collection(outboxCollection),
	}
}

func (m *mongoOutboxRepository) AddEvent(ctx context.Context, event *domain.OutboxEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	if _, err := m.collection.InsertOne(ctx, event); err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

// GetUnprocessedEvents returns up to limit unpublished events, oldest first.
func (m *mongoOutboxRepository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	filter := bson.M{"processed_at": bson.M{"$exists": false}}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := m.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("query outbox events: %w", err)
	}
	defer cursor.Close(ctx)

	var events []*domain.OutboxEvent
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("decode outbox events: %w", err)
	}
	return events, nil
}

func (m *mongoOutboxRepository) MarkEventAsProcessed(ctx context.Context, id string) error {
	update := bson.M{"$set": bson.M{"processed_at": time.Now()}}
	if _, err := m.collection.UpdateOne(ctx, bson.M{"_id": id}, update); err != nil {
		return fmt.Errorf("mark outbox event processed: %w", err)
	}
	return nil
}
