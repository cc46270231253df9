package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SubodhIkites/Full-stack-cuddly/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoOrderRepository struct {
	collection *mongo.Collection
}

func NewMongoOrderRepository(db *mongo.Database) OrderRepository {
	return &mongoOrderRepository{
		collection: db.Collection(ordersCollection),
	}
}

func (m *mongoOrderRepository) CreateOrder(ctx context.Context, order *domain.Order) error {
	now := time.Now()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = now
	}

	if _, err := m.collection.InsertOne(ctx, order); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (m *mongoOrderRepository) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	var order domain.Order
	err := m.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("query order by id: %w", err)
	}
	return &order, nil
}

func (m *mongoOrderRepository) ListOrdersByUser(ctx context.Context, userID string) ([]*domain.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := m.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("query orders by user id: %w", err)
	}
	defer cursor.Close(ctx)

	orders := make([]*domain.Order, 0)
	for cursor.Next(ctx) {
		var order domain.Order
		if err := cursor.Decode(&order); err != nil {
			return nil, fmt.Errorf("decode order: %w", err)
		}
		orders = append(orders, &order)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor iteration error: %w", err)
	}
	return orders, nil
}

func (m *mongoOrderRepository) UpdateStatus(ctx context.Context, id string, from []domain.OrderStatus, to domain.OrderStatus) (*domain.Order, error) {
	filter := bson.M{
		"_id":    id,
		"status": bson.M{"$in": from},
	}
	update := bson.M{"$set": bson.M{"status": to, "updated_at": time.Now()}}
	return m.findOneAndUpdate(ctx, id, filter, update)
}

func (m *mongoOrderRepository) SetTracking(ctx context.Context, id, trackingNumber string, estimatedDelivery time.Time) (*domain.Order, error) {
	update := bson.M{"$set": bson.M{
		"tracking_number":    trackingNumber,
		"estimated_delivery": estimatedDelivery,
		"updated_at":         time.Now(),
	}}
	return m.findOneAndUpdate(ctx, id, bson.M{"_id": id}, update)
}

func (m *mongoOrderRepository) findOneAndUpdate(ctx context.Context, id string, filter, update bson.M) (*domain.Order, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var order domain.Order
	err := m.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&order)
	if err == nil {
		return &order, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("update order: %w", err)
	}

	count, errCount := m.collection.CountDocuments(ctx, bson.M{"_id": id})
	if errCount != nil {
		return nil, fmt.Errorf("check order: %w", errCount)
	}
	if count == 0 {
		return nil, ErrOrderNotFound
	}
	return nil, ErrStatusConflict
}
