package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SubodhIkites/Full-stack-cuddly/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type mongoPaymentRepository struct {
	collection *mongo.Collection
}

func NewMongoPaymentRepository(db *mongo.Database) PaymentRepository {
	return &mongoPaymentRepository{
		collection: db.Collection(paymentsCollection),
	}
}

func (m *mongoPaymentRepository) CreatePayment(ctx context.Context, payment *domain.Payment) error {
	now := time.Now()
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = now
	}
	if payment.UpdatedAt.IsZero() {
		payment.UpdatedAt = now
	}

	if _, err := m.collection.InsertOne(ctx, payment); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicatePayment
		}
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (m *mongoPaymentRepository) GetPayment(ctx context.Context, id string) (*domain.Payment, error) {
	return m.findOne(ctx, bson.M{"_id": id})
}

func (m *mongoPaymentRepository) GetPaymentByOrder(ctx context.Context, orderID string) (*domain.Payment, error) {
	return m.findOne(ctx, bson.M{"order_id": orderID})
}

func (m *mongoPaymentRepository) UpdatePayment(ctx context.Context, payment *domain.Payment, expected domain.PaymentStatus) error {
	if payment.UpdatedAt.IsZero() {
		payment.UpdatedAt = time.Now()
	}

	filter := bson.M{"_id": payment.ID, "status": expected}
	result, err := m.collection.ReplaceOne(ctx, filter, payment)
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	if result.MatchedCount == 1 {
		return nil
	}

	count, err := m.collection.CountDocuments(ctx, bson.M{"_id": payment.ID})
	if err != nil {
		return fmt.Errorf("check payment: %w", err)
	}
	if count == 0 {
		return ErrPaymentNotFound
	}
	return ErrStatusConflict
}

func (m *mongoPaymentRepository) GetStuckPayments(ctx context.Context, olderThan time.Time) ([]*domain.Payment, error) {
	filter := bson.M{
		"status":     domain.PaymentStatusProcessing,
		"updated_at": bson.M{"$lt": olderThan},
	}
	cursor, err := m.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("query stuck payments: %w", err)
	}
	defer cursor.Close(ctx)

	var payments []*domain.Payment
	if err := cursor.All(ctx, &payments); err != nil {
		return nil, fmt.Errorf("decode stuck payments: %w", err)
	}
	return payments, nil
}

func (m *mongoPaymentRepository) findOne(ctx context.Context, filter bson.M) (*domain.Payment, error) {
	var payment domain.Payment
	err := m.collection.FindOne(ctx, filter).Decode(&payment)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("query payment: %w", err)
	}
	return &payment, nil
}
