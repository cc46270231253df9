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

type mongoCartRepository struct {
	collection *mongo.Collection
}

func NewMongoCartRepository(db *mongo.Database) CartRepository {
	return &mongoCartRepository{
		collection: db.Collection(cartsCollection),
	}
}

func (m *mongoCartRepository) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	var cart domain.Cart

	filter := bson.M{"user_id": userID}
	err := m.collection.FindOne(ctx, filter).Decode(&cart)

	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	if cart.Items == nil {
		cart.Items = []domain.CartItem{}
	}
	return &cart, nil
}

// SaveCart upserts the whole aggregate, derived totals included.
func (m *mongoCartRepository) SaveCart(ctx context.Context, cart *domain.Cart) error {
	now := time.Now()
	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = now
	}
	if cart.UpdatedAt.IsZero() {
		cart.UpdatedAt = now
	}
	if cart.Items == nil {
		cart.Items = []domain.CartItem{}
	}

	filter := bson.M{"user_id": cart.UserID}
	update := bson.M{
		"$set": bson.M{
			"items":        cart.Items,
			"total_items":  cart.TotalItems,
			"total_amount": cart.TotalAmount,
			"updated_at":   cart.UpdatedAt,
		},
		"$setOnInsert": bson.M{"created_at": cart.CreatedAt},
	}
	opts := options.Update().SetUpsert(true)

	if _, err := m.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to upsert cart: %w", err)
	}
	return nil
}
