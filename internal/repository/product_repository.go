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

type mongoProductRepository struct {
	collection *mongo.Collection
}

func NewMongoProductRepository(db *mongo.Database) ProductRepository {
	return &mongoProductRepository{
		collection: db.Collection(productsCollection),
	}
}

func (m *mongoProductRepository) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var product domain.Product
	err := m.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&product)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &product, nil
}

func (m *mongoProductRepository) CreateProduct(ctx context.Context, product *domain.Product) error {
	now := time.Now()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now

	if _, err := m.collection.InsertOne(ctx, product); err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}
	return nil
}

func (m *mongoProductRepository) SetStock(ctx context.Context, id string, stock int) error {
	update := bson.M{"$set": bson.M{"stock": stock, "updated_at": time.Now()}}
	result, err := m.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to set stock: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrProductNotFound
	}
	return nil
}

// DecrementStock takes quantity units only if at least that many are left.
// The check and the write are one server-side operation.
func (m *mongoProductRepository) DecrementStock(ctx context.Context, id string, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	filter := bson.M{
		"_id":   id,
		"stock": bson.M{"$gte": quantity},
	}
	update := bson.M{
		"$inc": bson.M{"stock": -quantity},
		"$set": bson.M{"updated_at": time.Now()},
	}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}
	if result.MatchedCount == 1 {
		return nil
	}

	// Nothing matched: either the product is gone or there is not enough stock.
	count, err := m.collection.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to check product: %w", err)
	}
	if count == 0 {
		return ErrProductNotFound
	}
	return ErrInsufficientStock
}

func (m *mongoProductRepository) RestoreStock(ctx context.Context, id string, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	update := bson.M{
		"$inc": bson.M{"stock": quantity},
		"$set": bson.M{"updated_at": time.Now()},
	}
	result, err := m.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to restore stock: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrProductNotFound
	}
	return nil
}
