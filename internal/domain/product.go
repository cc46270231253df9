package domain

import "time"

// Product is the slice of the catalog entry the settlement flow needs. Stock
// is the authoritative count of purchasable units and is never negative.
type Product struct {
	ID             string            `bson:"_id" json:"id"`
	Name           string            `bson:"name" json:"name"`
	Description    string            `bson:"description,omitempty" json:"description,omitempty"`
	Price          float64           `bson:"price" json:"price"`
	Stock          int               `bson:"stock" json:"stock"`
	Specifications map[string]string `bson:"specifications,omitempty" json:"specifications,omitempty"`
	IsActive       bool              `bson:"is_active" json:"isActive"`
	CreatedAt      time.Time         `bson:"created_at" json:"createdAt"`
	UpdatedAt      time.Time         `bson:"updated_at" json:"updatedAt"`
}

func (p *Product) Validate() error {
	if p.Name == "" {
		return InvalidArgument("product name is required")
	}
	if p.Price < 0 {
		return InvalidArgument("price cannot be negative")
	}
	if p.Stock < 0 {
		return InvalidArgument("stock cannot be negative")
	}
	return nil
}
