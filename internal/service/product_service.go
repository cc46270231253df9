package service

import (
	"context"
	"log"
	"time"

	"github.com/SubodhIkites/Full-stack-cuddly/internal/domain"
	"github.com/SubodhIkites/Full-stack-cuddly/internal/repository"
	"github.com/google/uuid"
)

type CreateProductInput struct {
	Name           string
	Description    string
	Price          float64
	Stock          int
	Specifications map[string]string
}

// ProductService exposes the catalog operations the storefront needs: reads
// for everyone and stock administration for admins.
type ProductService struct {
	products repository.ProductRepository
	now      func() time.Time
}

func NewProductService(products repository.ProductRepository) *ProductService {
	return &ProductService{products: products, now: time.Now}
}

func (s *ProductService) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return nil, productError(err, productID)
	}
	return product, nil
}

func (s *ProductService) CreateProduct(ctx context.Context, p domain.Principal, in CreateProductInput) (*domain.Product, error) {
	if !p.IsAdmin() {
		return nil, domain.Forbidden("admin access required")
	}

	now := s.now()
	product := &domain.Product{
		ID:             uuid.NewString(),
		Name:           in.Name,
		Description:    in.Description,
		Price:          in.Price,
		Stock:          in.Stock,
		Specifications: in.Specifications,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := product.Validate(); err != nil {
		return nil, err
	}
	if err := s.products.CreateProduct(ctx, product); err != nil {
		log.Printf("repo create product error: %v", err)
		return nil, err
	}
	return product, nil
}

func (s *ProductService) SetStock(ctx context.Context, p domain.Principal, productID string, stock int) (*domain.Product, error) {
	if !p.IsAdmin() {
		return nil, domain.Forbidden("admin access required")
	}
	if stock < 0 {
		return nil, domain.InvalidArgument("stock cannot be negative")
	}
	if err := s.products.SetStock(ctx, productID, stock); err != nil {
		return nil, productError(err, productID)
	}
	return s.GetProduct(ctx, productID)
}
