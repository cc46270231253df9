package repository

import (
	"context"
	"errors"
	"time"

	"github.com/SubodhIkites/Full-stack-cuddly/internal/domain"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrCartNotFound      = errors.New("cart not found")
	ErrOrderNotFound     = errors.New("order not found")
	ErrPaymentNotFound   = errors.New("payment not found")
	ErrDuplicatePayment  = errors.New("payment for this order already exists")
	ErrStatusConflict    = errors.New("document is not in the expected status")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
)

// ProductRepository is the stock ledger. DecrementStock is a single
// conditional update: it either takes the whole quantity or changes nothing.
type ProductRepository interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	CreateProduct(ctx context.Context, product *domain.Product) error
	SetStock(ctx context.Context, id string, stock int) error
	DecrementStock(ctx context.Context, id string, quantity int) error
	RestoreStock(ctx context.Context, id string, quantity int) error
}

type CartRepository interface {
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	SaveCart(ctx context.Context, cart *domain.Cart) error
}

// OrderRepository transitions status with a compare-and-set on the current
// status, so only one of two racing transitions can win.
type OrderRepository interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	ListOrdersByUser(ctx context.Context, userID string) ([]*domain.Order, error)
	UpdateStatus(ctx context.Context, id string, from []domain.OrderStatus, to domain.OrderStatus) (*domain.Order, error)
	SetTracking(ctx context.Context, id, trackingNumber string, estimatedDelivery time.Time) (*domain.Order, error)
}

type PaymentRepository interface {
	CreatePayment(ctx context.Context, payment *domain.Payment) error
	GetPayment(ctx context.Context, id string) (*domain.Payment, error)
	GetPaymentByOrder(ctx context.Context, orderID string) (*domain.Payment, error)
	// UpdatePayment replaces the payment only while it is still in the expected status.
	UpdatePayment(ctx context.Context, payment *domain.Payment, expected domain.PaymentStatus) error
	// GetStuckPayments lists payments left processing since before olderThan.
	GetStuckPayments(ctx context.Context, olderThan time.Time) ([]*domain.Payment, error)
}

type OutboxRepository interface {
	AddEvent(ctx context.Context, event *domain.OutboxEvent) error
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id string) error
}
