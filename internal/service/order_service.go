package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/SubodhIkites/Full-stack-cuddly/internal/cache"
	"github.com/SubodhIkites/Full-stack-cuddly/internal/domain"
	"github.com/SubodhIkites/Full-stack-cuddly/internal/repository"
	"github.com/google/uuid"
)

// IdempotencyStore deduplicates order placement per client key.
type IdempotencyStore interface {
	Begin(ctx context.Context, scope, key string) (result string, started bool, err error)
	Complete(ctx context.Context, scope, key, result string) error
	Abort(ctx context.Context, scope, key string) error
}

type CreateOrderRequest struct {
	ShippingAddress domain.ShippingAddress
	PaymentInfo     domain.PaymentInfo
	// IdempotencyKey is optional; a repeated key returns the first order.
	IdempotencyKey string
}

type OrderService struct {
	orders   repository.OrderRepository
	products repository.ProductRepository
	payments repository.PaymentRepository
	carts    *CartService
	idem     IdempotencyStore
	events   *eventRecorder
	now      func() time.Time
}

// NewOrderService wires the settlement flow. idem and outbox may be nil, which
// disables idempotency keys and event recording respectively.
func NewOrderService(
	orders repository.OrderRepository,
	products repository.ProductRepository,
	payments repository.PaymentRepository,
	carts *CartService,
	idem IdempotencyStore,
	outbox repository.OutboxRepository,
) *OrderService {
	return &OrderService{
		orders:   orders,
		products: products,
		payments: payments,
		carts:    carts,
		idem:     idem,
		events:   newEventRecorder(outbox),
		now:      time.Now,
	}
}

// CreateOrder converts the caller's cart into a pending order. Stock for
// every line is taken or none is.
func (s *OrderService) CreateOrder(ctx context.Context, p domain.Principal, req CreateOrderRequest) (*domain.Order, error) {
	if err := req.ShippingAddress.Validate(); err != nil {
		return nil, err
	}

	if s.idem == nil || req.IdempotencyKey == "" {
		return s.settle(ctx, p.UserID, req)
	}

	scope := "orders:" + p.UserID
	orderID, started, err := s.idem.Begin(ctx, scope, req.IdempotencyKey)
	switch {
	case errors.Is(err, cache.ErrRequestInProgress):
		return nil, domain.Conflict("an order with this idempotency key is already being placed")
	case err != nil:
		log.Printf("idempotency begin error, placing order without key: %v", err)
		return s.settle(ctx, p.UserID, req)
	case !started:
		log.Printf("Duplicate request detected idempotency_key = %v with order_id = %v", req.IdempotencyKey, orderID)
		return s.loadOrder(ctx, orderID)
	}

	order, err := s.settle(ctx, p.UserID, req)
	bg := context.WithoutCancel(ctx)
	if err != nil {
		if errAbort := s.idem.Abort(bg, scope, req.IdempotencyKey); errAbort != nil {
			log.Printf("idempotency abort error: %v", errAbort)
		}
		return nil, err
	}
	if errComplete := s.idem.Complete(bg, scope, req.IdempotencyKey, order.ID); errComplete != nil {
		log.Printf("idempotency complete error: %v", errComplete)
	}
	return order, nil
}

func (s *OrderService) settle(ctx context.Context, userID string, req CreateOrderRequest) (*domain.Order, error) {
	cart, err := s.carts.loadCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, domain.EmptyCart("cart is empty")
	}

	// Validate every line before touching any stock.
	for _, item := range cart.Items {
		product, err := s.products.GetProduct(ctx, item.ProductID)
		if err != nil {
			return nil, productError(err, item.ProductID)
		}
		if product.Stock < item.Quantity {
			return nil, domain.InsufficientStock("insufficient stock for %s, %d left", product.Name, product.Stock)
		}
	}

	taken := make([]domain.CartItem, 0, len(cart.Items))
	for _, item := range cart.Items {
		if err := s.products.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			s.restoreStock(ctx, taken)
			return nil, productError(err, item.ProductID)
		}
		taken = append(taken, item)
	}

	order := domain.NewOrder(uuid.NewString(), cart, req.ShippingAddress, req.PaymentInfo, s.now())
	if err := s.orders.CreateOrder(ctx, order); err != nil {
		log.Printf("repo create order error: %v", err)
		s.restoreStock(ctx, taken)
		return nil, err
	}

	// The purchase stands even if the cart cannot be cleared.
	if _, err := s.carts.ClearCart(context.WithoutCancel(ctx), userID); err != nil {
		log.Printf("clear cart after order %s error: %v", order.ID, err)
	}

	s.events.record(ctx, order.ID, domain.EventOrderCreated, order)
	return order, nil
}

// restoreStock puts back stock taken for items. It runs detached from the
// caller's context so a cancelled request still compensates.
func (s *OrderService) restoreStock(ctx context.Context, items []domain.CartItem) {
	bg := context.WithoutCancel(ctx)
	for _, item := range items {
		if err := s.products.RestoreStock(bg, item.ProductID, item.Quantity); err != nil {
			log.Printf("restore stock for product %s (qty %d) error: %v", item.ProductID, item.Quantity, err)
		}
	}
}

func (s *OrderService) GetOrder(ctx context.Context, p domain.Principal, orderID string) (*domain.Order, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.AccessibleBy(p) {
		return nil, domain.Forbidden("not authorized to access this order")
	}
	return order, nil
}

func (s *OrderService) ListOrders(ctx context.Context, p domain.Principal) ([]*domain.Order, error) {
	orders, err := s.orders.ListOrdersByUser(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *OrderService) CancelOrder(ctx context.Context, p domain.Principal, orderID string) (*domain.Order, error) {
	order, err := s.GetOrder(ctx, p, orderID)
	if err != nil {
		return nil, err
	}
	if err := domain.CanTransitionTo(order.Status, domain.OrderStatusCancelled); err != nil {
		return nil, err
	}
	if err := s.checkUncharged(ctx, orderID); err != nil {
		return nil, err
	}
	return s.cancel(ctx, orderID)
}

// checkUncharged rejects cancelling an order whose payment is captured or
// being captured. Those orders are cancelled by refunding the payment.
func (s *OrderService) checkUncharged(ctx context.Context, orderID string) error {
	payment, err := s.payments.GetPaymentByOrder(ctx, orderID)
	if errors.Is(err, repository.ErrPaymentNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	switch payment.Status {
	case domain.PaymentStatusProcessing, domain.PaymentStatusCompleted:
		return domain.InvalidState("order payment is %s, refund the payment to cancel the order", payment.Status)
	}
	return nil
}

// cancel flips an open order to cancelled and restores its stock. The flip is
// conditional on the order still being open, so only one caller restores.
func (s *OrderService) cancel(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := s.orders.UpdateStatus(ctx, orderID, domain.OpenOrderStatuses, domain.OrderStatusCancelled)
	if err != nil {
		return nil, s.transitionError(ctx, err, orderID, domain.OrderStatusCancelled)
	}

	bg := context.WithoutCancel(ctx)
	for _, item := range order.Items {
		if err := s.products.RestoreStock(bg, item.ProductID, item.Quantity); err != nil {
			// the product may have been removed from the catalog
			log.Printf("restore stock for product %s on cancel of order %s error: %v", item.ProductID, orderID, err)
		}
	}

	s.events.record(ctx, order.ID, domain.EventOrderCancelled, order)
	return order, nil
}

func (s *OrderService) UpdateStatus(ctx context.Context, p domain.Principal, orderID string, status domain.OrderStatus) (*domain.Order, error) {
	if !p.IsAdmin() {
		return nil, domain.Forbidden("admin access required")
	}
	if !status.IsValid() {
		return nil, domain.InvalidArgument("invalid order status %q", status)
	}

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := domain.CanTransitionTo(order.Status, status); err != nil {
		return nil, err
	}
	if status == domain.OrderStatusCancelled {
		if err := s.checkUncharged(ctx, orderID); err != nil {
			return nil, err
		}
		return s.cancel(ctx, orderID)
	}

	updated, err := s.orders.UpdateStatus(ctx, orderID, domain.OpenOrderStatuses, status)
	if err != nil {
		return nil, s.transitionError(ctx, err, orderID, status)
	}
	s.events.record(ctx, updated.ID, domain.EventOrderStatus, updated)
	return updated, nil
}

func (s *OrderService) AddTracking(ctx context.Context, p domain.Principal, orderID, trackingNumber string, estimatedDelivery time.Time) (*domain.Order, error) {
	if !p.IsAdmin() {
		return nil, domain.Forbidden("admin access required")
	}
	if trackingNumber == "" {
		return nil, domain.InvalidArgument("tracking number is required")
	}
	if estimatedDelivery.IsZero() {
		return nil, domain.InvalidArgument("estimated delivery date is required")
	}

	order, err := s.orders.SetTracking(ctx, orderID, trackingNumber, estimatedDelivery)
	if err != nil {
		return nil, orderError(err, orderID)
	}
	return order, nil
}

// markProcessing moves a paid order forward. Orders already processing are
// left as they are.
func (s *OrderService) markProcessing(ctx context.Context, orderID string) (*domain.Order, error) {
	from := []domain.OrderStatus{domain.OrderStatusPending, domain.OrderStatusProcessing}
	order, err := s.orders.UpdateStatus(ctx, orderID, from, domain.OrderStatusProcessing)
	if err != nil {
		return nil, s.transitionError(ctx, err, orderID, domain.OrderStatusProcessing)
	}
	s.events.record(ctx, order.ID, domain.EventOrderStatus, order)
	return order, nil
}

func (s *OrderService) loadOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, orderError(err, orderID)
	}
	return order, nil
}

// transitionError explains a lost compare-and-set by re-reading the order.
func (s *OrderService) transitionError(ctx context.Context, err error, orderID string, to domain.OrderStatus) error {
	if !errors.Is(err, repository.ErrStatusConflict) {
		return orderError(err, orderID)
	}
	current, errGet := s.loadOrder(ctx, orderID)
	if errGet != nil {
		return errGet
	}
	if errTransition := domain.CanTransitionTo(current.Status, to); errTransition != nil {
		return errTransition
	}
	return domain.Conflict("order %s changed status concurrently", orderID)
}
