package http

import (
	"context"
	"net/http"
	"time"

	"github.com/SubodhIkites/Full-stack-cuddly/internal/domain"
	"github.com/SubodhIkites/Full-stack-cuddly/internal/service"
	"github.com/go-chi/chi/v5"
)

type OrderService interface {
	CreateOrder(ctx context.Context, p domain.Principal, req service.CreateOrderRequest) (*domain.Order, error)
	GetOrder(ctx context.Context, p domain.Principal, orderID string) (*domain.Order, error)
	ListOrders(ctx context.Context, p domain.Principal) ([]*domain.Order, error)
	CancelOrder(ctx context.Context, p domain.Principal, orderID string) (*domain.Order, error)
	UpdateStatus(ctx context.Context, p domain.Principal, orderID string, status domain.OrderStatus) (*domain.Order, error)
	AddTracking(ctx context.Context, p domain.Principal, orderID, trackingNumber string, estimatedDelivery time.Time) (*domain.Order, error)
}

type OrdersHandler struct {
	orders   OrderService
	timeout  time.Duration
	maxBytes int64
}

func NewOrdersHandler(orders OrderService, timeout time.Duration, maxBytes int64) *OrdersHandler {
	return &OrdersHandler{
		orders:   orders,
		timeout:  timeout,
		maxBytes: maxBytes,
	}
}

type CreateOrderRequestDTO struct {
	ShippingAddress domain.ShippingAddress `json:"shippingAddress"`
	PaymentInfo     domain.PaymentInfo     `json:"paymentInfo"`
}

type UpdateStatusRequestDTO struct {
	Status domain.OrderStatus `json:"status"`
}

type TrackingRequestDTO struct {
	TrackingNumber    string    `json:"trackingNumber"`
	EstimatedDelivery time.Time `json:"estimatedDelivery"`
}

func (h *OrdersHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	p, ok := getPrincipal(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing user authentication")
		return
	}

	var req CreateOrderRequestDTO
	if !decodeJSON(w, r, h.maxBytes, &req) {
		return
	}

	order, err := h.orders.CreateOrder(ctx, p, service.CreateOrderRequest{
		ShippingAddress: req.ShippingAddress,
		PaymentInfo:     req.PaymentInfo,
		IdempotencyKey:  r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondMessage(w, http.StatusCreated, "order created successfully", order)
}

func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	p, ok := getPrincipal(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing user authentication")
		return
	}

	orders, err := h.orders.ListOrders(ctx, p)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if orders == nil {
		orders = []*domain.Order{}
	}
	respondData(w, http.StatusOK, orders)
}

func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	p, ok := getPrincipal(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing user authentication")
		return
	}

	order, err := h.orders.GetOrder(ctx, p, chi.URLParam(r, "orderID"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, order)
}

func (h *OrdersHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	p, ok := getPrincipal(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing user authentication")
		return
	}

	order, err := h.orders.CancelOrder(ctx, p, chi.URLParam(r, "orderID"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondMessage(w, http.StatusOK, "order cancelled successfully", order)
}

func (h *OrdersHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	p, ok := getPrincipal(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing user authentication")
		return
	}

	var req UpdateStatusRequestDTO
	if !decodeJSON(w, r, h.maxBytes, &req) {
		return
	}

	order, err := h.orders.UpdateStatus(ctx, p, chi.URLParam(r, "orderID"), req.Status)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondMessage(w, http.StatusOK, "order status updated", order)
}

func (h *OrdersHandler) AddTracking(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	p, ok := getPrincipal(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing user authentication")
		return
	}

	var req TrackingRequestDTO
	if !decodeJSON(w, r, h.maxBytes, &req) {
		return
	}

	order, err := h.orders.AddTracking(ctx, p, chi.URLParam(r, "orderID"), req.TrackingNumber, req.EstimatedDelivery)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondMessage(w, http.StatusOK, "tracking information added", order)
}
