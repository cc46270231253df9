package http

import (
	"context"
	"net/http"
	"time"

	"github.com/SubodhIkites/Full-stack-cuddly/internal/domain"
	"github.com/go-chi/chi/v5"
)

type CartService interface {
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	AddItem(ctx context.Context, userID, productID string, quantity int) (*domain.Cart, error)
	UpdateQuantity(ctx context.Context, userID, productID string, quantity int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, userID, productID string) (*domain.Cart, error)
	ClearCart(ctx context.Context, userID string) (*domain.Cart, error)
}

type CartHandler struct {
	carts    CartService
	timeout  time.Duration
	maxBytes int64
}

func NewCartHandler(carts CartService, timeout time.Duration, maxBytes int64) *CartHandler {
	return &CartHandler{
		carts:    carts,
		timeout:  timeout,
		maxBytes: maxBytes,
	}
}

type AddItemRequestDTO struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	p, ok := getPrincipal(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing user authentication")
		return
	}

	cart, err := h.carts.GetCart(ctx, p.UserID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, cart)
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	p, ok := getPrincipal(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing user authentication")
		return
	}

	var req AddItemRequestDTO
	if !decodeJSON(w, r, h.maxBytes, &req) {
		return
	}
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "productId is required")
		return
	}

	cart, err := h.carts.AddItem(ctx, p.UserID, req.ProductID, req.Quantity)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondMessage(w, http.StatusOK, "item added to cart", cart)
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	p, ok := getPrincipal(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing user authentication")
		return
	}

	productID := chi.URLParam(r, "productID")
	var req UpdateQuantityRequestDTO
	if !decodeJSON(w, r, h.maxBytes, &req) {
		return
	}

	cart, err := h.carts.UpdateQuantity(ctx, p.UserID, productID, req.Quantity)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondMessage(w, http.StatusOK, "cart updated", cart)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	p, ok := getPrincipal(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing user authentication")
		return
	}

	cart, err := h.carts.RemoveItem(ctx, p.UserID, chi.URLParam(r, "productID"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondMessage(w, http.StatusOK, "item removed from cart", cart)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	p, ok := getPrincipal(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing user authentication")
		return
	}

	cart, err := h.carts.ClearCart(ctx, p.UserID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondMessage(w, http.StatusOK, "cart cleared", cart)
}
