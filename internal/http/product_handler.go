package http

import (
	"context"
	"net/http"
	"time"

	"github.com/SubodhIkites/Full-stack-cuddly/internal/domain"
	"github.com/SubodhIkites/Full-stack-cuddly/internal/service"
	"github.com/go-chi/chi/v5"
)

type ProductService interface {
	GetProduct(ctx context.Context, productID string) (*domain.Product, error)
	CreateProduct(ctx context.Context, p domain.Principal, in service.CreateProductInput) (*domain.Product, error)
	SetStock(ctx context.Context, p domain.Principal, productID string, stock int) (*domain.Product, error)
}

type ProductHandler struct {
	products ProductService
	timeout  time.Duration
	maxBytes int64
}

func NewProductHandler(products ProductService, timeout time.Duration, maxBytes int64) *ProductHandler {
	return &ProductHandler{
		products: products,
		timeout:  timeout,
		maxBytes: maxBytes,
	}
}

type CreateProductRequestDTO struct {
	Name           string            `json:"name"`
	Description    string            `json:"description"`
	Price          float64           `json:"price"`
	Stock          int               `json:"stock"`
	Specifications map[string]string `json:"specifications"`
}

type SetStockRequestDTO struct {
	Stock *int `json:"stock"`
}

func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	product, err := h.products.GetProduct(ctx, chi.URLParam(r, "productID"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, product)
}

func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	p, ok := getPrincipal(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing user authentication")
		return
	}

	var req CreateProductRequestDTO
	if !decodeJSON(w, r, h.maxBytes, &req) {
		return
	}

	product, err := h.products.CreateProduct(ctx, p, service.CreateProductInput{
		Name:           req.Name,
		Description:    req.Description,
		Price:          req.Price,
		Stock:          req.Stock,
		Specifications: req.Specifications,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondMessage(w, http.StatusCreated, "product created", product)
}

func (h *ProductHandler) SetStock(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	p, ok := getPrincipal(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing user authentication")
		return
	}

	var req SetStockRequestDTO
	if !decodeJSON(w, r, h.maxBytes, &req) {
		return
	}
	if req.Stock == nil {
		respondError(w, http.StatusBadRequest, "stock is required")
		return
	}

	product, err := h.products.SetStock(ctx, p, chi.URLParam(r, "productID"), *req.Stock)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondMessage(w, http.StatusOK, "stock updated", product)
}
