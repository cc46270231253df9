package http

import (
	"context"
	"net/http"
	"time"

	"github.com/SubodhIkites/Full-stack-cuddly/internal/domain"
	"github.com/SubodhIkites/Full-stack-cuddly/internal/service"
	"github.com/go-chi/chi/v5"
)

type PaymentService interface {
	CreatePaymentIntent(ctx context.Context, p domain.Principal, orderID string, method domain.PaymentMethod) (*service.PaymentIntent, error)
	ConfirmPayment(ctx context.Context, p domain.Principal, req service.ConfirmPaymentRequest) (*domain.Payment, error)
	ProcessRefund(ctx context.Context, p domain.Principal, paymentID, reason string) (*domain.Payment, error)
	GetPayment(ctx context.Context, p domain.Principal, paymentID string) (*domain.Payment, error)
}

type PaymentHandler struct {
	payments PaymentService
	// timeout covers the gateway round trip plus the surrounding writes.
	timeout  time.Duration
	maxBytes int64
}

func NewPaymentHandler(payments PaymentService, timeout time.Duration, maxBytes int64) *PaymentHandler {
	return &PaymentHandler{
		payments: payments,
		timeout:  timeout,
		maxBytes: maxBytes,
	}
}

type CreateIntentRequestDTO struct {
	OrderID       string               `json:"orderId"`
	PaymentMethod domain.PaymentMethod `json:"paymentMethod"`
}

type CreateIntentResponseDTO struct {
	ClientSecret string `json:"clientSecret"`
	PaymentID    string `json:"paymentId"`
}

type ConfirmPaymentRequestDTO struct {
	PaymentID       string `json:"paymentId"`
	PaymentMethodID string `json:"paymentMethodId"`
	UpiID           string `json:"upiId"`
	BankName        string `json:"bankName"`
	WalletName      string `json:"walletName"`
}

type RefundRequestDTO struct {
	Reason string `json:"reason"`
}

func (h *PaymentHandler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	p, ok := getPrincipal(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing user authentication")
		return
	}

	var req CreateIntentRequestDTO
	if !decodeJSON(w, r, h.maxBytes, &req) {
		return
	}
	if req.OrderID == "" {
		respondError(w, http.StatusBadRequest, "orderId is required")
		return
	}

	intent, err := h.payments.CreatePaymentIntent(ctx, p, req.OrderID, req.PaymentMethod)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, CreateIntentResponseDTO{
		ClientSecret: intent.ClientSecret,
		PaymentID:    intent.Payment.ID,
	})
}

func (h *PaymentHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	p, ok := getPrincipal(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing user authentication")
		return
	}

	var req ConfirmPaymentRequestDTO
	if !decodeJSON(w, r, h.maxBytes, &req) {
		return
	}
	if req.PaymentID == "" {
		respondError(w, http.StatusBadRequest, "paymentId is required")
		return
	}

	payment, err := h.payments.ConfirmPayment(ctx, p, service.ConfirmPaymentRequest{
		PaymentID:       req.PaymentID,
		PaymentMethodID: req.PaymentMethodID,
		UpiID:           req.UpiID,
		BankName:        req.BankName,
		WalletName:      req.WalletName,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondMessage(w, http.StatusOK, "payment confirmed successfully", payment)
}

func (h *PaymentHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	p, ok := getPrincipal(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing user authentication")
		return
	}

	payment, err := h.payments.GetPayment(ctx, p, chi.URLParam(r, "paymentID"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, payment)
}

func (h *PaymentHandler) Refund(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	p, ok := getPrincipal(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing user authentication")
		return
	}

	var req RefundRequestDTO
	if !decodeOptionalJSON(w, r, h.maxBytes, &req) {
		return
	}

	payment, err := h.payments.ProcessRefund(ctx, p, chi.URLParam(r, "paymentID"), req.Reason)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondMessage(w, http.StatusOK, "refund processed successfully", payment)
}
