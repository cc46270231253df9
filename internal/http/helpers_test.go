package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SubodhIkites/Full-stack-cuddly/internal/domain"
	"github.com/SubodhIkites/Full-stack-cuddly/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var (
	testSecret = []byte("test-secret")
	alice      = domain.Principal{UserID: "alice", Role: domain.RoleUser}
	admin      = domain.Principal{UserID: "root", Role: domain.RoleAdmin}
)

// --- helpers ---

func withPrincipal(ctx context.Context, p domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func asUser(r *http.Request, p domain.Principal) *http.Request {
	return r.WithContext(withPrincipal(r.Context(), p))
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func signToken(t *testing.T, secret []byte, subject, role string, expiresIn time.Duration) string {
	t.Helper()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)
	return token
}

type testEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) testEnvelope {
	t.Helper()
	var env testEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return env
}

// --- mocks ---

type mockCartService struct {
	cart     *domain.Cart
	err      error
	lastUser string
	lastQty  int
}

func (m *mockCartService) result(userID string) (*domain.Cart, error) {
	m.lastUser = userID
	if m.err != nil {
		return nil, m.err
	}
	return m.cart, nil
}

func (m *mockCartService) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	return m.result(userID)
}

func (m *mockCartService) AddItem(ctx context.Context, userID, productID string, quantity int) (*domain.Cart, error) {
	m.lastQty = quantity
	return m.result(userID)
}

func (m *mockCartService) UpdateQuantity(ctx context.Context, userID, productID string, quantity int) (*domain.Cart, error) {
	m.lastQty = quantity
	return m.result(userID)
}

func (m *mockCartService) RemoveItem(ctx context.Context, userID, productID string) (*domain.Cart, error) {
	return m.result(userID)
}

func (m *mockCartService) ClearCart(ctx context.Context, userID string) (*domain.Cart, error) {
	return m.result(userID)
}

type mockOrderService struct {
	order       *domain.Order
	orders      []*domain.Order
	err         error
	lastRequest service.CreateOrderRequest
	lastStatus  domain.OrderStatus
}

func (m *mockOrderService) CreateOrder(ctx context.Context, p domain.Principal, req service.CreateOrderRequest) (*domain.Order, error) {
	m.lastRequest = req
	return m.order, m.err
}

func (m *mockOrderService) GetOrder(ctx context.Context, p domain.Principal, orderID string) (*domain.Order, error) {
	return m.order, m.err
}

func (m *mockOrderService) ListOrders(ctx context.Context, p domain.Principal) ([]*domain.Order, error) {
	return m.orders, m.err
}

func (m *mockOrderService) CancelOrder(ctx context.Context, p domain.Principal, orderID string) (*domain.Order, error) {
	return m.order, m.err
}

func (m *mockOrderService) UpdateStatus(ctx context.Context, p domain.Principal, orderID string, status domain.OrderStatus) (*domain.Order, error) {
	m.lastStatus = status
	return m.order, m.err
}

func (m *mockOrderService) AddTracking(ctx context.Context, p domain.Principal, orderID, trackingNumber string, estimatedDelivery time.Time) (*domain.Order, error) {
	return m.order, m.err
}

type mockPaymentService struct {
	intent      *service.PaymentIntent
	payment     *domain.Payment
	err         error
	lastConfirm service.ConfirmPaymentRequest
	lastReason  string
}

func (m *mockPaymentService) CreatePaymentIntent(ctx context.Context, p domain.Principal, orderID string, method domain.PaymentMethod) (*service.PaymentIntent, error) {
	return m.intent, m.err
}

func (m *mockPaymentService) ConfirmPayment(ctx context.Context, p domain.Principal, req service.ConfirmPaymentRequest) (*domain.Payment, error) {
	m.lastConfirm = req
	return m.payment, m.err
}

func (m *mockPaymentService) ProcessRefund(ctx context.Context, p domain.Principal, paymentID, reason string) (*domain.Payment, error) {
	m.lastReason = reason
	return m.payment, m.err
}

func (m *mockPaymentService) GetPayment(ctx context.Context, p domain.Principal, paymentID string) (*domain.Payment, error) {
	return m.payment, m.err
}

type mockProductService struct {
	product   *domain.Product
	err       error
	lastStock int
}

func (m *mockProductService) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	return m.product, m.err
}

func (m *mockProductService) CreateProduct(ctx context.Context, p domain.Principal, in service.CreateProductInput) (*domain.Product, error) {
	return m.product, m.err
}

func (m *mockProductService) SetStock(ctx context.Context, p domain.Principal, productID string, stock int) (*domain.Product, error) {
	m.lastStock = stock
	return m.product, m.err
}
