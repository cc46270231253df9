package service

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/SubodhIkites/Full-stack-cuddly/internal/cache"
	"github.com/SubodhIkites/Full-stack-cuddly/internal/domain"
	"github.com/SubodhIkites/Full-stack-cuddly/internal/gateway"
	"github.com/SubodhIkites/Full-stack-cuddly/internal/repository"
)

// mockProductRepository keeps products in memory; DecrementStock is atomic
// under the mutex like the conditional update in the real store.
type mockProductRepository struct {
	m        sync.Mutex
	products map[string]*domain.Product
	getErr   error
	restores int
}

func newMockProductRepository(products ...*domain.Product) *mockProductRepository {
	r := &mockProductRepository{products: make(map[string]*domain.Product)}
	for _, p := range products {
		r.products[p.ID] = p
	}
	return r
}

func (m *mockProductRepository) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockProductRepository) CreateProduct(_ context.Context, product *domain.Product) error {
	m.m.Lock()
	defer m.m.Unlock()
	cp := *product
	m.products[product.ID] = &cp
	return nil
}

func (m *mockProductRepository) SetStock(_ context.Context, id string, stock int) error {
	m.m.Lock()
	defer m.m.Unlock()
	p, ok := m.products[id]
	if !ok {
		return repository.ErrProductNotFound
	}
	p.Stock = stock
	return nil
}

func (m *mockProductRepository) DecrementStock(_ context.Context, id string, quantity int) error {
	m.m.Lock()
	defer m.m.Unlock()
	p, ok := m.products[id]
	if !ok {
		return repository.ErrProductNotFound
	}
	if p.Stock < quantity {
		return repository.ErrInsufficientStock
	}
	p.Stock -= quantity
	return nil
}

func (m *mockProductRepository) RestoreStock(_ context.Context, id string, quantity int) error {
	m.m.Lock()
	defer m.m.Unlock()
	p, ok := m.products[id]
	if !ok {
		return repository.ErrProductNotFound
	}
	p.Stock += quantity
	m.restores++
	return nil
}

func (m *mockProductRepository) stock(id string) int {
	m.m.Lock()
	defer m.m.Unlock()
	return m.products[id].Stock
}

type mockCartRepository struct {
	m       sync.Mutex
	carts   map[string]*domain.Cart
	saveErr error
	// afterGet runs once, after the next read returns its copy.
	afterGet func()
}

func newMockCartRepository() *mockCartRepository {
	return &mockCartRepository{carts: make(map[string]*domain.Cart)}
}

func copyCart(c *domain.Cart) *domain.Cart {
	cp := *c
	cp.Items = slices.Clone(c.Items)
	return &cp
}

func (m *mockCartRepository) GetCart(_ context.Context, userID string) (*domain.Cart, error) {
	m.m.Lock()
	c, ok := m.carts[userID]
	var cp *domain.Cart
	if ok {
		cp = copyCart(c)
	}
	hook := m.afterGet
	m.afterGet = nil
	m.m.Unlock()

	if hook != nil {
		hook()
	}
	if !ok {
		return nil, repository.ErrCartNotFound
	}
	return cp, nil
}

func (m *mockCartRepository) SaveCart(_ context.Context, cart *domain.Cart) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.carts[cart.UserID] = copyCart(cart)
	return nil
}

type mockOrderRepository struct {
	m         sync.Mutex
	orders    map[string]*domain.Order
	createErr error
}

func newMockOrderRepository() *mockOrderRepository {
	return &mockOrderRepository{orders: make(map[string]*domain.Order)}
}

func copyOrder(o *domain.Order) *domain.Order {
	cp := *o
	cp.Items = slices.Clone(o.Items)
	return &cp
}

func (m *mockOrderRepository) CreateOrder(_ context.Context, order *domain.Order) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.orders[order.ID] = copyOrder(order)
	return nil
}

func (m *mockOrderRepository) GetOrder(_ context.Context, id string) (*domain.Order, error) {
	m.m.Lock()
	defer m.m.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return copyOrder(o), nil
}

func (m *mockOrderRepository) ListOrdersByUser(_ context.Context, userID string) ([]*domain.Order, error) {
	m.m.Lock()
	defer m.m.Unlock()
	var out []*domain.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, copyOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *mockOrderRepository) UpdateStatus(_ context.Context, id string, from []domain.OrderStatus, to domain.OrderStatus) (*domain.Order, error) {
	m.m.Lock()
	defer m.m.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	if !slices.Contains(from, o.Status) {
		return nil, repository.ErrStatusConflict
	}
	o.Status = to
	o.UpdatedAt = time.Now()
	return copyOrder(o), nil
}

func (m *mockOrderRepository) SetTracking(_ context.Context, id, trackingNumber string, eta time.Time) (*domain.Order, error) {
	m.m.Lock()
	defer m.m.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	o.TrackingNumber = trackingNumber
	o.EstimatedDelivery = &eta
	return copyOrder(o), nil
}

func (m *mockOrderRepository) status(id string) domain.OrderStatus {
	m.m.Lock()
	defer m.m.Unlock()
	return m.orders[id].Status
}

type mockPaymentRepository struct {
	m        sync.Mutex
	payments map[string]*domain.Payment
}

func newMockPaymentRepository() *mockPaymentRepository {
	return &mockPaymentRepository{payments: make(map[string]*domain.Payment)}
}

func copyPayment(p *domain.Payment) *domain.Payment {
	cp := *p
	if p.Refund != nil {
		r := *p.Refund
		cp.Refund = &r
	}
	return &cp
}

func (m *mockPaymentRepository) CreatePayment(_ context.Context, payment *domain.Payment) error {
	m.m.Lock()
	defer m.m.Unlock()
	for _, p := range m.payments {
		if p.OrderID == payment.OrderID {
			return repository.ErrDuplicatePayment
		}
	}
	m.payments[payment.ID] = copyPayment(payment)
	return nil
}

func (m *mockPaymentRepository) GetPayment(_ context.Context, id string) (*domain.Payment, error) {
	m.m.Lock()
	defer m.m.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return nil, repository.ErrPaymentNotFound
	}
	return copyPayment(p), nil
}

func (m *mockPaymentRepository) GetPaymentByOrder(_ context.Context, orderID string) (*domain.Payment, error) {
	m.m.Lock()
	defer m.m.Unlock()
	for _, p := range m.payments {
		if p.OrderID == orderID {
			return copyPayment(p), nil
		}
	}
	return nil, repository.ErrPaymentNotFound
}

func (m *mockPaymentRepository) UpdatePayment(_ context.Context, payment *domain.Payment, expected domain.PaymentStatus) error {
	m.m.Lock()
	defer m.m.Unlock()
	p, ok := m.payments[payment.ID]
	if !ok {
		return repository.ErrPaymentNotFound
	}
	if p.Status != expected {
		return repository.ErrStatusConflict
	}
	m.payments[payment.ID] = copyPayment(payment)
	return nil
}

func (m *mockPaymentRepository) GetStuckPayments(_ context.Context, olderThan time.Time) ([]*domain.Payment, error) {
	m.m.Lock()
	defer m.m.Unlock()
	var out []*domain.Payment
	for _, p := range m.payments {
		if p.Status == domain.PaymentStatusProcessing && p.UpdatedAt.Before(olderThan) {
			out = append(out, copyPayment(p))
		}
	}
	return out, nil
}

type mockOutbox struct {
	m      sync.Mutex
	events []*domain.OutboxEvent
}

func (m *mockOutbox) AddEvent(_ context.Context, event *domain.OutboxEvent) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *mockOutbox) GetUnprocessedEvents(context.Context, int) ([]*domain.OutboxEvent, error) {
	return nil, nil
}

func (m *mockOutbox) MarkEventAsProcessed(context.Context, string) error {
	return nil
}

func (m *mockOutbox) types() []string {
	m.m.Lock()
	defer m.m.Unlock()
	out := make([]string, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.EventType)
	}
	return out
}

type mockCache struct {
	m       sync.Mutex
	carts   map[string]*domain.Cart
	deletes int
}

func newMockCache() *mockCache {
	return &mockCache{carts: make(map[string]*domain.Cart)}
}

func (m *mockCache) Get(_ context.Context, userID string) (*domain.Cart, error) {
	m.m.Lock()
	defer m.m.Unlock()
	c, ok := m.carts[userID]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return copyCart(c), nil
}

func (m *mockCache) Set(_ context.Context, userID string, cart *domain.Cart) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.carts[userID] = copyCart(cart)
	return nil
}

func (m *mockCache) Delete(_ context.Context, userID string) error {
	m.m.Lock()
	defer m.m.Unlock()
	delete(m.carts, userID)
	m.deletes++
	return nil
}

type mockIdempotencyStore struct {
	m       sync.Mutex
	results map[string]string
}

func newMockIdempotencyStore() *mockIdempotencyStore {
	return &mockIdempotencyStore{results: make(map[string]string)}
}

func (m *mockIdempotencyStore) Begin(_ context.Context, scope, key string) (string, bool, error) {
	m.m.Lock()
	defer m.m.Unlock()
	k := scope + ":" + key
	res, ok := m.results[k]
	if !ok {
		m.results[k] = ""
		return "", true, nil
	}
	if res == "" {
		return "", false, cache.ErrRequestInProgress
	}
	return res, false, nil
}

func (m *mockIdempotencyStore) Complete(_ context.Context, scope, key, result string) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.results[scope+":"+key] = result
	return nil
}

func (m *mockIdempotencyStore) Abort(_ context.Context, scope, key string) error {
	m.m.Lock()
	defer m.m.Unlock()
	delete(m.results, scope+":"+key)
	return nil
}

type fixedOutcome struct {
	approved bool
}

func (f fixedOutcome) Outcome() (bool, string) {
	if f.approved {
		return true, ""
	}
	return false, "insufficient_funds"
}

var errGatewayDown = errors.New("gateway unavailable")

// mockGateway delegates to a sandbox unless an error is injected.
type mockGateway struct {
	*gateway.Sandbox
	createErr  error
	confirmErr error
	refundErr  error
	confirmFn  func(ctx context.Context) error
	refunds    int
}

func (m *mockGateway) CreateIntent(ctx context.Context, req gateway.IntentRequest) (*gateway.Intent, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	return m.Sandbox.CreateIntent(ctx, req)
}

func (m *mockGateway) ConfirmIntent(ctx context.Context, req gateway.ConfirmRequest) (*gateway.Confirmation, error) {
	if m.confirmFn != nil {
		if err := m.confirmFn(ctx); err != nil {
			return nil, err
		}
	}
	if m.confirmErr != nil {
		return nil, m.confirmErr
	}
	return m.Sandbox.ConfirmIntent(ctx, req)
}

func (m *mockGateway) Refund(ctx context.Context, req gateway.RefundRequest) (*gateway.Refund, error) {
	if m.refundErr != nil {
		return nil, m.refundErr
	}
	m.refunds++
	return m.Sandbox.Refund(ctx, req)
}

// fixture wires the services over in-memory fakes.
type fixture struct {
	products *mockProductRepository
	carts    *mockCartRepository
	orders   *mockOrderRepository
	payments *mockPaymentRepository
	outbox   *mockOutbox
	cache    *mockCache
	idem     *mockIdempotencyStore
	gateway  *mockGateway

	cartService    *CartService
	orderService   *OrderService
	paymentService *PaymentService
}

func newFixture(products ...*domain.Product) *fixture {
	f := &fixture{
		products: newMockProductRepository(products...),
		carts:    newMockCartRepository(),
		orders:   newMockOrderRepository(),
		payments: newMockPaymentRepository(),
		outbox:   &mockOutbox{},
		cache:    newMockCache(),
		idem:     newMockIdempotencyStore(),
		gateway:  &mockGateway{Sandbox: gateway.NewSandbox(fixedOutcome{approved: true})},
	}
	f.cartService = NewCartService(f.carts, f.products, f.cache)
	f.orderService = NewOrderService(f.orders, f.products, f.payments, f.cartService, f.idem, f.outbox)
	f.paymentService = NewPaymentService(f.payments, f.orderService, f.gateway, "inr", time.Second, f.outbox)
	return f
}

func product(id string, price float64, stock int) *domain.Product {
	return &domain.Product{ID: id, Name: "product " + id, Price: price, Stock: stock, IsActive: true}
}

var (
	alice = domain.Principal{UserID: "alice", Role: domain.RoleUser}
	bob   = domain.Principal{UserID: "bob", Role: domain.RoleUser}
	admin = domain.Principal{UserID: "root", Role: domain.RoleAdmin}
)

func testAddress() domain.ShippingAddress {
	return domain.ShippingAddress{
		Street:  "12 MG Road",
		City:    "Bengaluru",
		State:   "KA",
		Country: "India",
		ZipCode: "560001",
	}
}
