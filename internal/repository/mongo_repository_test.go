package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/SubodhIkites/Full-stack-cuddly/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/mongo"
)

func setupTestDB(t *testing.T) (*mongo.Database, func()) {
	ctx := context.Background()

	// Start MongoDB container
	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := ConnectMongoDB(ctx, uri, "testdb")
	require.NoError(t, err)
	require.NoError(t, CreateIndexes(ctx, db))

	cleanup := func() {
		_ = db.Client().Disconnect(ctx)
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return db, cleanup
}

func seedProduct(t *testing.T, repo ProductRepository, id string, price float64, stock int) {
	err := repo.CreateProduct(context.Background(), &domain.Product{
		ID:       id,
		Name:     "product " + id,
		Price:    price,
		Stock:    stock,
		IsActive: true,
	})
	require.NoError(t, err)
}

func TestProductRepository_DecrementStock(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewMongoProductRepository(db)
	seedProduct(t, repo, "p1", 10, 5)

	require.NoError(t, repo.DecrementStock(ctx, "p1", 3))
	assert.ErrorIs(t, repo.DecrementStock(ctx, "p1", 3), ErrInsufficientStock)
	assert.ErrorIs(t, repo.DecrementStock(ctx, "missing", 1), ErrProductNotFound)
	assert.ErrorIs(t, repo.DecrementStock(ctx, "p1", 0), ErrInvalidQuantity)

	p, err := repo.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, p.Stock)

	require.NoError(t, repo.RestoreStock(ctx, "p1", 3))
	p, err = repo.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 5, p.Stock)
}

func TestProductRepository_ConcurrentDecrementOfLastUnit(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewMongoProductRepository(db)
	seedProduct(t, repo, "last", 10, 1)

	var wg sync.WaitGroup
	results := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- repo.DecrementStock(ctx, "last", 1)
		}()
	}
	wg.Wait()
	close(results)

	successes := 0
	for err := range results {
		if err == nil {
			successes++
			continue
		}
		assert.ErrorIs(t, err, ErrInsufficientStock)
	}
	assert.Equal(t, 1, successes)

	p, err := repo.GetProduct(ctx, "last")
	require.NoError(t, err)
	assert.Equal(t, 0, p.Stock)
}

func TestCartRepository_SaveAndGet(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewMongoCartRepository(db)

	_, err := repo.GetCart(ctx, "nobody")
	assert.ErrorIs(t, err, ErrCartNotFound)

	now := time.Now()
	cart := domain.NewCart("user-1", now)
	require.NoError(t, cart.AddItem("p1", 2, 100, now))
	require.NoError(t, repo.SaveCart(ctx, cart))

	cart.Clear(now)
	require.NoError(t, repo.SaveCart(ctx, cart))

	stored, err := repo.GetCart(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, stored.Items)
	assert.Equal(t, 0.0, stored.TotalAmount)
}

func TestOrderRepository_StatusCompareAndSet(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewMongoOrderRepository(db)
	order := &domain.Order{
		ID:     uuid.NewString(),
		UserID: "user-1",
		Items:  []domain.OrderItem{{ProductID: "p1", Quantity: 1, Price: 10}},
		Status: domain.OrderStatusPending,
	}
	require.NoError(t, repo.CreateOrder(ctx, order))

	updated, err := repo.UpdateStatus(ctx, order.ID, domain.OpenOrderStatuses, domain.OrderStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, updated.Status)

	_, err = repo.UpdateStatus(ctx, order.ID, domain.OpenOrderStatuses, domain.OrderStatusCancelled)
	assert.ErrorIs(t, err, ErrStatusConflict)

	_, err = repo.UpdateStatus(ctx, "missing", domain.OpenOrderStatuses, domain.OrderStatusCancelled)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	eta := time.Now().Add(72 * time.Hour).Truncate(time.Millisecond)
	tracked, err := repo.SetTracking(ctx, order.ID, "TRK-1", eta)
	require.NoError(t, err)
	assert.Equal(t, "TRK-1", tracked.TrackingNumber)
	assert.True(t, eta.Equal(*tracked.EstimatedDelivery))
}

func TestOrderRepository_ListOrdersByUser(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewMongoOrderRepository(db)
	base := time.Now()

	first := &domain.Order{ID: uuid.NewString(), UserID: "u", Status: domain.OrderStatusPending, CreatedAt: base}
	second := &domain.Order{ID: uuid.NewString(), UserID: "u", Status: domain.OrderStatusPending, CreatedAt: base.Add(time.Second)}
	require.NoError(t, repo.CreateOrder(ctx, first))
	require.NoError(t, repo.CreateOrder(ctx, second))

	orders, err := repo.ListOrdersByUser(ctx, "u")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, second.ID, orders[0].ID)
	assert.Equal(t, first.ID, orders[1].ID)
}

func TestPaymentRepository_OnePaymentPerOrder(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewMongoPaymentRepository(db)

	first := &domain.Payment{ID: uuid.NewString(), OrderID: "order-1", UserID: "u", Status: domain.PaymentStatusPending}
	require.NoError(t, repo.CreatePayment(ctx, first))

	second := &domain.Payment{ID: uuid.NewString(), OrderID: "order-1", UserID: "u", Status: domain.PaymentStatusPending}
	assert.ErrorIs(t, repo.CreatePayment(ctx, second), ErrDuplicatePayment)

	byOrder, err := repo.GetPaymentByOrder(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, byOrder.ID)
}

func TestPaymentRepository_UpdateRequiresExpectedStatus(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewMongoPaymentRepository(db)

	payment := &domain.Payment{ID: uuid.NewString(), OrderID: "order-2", UserID: "u", Status: domain.PaymentStatusPending}
	require.NoError(t, repo.CreatePayment(ctx, payment))

	payment.Status = domain.PaymentStatusProcessing
	require.NoError(t, repo.UpdatePayment(ctx, payment, domain.PaymentStatusPending))

	payment.Status = domain.PaymentStatusCompleted
	assert.ErrorIs(t, repo.UpdatePayment(ctx, payment, domain.PaymentStatusPending), ErrStatusConflict)

	stored, err := repo.GetPayment(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusProcessing, stored.Status)
}

func TestPaymentRepository_GetStuckPayments(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewMongoPaymentRepository(db)
	old := time.Now().Add(-time.Hour).UTC()

	stuck := &domain.Payment{ID: uuid.NewString(), OrderID: "o-1", Status: domain.PaymentStatusProcessing, UpdatedAt: old}
	fresh := &domain.Payment{ID: uuid.NewString(), OrderID: "o-2", Status: domain.PaymentStatusProcessing}
	done := &domain.Payment{ID: uuid.NewString(), OrderID: "o-3", Status: domain.PaymentStatusCompleted, UpdatedAt: old}
	for _, p := range []*domain.Payment{stuck, fresh, done} {
		require.NoError(t, repo.CreatePayment(ctx, p))
	}

	payments, err := repo.GetStuckPayments(ctx, time.Now().Add(-10*time.Minute))
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, stuck.ID, payments[0].ID)
}

func TestOutboxRepository_Flow(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewMongoOutboxRepository(db)

	event := &domain.OutboxEvent{
		ID:          uuid.NewString(),
		AggregateID: "order-1",
		EventType:   domain.EventOrderCreated,
		Payload:     []byte(`{"order_id":"order-1"}`),
	}
	require.NoError(t, repo.AddEvent(ctx, event))

	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, event.ID, events[0].ID)

	require.NoError(t, repo.MarkEventAsProcessed(ctx, event.ID))
	events, err = repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}
