package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/SubodhIkites/Full-stack-cuddly/internal/cache"
	"github.com/SubodhIkites/Full-stack-cuddly/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetCart_CreatesEmptyCartOnFirstAccess(t *testing.T) {
	f := newFixture()

	cart, err := f.cartService.GetCart(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", cart.UserID)
	assert.Empty(t, cart.Items)

	stored, err := f.carts.GetCart(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", stored.UserID)
}

func TestGetCart_ServedFromCache(t *testing.T) {
	f := newFixture()
	cached := domain.NewCart("alice", f.cartService.now())
	require.NoError(t, cached.AddItem("A", 1, 10, f.cartService.now()))
	require.NoError(t, f.cache.Set(context.Background(), "alice", cached))

	cart, err := f.cartService.GetCart(context.Background(), "alice")
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)

	_, err = f.carts.GetCart(context.Background(), "alice")
	assert.Error(t, err, "repository should not have been touched")
}

func TestGetCart_FillsCache(t *testing.T) {
	f := newFixture(product("A", 100, 10))
	ctx := context.Background()
	_, err := f.cartService.AddItem(ctx, "alice", "A", 2)
	require.NoError(t, err)

	_, err = f.cartService.GetCart(ctx, "alice")
	require.NoError(t, err)

	cached, err := f.cache.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, cached.Items, 1)
}

func TestGetCart_MutationDuringFillIsNotCached(t *testing.T) {
	f := newFixture(product("A", 100, 10))
	ctx := context.Background()
	_, err := f.cartService.AddItem(ctx, "alice", "A", 2)
	require.NoError(t, err)

	// checkout clears the cart between the read and the cache fill
	f.carts.afterGet = func() {
		_, err := f.cartService.ClearCart(ctx, "alice")
		assert.NoError(t, err)
	}
	_, err = f.cartService.GetCart(ctx, "alice")
	require.NoError(t, err)

	_, err = f.cache.Get(ctx, "alice")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)

	cart, err := f.cartService.GetCart(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestGetCart_ConcurrentCallers(t *testing.T) {
	f := newFixture()
	const n = 20

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.cartService.GetCart(context.Background(), "alice")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestAddItem_ScenarioTotals(t *testing.T) {
	f := newFixture(product("A", 100, 10), product("B", 50, 10))
	ctx := context.Background()

	_, err := f.cartService.AddItem(ctx, "alice", "A", 2)
	require.NoError(t, err)
	cart, err := f.cartService.AddItem(ctx, "alice", "B", 1)
	require.NoError(t, err)

	assert.Equal(t, 250.0, cart.TotalAmount)
	assert.Equal(t, 3, cart.TotalItems)
	assert.Positive(t, f.cache.deletes)
}

func TestAddItem_SumsQuantitiesAndKeepsPrice(t *testing.T) {
	f := newFixture(product("A", 100, 10))
	ctx := context.Background()

	_, err := f.cartService.AddItem(ctx, "alice", "A", 2)
	require.NoError(t, err)
	f.products.products["A"].Price = 120

	cart, err := f.cartService.AddItem(ctx, "alice", "A", 3)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Quantity)
	assert.Equal(t, 100.0, cart.Items[0].Price)
	assert.Equal(t, 500.0, cart.TotalAmount)
}

func TestAddItem_Errors(t *testing.T) {
	inactive := product("X", 5, 10)
	inactive.IsActive = false
	f := newFixture(product("A", 100, 2), inactive)
	ctx := context.Background()

	tests := []struct {
		name      string
		productID string
		quantity  int
		want      error
	}{
		{"unknown product", "missing", 1, domain.ErrNotFound},
		{"inactive product", "X", 1, domain.ErrNotFound},
		{"zero quantity", "A", 0, domain.ErrInvalidArgument},
		{"negative quantity", "A", -1, domain.ErrInvalidArgument},
		{"more than stock", "A", 3, domain.ErrInsufficientStock},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.cartService.AddItem(ctx, "alice", tt.productID, tt.quantity)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	cart, err := f.carts.GetCart(ctx, "alice")
	if err == nil {
		assert.Empty(t, cart.Items)
	}
}

func TestUpdateQuantity(t *testing.T) {
	f := newFixture(product("A", 100, 5), product("B", 10, 5))
	ctx := context.Background()

	_, err := f.cartService.AddItem(ctx, "alice", "A", 1)
	require.NoError(t, err)

	cart, err := f.cartService.UpdateQuantity(ctx, "alice", "A", 4)
	require.NoError(t, err)
	assert.Equal(t, 4, cart.TotalItems)
	assert.Equal(t, 400.0, cart.TotalAmount)

	_, err = f.cartService.UpdateQuantity(ctx, "alice", "A", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = f.cartService.UpdateQuantity(ctx, "alice", "A", 6)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	_, err = f.cartService.UpdateQuantity(ctx, "alice", "B", 1)
	assert.ErrorIs(t, err, domain.ErrNotFound, "B is not in the cart")
}

func TestRemoveAndClear(t *testing.T) {
	f := newFixture(product("A", 100, 5), product("B", 10, 5))
	ctx := context.Background()

	_, err := f.cartService.AddItem(ctx, "alice", "A", 1)
	require.NoError(t, err)
	_, err = f.cartService.AddItem(ctx, "alice", "B", 2)
	require.NoError(t, err)

	cart, err := f.cartService.RemoveItem(ctx, "alice", "A")
	require.NoError(t, err)
	assert.Equal(t, 2, cart.TotalItems)
	assert.Equal(t, 20.0, cart.TotalAmount)

	cart, err = f.cartService.RemoveItem(ctx, "alice", "missing")
	require.NoError(t, err)
	assert.Equal(t, 20.0, cart.TotalAmount)

	cart, err = f.cartService.ClearCart(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.Zero(t, cart.TotalAmount)

	stored, err := f.carts.GetCart(ctx, "alice")
	require.NoError(t, err, "cleared cart stays persisted")
	assert.Empty(t, stored.Items)
}

func TestMutation_SaveError(t *testing.T) {
	f := newFixture(product("A", 100, 5))
	f.carts.saveErr = errors.New("mongo down")

	_, err := f.cartService.AddItem(context.Background(), "alice", "A", 1)
	assert.ErrorContains(t, err, "mongo down")
}
