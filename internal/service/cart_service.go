package service

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/SubodhIkites/Full-stack-cuddly/internal/cache"
	"github.com/SubodhIkites/Full-stack-cuddly/internal/domain"
	"github.com/SubodhIkites/Full-stack-cuddly/internal/repository"
	"golang.org/x/sync/singleflight"
)

type CartService struct {
	repo     repository.CartRepository
	products repository.ProductRepository
	cache    cache.CartCache
	sfg      singleflight.Group // Prevents cache stampede
	now      func() time.Time

	// gens counts invalidations per user so a cache fill racing a
	// mutation can tell its copy is stale.
	mu   sync.Mutex
	gens map[string]uint64
}

func NewCartService(repo repository.CartRepository, products repository.ProductRepository, cache cache.CartCache) *CartService {
	return &CartService{
		repo:     repo,
		products: products,
		cache:    cache,
		now:      time.Now,
		gens:     make(map[string]uint64),
	}
}

func (s *CartService) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	// Use singleflight to prevent multiple concurrent cache misses for same key
	v, err, _ := s.sfg.Do(userID, func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, userID)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Printf("cache get error: %v", err) // log cache error but continue
		}

		gen := s.generation(userID)
		cart, err = s.loadCart(ctx, userID)
		if err != nil {
			return nil, err
		}
		s.fillCache(ctx, userID, cart, gen)
		return cart, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Cart), nil
}

func (s *CartService) AddItem(ctx context.Context, userID, productID string, quantity int) (*domain.Cart, error) {
	if quantity < 1 {
		return nil, domain.InvalidArgument("quantity must be at least 1")
	}
	product, err := s.availableProduct(ctx, productID, quantity)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, userID, func(cart *domain.Cart) error {
		return cart.AddItem(productID, quantity, product.Price, s.now())
	})
}

func (s *CartService) UpdateQuantity(ctx context.Context, userID, productID string, quantity int) (*domain.Cart, error) {
	if quantity < 1 {
		return nil, domain.InvalidArgument("quantity must be at least 1")
	}
	if _, err := s.availableProduct(ctx, productID, quantity); err != nil {
		return nil, err
	}
	return s.mutate(ctx, userID, func(cart *domain.Cart) error {
		return cart.UpdateQuantity(productID, quantity, s.now())
	})
}

func (s *CartService) RemoveItem(ctx context.Context, userID, productID string) (*domain.Cart, error) {
	return s.mutate(ctx, userID, func(cart *domain.Cart) error {
		cart.RemoveItem(productID, s.now())
		return nil
	})
}

func (s *CartService) ClearCart(ctx context.Context, userID string) (*domain.Cart, error) {
	return s.mutate(ctx, userID, func(cart *domain.Cart) error {
		cart.Clear(s.now())
		return nil
	})
}

// availableProduct checks the requested quantity against live stock. Nothing
// is reserved; the authoritative decrement happens at order creation.
func (s *CartService) availableProduct(ctx context.Context, productID string, quantity int) (*domain.Product, error) {
	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return nil, productError(err, productID)
	}
	if !product.IsActive {
		return nil, domain.NotFound("product %s is not available", productID)
	}
	if product.Stock < quantity {
		return nil, domain.InsufficientStock("insufficient stock for %s, %d left", product.Name, product.Stock)
	}
	return product, nil
}

func (s *CartService) mutate(ctx context.Context, userID string, fn func(*domain.Cart) error) (*domain.Cart, error) {
	cart, err := s.loadCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := fn(cart); err != nil {
		return nil, err
	}
	if err := s.repo.SaveCart(ctx, cart); err != nil {
		log.Printf("repo save cart error: %v", err)
		return nil, err
	}

	invalidateCache(s, userID)
	return cart, nil
}

// loadCart reads the persisted cart, creating it on first access.
func (s *CartService) loadCart(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := s.repo.GetCart(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, repository.ErrCartNotFound) {
		return nil, err
	}

	cart = domain.NewCart(userID, s.now())
	if errSave := s.repo.SaveCart(ctx, cart); errSave != nil {
		return nil, errSave
	}
	return cart, nil
}

func (s *CartService) generation(userID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gens[userID]
}

// fillCache stores cart unless the cart was invalidated since it was read.
// An invalidation landing after the set removes what was written.
func (s *CartService) fillCache(ctx context.Context, userID string, cart *domain.Cart, gen uint64) {
	if s.generation(userID) != gen {
		return
	}
	if err := s.cache.Set(context.WithoutCancel(ctx), userID, cart); err != nil {
		log.Printf("cache set error: %v", err)
		return
	}
	if s.generation(userID) != gen {
		invalidateCache(s, userID)
	}
}

func invalidateCache(s *CartService, userID string) {
	s.mu.Lock()
	s.gens[userID]++
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		log.Printf("cache invalidate error: %v", err)
	}
}
