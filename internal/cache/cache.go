package cache

import (
	"context"
	"errors"

	"github.com/SubodhIkites/Full-stack-cuddly/internal/domain"
)

type CartCache interface {
	Get(ctx context.Context, userID string) (*domain.Cart, error)
	Set(ctx context.Context, userID string, cart *domain.Cart) error
	Delete(ctx context.Context, userID string) error
}

var (
	ErrCacheMiss = errors.New("cache miss")

	// ErrRequestInProgress is returned when an idempotency key is held by a
	// request that has not finished yet.
	ErrRequestInProgress = errors.New("request with this idempotency key is in progress")
)
