package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"time"

	"github.com/SubodhIkites/Full-stack-cuddly/internal/domain"
	"github.com/redis/go-redis/v9"
)

const cartKeyPrefix = "storefront:cart:"

// RedisCartCache keeps read copies of carts. The cart collection stays the
// source of truth; every cart write deletes the copy.
type RedisCartCache struct {
	client redis.Cmdable
	ttl    time.Duration
	jitter time.Duration
}

// NewRedisCartCache stores carts for ttl plus up to jitter, so carts cached
// in the same burst do not all expire in the same second.
func NewRedisCartCache(client redis.Cmdable, ttl, jitter time.Duration) *RedisCartCache {
	return &RedisCartCache{client: client, ttl: ttl, jitter: jitter}
}

func (c *RedisCartCache) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	key := cartKey(userID)
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("get cached cart %s: %w", userID, err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil || cart.UserID != userID {
		// unreadable copies are dropped and refilled from the store
		log.Printf("dropping unreadable cached cart %s: %v", userID, err)
		if errDel := c.client.Del(ctx, key).Err(); errDel != nil {
			return nil, fmt.Errorf("drop cached cart %s: %w", userID, errDel)
		}
		return nil, ErrCacheMiss
	}
	return &cart, nil
}

func (c *RedisCartCache) Set(ctx context.Context, userID string, cart *domain.Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("encode cart %s: %w", userID, err)
	}
	if err := c.client.Set(ctx, cartKey(userID), data, c.expiry()).Err(); err != nil {
		return fmt.Errorf("cache cart %s: %w", userID, err)
	}
	return nil
}

func (c *RedisCartCache) Delete(ctx context.Context, userID string) error {
	if err := c.client.Del(ctx, cartKey(userID)).Err(); err != nil {
		return fmt.Errorf("invalidate cached cart %s: %w", userID, err)
	}
	return nil
}

func (c *RedisCartCache) expiry() time.Duration {
	if c.jitter <= 0 {
		return c.ttl
	}
	return c.ttl + rand.N(c.jitter)
}

func cartKey(userID string) string {
	return cartKeyPrefix + userID
}
