package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const pendingMarker = "__pending__"

// IdempotencyStore remembers the result of a request per client-supplied key.
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{client: client, ttl: ttl}
}

// Begin claims key for the caller. When the key already completed, Begin
// returns the stored result and started=false.
func (s *IdempotencyStore) Begin(ctx context.Context, scope, key string) (result string, started bool, err error) {
	k := idempotencyKey(scope, key)

	ok, err := s.client.SetNX(ctx, k, pendingMarker, s.ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("redis setnx failed: %w", err)
	}
	if ok {
		return "", true, nil
	}

	val, err := s.client.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		// expired between the two calls; try once more
		return s.Begin(ctx, scope, key)
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get failed: %w", err)
	}
	if val == pendingMarker {
		return "", false, ErrRequestInProgress
	}
	return val, false, nil
}

func (s *IdempotencyStore) Complete(ctx context.Context, scope, key, result string) error {
	if err := s.client.Set(ctx, idempotencyKey(scope, key), result, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Abort releases a key whose request failed so the client may retry it.
func (s *IdempotencyStore) Abort(ctx context.Context, scope, key string) error {
	if err := s.client.Del(ctx, idempotencyKey(scope, key)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func idempotencyKey(scope, key string) string {
	return fmt.Sprintf("idem:%s:%s", scope, key)
}
