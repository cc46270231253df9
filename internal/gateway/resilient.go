package gateway

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
)

type ResilientConfig struct {
	// CallTimeout bounds every single attempt.
	CallTimeout time.Duration
	MaxRetries  uint64
	// FailureThreshold consecutive failures open the breaker.
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

func DefaultResilientConfig() ResilientConfig {
	return ResilientConfig{
		CallTimeout:      10 * time.Second,
		MaxRetries:       3,
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
	}
}

// Resilient wraps a Gateway with a circuit breaker, a per-call timeout and
// retries for the idempotent operations. Confirmation is attempted once.
type Resilient struct {
	next    Gateway
	cfg     ResilientConfig
	breaker *gobreaker.CircuitBreaker[any]
}

func NewResilient(next Gateway, cfg ResilientConfig) *Resilient {
	settings := gobreaker.Settings{
		Name:        "payment-gateway",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		// A decline is a healthy answer from the processor.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrDeclined)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("circuit breaker %s: %s -> %s", name, from, to)
		},
	}
	return &Resilient{
		next:    next,
		cfg:     cfg,
		breaker: gobreaker.NewCircuitBreaker[any](settings),
	}
}

func (r *Resilient) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	return retry(ctx, r, func(ctx context.Context) (*Intent, error) {
		return r.next.CreateIntent(ctx, req)
	})
}

func (r *Resilient) ConfirmIntent(ctx context.Context, req ConfirmRequest) (*Confirmation, error) {
	return call(ctx, r, func(ctx context.Context) (*Confirmation, error) {
		return r.next.ConfirmIntent(ctx, req)
	})
}

func (r *Resilient) Refund(ctx context.Context, req RefundRequest) (*Refund, error) {
	return retry(ctx, r, func(ctx context.Context) (*Refund, error) {
		return r.next.Refund(ctx, req)
	})
}

// call runs fn once through the breaker under the per-call timeout.
func call[T any](ctx context.Context, r *Resilient, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	res, err := r.breaker.Execute(func() (any, error) {
		callCtx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
		defer cancel()
		return fn(callCtx)
	})
	if err != nil {
		return zero, err
	}
	return res.(T), nil
}

func retry[T any](ctx context.Context, r *Resilient, fn func(context.Context) (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	policy := backoff.WithContext(backoff.WithMaxRetries(b, r.cfg.MaxRetries), ctx)

	return backoff.RetryWithData(func() (T, error) {
		res, err := call(ctx, r, fn)
		if err == nil {
			return res, nil
		}
		if errors.Is(err, ErrDeclined) ||
			errors.Is(err, gobreaker.ErrOpenState) ||
			errors.Is(err, gobreaker.ErrTooManyRequests) ||
			ctx.Err() != nil {
			return res, backoff.Permanent(err)
		}
		log.Printf("payment gateway call failed, retrying: %v", err)
		return res, err
	}, policy)
}
