package agent

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
)

// RetryConfig configures exponential backoff for the caller-side retry
// wrapper. The router itself never retries; callers that want retry wrap
// their clients with NewRetryClient.
type RetryConfig struct {
	InitialInterval     time.Duration
	MaxInterval         time.Duration
	MaxElapsedTime      time.Duration
	Multiplier          float64
	RandomizationFactor float64
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		InitialInterval:     100 * time.Millisecond,
		MaxInterval:         10 * time.Second,
		MaxElapsedTime:      2 * time.Minute,
		Multiplier:          2.0,
		RandomizationFactor: 0.5,
	}
}

// RetryClient wraps a Client with exponential backoff and a circuit
// breaker. Cancellation and an open circuit stop retrying immediately.
type RetryClient struct {
	inner Client
	cb    *gobreaker.CircuitBreaker
	cfg   RetryConfig
}

// NewRetryClient wraps inner. The breaker trips after five consecutive
// failures and stays open for 30 seconds before probing recovery.
func NewRetryClient(inner Client, cfg RetryConfig, logger *slog.Logger) *RetryClient {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        inner.Handle(),
		MaxRequests: 3,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logger != nil {
				logger.Warn("circuit breaker state change", "handle", name, "from", from.String(), "to", to.String())
			}
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			// User cancellation is not a backend failure.
			return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
	})
	return &RetryClient{inner: inner, cb: cb, cfg: cfg}
}

// Send retries the wrapped Send with exponential backoff until it
// succeeds, the circuit opens, the context ends, or MaxElapsedTime passes.
func (r *RetryClient) Send(ctx context.Context, msg Message) (Response, error) {
	var resp Response

	operation := func() error {
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		result, err := r.cb.Execute(func() (interface{}, error) {
			return r.inner.Send(ctx, msg)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(err)
			}
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		resp = result.(Response)
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = r.cfg.InitialInterval
	policy.MaxInterval = r.cfg.MaxInterval
	policy.MaxElapsedTime = r.cfg.MaxElapsedTime
	policy.Multiplier = r.cfg.Multiplier
	policy.RandomizationFactor = r.cfg.RandomizationFactor

	err := backoff.Retry(operation, backoff.WithContext(policy, ctx))
	return resp, err
}

// Handle returns the wrapped client's conversation handle.
func (r *RetryClient) Handle() string { return r.inner.Handle() }

// Close closes the wrapped client.
func (r *RetryClient) Close() error { return r.inner.Close() }
