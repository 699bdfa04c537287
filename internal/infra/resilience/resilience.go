// Package resilience wraps the calls the CRM makes against Supabase:
// retry with exponential backoff for reads, a circuit breaker shared
// by the PostgREST client, and a bulkhead bounding CSV import
// concurrency.
package resilience

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/sony/gobreaker"
)

// Config holds the knobs for retry and bulkhead behavior. It is
// filled from environment configuration at startup.
type Config struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int
}

// RetryWithBackoff runs op up to MaxRetries+1 times with exponential
// backoff plus jitter between attempts. Only reads go through here;
// mutations are never retried. Context cancellation aborts the wait.
func RetryWithBackoff(ctx context.Context, cfg Config, op func() error) error {
	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op()
		if lastErr == nil {
			return nil
		}

		if attempt < cfg.MaxRetries {
			base := time.Duration(math.Pow(2, float64(attempt))) * cfg.InitialBackoff
			wait := base + time.Duration(rand.Int63n(int64(base/2)))

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
	}
	return lastErr
}

// NewCircuitBreaker builds the breaker guarding the Supabase client.
// It trips at a 60% failure ratio over at least 5 requests, probes
// with 3 requests when half-open, and resets counters every 30s.
func NewCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && ratio >= 0.6
		},
	})
}

// Bulkhead caps how many row inserts a CSV import may have in flight
// at once, so one large file cannot saturate the upstream.
type Bulkhead struct {
	slots chan struct{}
}

// NewBulkhead creates a bulkhead admitting maxConcurrency holders.
func NewBulkhead(maxConcurrency int) *Bulkhead {
	return &Bulkhead{slots: make(chan struct{}, maxConcurrency)}
}

// Acquire blocks until a slot frees up or the context is cancelled.
func (b *Bulkhead) Acquire(ctx context.Context) error {
	select {
	case b.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot.
func (b *Bulkhead) Release() {
	<-b.slots
}
