// Package ratelimit provides the token-bucket REST limiter and
// concurrency semaphore shared by every venue's REST snapshot fetcher,
// grounded on the per-venue rate limits in the spec's §5 table
// (e.g. Binance: 10 concurrent requests, 40 requests/sec).
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter bounds both request rate (tokens per second) and request
// concurrency (a semaphore) for one venue's REST snapshot fetcher.
type Limiter struct {
	tokens *rate.Limiter
	sem    chan struct{}
}

// New constructs a limiter allowing ratePerSec requests per second and
// at most maxConcurrent in flight at once.
func New(ratePerSec float64, maxConcurrent int) *Limiter {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Limiter{
		tokens: rate.NewLimiter(rate.Limit(ratePerSec), maxConcurrent),
		sem:    make(chan struct{}, maxConcurrent),
	}
}

// Acquire blocks until both a rate-limit token and a concurrency slot
// are available, or ctx is cancelled. release must be called exactly
// once to free the concurrency slot.
func (l *Limiter) Acquire(ctx context.Context) (release func(), err error) {
	if err := l.tokens.Wait(ctx); err != nil {
		return nil, err
	}
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return func() { <-l.sem }, nil
}
