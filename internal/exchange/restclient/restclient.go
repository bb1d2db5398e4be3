// Package restclient is the shared REST snapshot fetcher (C4): a
// resty client wrapped in a circuit breaker, with the retry/backoff
// policy the MEXC snapshot path uses on rate-limit responses (Binance
// runs its own equivalent loop over the go-binance SDK).
package restclient

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"

	"marketagg/internal/exchange/ratelimit"
)

// Client wraps a resty client with a circuit breaker and the
// 429/418-aware retry loop venue REST snapshot fetches share.
type Client struct {
	http    *resty.Client
	limiter *ratelimit.Limiter
	breaker *gobreaker.CircuitBreaker
}

// New constructs a REST client for one venue. name identifies the
// circuit breaker in logs/metrics.
func New(name string, limiter *ratelimit.Limiter) *Client {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	return &Client{
		http:    resty.New().SetTimeout(10 * time.Second),
		limiter: limiter,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// banSleep is how long the client backs off after a 418 ("too many
// attempts, IP banned") response, per Binance's own guidance.
const banSleep = 10 * time.Minute

// maxBackoff caps the doubling 429 backoff.
const maxBackoff = 60 * time.Second

// GetJSON fetches url and unmarshals the JSON body into out, retrying
// through exponential backoff on 429 and a 10-minute sleep on 418.
// Every attempt, including retries, goes through the rate limiter and
// circuit breaker.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	delay := time.Duration(0)
	for {
		status, err := c.attempt(ctx, url, out)
		if err != nil {
			return err
		}
		switch status {
		case 429:
			if delay == 0 {
				delay = time.Second
			} else {
				delay *= 2
			}
			if delay > maxBackoff {
				delay = maxBackoff
			}
			if err := sleep(ctx, delay); err != nil {
				return err
			}
		case 418:
			if err := sleep(ctx, banSleep); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (c *Client) attempt(ctx context.Context, url string, out any) (status int, err error) {
	release, err := c.limiter.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	result, err := c.breaker.Execute(func() (any, error) {
		resp, err := c.http.R().SetContext(ctx).SetResult(out).Get(url)
		if err != nil {
			return nil, err
		}
		return resp, nil
	})
	if err != nil {
		return 0, fmt.Errorf("fetch %s: %w", url, err)
	}
	resp := result.(*resty.Response)
	return resp.StatusCode(), nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
