package binance

import (
	"context"
	"testing"
	"time"

	binancesdk "github.com/adshao/go-binance/v2"
)

func TestParseSDKLevels(t *testing.T) {
	levels := []binancesdk.Bid{{Price: "100.50", Quantity: "2"}, {Price: "100.00", Quantity: "0"}}
	got, err := parseSDKLevels(levels)
	if err != nil {
		t.Fatalf("parseSDKLevels: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected both a resident and a zero-qty deletion marker, got %d entries", len(got))
	}
}

func TestSleepCtxRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepCtx(ctx, time.Second); err == nil {
		t.Fatal("expected cancellation to short-circuit the sleep")
	}
}

func TestSleepCtxWaitsOutTheDuration(t *testing.T) {
	start := time.Now()
	if err := sleepCtx(context.Background(), 10*time.Millisecond); err != nil {
		t.Fatalf("sleepCtx: %v", err)
	}
	if time.Since(start) < 10*time.Millisecond {
		t.Fatal("sleepCtx returned before the duration elapsed")
	}
}
