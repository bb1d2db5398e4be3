package session

import (
	"encoding/json"
	"testing"
	"time"

	"marketagg/internal/model"
	"marketagg/internal/orderbook"
	"marketagg/internal/storage"
)

func TestFormatFloatPreservesPrecision(t *testing.T) {
	got := formatFloat(0.1)
	if got != "0.1" {
		t.Fatalf("formatFloat(0.1) = %q, want %q", got, "0.1")
	}
	got = formatFloat(123456.789)
	if got != "123456.789" {
		t.Fatalf("formatFloat(123456.789) = %q", got)
	}
}

func TestMarshalBooksEmitsDecimalStrings(t *testing.T) {
	view := orderbook.SnapshotUi{
		Asks:      []orderbook.Row{{Price: 100.5, CumulativeQty: 1.25}},
		Bids:      []orderbook.Row{{Price: 100.1, CumulativeQty: 2}},
		LastPrice: 100.3,
	}
	frame := marshalBooks("btc", map[model.Side]orderbook.SnapshotUi{model.SideLong: view})

	var decoded map[string]any
	if err := json.Unmarshal(frame, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["channel"] != "order_book" {
		t.Fatalf("channel = %v", decoded["channel"])
	}
	if decoded["ticker"] != "btc" {
		t.Fatalf("ticker = %v", decoded["ticker"])
	}
	result := decoded["result"].(map[string]any)
	books := result["books"].(map[string]any)
	long := books["long"].(map[string]any)
	asks := long["asks"].([]any)
	first := asks[0].(map[string]any)
	if _, ok := first["price"].(string); !ok {
		t.Fatalf("price not encoded as string: %#v", first["price"])
	}
	if first["price"] != "100.5" {
		t.Fatalf("price = %v", first["price"])
	}
}

func TestMarshalLinesEmitsDecimalStrings(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	long := []storage.LinePoint{{Time: now, Value: 0.42}}
	frame := marshalLines("eth", long, nil)

	var decoded map[string]any
	if err := json.Unmarshal(frame, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	result := decoded["result"].(map[string]any)
	lines := result["lines"].(map[string]any)
	longPoints := lines["long"].([]any)
	point := longPoints[0].(map[string]any)
	if point["value"] != "0.42" {
		t.Fatalf("value = %v", point["value"])
	}
	if point["time"] != "1700000000" {
		t.Fatalf("time = %v", point["time"])
	}
	shortPoints := lines["short"].([]any)
	if len(shortPoints) != 0 {
		t.Fatalf("expected empty short side, got %v", shortPoints)
	}
}

func TestBucketOfFloorsToTimeframe(t *testing.T) {
	t1 := time.Unix(1700000039, 0)
	t2 := time.Unix(1700000040, 0)
	if bucketOf(t1) == bucketOf(t2) {
		t.Fatalf("expected distinct buckets across a 60s boundary")
	}
	t3 := time.Unix(1700000041, 0)
	if bucketOf(t2) != bucketOf(t3) {
		t.Fatalf("expected same bucket within a 60s window")
	}
}
