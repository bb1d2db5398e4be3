package model

import "testing"

func TestParseLevelsTickScaling(t *testing.T) {
	levels, err := ParseLevels([][2]string{
		{"30000.00", "1.5"},
		{"30000.01", "0.25"},
	})
	if err != nil {
		t.Fatalf("ParseLevels: %v", err)
	}
	want := map[int64]float64{
		27_000_000_000_000: 1.5,
		27_000_009_000_000: 0.25,
	}
	for k, v := range want {
		got, ok := levels[k]
		if !ok {
			t.Fatalf("missing key %d in %+v", k, levels)
		}
		if got != v {
			t.Fatalf("key %d: got %v want %v", k, got, v)
		}
	}
	if len(levels) != len(want) {
		t.Fatalf("got %d levels, want %d", len(levels), len(want))
	}
}

func TestPriceKeyRoundTrip(t *testing.T) {
	for _, price := range []float64{0.0001, 1.23, 100.0, 30000.01, 999999.999} {
		key := PriceKey(price)
		back := PriceOf(key)
		diff := back - price
		if diff < 0 {
			diff = -diff
		}
		if diff > 1/Tick {
			t.Fatalf("price %v round-tripped to %v, diff %v exceeds 1/TICK", price, back, diff)
		}
	}
}

func TestParseLevelsBadPrice(t *testing.T) {
	if _, err := ParseLevels([][2]string{{"not-a-number", "1.0"}}); err == nil {
		t.Fatal("expected error for malformed price")
	}
}
