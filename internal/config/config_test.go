package config

import (
	"os"
	"testing"

	"marketagg/internal/model"
)

func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{"DATABASE_URL", "ORDERBOOK_CACHE_CAPACITY"}
	for _, v := range model.AllExchanges {
		keys = append(keys, venueEnvVar(v))
	}
	for _, k := range keys {
		os.Unsetenv(k)
	}
}

func TestFromEnvRequiresDatabaseURL(t *testing.T) {
	clearEnv(t)
	if _, err := FromEnv(); err == nil {
		t.Fatal("expected error when DATABASE_URL is unset")
	}
}

func TestFromEnvDefaults(t *testing.T) {
	clearEnv(t)
	os.Setenv("DATABASE_URL", "postgres://localhost/test")
	defer os.Unsetenv("DATABASE_URL")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.OrderbookCacheCapacity != DefaultOrderbookCacheCapacity {
		t.Fatalf("capacity = %d, want default %d", cfg.OrderbookCacheCapacity, DefaultOrderbookCacheCapacity)
	}
	for _, v := range model.AllExchanges {
		if !cfg.VenueEnabled[v] {
			t.Fatalf("venue %s should default to enabled", v)
		}
	}
}

func TestFromEnvVenueDisable(t *testing.T) {
	clearEnv(t)
	os.Setenv("DATABASE_URL", "postgres://localhost/test")
	os.Setenv("LBANK_ENABLED", "false")
	defer os.Unsetenv("DATABASE_URL")
	defer os.Unsetenv("LBANK_ENABLED")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.VenueEnabled[model.ExchangeLBank] {
		t.Fatal("expected lbank disabled")
	}
	if !cfg.VenueEnabled[model.ExchangeBinance] {
		t.Fatal("expected binance still enabled")
	}
}

func TestFromEnvBadCapacity(t *testing.T) {
	clearEnv(t)
	os.Setenv("DATABASE_URL", "postgres://localhost/test")
	os.Setenv("ORDERBOOK_CACHE_CAPACITY", "not-a-number")
	defer os.Unsetenv("DATABASE_URL")
	defer os.Unsetenv("ORDERBOOK_CACHE_CAPACITY")

	if _, err := FromEnv(); err == nil {
		t.Fatal("expected error for non-numeric capacity")
	}
}
