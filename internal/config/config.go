// Package config loads this process's environment-variable
// configuration. Per the spec, flag/.env parsing is explicitly out of
// scope, so this is a thin FromEnv reader rather than a flag/viper
// surface — mirroring the teacher's Config struct literal and
// LoadConfig's required-field validation (api/config.go), just sourced
// from the environment instead of a JSON file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"marketagg/internal/model"
)

// DefaultOrderbookCacheCapacity is the per-symbol LRU bound used when
// ORDERBOOK_CACHE_CAPACITY is unset.
const DefaultOrderbookCacheCapacity = 1000

// Config is the process's full environment-derived configuration.
type Config struct {
	DatabaseURL            string
	OrderbookCacheCapacity int
	VenueEnabled           map[model.ExchangeType]bool
}

// FromEnv reads and validates the process configuration from the
// environment. DATABASE_URL is required; everything else has a
// default.
func FromEnv() (Config, error) {
	cfg := Config{
		OrderbookCacheCapacity: DefaultOrderbookCacheCapacity,
		VenueEnabled:           make(map[model.ExchangeType]bool, len(model.AllExchanges)),
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}

	if raw := os.Getenv("ORDERBOOK_CACHE_CAPACITY"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("ORDERBOOK_CACHE_CAPACITY must be a positive integer, got %q", raw)
		}
		cfg.OrderbookCacheCapacity = n
	}

	for _, venue := range model.AllExchanges {
		key := venueEnvVar(venue)
		raw := os.Getenv(key)
		if raw == "" {
			cfg.VenueEnabled[venue] = true
			continue
		}
		enabled, err := strconv.ParseBool(raw)
		if err != nil {
			return Config{}, fmt.Errorf("%s must be a bool, got %q", key, raw)
		}
		cfg.VenueEnabled[venue] = enabled
	}

	return cfg, nil
}

// venueEnvVar builds the "<VENUE>_ENABLED" env var name for a venue,
// e.g. ExchangeBinance -> "BINANCE_ENABLED".
func venueEnvVar(venue model.ExchangeType) string {
	return strings.ToUpper(venue.String()) + "_ENABLED"
}
