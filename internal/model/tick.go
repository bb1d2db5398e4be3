// Package model holds the wire-agnostic data types shared by every venue
// driver and the order-book store: price levels, books, normalized events,
// and the small closed enums the spec calls out as sum types.
package model

import (
	"fmt"
	"math"
	"strconv"
)

// Tick is the fixed scale factor used to turn a decimal price into a
// signed integer map key. Using an integer key instead of the raw float
// gives the order book exact equality, stable ordering, and portable
// merging across venues that publish prices at different native
// precisions.
const Tick = 9e8

// PriceKey rounds a decimal price to its tick-scaled integer key.
func PriceKey(price float64) int64 {
	return int64(math.Round(price * Tick))
}

// PriceOf inverts PriceKey back to a decimal price for UI projection.
func PriceOf(key int64) float64 {
	return float64(key) / Tick
}

// Level is one [price, qty] pair as parsed off the wire, still string
// typed because venues emit decimal strings and we must not lose
// precision before deciding the tick-scaled key.
type Level struct {
	Price string
	Qty   string
}

// ParseLevels converts raw [price_str, qty_str] pairs into a tick-scaled
// map. A qty of exactly 0 is kept in the map (callers applying a delta
// decide whether 0 means delete; a snapshot legitimately has no zero
// rows, but callers must not assume ParseLevels filters them).
func ParseLevels(rows [][2]string) (map[int64]float64, error) {
	out := make(map[int64]float64, len(rows))
	for _, row := range rows {
		price, err := strconv.ParseFloat(row[0], 64)
		if err != nil {
			return nil, fmt.Errorf("parse price %q: %w", row[0], err)
		}
		qty, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, fmt.Errorf("parse qty %q: %w", row[1], err)
		}
		out[PriceKey(price)] = qty
	}
	return out, nil
}

// ParseLevelsRaw is the [][]string convenience form most venue JSON
// payloads decode into directly.
func ParseLevelsRaw(rows [][]string) (map[int64]float64, error) {
	pairs := make([][2]string, 0, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			return nil, fmt.Errorf("level row has %d fields, want 2", len(row))
		}
		pairs = append(pairs, [2]string{row[0], row[1]})
	}
	return ParseLevels(pairs)
}
