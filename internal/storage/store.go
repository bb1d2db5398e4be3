// Package storage is the persistence boundary for sampled spread
// points. The spec treats persistence as an external collaborator
// (typed read/write interface only); this package provides that
// interface plus a GORM-backed Postgres implementation in the
// teacher's style.
package storage

import (
	"context"
	"time"

	"marketagg/internal/model"
)

// Store is the typed read/write interface the sampler and session
// router use. Implementations must be safe for concurrent use.
type Store interface {
	// AddNewLine persists one sampled spread point.
	AddNewLine(ctx context.Context, line model.Line) error

	// GetSpreadHistory returns up to limit most recent lines for one
	// pair and symbol, oldest first.
	GetSpreadHistory(ctx context.Context, pairLabel, symbol string, limit int) ([]model.Line, error)

	// GetLastSpreadOfAllExchangePairs returns, for every distinct
	// pair_label known to the store, its single most recent line. Used
	// by the sampler at startup to seed its bucket-tracking map.
	GetLastSpreadOfAllExchangePairs(ctx context.Context) ([]model.Line, error)
}

// LinePoint is the minimal (time, value) the Client Session ships to
// subscribers for history, stripped of pair/symbol (already known from
// the subscription context).
type LinePoint struct {
	Time  time.Time
	Value float64
}

// ToPoints projects a slice of Lines into wire-ready (time, value)
// pairs.
func ToPoints(lines []model.Line) []LinePoint {
	out := make([]LinePoint, len(lines))
	for i, l := range lines {
		out[i] = LinePoint{Time: l.Ts, Value: l.Value}
	}
	return out
}
