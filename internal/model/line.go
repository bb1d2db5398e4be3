package model

import "time"

// TimeFrame is the sampling bucket width a Line was aggregated at.
// The spec defines exactly one cadence today; the enum exists so
// storage and queries are not hard-coded to "1 minute" in more than
// one place.
type TimeFrame int

const (
	TimeFrameUnknown TimeFrame = iota
	TimeFrame1m
)

func (t TimeFrame) Duration() time.Duration {
	switch t {
	case TimeFrame1m:
		return time.Minute
	default:
		return 0
	}
}

func (t TimeFrame) String() string {
	switch t {
	case TimeFrame1m:
		return "1m"
	default:
		return "unknown"
	}
}

// Line is a persisted spread sample: the first SpreadSample observed
// in a given timeframe bucket for a given pair (whichever symbol that
// sample carries), written once per bucket by the sampler.
type Line struct {
	ID        uint      `gorm:"primaryKey"`
	Ts        time.Time `gorm:"index:idx_line_lookup,priority:4"`
	PairLabel string    `gorm:"index:idx_line_lookup,priority:1"`
	Symbol    string    `gorm:"index:idx_line_lookup,priority:2"`
	Timeframe string    `gorm:"index:idx_line_lookup,priority:3"`
	Value     float64
}

func (Line) TableName() string {
	return "lines"
}

// NewLine stamps a SpreadSample into a persisted Line row for the given
// bucket timestamp and timeframe.
func NewLine(s SpreadSample, tf TimeFrame, bucketStart time.Time) Line {
	return Line{
		Ts:        bucketStart,
		PairLabel: s.PairLabel,
		Symbol:    s.Symbol,
		Timeframe: tf.String(),
		Value:     s.SpreadPct,
	}
}
