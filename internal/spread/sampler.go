package spread

import (
	"context"

	"github.com/rs/zerolog"

	"marketagg/internal/model"
	"marketagg/internal/storage"
)

// timeframeSecs is the sampler's tumbling-window width.
const timeframeSecs = 60

// Sampler is the spread sampler (C7): a tumbling-window writer that
// emits at most one persisted Line per (pair_label, bucket).
//
// Open question resolved: first-sample-wins per window (the spec's
// stated default), not last-sample-wins.
type Sampler struct {
	store       storage.Store
	seenBuckets map[string]int64
	now         func() int64
	log         zerolog.Logger
}

// NewSampler constructs a sampler over the given store. The clock is
// not fixed here: Run takes it as its nowUnix argument.
func NewSampler(store storage.Store, log zerolog.Logger) *Sampler {
	return &Sampler{
		store:       store,
		seenBuckets: make(map[string]int64),
		log:         log.With().Str("component", "spread_sampler").Logger(),
	}
}

// Seed loads the most recent persisted bucket per pair so a restart
// does not re-emit a Line for a bucket already written before the
// process stopped.
func (s *Sampler) Seed(ctx context.Context) error {
	lines, err := s.store.GetLastSpreadOfAllExchangePairs(ctx)
	if err != nil {
		return err
	}
	for _, l := range lines {
		s.seenBuckets[l.PairLabel] = l.Ts.Unix() - (l.Ts.Unix() % timeframeSecs)
	}
	return nil
}

// Run consumes samples off ch until ctx is cancelled or ch closes.
func (s *Sampler) Run(ctx context.Context, ch <-chan model.SpreadSample, nowUnix func() int64) {
	for {
		select {
		case <-ctx.Done():
			return
		case sample, ok := <-ch:
			if !ok {
				return
			}
			s.handle(ctx, sample, nowUnix())
		}
	}
}

func (s *Sampler) handle(ctx context.Context, sample model.SpreadSample, nowUnix int64) {
	bucket := nowUnix - (nowUnix % timeframeSecs)
	seen, known := s.seenBuckets[sample.PairLabel]
	if known && bucket <= seen {
		return
	}
	s.seenBuckets[sample.PairLabel] = bucket
	line := model.NewLine(sample, model.TimeFrame1m, unixToTime(bucket))
	if err := s.store.AddNewLine(ctx, line); err != nil {
		s.log.Error().Err(err).Str("pair", sample.PairLabel).Msg("failed to persist line")
	}
}
