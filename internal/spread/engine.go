package spread

import (
	"context"
	"time"

	"marketagg/internal/model"
	"marketagg/internal/quote"
)

// QuoteSource is the capability the engine needs from a venue driver to
// walk the quote path: on demand, read the current best ask/bid for a
// symbol from the driver's own store.
type QuoteSource interface {
	Exchange() model.ExchangeType
	GetSpread(ctx context.Context, symbol string) (model.BestQuote, bool)
}

// Tick is the spread engine's polling cadence. The spec allows 20-50ms;
// 30ms keeps the sample stream comfortably faster than the sampler's
// 1-minute bucket width while staying well under the slowest venue's
// update rate.
const Tick = 30 * time.Millisecond

// SymbolSource supplies the set of symbols the engine should compute
// cross-venue spreads for on each tick. The session router owns the
// authoritative set (whatever at least one live session currently
// watches); the engine only reads it.
type SymbolSource func() []string

// Engine is the spread engine (C6): on every tick it snapshots the
// quote table for each active symbol, computes every directional
// venue-pair spread, and publishes the results.
type Engine struct {
	quotes      *quote.Table
	symbols     SymbolSource
	broadcaster *Broadcaster
	sources     []QuoteSource
}

// NewEngine constructs the spread engine over a shared quote table and
// broadcaster, polling the given symbol source each tick. sources is the
// set of venue drivers enabled for spread computation (§6); each tick the
// engine walks the quote path (driver.GetSpread) for every active symbol
// before computing pairwise spreads off the refreshed table.
func NewEngine(quotes *quote.Table, symbols SymbolSource, broadcaster *Broadcaster, sources []QuoteSource) *Engine {
	return &Engine{quotes: quotes, symbols: symbols, broadcaster: broadcaster, sources: sources}
}

// Run drives the engine loop until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(Tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.tick(ctx)
		}
	}
}

func (e *Engine) tick(ctx context.Context) {
	symbols := e.symbols()
	e.pollQuotes(ctx, symbols)
	for _, symbol := range symbols {
		quotes := e.quotes.Snapshot(symbol)
		for i := 0; i < len(quotes); i++ {
			for j := i + 1; j < len(quotes); j++ {
				e.broadcaster.Publish(model.NewSpreadSample(symbol, quotes[i], quotes[j]))
				e.broadcaster.Publish(model.NewSpreadSample(symbol, quotes[j], quotes[i]))
			}
		}
	}
}

// pollQuotes walks the quote path: for every active symbol, ask each
// venue source for its current best ask/bid and install it into the
// shared table. A driver with nothing resident for a symbol is skipped,
// not an error.
func (e *Engine) pollQuotes(ctx context.Context, symbols []string) {
	for _, symbol := range symbols {
		for _, src := range e.sources {
			if q, ok := src.GetSpread(ctx, symbol); ok {
				e.quotes.Set(q)
			}
		}
	}
}
