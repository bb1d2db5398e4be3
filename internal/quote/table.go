// Package quote implements the process-wide best-quote table (C5): a
// concurrent venue -> BestQuote map filled from the venue drivers' quote
// path and read on every spread-engine tick.
package quote

import (
	"sync"

	"marketagg/internal/model"
)

const shardCount = 16

// Table is a shard-locked concurrent map from (exchange, symbol) to the
// venue's current best quote. Sharding by exchange means a write for one
// venue locks only that venue's shard, so readers of other venues'
// quotes are not held up by it.
type Table struct {
	shards [shardCount]*shard
}

type shard struct {
	mu   sync.RWMutex
	data map[model.ExchangeType]map[string]model.BestQuote
}

// New constructs an empty table.
func New() *Table {
	t := &Table{}
	for i := range t.shards {
		t.shards[i] = &shard{data: make(map[model.ExchangeType]map[string]model.BestQuote)}
	}
	return t
}

func (t *Table) shardFor(exchange model.ExchangeType) *shard {
	return t.shards[int(exchange)%shardCount]
}

// Set installs or replaces the best quote for a venue's symbol.
func (t *Table) Set(q model.BestQuote) {
	s := t.shardFor(q.Exchange)
	s.mu.Lock()
	defer s.mu.Unlock()
	perSymbol, ok := s.data[q.Exchange]
	if !ok {
		perSymbol = make(map[string]model.BestQuote)
		s.data[q.Exchange] = perSymbol
	}
	perSymbol[q.Symbol] = q
}

// Get returns the current best quote for a venue's symbol, if any.
// The returned value is a copy; callers never hold a reference that
// outlives the lookup.
func (t *Table) Get(exchange model.ExchangeType, symbol string) (model.BestQuote, bool) {
	s := t.shardFor(exchange)
	s.mu.RLock()
	defer s.mu.RUnlock()
	perSymbol, ok := s.data[exchange]
	if !ok {
		return model.BestQuote{}, false
	}
	q, ok := perSymbol[symbol]
	return q, ok
}

// Snapshot returns every venue's current best quote for one symbol, the
// input the spread engine runs its pairwise comparison over. The slice
// is a fresh copy safe to read without further locking.
func (t *Table) Snapshot(symbol string) []model.BestQuote {
	out := make([]model.BestQuote, 0, len(model.AllExchanges))
	for _, ex := range model.AllExchanges {
		if q, ok := t.Get(ex, symbol); ok && q.Valid() {
			out = append(out, q)
		}
	}
	return out
}
