package model

import "time"

// Book is the full per-symbol, per-venue order book the store keeps.
// Bids and asks are tick-scaled price -> quantity maps; a quantity of
// zero means the level carries no resting size and should be treated
// as absent by any reader.
type Book struct {
	Exchange  ExchangeType
	Symbol    string
	Bids      map[int64]float64
	Asks      map[int64]float64
	VersionID int64
	UpdatedAt time.Time
}

// NewBook allocates an empty book ready to receive a snapshot.
func NewBook(exchange ExchangeType, symbol string) *Book {
	return &Book{
		Exchange: exchange,
		Symbol:   symbol,
		Bids:     make(map[int64]float64),
		Asks:     make(map[int64]float64),
	}
}

// ApplySnapshot replaces the book's contents wholesale. Snapshots are
// idempotent: applying the same snapshot twice leaves the book
// unchanged.
func (b *Book) ApplySnapshot(bids, asks map[int64]float64, versionID int64) {
	b.Bids = bids
	b.Asks = asks
	b.VersionID = versionID
	b.UpdatedAt = time.Now()
}

// ApplyDelta merges incremental price-level updates into the book.
// A zero quantity deletes the level; a nonzero quantity inserts or
// replaces it. An empty delta is the identity operation.
func (b *Book) ApplyDelta(bidUpdates, askUpdates map[int64]float64, versionID int64) {
	mergeLevels(b.Bids, bidUpdates)
	mergeLevels(b.Asks, askUpdates)
	b.VersionID = versionID
	b.UpdatedAt = time.Now()
}

func mergeLevels(dst, updates map[int64]float64) {
	for price, qty := range updates {
		if qty == 0 {
			delete(dst, price)
			continue
		}
		dst[price] = qty
	}
}

// BookEvent is the sum type the ingestion driver emits and the store's
// owner goroutine consumes: either a full snapshot or an incremental
// delta, tagged by Kind so a single channel can carry both without an
// interface allocation per message.
type BookEventKind int

const (
	EventSnapshot BookEventKind = iota
	EventDelta
)

type BookEvent struct {
	Kind     BookEventKind
	Exchange ExchangeType
	Symbol   string
	Bids     map[int64]float64
	Asks     map[int64]float64

	// VersionID is the snapshot's last_update_id for EventSnapshot.
	VersionID int64

	// FromVersion/ToVersion are the delta's sequence bounds for
	// EventDelta on sequenced venues; both are zero for unsequenced
	// venues (Bybit) where deltas apply unconditionally.
	FromVersion int64
	ToVersion   int64
}

// TopN is the fixed depth the UI projection carries per side, per
// spec: enough to render a compact book without shipping the full map
// over the wire on every tick.
const TopN = 6

// PriceLevelView is one row of a depth-sorted UI projection, with the
// tick-scaled key decoded back to a float price.
type PriceLevelView struct {
	Price float64
	Qty   float64
}

// SnapshotView is the trimmed, depth-sorted projection of a Book sent
// to subscribers: best bids descending, best asks ascending, each
// capped at TopN rows.
type SnapshotView struct {
	Exchange ExchangeType
	Symbol   string
	Bids     []PriceLevelView
	Asks     []PriceLevelView
}

// ToView projects a Book into its depth-capped, sorted UI view. It does
// not mutate the book and is safe to call repeatedly against the same
// book between updates.
func (b *Book) ToView() SnapshotView {
	return SnapshotView{
		Exchange: b.Exchange,
		Symbol:   b.Symbol,
		Bids:     topLevels(b.Bids, true),
		Asks:     topLevels(b.Asks, false),
	}
}

func topLevels(side map[int64]float64, descending bool) []PriceLevelView {
	keys := make([]int64, 0, len(side))
	for k := range side {
		keys = append(keys, k)
	}
	sortInt64s(keys, descending)
	if len(keys) > TopN {
		keys = keys[:TopN]
	}
	out := make([]PriceLevelView, len(keys))
	for i, k := range keys {
		out[i] = PriceLevelView{Price: PriceOf(k), Qty: side[k]}
	}
	return out
}

func sortInt64s(s []int64, descending bool) {
	for i := 1; i < len(s); i++ {
		v := s[i]
		j := i - 1
		for j >= 0 && less(s[j], v, descending) {
			s[j+1] = s[j]
			j--
		}
		s[j+1] = v
	}
}

func less(a, b int64, descending bool) bool {
	if descending {
		return a < b
	}
	return a > b
}

// BestBid returns the highest bid key and its quantity, or ok=false if
// the book has no bids.
func (b *Book) BestBid() (price int64, qty float64, ok bool) {
	return extreme(b.Bids, true)
}

// BestAsk returns the lowest ask key and its quantity, or ok=false if
// the book has no asks.
func (b *Book) BestAsk() (price int64, qty float64, ok bool) {
	return extreme(b.Asks, false)
}

func extreme(side map[int64]float64, wantMax bool) (int64, float64, bool) {
	first := true
	var bestK int64
	for k := range side {
		if first || (wantMax && k > bestK) || (!wantMax && k < bestK) {
			bestK = k
			first = false
		}
	}
	if first {
		return 0, 0, false
	}
	return bestK, side[bestK], true
}
