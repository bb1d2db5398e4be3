package orderbook

import "marketagg/internal/model"

// book is the store's internal per-symbol record. It wraps model.Book
// with the bookkeeping the state machine needs: whether this venue is
// sequenced (carries update IDs at all), the last price seen on a
// ticker update, and the gap-detection cursor.
type book struct {
	model.Book

	sequenced      bool
	lastPrice      float64
	haveLastPrice  bool
	lastSeenToVer  int64
	seededVersion  bool
	desynchronized bool
}

func newBook(exchange model.ExchangeType, symbol string, sequenced bool) *book {
	return &book{
		Book:      *model.NewBook(exchange, symbol),
		sequenced: sequenced,
	}
}

// applySnapshot installs a fresh snapshot, replacing asks/bids but
// keeping last_price, per the Live+Snapshot state transition. It also
// clears any prior desync flag: a fresh snapshot resynchronizes the
// symbol.
func (b *book) applySnapshot(bids, asks map[int64]float64, versionID int64) {
	b.ApplySnapshot(bids, asks, versionID)
	b.desynchronized = false
	b.seededVersion = false
}

// applyDelta runs the gap-checked delta transition for a sequenced
// venue, or the unconditional transition for an unsequenced one.
// Returns false if the delta was rejected because the symbol is
// desynchronized and awaiting a fresh snapshot.
func (b *book) applyDelta(bidUpdates, askUpdates map[int64]float64, fromVersion, toVersion int64) bool {
	if b.desynchronized {
		return false
	}
	if !b.sequenced {
		b.ApplyDelta(bidUpdates, askUpdates, toVersion)
		return true
	}
	if !b.seededVersion {
		b.lastSeenToVer = toVersion + 1
		b.seededVersion = true
		b.ApplyDelta(bidUpdates, askUpdates, toVersion)
		return true
	}
	if fromVersion != b.lastSeenToVer {
		b.desynchronized = true
		return false
	}
	b.ApplyDelta(bidUpdates, askUpdates, toVersion)
	b.lastSeenToVer = toVersion + 1
	return true
}

func (b *book) setLastPrice(price float64) {
	b.lastPrice = price
	b.haveLastPrice = true
}
