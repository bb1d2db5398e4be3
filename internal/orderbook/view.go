package orderbook

import "marketagg/internal/model"

// Depth is the default number of rows kept per side in a trimmed view,
// per spec.
const Depth = 6

// Row is one line of a trimmed, cumulative-volume view: price and the
// running total of quantity from the best price out to this row.
type Row struct {
	Price         float64
	CumulativeQty float64
}

// SnapshotUi is the depth-trimmed, cumulative-volume projection of a
// book relative to its last traded price, the shape sent to subscribed
// sessions.
type SnapshotUi struct {
	Asks      []Row
	Bids      []Row
	LastPrice float64
}

// toUi implements the trimmed view projection: asks at or above
// last_price (ascending, then reversed so the highest shown ask is
// first), bids below the lowest shown ask and at or below last_price
// (descending), each cumulative and capped at depth rows.
//
// Returns ok=false if there are no asks at or above last_price (e.g. a
// stale last_price above the whole book) — the spec treats that as "no
// view" rather than a panic.
func (b *book) toUi(depth int) (SnapshotUi, bool) {
	if depth <= 0 {
		depth = Depth
	}
	lastPrice := b.lastPrice

	askKeys := make([]int64, 0, len(b.Asks))
	for k := range b.Asks {
		if model.PriceOf(k) >= lastPrice {
			askKeys = append(askKeys, k)
		}
	}
	sortAsc(askKeys)
	if len(askKeys) == 0 {
		return SnapshotUi{}, false
	}

	askRows := cumulate(askKeys, b.Asks, depth)
	reverseRows(askRows)

	// askRows is ascending-by-price before the reverse above, so the last
	// row after reversing already holds the smallest kept ask price.
	minAskPrice := askRows[len(askRows)-1].Price

	bidKeys := make([]int64, 0, len(b.Bids))
	for k := range b.Bids {
		p := model.PriceOf(k)
		if p < minAskPrice && p <= lastPrice {
			bidKeys = append(bidKeys, k)
		}
	}
	sortDesc(bidKeys)
	bidRows := cumulate(bidKeys, b.Bids, depth)

	return SnapshotUi{Asks: askRows, Bids: bidRows, LastPrice: lastPrice}, true
}

func cumulate(keys []int64, side map[int64]float64, depth int) []Row {
	if len(keys) > depth {
		keys = keys[:depth]
	}
	rows := make([]Row, len(keys))
	var acc float64
	for i, k := range keys {
		acc += side[k]
		rows[i] = Row{Price: model.PriceOf(k), CumulativeQty: acc}
	}
	return rows
}

func sortAsc(s []int64) {
	for i := 1; i < len(s); i++ {
		v := s[i]
		j := i - 1
		for j >= 0 && s[j] > v {
			s[j+1] = s[j]
			j--
		}
		s[j+1] = v
	}
}

func sortDesc(s []int64) {
	for i := 1; i < len(s); i++ {
		v := s[i]
		j := i - 1
		for j >= 0 && s[j] < v {
			s[j+1] = s[j]
			j--
		}
		s[j+1] = v
	}
}

func reverseRows(rows []Row) {
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
}
