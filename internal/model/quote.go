package model

import "time"

// BestQuote is the top-of-book summary the spread engine consumes: one
// per (exchange, symbol), refreshed by the spread engine on each tick
// from that venue's order-book store. Keeping only the best bid/ask,
// rather than the full book, is what lets the spread engine compare all
// seven venues pairwise on every tick without walking full books.
type BestQuote struct {
	Exchange  ExchangeType
	Symbol    string
	BidPrice  float64
	BidQty    float64
	AskPrice  float64
	AskQty    float64
	UpdatedAt time.Time
}

// Mid returns the midpoint of bid and ask. Callers must check that both
// sides are nonzero before trusting the result.
func (q BestQuote) Mid() float64 {
	return (q.BidPrice + q.AskPrice) / 2
}

// Valid reports whether the quote has both a bid and an ask, i.e. the
// book it was derived from was not one-sided or empty.
func (q BestQuote) Valid() bool {
	return q.BidPrice > 0 && q.AskPrice > 0
}

// FromBook derives a BestQuote from a Book's current top of book. The
// second return value is false if the book has no bid or no ask yet.
func FromBook(b *Book) (BestQuote, bool) {
	bidKey, bidQty, hasBid := b.BestBid()
	askKey, askQty, hasAsk := b.BestAsk()
	if !hasBid || !hasAsk {
		return BestQuote{}, false
	}
	return BestQuote{
		Exchange:  b.Exchange,
		Symbol:    b.Symbol,
		BidPrice:  PriceOf(bidKey),
		BidQty:    bidQty,
		AskPrice:  PriceOf(askKey),
		AskQty:    askQty,
		UpdatedAt: b.UpdatedAt,
	}, true
}
