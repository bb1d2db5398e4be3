package model

import "fmt"

// PairLabel is the "venueA/venueB" directional label the spread engine
// and every downstream consumer (broadcast, sampler, storage) keys
// cross-venue comparisons by.
func PairLabel(long, short ExchangeType) string {
	return fmt.Sprintf("%s/%s", long, short)
}

// SpreadSample is one directional cross-venue spread reading: buying
// on Long at its ask and selling on Short at its bid, expressed as a
// percentage of the midpoint. It is broadcast to every session
// watching the pair and to the sampler in the same tick.
type SpreadSample struct {
	Long      ExchangeType
	Short     ExchangeType
	PairLabel string
	Symbol    string
	SpreadPct float64
}

// NewSpreadSample computes the directional spread between two venues'
// best quotes: buy on Long at its ask, sell on Short at its bid,
// expressed as a percentage of Short's own midpoint. The denominator is
// deliberately the short leg's mid, not an average of both legs: that is
// the latest of several formulations this calculation went through
// upstream, and is the one callers must match. A negative result means
// the direction is not currently profitable before fees; callers still
// forward it, since spread sign is informational, not a filter.
func NewSpreadSample(symbol string, long, short BestQuote) SpreadSample {
	mid := short.Mid()
	var pct float64
	if mid != 0 {
		pct = (short.BidPrice - long.AskPrice) / mid * 100
	}
	return SpreadSample{
		Long:      long.Exchange,
		Short:     short.Exchange,
		PairLabel: PairLabel(long.Exchange, short.Exchange),
		Symbol:    symbol,
		SpreadPct: pct,
	}
}
