package spread

import (
	"context"
	"testing"
	"time"

	"marketagg/internal/model"
	"marketagg/internal/quote"
)

type fakeSource struct {
	exchange model.ExchangeType
	quote    model.BestQuote
	ok       bool
}

func (f *fakeSource) Exchange() model.ExchangeType { return f.exchange }

func (f *fakeSource) GetSpread(ctx context.Context, symbol string) (model.BestQuote, bool) {
	return f.quote, f.ok
}

func TestTickPollsQuotesAndBroadcastsPairwiseSpreads(t *testing.T) {
	quotes := quote.New()
	broadcaster := NewBroadcaster()
	ch, unsub := broadcaster.Subscribe()
	defer unsub()

	sources := []QuoteSource{
		&fakeSource{exchange: model.ExchangeBinance, ok: true, quote: model.BestQuote{
			Exchange: model.ExchangeBinance, Symbol: "btcusdt", BidPrice: 99.9, AskPrice: 100.0,
		}},
		&fakeSource{exchange: model.ExchangeBybit, ok: true, quote: model.BestQuote{
			Exchange: model.ExchangeBybit, Symbol: "btcusdt", BidPrice: 100.1, AskPrice: 100.2,
		}},
	}
	e := NewEngine(quotes, func() []string { return []string{"btcusdt"} }, broadcaster, sources)

	e.tick(context.Background())

	seen := map[string]model.SpreadSample{}
	deadline := time.After(time.Second)
	for len(seen) < 2 {
		select {
		case s := <-ch:
			seen[s.PairLabel] = s
		case <-deadline:
			t.Fatalf("expected 2 directional samples, got %d: %+v", len(seen), seen)
		}
	}

	forward, ok := seen["binance/bybit"]
	if !ok {
		t.Fatalf("missing binance/bybit sample: %+v", seen)
	}
	if forward.SpreadPct <= 0 {
		t.Fatalf("expected a positive forward spread, got %v", forward.SpreadPct)
	}

	reverse, ok := seen["bybit/binance"]
	if !ok {
		t.Fatalf("missing bybit/binance sample: %+v", seen)
	}
	if reverse.SpreadPct >= 0 {
		t.Fatalf("expected a negative reverse spread, got %v", reverse.SpreadPct)
	}

	if _, ok := quotes.Get(model.ExchangeBinance, "btcusdt"); !ok {
		t.Fatal("expected the binance quote to have been installed into the table")
	}
}

func TestTickSkipsSymbolsWithFewerThanTwoQuotes(t *testing.T) {
	quotes := quote.New()
	broadcaster := NewBroadcaster()
	ch, unsub := broadcaster.Subscribe()
	defer unsub()

	sources := []QuoteSource{
		&fakeSource{exchange: model.ExchangeBinance, ok: true, quote: model.BestQuote{
			Exchange: model.ExchangeBinance, Symbol: "ethusdt", BidPrice: 1, AskPrice: 2,
		}},
	}
	e := NewEngine(quotes, func() []string { return []string{"ethusdt"} }, broadcaster, sources)
	e.tick(context.Background())

	select {
	case s := <-ch:
		t.Fatalf("expected no broadcast with a single quote, got %+v", s)
	case <-time.After(50 * time.Millisecond):
	}
}
