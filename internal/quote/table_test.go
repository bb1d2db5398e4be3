package quote

import (
	"testing"
	"time"

	"marketagg/internal/model"
)

func TestSetAndGet(t *testing.T) {
	tbl := New()
	q := model.BestQuote{Exchange: model.ExchangeBinance, Symbol: "btcusdt", BidPrice: 99, AskPrice: 100, UpdatedAt: time.Now()}
	tbl.Set(q)

	got, ok := tbl.Get(model.ExchangeBinance, "btcusdt")
	if !ok {
		t.Fatal("expected quote to be present")
	}
	if got.BidPrice != 99 || got.AskPrice != 100 {
		t.Fatalf("unexpected quote: %+v", got)
	}
}

func TestGetMissing(t *testing.T) {
	tbl := New()
	if _, ok := tbl.Get(model.ExchangeBybit, "ethusdt"); ok {
		t.Fatal("expected no quote for unseen venue/symbol")
	}
}

func TestSnapshotOnlyValidQuotes(t *testing.T) {
	tbl := New()
	tbl.Set(model.BestQuote{Exchange: model.ExchangeBinance, Symbol: "btcusdt", BidPrice: 99, AskPrice: 100})
	tbl.Set(model.BestQuote{Exchange: model.ExchangeBybit, Symbol: "btcusdt", BidPrice: 0, AskPrice: 0})
	tbl.Set(model.BestQuote{Exchange: model.ExchangeGate, Symbol: "ethusdt", BidPrice: 10, AskPrice: 11})

	snap := tbl.Snapshot("btcusdt")
	if len(snap) != 1 || snap[0].Exchange != model.ExchangeBinance {
		t.Fatalf("expected only binance btcusdt quote, got %+v", snap)
	}
}
