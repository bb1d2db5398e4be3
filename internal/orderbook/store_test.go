package orderbook

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"marketagg/internal/model"
)

func testStore(t *testing.T) (*Store, context.Context, context.CancelFunc) {
	t.Helper()
	s := NewStore(model.ExchangeBinance, true, 10, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)
	return s, ctx, cancel
}

func mustParse(t *testing.T, rows [][2]string) map[int64]float64 {
	t.Helper()
	m, err := model.ParseLevels(rows)
	if err != nil {
		t.Fatalf("ParseLevels: %v", err)
	}
	return m
}

func TestSnapshotThenTrimmedView(t *testing.T) {
	s, ctx, cancel := testStore(t)
	defer cancel()

	asks := mustParse(t, [][2]string{{"100", "1.0"}, {"101", "2.0"}})
	bids := mustParse(t, [][2]string{{"99", "1.0"}, {"98", "0.5"}})
	s.PublishEvent(ctx, model.BookEvent{
		Kind: model.EventSnapshot, Exchange: model.ExchangeBinance, Symbol: "btcusdt",
		Bids: bids, Asks: asks, VersionID: 10,
	})
	s.PublishPrice(ctx, "btcusdt", 99.5)
	time.Sleep(20 * time.Millisecond)

	view, ok := s.GetBook(ctx, "btcusdt", Depth)
	if !ok {
		t.Fatal("expected a view")
	}
	if len(view.Asks) == 0 || view.Asks[len(view.Asks)-1].Price != 100 {
		t.Fatalf("unexpected asks: %+v", view.Asks)
	}
}

func TestDeltaApplyRemovesZeroQty(t *testing.T) {
	s, ctx, cancel := testStore(t)
	defer cancel()

	asks := mustParse(t, [][2]string{{"100", "1.0"}, {"101", "2.0"}})
	s.PublishEvent(ctx, model.BookEvent{
		Kind: model.EventSnapshot, Symbol: "btcusdt", Asks: asks, Bids: map[int64]float64{}, VersionID: 10,
	})
	delta := mustParse(t, [][2]string{{"100", "0.0"}, {"102", "0.5"}})
	s.PublishEvent(ctx, model.BookEvent{
		Kind: model.EventDelta, Symbol: "btcusdt", Asks: delta, Bids: map[int64]float64{},
		FromVersion: 11, ToVersion: 12,
	})
	s.PublishPrice(ctx, "btcusdt", 0)
	time.Sleep(20 * time.Millisecond)

	view, ok := s.GetBook(ctx, "btcusdt", Depth)
	if !ok {
		t.Fatal("expected a view")
	}
	prices := map[float64]bool{}
	for _, r := range view.Asks {
		prices[r.Price] = true
	}
	if prices[100] {
		t.Fatal("price 100 should have been removed")
	}
	if !prices[101] || !prices[102] {
		t.Fatalf("expected 101 and 102 present, got %+v", view.Asks)
	}
}

func TestGapDetectionInvalidatesSymbol(t *testing.T) {
	s, ctx, cancel := testStore(t)
	defer cancel()

	s.PublishEvent(ctx, model.BookEvent{
		Kind: model.EventSnapshot, Symbol: "ethusdt",
		Asks: mustParse(t, [][2]string{{"2000", "1.0"}}), Bids: map[int64]float64{}, VersionID: 10,
	})
	s.PublishEvent(ctx, model.BookEvent{
		Kind: model.EventDelta, Symbol: "ethusdt",
		Asks: mustParse(t, [][2]string{{"2001", "1.0"}}), Bids: map[int64]float64{},
		FromVersion: 11, ToVersion: 12,
	})
	s.PublishPrice(ctx, "ethusdt", 1999)
	time.Sleep(10 * time.Millisecond)
	before, ok := s.GetBook(ctx, "ethusdt", Depth)
	if !ok {
		t.Fatal("expected a view before the gap")
	}

	s.PublishEvent(ctx, model.BookEvent{
		Kind: model.EventDelta, Symbol: "ethusdt",
		Asks: mustParse(t, [][2]string{{"2002", "1.0"}}), Bids: map[int64]float64{},
		FromVersion: 14, ToVersion: 15,
	})
	time.Sleep(10 * time.Millisecond)
	after, ok := s.GetBook(ctx, "ethusdt", Depth)
	if !ok {
		t.Fatal("expected previous view to survive the gap")
	}
	if len(after.Asks) != len(before.Asks) {
		t.Fatalf("book mutated after gap: before=%+v after=%+v", before.Asks, after.Asks)
	}

	s.PublishEvent(ctx, model.BookEvent{
		Kind: model.EventSnapshot, Symbol: "ethusdt",
		Asks: mustParse(t, [][2]string{{"2003", "1.0"}}), Bids: map[int64]float64{}, VersionID: 20,
	})
	s.PublishPrice(ctx, "ethusdt", 1999)
	time.Sleep(10 * time.Millisecond)
	resynced, ok := s.GetBook(ctx, "ethusdt", Depth)
	if !ok || resynced.Asks[0].Price != 2003 {
		t.Fatalf("expected resync on fresh snapshot, got %+v ok=%v", resynced.Asks, ok)
	}
}

func TestEmptyDeltaIsIdentity(t *testing.T) {
	s, ctx, cancel := testStore(t)
	defer cancel()

	s.PublishEvent(ctx, model.BookEvent{
		Kind: model.EventSnapshot, Symbol: "btcusdt",
		Asks: mustParse(t, [][2]string{{"100", "1.0"}}), Bids: map[int64]float64{}, VersionID: 10,
	})
	s.PublishEvent(ctx, model.BookEvent{
		Kind: model.EventDelta, Symbol: "btcusdt",
		Asks: map[int64]float64{}, Bids: map[int64]float64{}, FromVersion: 11, ToVersion: 12,
	})
	s.PublishPrice(ctx, "btcusdt", 0)
	time.Sleep(10 * time.Millisecond)

	view, ok := s.GetBook(ctx, "btcusdt", Depth)
	if !ok || len(view.Asks) != 1 || view.Asks[0].Price != 100 {
		t.Fatalf("empty delta should be identity, got %+v ok=%v", view, ok)
	}
}

func TestDeltaAndPriceDroppedBeforeFirstSnapshot(t *testing.T) {
	s, ctx, cancel := testStore(t)
	defer cancel()

	s.PublishEvent(ctx, model.BookEvent{
		Kind: model.EventDelta, Symbol: "btcusdt",
		Asks: mustParse(t, [][2]string{{"100", "1.0"}}), Bids: map[int64]float64{},
		FromVersion: 1, ToVersion: 2,
	})
	s.PublishPrice(ctx, "btcusdt", 100)
	time.Sleep(10 * time.Millisecond)

	if _, ok := s.GetBook(ctx, "btcusdt", Depth); ok {
		t.Fatal("delta/price before any snapshot should not install a book")
	}
}

func TestGetBookMissingSymbol(t *testing.T) {
	s, ctx, cancel := testStore(t)
	defer cancel()

	_, ok := s.GetBook(ctx, "nope", Depth)
	if ok {
		t.Fatal("expected no view for unknown symbol")
	}
}

func TestLRUEvictsOldest(t *testing.T) {
	c := newLRU(2)
	c.getOrCreate("a", func() *book { return newBook(model.ExchangeBinance, "a", true) })
	c.getOrCreate("b", func() *book { return newBook(model.ExchangeBinance, "b", true) })
	c.getOrCreate("c", func() *book { return newBook(model.ExchangeBinance, "c", true) })

	if _, ok := c.get("a"); ok {
		t.Fatal("expected a to be evicted")
	}
	if _, ok := c.get("b"); !ok {
		t.Fatal("expected b to survive")
	}
	if _, ok := c.get("c"); !ok {
		t.Fatal("expected c to survive")
	}
}
