package orderbook

import (
	"context"

	"github.com/rs/zerolog"

	"marketagg/internal/model"
)

// Command is the sum type the store's owner goroutine consumes: either
// an inbound book event from a venue driver, or a query for the
// trimmed view of a symbol.
type Command struct {
	event   *model.BookEvent
	price   *priceUpdate
	getBook *getBookQuery
}

type priceUpdate struct {
	symbol string
	price  float64
}

type getBookQuery struct {
	symbol string
	depth  int
	reply  chan<- GetBookResult
}

// GetBookResult is the reply to a GetBook query.
type GetBookResult struct {
	View SnapshotUi
	OK   bool
}

// Store owns one LRU-bounded set of books for a single venue. All
// mutation happens on the single goroutine started by Run; every other
// caller interacts exclusively through the command channel, so the
// store itself needs no locks.
type Store struct {
	exchange  model.ExchangeType
	sequenced bool
	capacity  int
	cmds      chan Command
	log       zerolog.Logger
}

// NewStore constructs a store for one venue. sequenced selects whether
// deltas for this venue carry from/to version numbers and therefore
// need gap detection (true for Binance and Mexc; false for Bybit, whose
// deltas carry no sequence anchor, and for venues that only ever publish
// full snapshots, see driver docs).
// capacity bounds the number of symbols the LRU keeps (ORDERBOOK_CACHE_CAPACITY).
func NewStore(exchange model.ExchangeType, sequenced bool, capacity int, log zerolog.Logger) *Store {
	return &Store{
		exchange:  exchange,
		sequenced: sequenced,
		capacity:  capacity,
		cmds:      make(chan Command, 256),
		log:       log.With().Str("component", "orderbook_store").Str("exchange", exchange.String()).Logger(),
	}
}

// Run is the owner goroutine: it processes commands until ctx is
// cancelled or the command channel is closed.
func (s *Store) Run(ctx context.Context) {
	books := newLRU(s.capacity)
	for {
		select {
		case <-ctx.Done():
			return
		case cmd, ok := <-s.cmds:
			if !ok {
				return
			}
			s.handle(books, cmd)
		}
	}
}

func (s *Store) handle(books *lru, cmd Command) {
	switch {
	case cmd.event != nil:
		s.handleEvent(books, cmd.event)
	case cmd.price != nil:
		s.handlePrice(books, cmd.price)
	case cmd.getBook != nil:
		s.handleGetBook(books, cmd.getBook)
	}
}

func (s *Store) handleEvent(books *lru, ev *model.BookEvent) {
	switch ev.Kind {
	case model.EventSnapshot:
		b := books.getOrCreate(ev.Symbol, func() *book {
			return newBook(s.exchange, ev.Symbol, s.sequenced)
		})
		b.applySnapshot(ev.Bids, ev.Asks, ev.VersionID)
	case model.EventDelta:
		b, ok := books.get(ev.Symbol)
		if !ok {
			// Absent + Delta -> Absent, Drop: can't apply without a base.
			return
		}
		if !b.applyDelta(ev.Bids, ev.Asks, ev.FromVersion, ev.ToVersion) {
			s.log.Warn().Str("symbol", ev.Symbol).Msg("desynchronized, awaiting fresh snapshot")
		}
	}
}

func (s *Store) handlePrice(books *lru, p *priceUpdate) {
	b, ok := books.get(p.symbol)
	if !ok {
		return
	}
	b.setLastPrice(p.price)
}

func (s *Store) handleGetBook(books *lru, q *getBookQuery) {
	b, ok := books.get(q.symbol)
	if !ok {
		q.reply <- GetBookResult{OK: false}
		return
	}
	view, ok := b.toUi(q.depth)
	q.reply <- GetBookResult{View: view, OK: ok}
}

// PublishEvent enqueues a snapshot or delta event for this venue. It
// blocks only if the mailbox is full, which a correctly sized channel
// should never hit under normal ingestion rates.
func (s *Store) PublishEvent(ctx context.Context, ev model.BookEvent) {
	select {
	case s.cmds <- Command{event: &ev}:
	case <-ctx.Done():
	}
}

// PublishPrice records the last traded/mark price used by the trimmed
// view projection.
func (s *Store) PublishPrice(ctx context.Context, symbol string, price float64) {
	select {
	case s.cmds <- Command{price: &priceUpdate{symbol: symbol, price: price}}:
	case <-ctx.Done():
	}
}

// GetBook requests the trimmed view of a symbol's book. It blocks the
// caller until the owner goroutine replies or ctx is cancelled.
func (s *Store) GetBook(ctx context.Context, symbol string, depth int) (SnapshotUi, bool) {
	reply := make(chan GetBookResult, 1)
	select {
	case s.cmds <- Command{getBook: &getBookQuery{symbol: symbol, depth: depth, reply: reply}}:
	case <-ctx.Done():
		return SnapshotUi{}, false
	}
	select {
	case res := <-reply:
		return res.View, res.OK
	case <-ctx.Done():
		return SnapshotUi{}, false
	}
}
