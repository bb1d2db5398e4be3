// Package session implements the Client Session and Session Router
// (C8, C9): one aggregator per connected client coalescing order-book
// polls and spread-history updates onto a fixed 50ms cadence, and a
// router that binds inbound subscription commands to the venue driver
// stores and the spread broadcast. Grounded on the teacher's
// ws_price_proxy hub/room/client pattern, generalized from a single Binance feed to
// the multi-venue, dual-channel shape this spec requires.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"marketagg/internal/model"
	"marketagg/internal/orderbook"
	"marketagg/internal/storage"
)

// flushInterval is the aggregator's fixed outbound cadence: multiple
// producers (book polls, history seed, live spread updates) share one
// socket, and a fixed tick coalesces bursts into one frame per channel.
const flushInterval = 50 * time.Millisecond

// mailboxDepth bounds a session's inbound event queue. A producer that
// cannot enqueue within this bound treats the session as lost and
// cancels it rather than blocking.
const mailboxDepth = 5

type bookUpdate struct {
	side model.Side
	view orderbook.SnapshotUi
}

type lineSeed struct {
	long, short []storage.LinePoint
}

type linePoint struct {
	side  model.Side
	point storage.LinePoint
}

type mailboxMsg struct {
	book *bookUpdate
	seed *lineSeed
	line *linePoint
}

// Session is one connected client: its subscription state, outbound
// socket, and the bounded mailbox its producers feed.
type Session struct {
	ID      uuid.UUID
	conn    *websocket.Conn
	sendCh  chan []byte
	mailbox chan mailboxMsg

	mu            sync.Mutex
	ticker        string
	longExchange  model.ExchangeType
	shortExchange model.ExchangeType

	ctx    context.Context
	Cancel context.CancelFunc

	subMu     sync.Mutex
	subCancel context.CancelFunc

	log zerolog.Logger
}

func newSession(parent context.Context, conn *websocket.Conn, log zerolog.Logger) *Session {
	ctx, cancel := context.WithCancel(parent)
	id := uuid.New()
	return &Session{
		ID:      id,
		conn:    conn,
		sendCh:  make(chan []byte, 16),
		mailbox: make(chan mailboxMsg, mailboxDepth),
		ctx:     ctx,
		Cancel:  cancel,
		log:     log.With().Str("component", "session").Str("session_id", id.String()).Logger(),
	}
}

// setSubscription records the long/short venues and ticker the most
// recent subscribe command bound to this session.
func (s *Session) setSubscription(ticker string, long, short model.ExchangeType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticker, s.longExchange, s.shortExchange = ticker, long, short
}

// newSubscription cancels whatever pollers the previous subscribe
// command started and returns a fresh context scoped to this one, so a
// resubscribe actually replaces the old subscription's goroutines
// instead of layering a second set on top of it.
func (s *Session) newSubscription() context.Context {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if s.subCancel != nil {
		s.subCancel()
	}
	ctx, cancel := context.WithCancel(s.ctx)
	s.subCancel = cancel
	return ctx
}

func (s *Session) rawTicker() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticker
}

// enqueue delivers msg to the aggregator's mailbox. A full mailbox
// means the aggregator cannot keep up; per the spec's backpressure
// rule the session is cancelled rather than the producer blocking.
func (s *Session) enqueue(msg mailboxMsg) {
	select {
	case s.mailbox <- msg:
	case <-s.ctx.Done():
	default:
		s.log.Warn().Msg("session mailbox full, cancelling session")
		s.Cancel()
	}
}

func (s *Session) send(frame []byte) {
	select {
	case s.sendCh <- frame:
	case <-s.ctx.Done():
	default:
		s.Cancel()
	}
}

// writePump is the sole goroutine that writes to the socket.
func (s *Session) writePump() {
	defer s.conn.Close()
	for {
		select {
		case <-s.ctx.Done():
			return
		case frame, ok := <-s.sendCh:
			if !ok {
				return
			}
			s.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				s.Cancel()
				return
			}
		}
	}
}

// runAggregator owns the per-channel JSON cache (order-book views per
// side, spread-history points per side) and flushes it to the socket
// every flushInterval.
func (s *Session) runAggregator() {
	books := map[model.Side]orderbook.SnapshotUi{}
	haveBooks := false

	var longHistory, shortHistory []storage.LinePoint
	haveHistory := false

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case msg := <-s.mailbox:
			switch {
			case msg.book != nil:
				books[msg.book.side] = msg.book.view
				haveBooks = true
			case msg.seed != nil:
				longHistory = msg.seed.long
				shortHistory = msg.seed.short
				haveHistory = true
			case msg.line != nil:
				if msg.line.side == model.SideLong {
					longHistory = append(longHistory, msg.line.point)
				} else {
					shortHistory = append(shortHistory, msg.line.point)
				}
				haveHistory = true
			}
		case <-ticker.C:
			tickerName := s.rawTicker()
			if haveBooks {
				s.send(marshalBooks(tickerName, books))
			}
			if haveHistory {
				s.send(marshalLines(tickerName, longHistory, shortHistory))
			}
		}
	}
}
