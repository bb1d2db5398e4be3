package session

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"marketagg/internal/exchange"
	"marketagg/internal/model"
	"marketagg/internal/spread"
	"marketagg/internal/storage"
)

// bookPollInterval is how often a session polls a venue driver's book
// view for the side(s) it has subscribed to.
const bookPollInterval = 25 * time.Millisecond

// historySeedDepth is how many persisted points the router seeds a new
// lines_history subscription with before live updates start arriving.
const historySeedDepth = 100

// sampleTimeframeSecs is the bucket width the router dedups live spread
// updates onto before appending them to a session's history arrays,
// matching the sampler's own bucket semantics so a client can't tell
// whether a point came from the seed or from a live tick.
const sampleTimeframeSecs = 60

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Router is the Session Router (C9): it accepts inbound WebSocket
// connections, binds each one's subscription commands to the venue
// driver stores and the spread broadcast, and owns the aggregate set of
// symbols currently being watched. Grounded on the teacher's
// StartWsPriceServer/handleWsPrice pair and the original program's
// connect_async/handle_connection accept loop.
type Router struct {
	drivers     map[model.ExchangeType]exchange.Driver
	store       storage.Store
	broadcaster *spread.Broadcaster
	log         zerolog.Logger

	ctx context.Context

	symbolMu       sync.Mutex
	symbolRefs     map[string]int
	sessionSymbols map[uuid.UUID]string
}

// NewRouter constructs a router over the live venue drivers, the
// persistence store, and the spread broadcaster.
func NewRouter(drivers map[model.ExchangeType]exchange.Driver, store storage.Store, broadcaster *spread.Broadcaster, log zerolog.Logger) *Router {
	return &Router{
		drivers:        drivers,
		store:          store,
		broadcaster:    broadcaster,
		log:            log.With().Str("component", "session_router").Logger(),
		symbolRefs:     make(map[string]int),
		sessionSymbols: make(map[uuid.UUID]string),
	}
}

// ActiveSymbols returns every symbol currently watched by at least one
// live session, the authoritative input the spread engine polls each
// tick.
func (r *Router) ActiveSymbols() []string {
	r.symbolMu.Lock()
	defer r.symbolMu.Unlock()
	out := make([]string, 0, len(r.symbolRefs))
	for symbol, refs := range r.symbolRefs {
		if refs > 0 {
			out = append(out, symbol)
		}
	}
	return out
}

// bindSymbol records that sess is now watching symbol, releasing
// whatever symbol it previously watched (a session holds at most one
// bound symbol at a time: a fresh Subscribe replaces it).
func (r *Router) bindSymbol(sess *Session, symbol string) {
	r.symbolMu.Lock()
	defer r.symbolMu.Unlock()
	if prev, ok := r.sessionSymbols[sess.ID]; ok {
		if prev == symbol {
			return
		}
		r.decrefLocked(prev)
	}
	r.sessionSymbols[sess.ID] = symbol
	r.symbolRefs[symbol]++
}

// endSession releases whatever symbol sess was watching. Called once
// the session's connection has closed.
func (r *Router) endSession(sess *Session) {
	r.symbolMu.Lock()
	defer r.symbolMu.Unlock()
	if symbol, ok := r.sessionSymbols[sess.ID]; ok {
		delete(r.sessionSymbols, sess.ID)
		r.decrefLocked(symbol)
	}
}

func (r *Router) decrefLocked(symbol string) {
	r.symbolRefs[symbol]--
	if r.symbolRefs[symbol] <= 0 {
		delete(r.symbolRefs, symbol)
	}
}

// ListenAndServe binds addr and serves WebSocket connections until ctx
// is cancelled.
func (r *Router) ListenAndServe(ctx context.Context, addr string) error {
	r.ctx = ctx

	mux := http.NewServeMux()
	mux.HandleFunc("/", r.handleConn)
	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (r *Router) handleConn(w http.ResponseWriter, req *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, req, nil)
	if err != nil {
		r.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	conn.SetReadLimit(4096)

	sess := newSession(r.ctx, conn, r.log)
	go sess.writePump()
	go sess.runAggregator()
	r.readLoop(sess)
	r.endSession(sess)
}

// readLoop reads inbound Subscription commands for one session until
// the socket errors or the session is cancelled.
func (r *Router) readLoop(sess *Session) {
	defer sess.Cancel()
	for {
		_, raw, err := sess.conn.ReadMessage()
		if err != nil {
			return
		}
		var sub model.Subscription
		if err := json.Unmarshal(raw, &sub); err != nil {
			r.log.Debug().Err(err).Msg("malformed subscription")
			continue
		}
		r.dispatch(sess, sub)
	}
}

func (r *Router) dispatch(sess *Session, sub model.Subscription) {
	switch model.ParseClientCmd(sub.Action) {
	case model.CmdUnsubscribe:
		sess.Cancel()
	case model.CmdSubscribe:
		r.subscribe(sess, sub)
	default:
		r.log.Debug().Str("action", sub.Action).Msg("unknown subscription action")
	}
}

func (r *Router) subscribe(sess *Session, sub model.Subscription) {
	long := model.ParseExchangeType(sub.LongExchange)
	short := model.ParseExchangeType(sub.ShortExchange)
	symbol := model.SymbolForTicker(sub.Ticker)
	sess.setSubscription(sub.Ticker, long, short)
	r.bindSymbol(sess, symbol)
	subCtx := sess.newSubscription()

	switch model.ParseChannelType(sub.Channel) {
	case model.ChannelOrderBook:
		r.startBookPolling(sess, subCtx, symbol, long, short)
	case model.ChannelLinesHistory:
		r.startLinesHistory(sess, subCtx, symbol, long, short)
	default:
		r.log.Debug().Str("channel", sub.Channel).Msg("unknown subscription channel")
	}
}

func (r *Router) startBookPolling(sess *Session, ctx context.Context, symbol string, long, short model.ExchangeType) {
	r.pollSide(sess, ctx, symbol, long, model.SideLong)
	r.pollSide(sess, ctx, symbol, short, model.SideShort)
}

// pollSide spawns the per-session, per-side book poller. It exits with
// ctx, which is scoped to one subscribe command: a fresh Subscribe
// cancels and replaces it rather than layering a second poller on top
// of the old one.
func (r *Router) pollSide(sess *Session, ctx context.Context, symbol string, ex model.ExchangeType, side model.Side) {
	driver, ok := r.drivers[ex]
	if !ok {
		r.log.Debug().Str("exchange", ex.String()).Msg("subscribe to unknown venue")
		return
	}
	go func() {
		ticker := time.NewTicker(bookPollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				view, ok := driver.GetBook(ctx, symbol, 0)
				if !ok {
					continue
				}
				sess.enqueue(mailboxMsg{book: &bookUpdate{side: side, view: view}})
			}
		}
	}()
}

// startLinesHistory seeds a session with persisted history for both
// legs of the pair, then subscribes it to the live spread broadcast,
// appending one new point per side each time the broadcast crosses into
// a fresh sampling bucket (first-sample-wins, mirroring the sampler).
func (r *Router) startLinesHistory(sess *Session, ctx context.Context, symbol string, long, short model.ExchangeType) {
	longPair := model.PairLabel(long, short)
	shortPair := model.PairLabel(short, long)

	longLines, err := r.store.GetSpreadHistory(ctx, longPair, symbol, historySeedDepth)
	if err != nil {
		r.log.Warn().Err(err).Str("pair", longPair).Msg("history fetch failed")
	}
	shortLines, err := r.store.GetSpreadHistory(ctx, shortPair, symbol, historySeedDepth)
	if err != nil {
		r.log.Warn().Err(err).Str("pair", shortPair).Msg("history fetch failed")
	}
	longPoints := storage.ToPoints(longLines)
	shortPoints := storage.ToPoints(shortLines)
	sess.enqueue(mailboxMsg{seed: &lineSeed{long: longPoints, short: shortPoints}})

	lastBucket := map[model.Side]int64{}
	if n := len(longPoints); n > 0 {
		lastBucket[model.SideLong] = bucketOf(longPoints[n-1].Time)
	}
	if n := len(shortPoints); n > 0 {
		lastBucket[model.SideShort] = bucketOf(shortPoints[n-1].Time)
	}

	ch, unsubscribe := r.broadcaster.Subscribe()
	go func() {
		defer unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case sample, ok := <-ch:
				if !ok {
					return
				}
				var side model.Side
				switch sample.PairLabel {
				case longPair:
					side = model.SideLong
				case shortPair:
					side = model.SideShort
				default:
					continue
				}
				bucket := bucketOf(time.Now())
				if prev, seen := lastBucket[side]; seen && bucket <= prev {
					continue
				}
				lastBucket[side] = bucket
				sess.enqueue(mailboxMsg{line: &linePoint{
					side:  side,
					point: storage.LinePoint{Time: time.Unix(bucket, 0).UTC(), Value: sample.SpreadPct},
				}})
			}
		}
	}()
}

func bucketOf(t time.Time) int64 {
	unix := t.Unix()
	return unix - unix%sampleTimeframeSecs
}
