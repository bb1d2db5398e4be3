// Package binance is the Binance venue driver (C3 for Binance):
// chunked WebSocket subscription with a per-symbol REST snapshot
// bootstrap, rate-limited (no circuit breaker), gap-checked delta
// application. Grounded on the upstream BinanceWebsocket driver and on
// the teacher's go-binance/v2 depth-snapshot usage.
package binance

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"time"

	binancesdk "github.com/adshao/go-binance/v2"
	"github.com/rs/zerolog"

	"marketagg/internal/exchange"
	"marketagg/internal/exchange/ratelimit"
	"marketagg/internal/exchange/wsconn"
	"marketagg/internal/model"
	"marketagg/internal/orderbook"
)

const (
	chunkSize       = 5
	reconnectWait   = 1 * time.Second
	streamURL       = "wss://stream.binance.com:443/ws"
	exchangeInfoURL = "https://api.binance.com/api/v3/exchangeInfo"
	restRateLimit   = 40.0
	restConcurrency = 10
	banSleep        = 10 * time.Minute
	maxBackoff      = 60 * time.Second
)

// Driver is the Binance ingestion pipeline.
type Driver struct {
	enabled     bool
	channelType model.ChannelType
	symbols     []string

	rest    *binancesdk.Client
	limiter *ratelimit.Limiter
	store   *orderbook.Store
	log     zerolog.Logger

	subMu sync.Mutex
}

// New constructs the Binance driver. symbols is the USDT-quoted symbol
// universe to subscribe to, already normalized by the caller (the
// driver re-uppercases for the wire where Binance requires it).
func New(enabled bool, channelType model.ChannelType, symbols []string, capacity int, log zerolog.Logger) *Driver {
	l := log.With().Str("component", "binance_driver").Logger()
	return &Driver{
		enabled:     enabled,
		channelType: channelType,
		symbols:     symbols,
		rest:        binancesdk.NewClient("", ""),
		limiter:     ratelimit.New(restRateLimit, restConcurrency),
		store:       orderbook.NewStore(model.ExchangeBinance, true, capacity, log),
		log:         l,
	}
}

func (d *Driver) Exchange() model.ExchangeType { return model.ExchangeBinance }

// Run connects, subscribes in chunks, and ingests until ctx is
// cancelled. It does nothing if the driver is disabled.
func (d *Driver) Run(ctx context.Context) {
	if !d.enabled {
		d.log.Info().Msg("binance driver disabled")
		return
	}
	go d.store.Run(ctx)

	symbols := d.symbols
	if len(symbols) == 0 {
		fetched, err := fetchSymbolUniverse(ctx)
		if err != nil {
			d.log.Error().Err(err).Msg("fetch symbol universe failed")
			return
		}
		symbols = fetched
	}

	var wg sync.WaitGroup
	for _, chunk := range exchange.ChunkSymbols(symbols, chunkSize) {
		chunk := chunk
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.runChunk(ctx, chunk)
		}()
	}
	wg.Wait()
}

type exchangeInfoResponse struct {
	Symbols []struct {
		Symbol     string `json:"symbol"`
		Status     string `json:"status"`
		QuoteAsset string `json:"quoteAsset"`
	} `json:"symbols"`
}

// fetchSymbolUniverse performs the driver contract's step 2: list every
// spot symbol and keep the USDT-quoted, currently trading ones.
func fetchSymbolUniverse(ctx context.Context) ([]string, error) {
	var resp exchangeInfoResponse
	if err := exchange.FetchSymbolUniverse(ctx, exchangeInfoURL, &resp); err != nil {
		return nil, err
	}
	symbols := make([]string, 0, len(resp.Symbols))
	for _, s := range resp.Symbols {
		if s.QuoteAsset == "USDT" && s.Status == "TRADING" {
			symbols = append(symbols, model.NormalizeSymbol(model.ExchangeBinance, s.Symbol))
		}
	}
	return symbols, nil
}

func (d *Driver) runChunk(ctx context.Context, symbols []string) {
	onFrame := func(frame []byte) { d.handleFrame(ctx, frame) }
	conn := wsconn.New(streamURL, reconnectWait, onFrame, d.log)

	go func() {
		// Subscribe once per (re)connect generation; wsconn.Run blocks
		// until ctx cancels, so give it a head start before we send.
		time.Sleep(200 * time.Millisecond)
		d.subscribe(conn, symbols)
	}()
	for _, sym := range symbols {
		go d.bootstrapSnapshot(ctx, sym)
	}
	conn.Run(ctx)
}

func (d *Driver) subscribe(conn *wsconn.Conn, symbols []string) {
	params := make([]string, 0, len(symbols)*2)
	for _, sym := range symbols {
		lower := strings.ToLower(sym)
		params = append(params, lower+"@depth@100ms", lower+"@ticker")
	}
	msg, _ := json.Marshal(map[string]any{
		"method": "SUBSCRIBE",
		"params": params,
		"id":     time.Now().UnixNano(),
	})
	d.subMu.Lock()
	defer d.subMu.Unlock()
	if err := conn.Send(msg); err != nil {
		d.log.Warn().Err(err).Msg("subscribe failed")
	}
}

// bootstrapSnapshot fetches one REST depth snapshot per symbol through
// the go-binance SDK before the WS delta stream is trusted, honoring
// the same token-bucket/semaphore limiter every Binance REST call
// shares, with exponential backoff on rate-limit errors and a
// 10-minute sleep if Binance signals a ban.
func (d *Driver) bootstrapSnapshot(ctx context.Context, symbol string) {
	delay := time.Duration(0)
	for {
		release, err := d.limiter.Acquire(ctx)
		if err != nil {
			return
		}
		depth, fetchErr := d.rest.NewDepthService().Symbol(strings.ToUpper(symbol)).Limit(1000).Do(ctx)
		release()

		if fetchErr != nil {
			msg := fetchErr.Error()
			switch {
			case strings.Contains(msg, "418"):
				if sleepErr := sleepCtx(ctx, banSleep); sleepErr != nil {
					return
				}
				continue
			case strings.Contains(msg, "429"):
				if delay == 0 {
					delay = time.Second
				} else if delay *= 2; delay > maxBackoff {
					delay = maxBackoff
				}
				if sleepErr := sleepCtx(ctx, delay); sleepErr != nil {
					return
				}
				continue
			default:
				d.log.Warn().Err(fetchErr).Str("symbol", symbol).Msg("snapshot fetch failed")
				return
			}
		}

		bids, err := parseSDKLevels(depth.Bids)
		if err != nil {
			d.log.Warn().Err(err).Msg("parse snapshot bids")
			return
		}
		asks, err := parseSDKLevels(depth.Asks)
		if err != nil {
			d.log.Warn().Err(err).Msg("parse snapshot asks")
			return
		}
		d.store.PublishEvent(ctx, model.BookEvent{
			Kind:      model.EventSnapshot,
			Exchange:  model.ExchangeBinance,
			Symbol:    model.NormalizeSymbol(model.ExchangeBinance, symbol),
			Bids:      bids,
			Asks:      asks,
			VersionID: depth.LastUpdateID,
		})
		return
	}
}

func parseSDKLevels(levels []binancesdk.Bid) (map[int64]float64, error) {
	rows := make([][2]string, len(levels))
	for i, l := range levels {
		rows[i] = [2]string{l.Price, l.Quantity}
	}
	return model.ParseLevels(rows)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type depthUpdateFrame struct {
	EventType string     `json:"e"`
	Symbol    string     `json:"s"`
	FromVer   int64      `json:"U"`
	ToVer     int64      `json:"u"`
	Bids      [][]string `json:"b"`
	Asks      [][]string `json:"a"`
}

type tickerFrame struct {
	EventType string `json:"e"`
	Symbol    string `json:"s"`
	LastPrice string `json:"c"`
}

func (d *Driver) handleFrame(ctx context.Context, frame []byte) {
	raw := string(frame)
	switch {
	case strings.Contains(raw, "depthUpdate"):
		d.handleDepth(ctx, frame)
	case strings.Contains(raw, `"e":"24hrTicker"`):
		d.handleTicker(ctx, frame)
	}
}

func (d *Driver) handleDepth(ctx context.Context, frame []byte) {
	var ev depthUpdateFrame
	if err := json.Unmarshal(frame, &ev); err != nil {
		d.log.Debug().Err(err).Msg("decode depth frame")
		return
	}
	bids, err := model.ParseLevelsRaw(ev.Bids)
	if err != nil {
		d.log.Debug().Err(err).Msg("parse delta bids")
		return
	}
	asks, err := model.ParseLevelsRaw(ev.Asks)
	if err != nil {
		d.log.Debug().Err(err).Msg("parse delta asks")
		return
	}
	d.store.PublishEvent(ctx, model.BookEvent{
		Kind:        model.EventDelta,
		Exchange:    model.ExchangeBinance,
		Symbol:      model.NormalizeSymbol(model.ExchangeBinance, ev.Symbol),
		Bids:        bids,
		Asks:        asks,
		FromVersion: ev.FromVer,
		ToVersion:   ev.ToVer,
	})
}

func (d *Driver) handleTicker(ctx context.Context, frame []byte) {
	var ev tickerFrame
	if err := json.Unmarshal(frame, &ev); err != nil {
		d.log.Debug().Err(err).Msg("decode ticker frame")
		return
	}
	price, err := strconv.ParseFloat(ev.LastPrice, 64)
	if err != nil {
		return
	}
	d.store.PublishPrice(ctx, model.NormalizeSymbol(model.ExchangeBinance, ev.Symbol), price)
}

// GetSpread reads the current best quote for symbol.
func (d *Driver) GetSpread(ctx context.Context, symbol string) (model.BestQuote, bool) {
	return exchange.BestQuoteFromStore(ctx, d.store, model.ExchangeBinance, symbol)
}

// GetBook requests the trimmed view of symbol.
func (d *Driver) GetBook(ctx context.Context, symbol string, depth int) (orderbook.SnapshotUi, bool) {
	return d.store.GetBook(ctx, symbol, depth)
}
