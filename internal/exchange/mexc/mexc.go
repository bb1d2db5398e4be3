// Package mexc is the MEXC venue driver: chunked WebSocket
// subscription over length-delimited protobuf frames, with a
// rate-limited and circuit-broken REST snapshot bootstrap per symbol
// (mirroring Binance's bootstrap shape) and gap-checked delta
// application. Grounded on the upstream MexcWebsocket driver.
package mexc

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"marketagg/internal/exchange"
	"marketagg/internal/exchange/ratelimit"
	"marketagg/internal/exchange/restclient"
	"marketagg/internal/exchange/wsconn"
	"marketagg/internal/model"
	"marketagg/internal/orderbook"
)

const (
	chunkSize       = 16
	restConcurrency = 12
	restRateLimit   = 40.0
	reconnectWait   = 0 * time.Second
	streamURL       = "wss://wbs-api.mexc.com/ws"
	snapshotURLFmt  = "https://api.mexc.com/api/v3/depth?symbol=%s&limit=1000"
	exchangeInfoURL = "https://api.mexc.com/api/v3/exchangeInfo"
)

type Driver struct {
	enabled     bool
	channelType model.ChannelType
	symbols     []string
	snap        *restclient.Client
	store       *orderbook.Store
	log         zerolog.Logger
	subMu       sync.Mutex
}

func New(enabled bool, channelType model.ChannelType, symbols []string, capacity int, log zerolog.Logger) *Driver {
	return &Driver{
		enabled:     enabled,
		channelType: channelType,
		symbols:     symbols,
		snap:        restclient.New("mexc-snapshot", ratelimit.New(restRateLimit, restConcurrency)),
		store:       orderbook.NewStore(model.ExchangeMexc, true, capacity, log),
		log:         log.With().Str("component", "mexc_driver").Logger(),
	}
}

func (d *Driver) Exchange() model.ExchangeType { return model.ExchangeMexc }

func (d *Driver) Run(ctx context.Context) {
	if !d.enabled {
		d.log.Info().Msg("mexc driver disabled")
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

func (d *Driver) runChunk(ctx context.Context, symbols []string) {
	conn := wsconn.New(streamURL, reconnectWait, func(frame []byte) { d.handleFrame(ctx, frame) }, d.log)
	go func() {
		time.Sleep(200 * time.Millisecond)
		d.subscribe(conn, symbols)
	}()
	for _, sym := range symbols {
		go d.bootstrapSnapshot(ctx, sym)
	}
	conn.Run(ctx)
}

func (d *Driver) subscribe(conn *wsconn.Conn, symbols []string) {
	d.subMu.Lock()
	defer d.subMu.Unlock()
	for _, sym := range symbols {
		upper := strings.ToUpper(sym)
		params := []string{
			fmt.Sprintf("spot@public.aggre.depth.v3.api.pb@100ms@%s", upper),
			fmt.Sprintf("spot@public.miniTicker.v3.api.pb@%s@UTC+8", upper),
		}
		msg := fmt.Sprintf(`{"method":"SUBSCRIPTION","params":["%s","%s"]}`, params[0], params[1])
		if err := conn.Send([]byte(msg)); err != nil {
			d.log.Warn().Err(err).Msg("subscribe failed")
			return
		}
	}
}

type exchangeInfoResponse struct {
	Symbols []struct {
		Symbol               string `json:"symbol"`
		Status               string `json:"status"`
		QuoteAsset           string `json:"quoteAsset"`
		IsSpotTradingAllowed bool   `json:"isSpotTradingAllowed"`
	} `json:"symbols"`
}

// fetchSymbolUniverse performs the driver contract's step 2. MEXC's
// spot exchangeInfo mirrors Binance's shape; symbols under active spot
// trading report status "ENABLED".
func fetchSymbolUniverse(ctx context.Context) ([]string, error) {
	var resp exchangeInfoResponse
	if err := exchange.FetchSymbolUniverse(ctx, exchangeInfoURL, &resp); err != nil {
		return nil, err
	}
	symbols := make([]string, 0, len(resp.Symbols))
	for _, s := range resp.Symbols {
		if s.QuoteAsset == "USDT" && s.Status == "ENABLED" && s.IsSpotTradingAllowed {
			symbols = append(symbols, model.NormalizeSymbol(model.ExchangeMexc, s.Symbol))
		}
	}
	return symbols, nil
}

type snapshotResponse struct {
	Asks         [][]string `json:"asks"`
	Bids         [][]string `json:"bids"`
	LastUpdateID int64      `json:"lastUpdateId"`
}

// bootstrapSnapshot fetches one REST depth snapshot per symbol through
// the rate-limited, circuit-broken client before WS deltas are trusted.
func (d *Driver) bootstrapSnapshot(ctx context.Context, symbol string) {
	url := fmt.Sprintf(snapshotURLFmt, strings.ToUpper(symbol))
	var resp snapshotResponse
	if err := d.snap.GetJSON(ctx, url, &resp); err != nil {
		d.log.Warn().Err(err).Str("symbol", symbol).Msg("snapshot fetch failed")
		return
	}
	bids, err := model.ParseLevelsRaw(resp.Bids)
	if err != nil {
		d.log.Warn().Err(err).Msg("parse snapshot bids")
		return
	}
	asks, err := model.ParseLevelsRaw(resp.Asks)
	if err != nil {
		d.log.Warn().Err(err).Msg("parse snapshot asks")
		return
	}
	d.store.PublishEvent(ctx, model.BookEvent{
		Kind:      model.EventSnapshot,
		Exchange:  model.ExchangeMexc,
		Symbol:    model.NormalizeSymbol(model.ExchangeMexc, symbol),
		Bids:      bids,
		Asks:      asks,
		VersionID: resp.LastUpdateID,
	})
}

func (d *Driver) handleFrame(ctx context.Context, frame []byte) {
	w, err := decodeWrapper(frame)
	if err != nil {
		d.log.Debug().Err(err).Msg("decode protobuf wrapper")
		return
	}
	switch {
	case strings.Contains(w.channel, "depth") && w.haveDepth:
		d.handleDepth(ctx, w)
	case strings.Contains(w.channel, "miniTicker") && w.haveTicker:
		d.handleTicker(ctx, w)
	}
}

func (d *Driver) handleDepth(ctx context.Context, w wrapper) {
	depth, err := decodeDepth(w.depthBytes)
	if err != nil {
		d.log.Debug().Err(err).Msg("decode depth submessage")
		return
	}
	bids, err := model.ParseLevels(levelsToRows(depth.bids))
	if err != nil {
		return
	}
	asks, err := model.ParseLevels(levelsToRows(depth.asks))
	if err != nil {
		return
	}
	fromVer, err1 := strconv.ParseInt(depth.fromVersion, 10, 64)
	toVer, err2 := strconv.ParseInt(depth.toVersion, 10, 64)
	if err1 != nil || err2 != nil {
		d.log.Debug().Msg("unparseable depth version bounds")
		return
	}
	d.store.PublishEvent(ctx, model.BookEvent{
		Kind:        model.EventDelta,
		Exchange:    model.ExchangeMexc,
		Symbol:      model.NormalizeSymbol(model.ExchangeMexc, w.symbol),
		Bids:        bids,
		Asks:        asks,
		FromVersion: fromVer,
		ToVersion:   toVer,
	})
}

func (d *Driver) handleTicker(ctx context.Context, w wrapper) {
	priceStr, err := decodeMiniTickerPrice(w.tickerBytes)
	if err != nil {
		d.log.Debug().Err(err).Msg("decode miniTicker submessage")
		return
	}
	price, err := strconv.ParseFloat(priceStr, 64)
	if err != nil {
		return
	}
	d.store.PublishPrice(ctx, model.NormalizeSymbol(model.ExchangeMexc, w.symbol), price)
}

func (d *Driver) GetSpread(ctx context.Context, symbol string) (model.BestQuote, bool) {
	return exchange.BestQuoteFromStore(ctx, d.store, model.ExchangeMexc, symbol)
}

func (d *Driver) GetBook(ctx context.Context, symbol string, depth int) (orderbook.SnapshotUi, bool) {
	return d.store.GetBook(ctx, symbol, depth)
}
