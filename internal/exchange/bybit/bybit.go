// Package bybit is the Bybit venue driver: chunked public-spot
// WebSocket subscription, snapshot+delta frames carry no sequence
// anchor on this venue's public spot channel, so deltas apply without
// gap checking. Grounded on the upstream BybitWebsocket driver.
package bybit

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"marketagg/internal/exchange"
	"marketagg/internal/exchange/wsconn"
	"marketagg/internal/model"
	"marketagg/internal/orderbook"
)

const (
	chunkSize      = 5
	reconnectWait  = 0 * time.Second
	streamURL      = "wss://stream.bybit.com/v5/public/spot"
	instrumentsURL = "https://api.bybit.com/v5/market/instruments-info?category=spot"
)

// Driver is the Bybit ingestion pipeline.
type Driver struct {
	enabled     bool
	channelType model.ChannelType
	symbols     []string
	store       *orderbook.Store
	log         zerolog.Logger
	subMu       sync.Mutex
}

func New(enabled bool, channelType model.ChannelType, symbols []string, capacity int, log zerolog.Logger) *Driver {
	return &Driver{
		enabled:     enabled,
		channelType: channelType,
		symbols:     symbols,
		store:       orderbook.NewStore(model.ExchangeBybit, false, capacity, log),
		log:         log.With().Str("component", "bybit_driver").Logger(),
	}
}

func (d *Driver) Exchange() model.ExchangeType { return model.ExchangeBybit }

func (d *Driver) Run(ctx context.Context) {
	if !d.enabled {
		d.log.Info().Msg("bybit driver disabled")
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

type instrumentsResponse struct {
	Result struct {
		List []struct {
			Symbol    string `json:"symbol"`
			QuoteCoin string `json:"quoteCoin"`
			Status    string `json:"status"`
		} `json:"list"`
	} `json:"result"`
}

// fetchSymbolUniverse performs the driver contract's step 2: list every
// spot instrument and keep the USDT-quoted, currently tradeable ones.
func fetchSymbolUniverse(ctx context.Context) ([]string, error) {
	var resp instrumentsResponse
	if err := exchange.FetchSymbolUniverse(ctx, instrumentsURL, &resp); err != nil {
		return nil, err
	}
	symbols := make([]string, 0, len(resp.Result.List))
	for _, inst := range resp.Result.List {
		if inst.QuoteCoin == "USDT" && inst.Status == "Trading" {
			symbols = append(symbols, model.NormalizeSymbol(model.ExchangeBybit, inst.Symbol))
		}
	}
	return symbols, nil
}

func (d *Driver) runChunk(ctx context.Context, symbols []string) {
	conn := wsconn.New(streamURL, reconnectWait, func(frame []byte) { d.handleFrame(ctx, frame) }, d.log)
	go func() {
		time.Sleep(200 * time.Millisecond)
		d.subscribe(conn, symbols)
	}()
	conn.Run(ctx)
}

func (d *Driver) subscribe(conn *wsconn.Conn, symbols []string) {
	args := make([]string, 0, len(symbols)*2)
	for _, sym := range symbols {
		upper := strings.ToUpper(sym)
		args = append(args, "orderbook.50."+upper, "tickers."+upper)
	}
	msg, _ := json.Marshal(map[string]any{"op": "subscribe", "args": args})
	d.subMu.Lock()
	defer d.subMu.Unlock()
	if err := conn.Send(msg); err != nil {
		d.log.Warn().Err(err).Msg("subscribe failed")
	}
}

type orderBookFrame struct {
	Topic string `json:"topic"`
	Type  string `json:"type"`
	Data  struct {
		Symbol string     `json:"s"`
		Bids   [][]string `json:"b"`
		Asks   [][]string `json:"a"`
	} `json:"data"`
}

type tickerFrame struct {
	Topic  string `json:"topic"`
	Result struct {
		List []struct {
			Symbol    string `json:"symbol"`
			LastPrice string `json:"lastPrice"`
		} `json:"list"`
	} `json:"result"`
}

func (d *Driver) handleFrame(ctx context.Context, frame []byte) {
	raw := string(frame)
	switch {
	case strings.Contains(raw, `"topic":"orderbook.`):
		d.handleOrderBook(ctx, frame)
	case strings.Contains(raw, `"topic":"tickers.`):
		d.handleTicker(ctx, frame)
	}
}

func (d *Driver) handleOrderBook(ctx context.Context, frame []byte) {
	var f orderBookFrame
	if err := json.Unmarshal(frame, &f); err != nil {
		d.log.Debug().Err(err).Msg("decode orderbook frame")
		return
	}
	bids, err := model.ParseLevelsRaw(f.Data.Bids)
	if err != nil {
		d.log.Debug().Err(err).Msg("parse bids")
		return
	}
	asks, err := model.ParseLevelsRaw(f.Data.Asks)
	if err != nil {
		d.log.Debug().Err(err).Msg("parse asks")
		return
	}
	symbol := model.NormalizeSymbol(model.ExchangeBybit, f.Data.Symbol)
	kind := model.EventDelta
	if f.Type == "snapshot" {
		kind = model.EventSnapshot
	}
	d.store.PublishEvent(ctx, model.BookEvent{Kind: kind, Exchange: model.ExchangeBybit, Symbol: symbol, Bids: bids, Asks: asks})
}

func (d *Driver) handleTicker(ctx context.Context, frame []byte) {
	var f tickerFrame
	if err := json.Unmarshal(frame, &f); err != nil {
		return
	}
	for _, t := range f.Result.List {
		price, err := strconv.ParseFloat(t.LastPrice, 64)
		if err != nil {
			continue
		}
		d.store.PublishPrice(ctx, model.NormalizeSymbol(model.ExchangeBybit, t.Symbol), price)
	}
}

func (d *Driver) GetSpread(ctx context.Context, symbol string) (model.BestQuote, bool) {
	return exchange.BestQuoteFromStore(ctx, d.store, model.ExchangeBybit, symbol)
}

func (d *Driver) GetBook(ctx context.Context, symbol string, depth int) (orderbook.SnapshotUi, bool) {
	return d.store.GetBook(ctx, symbol, depth)
}
