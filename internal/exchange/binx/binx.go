// Package binx is the BingX (BinX) venue driver. Frames arrive as
// gzip-compressed JSON over a binary WS message; the depth50 channel
// only ever carries full snapshots (delta handling is unimplemented
// upstream too), so every inbound depth frame is a Snapshot event.
// Grounded on the upstream BinXWebsocket driver.
package binx

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
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
	chunkSize     = 80
	reconnectWait = 5 * time.Second
	streamURL     = "wss://open-api-ws.bingx.com/market"
	subID         = "e745cd6d-d0f6-4a70-8d5a-043e4c741b40"
	symbolsURL    = "https://open-api.bingx.com/openApi/spot/v1/common/symbols"
)

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
		store:       orderbook.NewStore(model.ExchangeBinX, false, capacity, log),
		log:         log.With().Str("component", "binx_driver").Logger(),
	}
}

func (d *Driver) Exchange() model.ExchangeType { return model.ExchangeBinX }

func (d *Driver) Run(ctx context.Context) {
	if !d.enabled {
		d.log.Info().Msg("binx driver disabled")
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

type symbolsResponse struct {
	Data struct {
		Symbols []struct {
			Symbol string `json:"symbol"`
			Status int    `json:"status"`
		} `json:"symbols"`
	} `json:"data"`
}

// fetchSymbolUniverse performs the driver contract's step 2. BingX's
// listing endpoint has no separate quote-asset field; every listed
// spot symbol is already "<BASE>-USDT" so the USDT filter is a suffix
// check on the native dash-separated form.
func fetchSymbolUniverse(ctx context.Context) ([]string, error) {
	var resp symbolsResponse
	if err := exchange.FetchSymbolUniverse(ctx, symbolsURL, &resp); err != nil {
		return nil, err
	}
	symbols := make([]string, 0, len(resp.Data.Symbols))
	for _, s := range resp.Data.Symbols {
		if s.Status == 1 && model.IsUSDTQuoted(s.Symbol) {
			symbols = append(symbols, model.NormalizeSymbol(model.ExchangeBinX, s.Symbol))
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

// binxTicker renders a normalized symbol like "btcusdt" as BingX's
// native "BTC-USDT" ticker, applying the same ton->toncoin alias the
// model package reverses on the way back in.
func binxTicker(symbol string) string {
	base := strings.ToUpper(model.Base(symbol))
	if base == "TONCOIN" {
		base = "TON"
	}
	return base + "-USDT"
}

func (d *Driver) subscribe(conn *wsconn.Conn, symbols []string) {
	d.subMu.Lock()
	defer d.subMu.Unlock()
	for _, sym := range symbols {
		ticker := binxTicker(sym)
		depthMsg, _ := json.Marshal(map[string]any{
			"id": subID, "reqType": "sub", "dataType": ticker + "@depth50",
		})
		priceMsg, _ := json.Marshal(map[string]any{
			"id": subID, "reqType": "sub", "dataType": ticker + "@lastPrice",
		})
		if err := conn.Send(depthMsg); err != nil {
			d.log.Warn().Err(err).Msg("subscribe depth failed")
			return
		}
		if err := conn.Send(priceMsg); err != nil {
			d.log.Warn().Err(err).Msg("subscribe price failed")
			return
		}
	}
}

type orderBookFrame struct {
	Topic string `json:"dataType"`
	Data  struct {
		Asks [][]string `json:"asks"`
		Bids [][]string `json:"bids"`
	} `json:"data"`
}

type tickerFrame struct {
	Data struct {
		Symbol    string `json:"s"`
		LastPrice string `json:"c"`
	} `json:"data"`
}

// handleFrame decompresses a gzip binary frame and classifies the
// resulting JSON by its dataType suffix.
func (d *Driver) handleFrame(ctx context.Context, frame []byte) {
	plain, err := gunzip(frame)
	if err != nil {
		d.log.Debug().Err(err).Msg("gunzip frame")
		return
	}
	raw := string(plain)
	switch {
	case strings.Contains(raw, "@depth50"):
		d.handleDepth(ctx, plain)
	case strings.Contains(raw, "@lastPrice"):
		d.handleTicker(ctx, plain)
	}
}

func gunzip(b []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// symbolFromDepthTopic turns "BTC-USDT@depth50" into the normalized
// "btcusdt" form expected by the rest of the pipeline.
func symbolFromDepthTopic(topic string) string {
	trimmed := strings.TrimSuffix(topic, "@depth50")
	return model.NormalizeSymbol(model.ExchangeBinX, trimmed)
}

func (d *Driver) handleDepth(ctx context.Context, frame []byte) {
	var f orderBookFrame
	if err := json.Unmarshal(frame, &f); err != nil || f.Topic == "" {
		return
	}
	bids, err := model.ParseLevelsRaw(f.Data.Bids)
	if err != nil {
		return
	}
	asks, err := model.ParseLevelsRaw(f.Data.Asks)
	if err != nil {
		return
	}
	d.store.PublishEvent(ctx, model.BookEvent{
		Kind: model.EventSnapshot, Exchange: model.ExchangeBinX,
		Symbol: symbolFromDepthTopic(f.Topic), Bids: bids, Asks: asks,
	})
}

func (d *Driver) handleTicker(ctx context.Context, frame []byte) {
	var f tickerFrame
	if err := json.Unmarshal(frame, &f); err != nil || f.Data.Symbol == "" {
		return
	}
	price, err := strconv.ParseFloat(f.Data.LastPrice, 64)
	if err != nil {
		return
	}
	symbol := model.NormalizeSymbol(model.ExchangeBinX, f.Data.Symbol)
	d.store.PublishPrice(ctx, symbol, price)
}

func (d *Driver) GetSpread(ctx context.Context, symbol string) (model.BestQuote, bool) {
	return exchange.BestQuoteFromStore(ctx, d.store, model.ExchangeBinX, symbol)
}

func (d *Driver) GetBook(ctx context.Context, symbol string, depth int) (orderbook.SnapshotUi, bool) {
	return d.store.GetBook(ctx, symbol, depth)
}
