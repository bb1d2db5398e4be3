// Package lbank is the LBank venue driver. Each connection carries a
// single symbol (LBank's public depth channel is thin), and the depth
// channel only ever emits full snapshots, so every inbound depth frame
// is a Snapshot event. Grounded on the upstream LBankWebsocket driver.
package lbank

import (
	"context"
	"encoding/json"
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
	chunkSize        = 1
	reconnectWait    = 500 * time.Millisecond
	streamURL        = "wss://www.lbkex.net/ws/V2/"
	currencyPairsURL = "https://api.lbkex.com/v2/currencyPairs.do"
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
		store:       orderbook.NewStore(model.ExchangeLBank, false, capacity, log),
		log:         log.With().Str("component", "lbank_driver").Logger(),
	}
}

func (d *Driver) Exchange() model.ExchangeType { return model.ExchangeLBank }

// Run spawns one connection per symbol: LBank's public WS has no
// multi-symbol subscription batching worth exploiting here.
func (d *Driver) Run(ctx context.Context) {
	if !d.enabled {
		d.log.Info().Msg("lbank driver disabled")
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

// fetchSymbolUniverse performs the driver contract's step 2. LBank's
// currencyPairs.do returns a bare array of native underscore-separated
// pair strings with no structured quote-asset field, so the USDT
// filter is a suffix check on the native form.
func fetchSymbolUniverse(ctx context.Context) ([]string, error) {
	var resp struct {
		Data []string `json:"data"`
	}
	if err := exchange.FetchSymbolUniverse(ctx, currencyPairsURL, &resp); err != nil {
		return nil, err
	}
	symbols := make([]string, 0, len(resp.Data))
	for _, pair := range resp.Data {
		if strings.HasSuffix(pair, "_usdt") {
			symbols = append(symbols, model.NormalizeSymbol(model.ExchangeLBank, pair))
		}
	}
	return symbols, nil
}

// lbankPair renders a normalized symbol like "btcusdt" as LBank's
// native underscore-separated pair "btc_usdt".
func lbankPair(symbol string) string {
	return model.Base(symbol) + "_usdt"
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
	d.subMu.Lock()
	defer d.subMu.Unlock()
	for _, sym := range symbols {
		pair := lbankPair(sym)
		depthMsg, _ := json.Marshal(map[string]any{
			"action": "subscribe", "subscribe": "depth", "depth": "10", "pair": pair,
		})
		tickMsg, _ := json.Marshal(map[string]any{
			"action": "subscribe", "subscribe": "tick", "pair": pair,
		})
		if err := conn.Send(depthMsg); err != nil {
			d.log.Warn().Err(err).Msg("subscribe depth failed")
			return
		}
		if err := conn.Send(tickMsg); err != nil {
			d.log.Warn().Err(err).Msg("subscribe tick failed")
			return
		}
	}
}

type depthFrame struct {
	Pair  string `json:"pair"`
	Depth struct {
		Bids [][]string `json:"bids"`
		Asks [][]string `json:"asks"`
	} `json:"depth"`
}

type tickFrame struct {
	Pair string `json:"pair"`
	Tick struct {
		Latest float64 `json:"latest"`
	} `json:"tick"`
}

func (d *Driver) handleFrame(ctx context.Context, frame []byte) {
	raw := string(frame)
	switch {
	case strings.Contains(raw, `"depth"`):
		d.handleDepth(ctx, frame)
	case strings.Contains(raw, `"tick"`):
		d.handleTick(ctx, frame)
	}
}

func (d *Driver) handleDepth(ctx context.Context, frame []byte) {
	var f depthFrame
	if err := json.Unmarshal(frame, &f); err != nil || f.Pair == "" {
		return
	}
	bids, err := model.ParseLevelsRaw(f.Depth.Bids)
	if err != nil {
		return
	}
	asks, err := model.ParseLevelsRaw(f.Depth.Asks)
	if err != nil {
		return
	}
	d.store.PublishEvent(ctx, model.BookEvent{
		Kind: model.EventSnapshot, Exchange: model.ExchangeLBank,
		Symbol: model.NormalizeSymbol(model.ExchangeLBank, f.Pair), Bids: bids, Asks: asks,
	})
}

func (d *Driver) handleTick(ctx context.Context, frame []byte) {
	var f tickFrame
	if err := json.Unmarshal(frame, &f); err != nil || f.Pair == "" {
		return
	}
	d.store.PublishPrice(ctx, model.NormalizeSymbol(model.ExchangeLBank, f.Pair), f.Tick.Latest)
}

func (d *Driver) GetSpread(ctx context.Context, symbol string) (model.BestQuote, bool) {
	return exchange.BestQuoteFromStore(ctx, d.store, model.ExchangeLBank, symbol)
}

func (d *Driver) GetBook(ctx context.Context, symbol string, depth int) (orderbook.SnapshotUi, bool) {
	return d.store.GetBook(ctx, symbol, depth)
}
