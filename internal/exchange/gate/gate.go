// Package gate is the Gate.io venue driver. The spot.order_book
// channel used here only ever emits full snapshots (no delta frames),
// so every inbound depth frame is treated as a Snapshot event.
// Grounded on the upstream GateWebsocket driver.
package gate

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
	chunkSize        = 50
	reconnectWait    = 500 * time.Millisecond
	streamURL        = "wss://api.gateio.ws/ws/v4/"
	currencyPairsURL = "https://api.gateio.ws/api/v4/spot/currency_pairs"
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
		store:       orderbook.NewStore(model.ExchangeGate, false, capacity, log),
		log:         log.With().Str("component", "gate_driver").Logger(),
	}
}

func (d *Driver) Exchange() model.ExchangeType { return model.ExchangeGate }

func (d *Driver) Run(ctx context.Context) {
	if !d.enabled {
		d.log.Info().Msg("gate driver disabled")
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

type currencyPair struct {
	ID          string `json:"id"`
	Quote       string `json:"quote"`
	TradeStatus string `json:"trade_status"`
}

// fetchSymbolUniverse performs the driver contract's step 2: Gate's
// currency_pairs endpoint returns a bare top-level array, unlike every
// other venue's object-wrapped response.
func fetchSymbolUniverse(ctx context.Context) ([]string, error) {
	var resp []currencyPair
	if err := exchange.FetchSymbolUniverse(ctx, currencyPairsURL, &resp); err != nil {
		return nil, err
	}
	symbols := make([]string, 0, len(resp))
	for _, p := range resp {
		if p.Quote == "USDT" && p.TradeStatus == "tradable" {
			symbols = append(symbols, model.NormalizeSymbol(model.ExchangeGate, p.ID))
		}
	}
	return symbols, nil
}

// gatePair renders a normalized symbol (e.g. "btcusdt") as Gate's
// native currency_pair form "BTC_USDT".
func gatePair(symbol string) string {
	base := model.Base(symbol)
	return strings.ToUpper(base) + "_USDT"
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
		pair := gatePair(sym)
		depthMsg, _ := json.Marshal(map[string]any{
			"channel": "spot.order_book", "event": "subscribe", "payload": []string{pair, "50", "100ms"},
		})
		tickerMsg, _ := json.Marshal(map[string]any{
			"channel": "spot.tickers", "event": "subscribe", "payload": []string{pair},
		})
		if err := conn.Send(depthMsg); err != nil {
			d.log.Warn().Err(err).Msg("subscribe depth failed")
			return
		}
		if err := conn.Send(tickerMsg); err != nil {
			d.log.Warn().Err(err).Msg("subscribe ticker failed")
			return
		}
	}
}

type orderBookFrame struct {
	Channel string `json:"channel"`
	Result  struct {
		Symbol string     `json:"s"`
		Bids   [][]string `json:"bids"`
		Asks   [][]string `json:"asks"`
	} `json:"result"`
}

type tickerFrame struct {
	Channel string `json:"channel"`
	Result  struct {
		Symbol    string `json:"currency_pair"`
		LastPrice string `json:"last"`
	} `json:"result"`
}

func (d *Driver) handleFrame(ctx context.Context, frame []byte) {
	raw := string(frame)
	switch {
	case strings.Contains(raw, "spot.order_book"):
		d.handleDepth(ctx, frame)
	case strings.Contains(raw, "spot.tickers"):
		d.handleTicker(ctx, frame)
	}
}

func (d *Driver) handleDepth(ctx context.Context, frame []byte) {
	var f orderBookFrame
	if err := json.Unmarshal(frame, &f); err != nil || f.Result.Symbol == "" {
		return
	}
	bids, err := model.ParseLevelsRaw(f.Result.Bids)
	if err != nil {
		return
	}
	asks, err := model.ParseLevelsRaw(f.Result.Asks)
	if err != nil {
		return
	}
	d.store.PublishEvent(ctx, model.BookEvent{
		Kind: model.EventSnapshot, Exchange: model.ExchangeGate,
		Symbol: model.NormalizeSymbol(model.ExchangeGate, f.Result.Symbol), Bids: bids, Asks: asks,
	})
}

func (d *Driver) handleTicker(ctx context.Context, frame []byte) {
	var f tickerFrame
	if err := json.Unmarshal(frame, &f); err != nil || f.Result.Symbol == "" {
		return
	}
	price, err := strconv.ParseFloat(f.Result.LastPrice, 64)
	if err != nil {
		return
	}
	d.store.PublishPrice(ctx, model.NormalizeSymbol(model.ExchangeGate, f.Result.Symbol), price)
}

func (d *Driver) GetSpread(ctx context.Context, symbol string) (model.BestQuote, bool) {
	return exchange.BestQuoteFromStore(ctx, d.store, model.ExchangeGate, symbol)
}

func (d *Driver) GetBook(ctx context.Context, symbol string, depth int) (orderbook.SnapshotUi, bool) {
	return d.store.GetBook(ctx, symbol, depth)
}
