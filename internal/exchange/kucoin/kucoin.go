// Package kucoin is the KuCoin venue driver. KuCoin requires a
// short-lived bullet token fetched over REST before the WS endpoint
// can be dialed; the level2Depth50 channel only ever emits full
// snapshots, so this driver treats every inbound depth frame as a
// Snapshot event (see the spec's §9 open-question resolution on
// snapshot-only venues). Grounded on the upstream KuCoinWebsocket
// driver.
package kucoin

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"marketagg/internal/exchange"
	"marketagg/internal/exchange/wsconn"
	"marketagg/internal/model"
	"marketagg/internal/orderbook"
)

const (
	chunkSize      = 50
	reconnectWait  = 1 * time.Second
	bulletTokenURL = "https://api.kucoin.com/api/v1/bullet-public"
	wsEndpointBase = "wss://ws-api-spot.kucoin.com"
	symbolsURL     = "https://api.kucoin.com/api/v1/symbols"
)

type Driver struct {
	enabled     bool
	channelType model.ChannelType
	symbols     []string
	http        *resty.Client
	store       *orderbook.Store
	log         zerolog.Logger
	subMu       sync.Mutex
}

func New(enabled bool, channelType model.ChannelType, symbols []string, capacity int, log zerolog.Logger) *Driver {
	return &Driver{
		enabled:     enabled,
		channelType: channelType,
		symbols:     symbols,
		http:        resty.New().SetTimeout(10 * time.Second),
		store:       orderbook.NewStore(model.ExchangeKuCoin, false, capacity, log),
		log:         log.With().Str("component", "kucoin_driver").Logger(),
	}
}

func (d *Driver) Exchange() model.ExchangeType { return model.ExchangeKuCoin }

func (d *Driver) Run(ctx context.Context) {
	if !d.enabled {
		d.log.Info().Msg("kucoin driver disabled")
		return
	}
	go d.store.Run(ctx)

	symbols := d.symbols
	if len(symbols) == 0 {
		fetched, err := d.fetchSymbolUniverse(ctx)
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
	Data []struct {
		Symbol        string `json:"symbol"`
		QuoteCurrency string `json:"quoteCurrency"`
		EnableTrading bool   `json:"enableTrading"`
	} `json:"data"`
}

// fetchSymbolUniverse performs the driver contract's step 2: list every
// spot symbol and keep the USDT-quoted, currently tradeable ones.
func (d *Driver) fetchSymbolUniverse(ctx context.Context) ([]string, error) {
	var resp symbolsResponse
	if err := exchange.FetchSymbolUniverse(ctx, symbolsURL, &resp); err != nil {
		return nil, err
	}
	symbols := make([]string, 0, len(resp.Data))
	for _, s := range resp.Data {
		if s.QuoteCurrency == "USDT" && s.EnableTrading {
			symbols = append(symbols, model.NormalizeSymbol(model.ExchangeKuCoin, s.Symbol))
		}
	}
	return symbols, nil
}

type bulletResponse struct {
	Data struct {
		Token           string `json:"token"`
		InstanceServers []struct {
			Endpoint string `json:"endpoint"`
		} `json:"instanceServers"`
	} `json:"data"`
}

func (d *Driver) fetchToken(ctx context.Context) (string, string, error) {
	var out bulletResponse
	resp, err := d.http.R().SetContext(ctx).SetResult(&out).Post(bulletTokenURL)
	if err != nil {
		return "", "", fmt.Errorf("bullet token request: %w", err)
	}
	if resp.StatusCode() != 200 {
		return "", "", fmt.Errorf("bullet token status %d", resp.StatusCode())
	}
	endpoint := wsEndpointBase
	if len(out.Data.InstanceServers) > 0 {
		endpoint = out.Data.InstanceServers[0].Endpoint
	}
	return out.Data.Token, endpoint, nil
}

func (d *Driver) runChunk(ctx context.Context, symbols []string) {
	for {
		if ctx.Err() != nil {
			return
		}
		token, endpoint, err := d.fetchToken(ctx)
		if err != nil {
			d.log.Warn().Err(err).Msg("fetch bullet token failed")
			select {
			case <-time.After(reconnectWait):
			case <-ctx.Done():
				return
			}
			continue
		}
		url := fmt.Sprintf("%s?token=%s", endpoint, token)
		conn := wsconn.New(url, reconnectWait, func(frame []byte) { d.handleFrame(ctx, frame) }, d.log)
		go func() {
			time.Sleep(300 * time.Millisecond)
			d.subscribe(conn, symbols)
		}()
		conn.Run(ctx)
		if ctx.Err() != nil {
			return
		}
	}
}

func (d *Driver) subscribe(conn *wsconn.Conn, symbols []string) {
	d.subMu.Lock()
	defer d.subMu.Unlock()
	for _, sym := range symbols {
		upper := strings.ToUpper(model.Base(sym))
		depthMsg, _ := json.Marshal(map[string]any{
			"type": "subscribe", "topic": "/spotMarket/level2Depth50:" + upper + "-USDT", "response": true,
		})
		tickerMsg, _ := json.Marshal(map[string]any{
			"type": "subscribe", "topic": "/market/ticker:" + upper + "-USDT", "response": true,
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

type depthFrame struct {
	Topic string `json:"topic"`
	Data  struct {
		Asks [][]string `json:"asks"`
		Bids [][]string `json:"bids"`
	} `json:"data"`
}

type tickerFrame struct {
	Topic string `json:"topic"`
	Data  struct {
		Price string `json:"price"`
	} `json:"data"`
}

func (d *Driver) handleFrame(ctx context.Context, frame []byte) {
	raw := string(frame)
	switch {
	case strings.Contains(raw, "level2Depth50"):
		d.handleDepth(ctx, raw, frame)
	case strings.Contains(raw, "/market/ticker:"):
		d.handleTicker(ctx, raw, frame)
	}
}

func (d *Driver) handleDepth(ctx context.Context, raw string, frame []byte) {
	var f depthFrame
	if err := json.Unmarshal(frame, &f); err != nil {
		d.log.Debug().Err(err).Msg("decode depth frame")
		return
	}
	symbol := symbolFromTopic(f.Topic)
	if symbol == "" {
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
		Kind: model.EventSnapshot, Exchange: model.ExchangeKuCoin,
		Symbol: model.NormalizeSymbol(model.ExchangeKuCoin, symbol), Bids: bids, Asks: asks,
	})
}

func (d *Driver) handleTicker(ctx context.Context, raw string, frame []byte) {
	var f tickerFrame
	if err := json.Unmarshal(frame, &f); err != nil {
		return
	}
	symbol := symbolFromTopic(f.Topic)
	if symbol == "" {
		return
	}
	price, err := strconv.ParseFloat(f.Data.Price, 64)
	if err != nil {
		return
	}
	d.store.PublishPrice(ctx, model.NormalizeSymbol(model.ExchangeKuCoin, symbol), price)
}

// symbolFromTopic extracts the trailing "BTC-USDT" from a topic like
// "/spotMarket/level2Depth50:BTC-USDT".
func symbolFromTopic(topic string) string {
	idx := strings.LastIndex(topic, ":")
	if idx < 0 {
		return ""
	}
	return topic[idx+1:]
}

func (d *Driver) GetSpread(ctx context.Context, symbol string) (model.BestQuote, bool) {
	return exchange.BestQuoteFromStore(ctx, d.store, model.ExchangeKuCoin, symbol)
}

func (d *Driver) GetBook(ctx context.Context, symbol string, depth int) (orderbook.SnapshotUi, bool) {
	return d.store.GetBook(ctx, symbol, depth)
}
