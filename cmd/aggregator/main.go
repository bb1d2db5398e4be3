// Command aggregator is the process entry point: it wires logging,
// config, persistence, the seven venue drivers, the quote table, the
// spread engine and sampler, and the client session router, then runs
// until an OS signal requests shutdown. Grounded on the teacher's
// main.go startup sequence (sequential InitX calls, goroutines for the
// long-running servers, signal-driven shutdown), generalized from a
// single hertz HTTP server to this system's multi-venue pipeline.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"marketagg/internal/config"
	"marketagg/internal/exchange"
	"marketagg/internal/exchange/binance"
	"marketagg/internal/exchange/binx"
	"marketagg/internal/exchange/bybit"
	"marketagg/internal/exchange/gate"
	"marketagg/internal/exchange/kucoin"
	"marketagg/internal/exchange/lbank"
	"marketagg/internal/exchange/mexc"
	"marketagg/internal/logging"
	"marketagg/internal/model"
	"marketagg/internal/quote"
	"marketagg/internal/session"
	"marketagg/internal/spread"
	"marketagg/internal/storage"
)

// listenAddr is the inbound client WebSocket address (§6).
const listenAddr = "127.0.0.1:9000"

func main() {
	log := logging.New(envOr("LOG_LEVEL", "info"), os.Getenv("LOG_PRETTY") == "true")

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	store, err := storage.OpenGormStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	drivers := buildDrivers(cfg, log)
	driverMap := make(map[model.ExchangeType]exchange.Driver, len(drivers))
	sources := make([]spread.QuoteSource, 0, len(drivers))
	for _, d := range drivers {
		driverMap[d.Exchange()] = d
		if cfg.VenueEnabled[d.Exchange()] {
			sources = append(sources, d)
		}
	}

	quotes := quote.New()
	broadcaster := spread.NewBroadcaster()
	router := session.NewRouter(driverMap, store, broadcaster, log)
	engine := spread.NewEngine(quotes, router.ActiveSymbols, broadcaster, sources)
	sampler := spread.NewSampler(store, log)

	if err := sampler.Seed(ctx); err != nil {
		log.Error().Err(err).Msg("seed sampler from persisted lines")
	}

	samplerCh, unsubscribeSampler := broadcaster.Subscribe()
	defer unsubscribeSampler()

	for _, d := range drivers {
		d := d
		go d.Run(ctx)
	}
	go engine.Run(ctx)
	go sampler.Run(ctx, samplerCh, func() int64 { return time.Now().Unix() })

	log.Info().Str("addr", listenAddr).Msg("session router listening")
	if err := router.ListenAndServe(ctx, listenAddr); err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("session router stopped unexpectedly")
	}

	log.Info().Msg("shutdown complete")
}

// buildDrivers constructs all seven venue drivers. Each receives a nil
// symbols list: Run fetches the venue's own USDT-quoted universe over
// REST per the ingestion driver contract's step 2.
func buildDrivers(cfg config.Config, log zerolog.Logger) []exchange.Driver {
	capacity := cfg.OrderbookCacheCapacity
	return []exchange.Driver{
		binance.New(cfg.VenueEnabled[model.ExchangeBinance], model.ChannelOrderBook, nil, capacity, log),
		bybit.New(cfg.VenueEnabled[model.ExchangeBybit], model.ChannelOrderBook, nil, capacity, log),
		kucoin.New(cfg.VenueEnabled[model.ExchangeKuCoin], model.ChannelOrderBook, nil, capacity, log),
		binx.New(cfg.VenueEnabled[model.ExchangeBinX], model.ChannelOrderBook, nil, capacity, log),
		mexc.New(cfg.VenueEnabled[model.ExchangeMexc], model.ChannelOrderBook, nil, capacity, log),
		gate.New(cfg.VenueEnabled[model.ExchangeGate], model.ChannelOrderBook, nil, capacity, log),
		lbank.New(cfg.VenueEnabled[model.ExchangeLBank], model.ChannelOrderBook, nil, capacity, log),
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
