// Package exchange defines the capability every venue driver
// implements and the chunking helper shared across all seven.
package exchange

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"marketagg/internal/model"
	"marketagg/internal/orderbook"
)

// Driver is the capability set a venue's ingestion pipeline satisfies:
// subscribe-by-symbol, poll-view(symbol), publish-best-quote. Each
// venue implements this independently rather than through a shared base
// struct — the venues diverge substantially in wire format and agree
// only at this normalized boundary.
type Driver interface {
	// Exchange identifies which venue this driver is.
	Exchange() model.ExchangeType

	// Run connects, subscribes, and ingests until ctx is cancelled. It
	// does nothing and returns promptly if the driver is disabled.
	Run(ctx context.Context)

	// GetSpread reads the current best ask/bid for symbol from this
	// driver's store and returns it; the spread engine installs it into
	// the shared quote table. Only called for venues enabled for spread
	// computation.
	GetSpread(ctx context.Context, symbol string) (model.BestQuote, bool)

	// GetBook requests the trimmed view of symbol from this driver's
	// order-book store.
	GetBook(ctx context.Context, symbol string, depth int) (orderbook.SnapshotUi, bool)
}

// ChunkSymbols partitions symbols into groups no larger than size, the
// venue's subscriptions-per-connection limit.
func ChunkSymbols(symbols []string, size int) [][]string {
	if size <= 0 {
		size = len(symbols)
	}
	var chunks [][]string
	for i := 0; i < len(symbols); i += size {
		end := i + size
		if end > len(symbols) {
			end = len(symbols)
		}
		chunks = append(chunks, symbols[i:end])
	}
	return chunks
}

// universeClient is the one-shot resty client every venue's startup
// symbol-universe fetch shares; it is not rate-limited or
// circuit-broken like restclient.Client since it is called once per
// process lifetime, not once per symbol.
var universeClient = resty.New().SetTimeout(10 * time.Second)

// FetchSymbolUniverse performs step 2 of the ingestion driver contract:
// one REST call to a venue's public symbol-listing endpoint, unmarshaled
// into out. Each venue's response shape differs, so callers supply out
// and do their own USDT filtering afterward.
func FetchSymbolUniverse(ctx context.Context, url string, out any) error {
	resp, err := universeClient.R().SetContext(ctx).SetResult(out).Get(url)
	if err != nil {
		return fmt.Errorf("fetch symbol universe %s: %w", url, err)
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("fetch symbol universe %s: status %d", url, resp.StatusCode())
	}
	return nil
}

// BestQuoteFromStore derives a venue's current best quote for symbol by
// querying its order-book store for the trimmed view, the shape every
// venue driver's GetSpread reduces to once deltas are normalized.
func BestQuoteFromStore(ctx context.Context, store *orderbook.Store, ex model.ExchangeType, symbol string) (model.BestQuote, bool) {
	view, ok := store.GetBook(ctx, symbol, orderbook.Depth)
	if !ok || len(view.Asks) == 0 || len(view.Bids) == 0 {
		return model.BestQuote{}, false
	}
	return model.BestQuote{
		Exchange:  ex,
		Symbol:    symbol,
		AskPrice:  view.Asks[len(view.Asks)-1].Price,
		BidPrice:  view.Bids[0].Price,
		UpdatedAt: time.Now(),
	}, true
}
