package model

import "strings"

// binxAliases generalizes the one known BinX naming quirk (`ton` trades
// as `toncoin` on BinX) into a per-venue alias table. Only one alias
// survives in the upstream program's kept source, but the shape is a
// table rather than a single special case so a second alias doesn't
// require restructuring the normalizer.
var binxAliases = map[string]string{
	"ton": "toncoin",
}

var venueAliases = map[ExchangeType]map[string]string{
	ExchangeBinX: binxAliases,
}

// NormalizeSymbol canonicalizes a venue's native symbol spelling
// ("BTC-USDT", "BTC_USDT", "BTCUSDT") to the lowercase, separator-free
// form ("btcusdt") every internal component keys books and quotes by.
func NormalizeSymbol(venue ExchangeType, raw string) string {
	s := strings.ToLower(raw)
	s = strings.TrimSuffix(s, "-")
	s = strings.TrimSuffix(s, "_")
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, "_", "")

	if aliases, ok := venueAliases[venue]; ok {
		for from, to := range aliases {
			if strings.HasPrefix(s, from) && strings.HasSuffix(s, "usdt") && s == from+"usdt" {
				s = to + "usdt"
			}
		}
	}
	return s
}

// IsUSDTQuoted reports whether a venue-native symbol (before
// normalization) is quoted in USDT, in any of the three separator styles
// venues use.
func IsUSDTQuoted(raw string) bool {
	u := strings.ToUpper(raw)
	return strings.HasSuffix(u, "USDT") || strings.HasSuffix(u, "-USDT") || strings.HasSuffix(u, "_USDT")
}

// Base returns the lowercase base currency of a canonical "xxxusdt"
// symbol, e.g. "btcusdt" -> "btc". Used to match a client's requested
// ticker (a bare base, e.g. "btc") against a canonical symbol.
func Base(canonicalSymbol string) string {
	return strings.TrimSuffix(canonicalSymbol, "usdt")
}

// SymbolForTicker builds the canonical symbol the order-book store keys
// books by from a client-supplied base ticker (e.g. "btc" -> "btcusdt").
func SymbolForTicker(ticker string) string {
	return strings.ToLower(ticker) + "usdt"
}
