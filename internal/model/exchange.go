package model

// ExchangeType is the closed set of venues this aggregator supports. It is
// modeled as a finite enum (not an open string) so every switch over it
// can list the whole closed set; the Go compiler does not check that a
// switch covers every venue.
type ExchangeType int

const (
	ExchangeUnknown ExchangeType = iota
	ExchangeBinance
	ExchangeBybit
	ExchangeKuCoin
	ExchangeBinX
	ExchangeMexc
	ExchangeGate
	ExchangeLBank
)

func (e ExchangeType) String() string {
	switch e {
	case ExchangeBinance:
		return "binance"
	case ExchangeBybit:
		return "bybit"
	case ExchangeKuCoin:
		return "kucoin"
	case ExchangeBinX:
		return "binx"
	case ExchangeMexc:
		return "mexc"
	case ExchangeGate:
		return "gate"
	case ExchangeLBank:
		return "lbank"
	default:
		return "unknown"
	}
}

// ParseExchangeType maps the lowercase snake-case venue tag used on the
// wire (subscription commands, pair labels) back to an ExchangeType.
func ParseExchangeType(s string) ExchangeType {
	switch s {
	case "binance":
		return ExchangeBinance
	case "bybit":
		return ExchangeBybit
	case "kucoin":
		return ExchangeKuCoin
	case "binx":
		return ExchangeBinX
	case "mexc":
		return ExchangeMexc
	case "gate":
		return ExchangeGate
	case "lbank":
		return ExchangeLBank
	default:
		return ExchangeUnknown
	}
}

// AllExchanges lists every venue in a stable order, used wherever the
// spread engine or router needs to iterate the full venue set.
var AllExchanges = []ExchangeType{
	ExchangeBinance, ExchangeBybit, ExchangeKuCoin, ExchangeBinX,
	ExchangeMexc, ExchangeGate, ExchangeLBank,
}

// ChannelType is the client subscription channel enum.
type ChannelType int

const (
	ChannelUnknown ChannelType = iota
	ChannelOrderBook
	ChannelLinesHistory
)

func (c ChannelType) String() string {
	switch c {
	case ChannelOrderBook:
		return "order_book"
	case ChannelLinesHistory:
		return "lines_history"
	default:
		return "unknown"
	}
}

// ParseChannelType parses the wire "channel" field of a Subscription.
func ParseChannelType(s string) ChannelType {
	switch s {
	case "order_book":
		return ChannelOrderBook
	case "lines_history":
		return ChannelLinesHistory
	default:
		return ChannelUnknown
	}
}

// ClientCmd is the client action enum on a Subscription message.
type ClientCmd int

const (
	CmdUnknown ClientCmd = iota
	CmdSubscribe
	CmdUnsubscribe
)

func ParseClientCmd(s string) ClientCmd {
	switch s {
	case "subscribe":
		return CmdSubscribe
	case "unsubscribe":
		return CmdUnsubscribe
	default:
		return CmdUnknown
	}
}

// MarketType distinguishes the two topic families a venue driver
// subscribes per symbol. It is not serialized; it only classifies
// inbound frames.
type MarketType int

const (
	MarketUnknown MarketType = iota
	MarketDepth
	MarketTicker
)

// Side distinguishes which leg of a cross-venue pair a book view belongs
// to ("long" buys on this venue, "short" sells on this venue).
type Side int

const (
	SideLong Side = iota
	SideShort
)

func (s Side) String() string {
	if s == SideShort {
		return "short"
	}
	return "long"
}
