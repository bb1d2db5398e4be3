package session

import (
	"encoding/json"
	"strconv"

	"marketagg/internal/model"
	"marketagg/internal/orderbook"
	"marketagg/internal/storage"
)

// formatFloat renders a float as the exact decimal string the wire
// contract requires ("numeric values are emitted as decimal strings,
// to preserve precision"): clients parsing this JSON in languages
// whose float type can't round-trip a float64 bit-for-bit still get
// the shortest decimal that does.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

type rowWire struct {
	Price string `json:"price"`
	Qty   string `json:"cumulativeQty"`
}

func rowsWire(rows []orderbook.Row) []rowWire {
	out := make([]rowWire, len(rows))
	for i, r := range rows {
		out[i] = rowWire{Price: formatFloat(r.Price), Qty: formatFloat(r.CumulativeQty)}
	}
	return out
}

type snapshotWire struct {
	Asks      []rowWire `json:"asks"`
	Bids      []rowWire `json:"bids"`
	LastPrice string    `json:"lastPrice"`
}

func snapshotUiWire(v orderbook.SnapshotUi) snapshotWire {
	return snapshotWire{
		Asks:      rowsWire(v.Asks),
		Bids:      rowsWire(v.Bids),
		LastPrice: formatFloat(v.LastPrice),
	}
}

type orderBookResult struct {
	Books map[string]snapshotWire `json:"books"`
}

type orderBookFrame struct {
	Channel string          `json:"channel"`
	Result  orderBookResult `json:"result"`
	Ticker  string          `json:"ticker"`
}

// marshalBooks renders the order_book outbound frame from whichever
// sides have been observed so far; a side with no book yet is simply
// omitted rather than sent as a zero value.
func marshalBooks(ticker string, books map[model.Side]orderbook.SnapshotUi) []byte {
	result := orderBookResult{Books: make(map[string]snapshotWire, len(books))}
	for side, view := range books {
		result.Books[side.String()] = snapshotUiWire(view)
	}
	frame := orderBookFrame{
		Channel: model.ChannelOrderBook.String(),
		Result:  result,
		Ticker:  ticker,
	}
	b, _ := json.Marshal(frame)
	return b
}

type pointWire struct {
	Time  string `json:"time"`
	Value string `json:"value"`
}

func pointsWire(points []storage.LinePoint) []pointWire {
	out := make([]pointWire, len(points))
	for i, p := range points {
		out[i] = pointWire{Time: strconv.FormatInt(p.Time.Unix(), 10), Value: formatFloat(p.Value)}
	}
	return out
}

type linesResult struct {
	Lines map[string][]pointWire `json:"lines"`
}

type linesFrame struct {
	Channel string      `json:"channel"`
	Result  linesResult `json:"result"`
	Ticker  string      `json:"ticker"`
}

// marshalLines renders the lines_history outbound frame: the full
// accumulated (time, value) arrays for each side seeded so far.
func marshalLines(ticker string, long, short []storage.LinePoint) []byte {
	frame := linesFrame{
		Channel: model.ChannelLinesHistory.String(),
		Result: linesResult{Lines: map[string][]pointWire{
			model.SideLong.String():  pointsWire(long),
			model.SideShort.String(): pointsWire(short),
		}},
		Ticker: ticker,
	}
	b, _ := json.Marshal(frame)
	return b
}
