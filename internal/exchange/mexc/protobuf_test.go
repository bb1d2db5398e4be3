package mexc

import (
	"testing"

	"google.golang.org/protobuf/encoding/protowire"
)

func appendStringField(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendBytesField(b []byte, num protowire.Number, sub []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, sub)
}

func buildLevel(price, qty string) []byte {
	var b []byte
	b = appendStringField(b, tagLevelPrice, price)
	b = appendStringField(b, tagLevelQuantity, qty)
	return b
}

func TestDecodeWrapperExtractsDepthSubmessage(t *testing.T) {
	depth := appendStringField(nil, tagDepthFromVersion, "10")
	depth = appendStringField(depth, tagDepthToVersion, "11")
	depth = appendBytesField(depth, tagDepthAsks, buildLevel("100.5", "2"))
	depth = appendBytesField(depth, tagDepthBids, buildLevel("100.1", "3"))

	var frame []byte
	frame = appendStringField(frame, tagChannel, "spot@public.aggre.depth.v3.api.pb@100ms@BTCUSDT")
	frame = appendStringField(frame, tagSymbol, "BTCUSDT")
	frame = appendBytesField(frame, tagPublicIncreaseDepths, depth)

	w, err := decodeWrapper(frame)
	if err != nil {
		t.Fatalf("decodeWrapper: %v", err)
	}
	if w.symbol != "BTCUSDT" || !w.haveDepth {
		t.Fatalf("got symbol=%q haveDepth=%v", w.symbol, w.haveDepth)
	}

	d, err := decodeDepth(w.depthBytes)
	if err != nil {
		t.Fatalf("decodeDepth: %v", err)
	}
	if d.fromVersion != "10" || d.toVersion != "11" {
		t.Fatalf("got fromVersion=%q toVersion=%q", d.fromVersion, d.toVersion)
	}
	if len(d.asks) != 1 || d.asks[0].price != "100.5" || d.asks[0].quantity != "2" {
		t.Fatalf("unexpected asks: %+v", d.asks)
	}
	if len(d.bids) != 1 || d.bids[0].price != "100.1" {
		t.Fatalf("unexpected bids: %+v", d.bids)
	}
}

func TestDecodeMiniTickerPrice(t *testing.T) {
	var sub []byte
	sub = appendStringField(sub, tagMiniTickerPrice, "65432.1")

	price, err := decodeMiniTickerPrice(sub)
	if err != nil {
		t.Fatalf("decodeMiniTickerPrice: %v", err)
	}
	if price != "65432.1" {
		t.Fatalf("got %q, want 65432.1", price)
	}
}

func TestLevelsToRows(t *testing.T) {
	levels := []depthLevel{{price: "1", quantity: "2"}, {price: "3", quantity: "4"}}
	rows := levelsToRows(levels)
	want := [][2]string{{"1", "2"}, {"3", "4"}}
	for i := range want {
		if rows[i] != want[i] {
			t.Fatalf("row %d: got %v, want %v", i, rows[i], want[i])
		}
	}
}
