package binx

import (
	"bytes"
	"compress/gzip"
	"testing"
)

func TestGunzipRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write([]byte(`{"hello":"world"}`)); err != nil {
		t.Fatal(err)
	}
	w.Close()

	out, err := gunzip(buf.Bytes())
	if err != nil {
		t.Fatalf("gunzip: %v", err)
	}
	if string(out) != `{"hello":"world"}` {
		t.Fatalf("got %q", out)
	}
}

func TestBinxTickerAliasing(t *testing.T) {
	if got := binxTicker("toncoinusdt"); got != "TON-USDT" {
		t.Fatalf("binxTicker(toncoinusdt) = %q, want TON-USDT", got)
	}
	if got := binxTicker("btcusdt"); got != "BTC-USDT" {
		t.Fatalf("binxTicker(btcusdt) = %q, want BTC-USDT", got)
	}
}

func TestSymbolFromDepthTopic(t *testing.T) {
	if got := symbolFromDepthTopic("BTC-USDT@depth50"); got != "btcusdt" {
		t.Fatalf("got %q", got)
	}
	if got := symbolFromDepthTopic("TON-USDT@depth50"); got != "toncoinusdt" {
		t.Fatalf("got %q, want toncoinusdt alias applied", got)
	}
}
