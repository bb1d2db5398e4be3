package lbank

import "testing"

func TestLbankPairFormatting(t *testing.T) {
	if got := lbankPair("btcusdt"); got != "btc_usdt" {
		t.Fatalf("lbankPair(btcusdt) = %q, want btc_usdt", got)
	}
}
