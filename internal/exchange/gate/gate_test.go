package gate

import "testing"

func TestGatePairFormatting(t *testing.T) {
	if got := gatePair("btcusdt"); got != "BTC_USDT" {
		t.Fatalf("gatePair(btcusdt) = %q, want BTC_USDT", got)
	}
}
