package model

import (
	"encoding/json"
	"testing"
)

func TestSubscriptionJSONFieldNames(t *testing.T) {
	raw := []byte(`{"action":"subscribe","channel":"order_book","longExchange":"binance","shortExchange":"bybit","ticker":"btc"}`)
	var sub Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if sub.Action != "subscribe" || sub.Channel != "order_book" || sub.LongExchange != "binance" ||
		sub.ShortExchange != "bybit" || sub.Ticker != "btc" {
		t.Fatalf("unexpected decode: %+v", sub)
	}
}

func TestParseSubscriptionEnums(t *testing.T) {
	if ParseClientCmd("subscribe") != CmdSubscribe {
		t.Fatalf("expected CmdSubscribe")
	}
	if ParseClientCmd("unsubscribe") != CmdUnsubscribe {
		t.Fatalf("expected CmdUnsubscribe")
	}
	if ParseChannelType("lines_history") != ChannelLinesHistory {
		t.Fatalf("expected ChannelLinesHistory")
	}
}
