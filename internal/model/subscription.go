package model

// Subscription is the inbound client WebSocket command. Field names
// carry camelCase JSON tags because the wire contract mirrors the
// original program's client-facing shape, unlike every internal venue
// tag which stays snake_case lowercase.
type Subscription struct {
	Action        string `json:"action"`
	Channel       string `json:"channel"`
	LongExchange  string `json:"longExchange"`
	ShortExchange string `json:"shortExchange"`
	Ticker        string `json:"ticker"`
}
