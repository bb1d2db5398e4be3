// Package wsconn is the shared WebSocket dial/reconnect/ping scaffolding
// every venue driver's ingestion side builds on, grounded on the
// teacher's websocket.WsClient connect/read/ping loops and generalized
// from a single private order endpoint to an arbitrary public feed with
// automatic reconnect on read error.
package wsconn

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
	pingEvery = 20 * time.Second
)

// Handler receives raw frames off the socket. It has no way to close
// the connection; Conn only reconnects on a read error or ctx
// cancellation.
type Handler func(frame []byte)

// Conn is one reconnecting WebSocket client. Run runs until ctx is
// cancelled, redialing after every read failure with the delay the
// caller supplies (per-venue reconnect delay, per the spec's §5 table).
type Conn struct {
	url           string
	reconnectWait time.Duration
	onFrame       Handler
	log           zerolog.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

// New constructs a reconnecting connection to url. reconnectWait is the
// delay before redialing after a read error.
func New(url string, reconnectWait time.Duration, onFrame Handler, log zerolog.Logger) *Conn {
	return &Conn{url: url, reconnectWait: reconnectWait, onFrame: onFrame, log: log}
}

// Run dials, reads, and automatically reconnects until ctx is
// cancelled.
func (c *Conn) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := c.runOnce(ctx); err != nil {
			c.log.Warn().Err(err).Str("url", c.url).Msg("ws connection ended, reconnecting")
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(c.reconnectWait):
		}
	}
}

func (c *Conn) runOnce(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("ws dial %s: %w", c.url, err)
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	go c.pingLoop(ctx, conn, done)
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		c.onFrame(msg)
	}
}

func (c *Conn) pingLoop(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			c.mu.Unlock()
			if err != nil {
				return
			}
		case <-done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Send writes a text frame on the current connection, if any.
func (c *Conn) Send(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("not connected")
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, frame)
}
