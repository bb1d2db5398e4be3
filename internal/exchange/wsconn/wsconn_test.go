package wsconn

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestSendWithoutConnectionErrors(t *testing.T) {
	c := New("wss://example.invalid/ws", time.Second, func([]byte) {}, zerolog.Nop())
	if err := c.Send([]byte("hello")); err == nil {
		t.Fatal("expected error sending before any connection was established")
	}
}
