package session

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewSubscriptionCancelsPrevious(t *testing.T) {
	sess := newSession(context.Background(), nil, zerolog.Nop())

	first := sess.newSubscription()
	select {
	case <-first.Done():
		t.Fatal("first subscription context cancelled before a resubscribe")
	default:
	}

	second := sess.newSubscription()
	select {
	case <-first.Done():
	default:
		t.Fatal("expected resubscribe to cancel the previous subscription's context")
	}
	select {
	case <-second.Done():
		t.Fatal("fresh subscription context should not start cancelled")
	default:
	}
}

func TestNewSubscriptionDerivesFromSessionContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sess := newSession(ctx, nil, zerolog.Nop())

	sub := sess.newSubscription()
	cancel()
	select {
	case <-sub.Done():
	default:
		t.Fatal("subscription context should be cancelled when the session context is")
	}
}
