package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestAcquireBoundsConcurrency(t *testing.T) {
	l := New(1000, 2)
	ctx := context.Background()

	release1, err := l.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire 1: %v", err)
	}
	release2, err := l.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire 2: %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		release3, err := l.Acquire(ctx)
		if err != nil {
			return
		}
		close(acquired)
		release3()
	}()

	select {
	case <-acquired:
		t.Fatal("third acquire succeeded before a slot was released")
	case <-time.After(50 * time.Millisecond):
	}

	release1()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("third acquire never unblocked after release")
	}
	release2()
}

func TestAcquireRespectsCancellation(t *testing.T) {
	l := New(1000, 1)
	release, err := l.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := l.Acquire(ctx); err == nil {
		t.Fatal("expected cancellation error, got nil")
	}
}
