package mock

import (
	"context"
	"sync/atomic"
	"time"
)

func NewWaiter() Waiter {
	return Waiter{
		active: new(atomic.Int32),
	}
}

// Waiter counts in-flight connections, like a 'sync.WaitGroup' whose 'Wait'
// honours a context.
type Waiter struct {
	active *atomic.Int32
}

func (w Waiter) Add() {
	w.active.Add(1)
}

func (w Waiter) Done() {
	left := w.active.Add(-1)
	log.Debug("connection finished", "in_flight", left)
}

// WaitContext polls until no connection is in flight or 'ctx' is done.
func (w Waiter) WaitContext(ctx context.Context) error {
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for {
		if w.active.Load() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
