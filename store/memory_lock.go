package store

import (
	"context"
	"sync"
)

type txKey struct{}

// txLocker is the Memory store's lock. Operations called inside an
// InTransaction callback run under the lock the transaction already holds;
// the context marker keeps them from deadlocking on re-acquisition.
type txLocker struct {
	mu sync.Mutex
}

func (l *txLocker) lock(ctx context.Context) func() {
	if ctx.Value(txKey{}) != nil {
		return func() {}
	}
	l.mu.Lock()
	return l.mu.Unlock
}

func (l *txLocker) mark(ctx context.Context) context.Context {
	return context.WithValue(ctx, txKey{}, true)
}
