package lock

import (
	"context"
	"sync"
)

// Local is an in-process submission lock.
type Local struct {
	mu sync.Mutex
}

// NewLocal creates an unlocked Local.
func NewLocal() *Local {
	return &Local{}
}

// TryAcquire never blocks.
func (l *Local) TryAcquire(ctx context.Context) (func(), bool, error) {
	if !l.mu.TryLock() {
		return nil, false, nil
	}
	var once sync.Once
	return func() { once.Do(l.mu.Unlock) }, true, nil
}
