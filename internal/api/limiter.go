package api

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// MaxConcurrentRequests caps the number of in-flight GitLab requests per process
const MaxConcurrentRequests = 5

// defaultLimiter is shared by every Client that is not given its own
var defaultLimiter = NewLimiter(MaxConcurrentRequests)

// Limiter bounds concurrent work. Waiters are released in FIFO order, one
// for each slot that frees up.
type Limiter struct {
	sem    *semaphore.Weighted
	active atomic.Int64
}

// NewLimiter creates a limiter admitting at most max concurrent calls
func NewLimiter(max int) *Limiter {
	if max < 1 {
		max = 1
	}
	return &Limiter{sem: semaphore.NewWeighted(int64(max))}
}

// Do runs fn while holding a slot. The slot is released when fn returns,
// including when it fails or panics.
func (l *Limiter) Do(ctx context.Context, fn func() error) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	l.active.Add(1)
	defer func() {
		l.active.Add(-1)
		l.sem.Release(1)
	}()
	return fn()
}

// Active returns the number of calls currently holding a slot
func (l *Limiter) Active() int {
	return int(l.active.Load())
}
