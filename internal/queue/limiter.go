// internal/queue/limiter.go
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/hibiken/asynq"
)

// throughputLimiter enforces a minimum interval between processed tasks. With
// worker concurrency fixed at 1 this caps throughput at one job per window;
// it bounds how fast jobs are pulled, not what each job does.
type throughputLimiter struct {
	interval time.Duration
	mu       sync.Mutex
	last     time.Time
}

func newThroughputLimiter(interval time.Duration) *throughputLimiter {
	return &throughputLimiter{interval: interval}
}

// wait blocks until the interval since the previous task has elapsed, or the
// context is cancelled.
func (l *throughputLimiter) wait(ctx context.Context) error {
	l.mu.Lock()
	now := time.Now()
	next := l.last.Add(l.interval)
	if next.Before(now) {
		next = now
	}
	l.last = next
	l.mu.Unlock()

	if d := time.Until(next); d > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d):
		}
	}
	return nil
}

// middleware adapts the limiter into an asynq handler middleware.
func (l *throughputLimiter) middleware(next asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, task *asynq.Task) error {
		if err := l.wait(ctx); err != nil {
			return err
		}
		return next.ProcessTask(ctx, task)
	})
}
