// internal/queue/limiter_test.go
package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThroughputLimiter(t *testing.T) {
	t.Run("enforces the minimum interval between tasks", func(t *testing.T) {
		l := newThroughputLimiter(30 * time.Millisecond)
		ctx := context.Background()

		start := time.Now()
		require.NoError(t, l.wait(ctx))
		require.NoError(t, l.wait(ctx))
		require.NoError(t, l.wait(ctx))
		elapsed := time.Since(start)

		// Third task may not start before two full intervals have passed.
		assert.GreaterOrEqual(t, elapsed, 60*time.Millisecond)
	})

	t.Run("does not delay the first task", func(t *testing.T) {
		l := newThroughputLimiter(time.Minute)

		start := time.Now()
		require.NoError(t, l.wait(context.Background()))
		assert.Less(t, time.Since(start), 100*time.Millisecond)
	})

	t.Run("returns when the context is cancelled", func(t *testing.T) {
		l := newThroughputLimiter(time.Minute)
		require.NoError(t, l.wait(context.Background()))

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		err := l.wait(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}
