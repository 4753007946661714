// internal/queue/dispatcher_test.go
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingEnqueuer captures enqueued tasks and their options.
type recordingEnqueuer struct {
	tasks []*asynq.Task
	opts  [][]asynq.Option
	err   error
}

func (r *recordingEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.tasks = append(r.tasks, task)
	r.opts = append(r.opts, opts)
	return &asynq.TaskInfo{ID: "task-id", Queue: QueueDefault}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestDispatcher(client enqueuer, repos []string) *Dispatcher {
	return &Dispatcher{client: client, defaultRepos: repos, logger: testLogger()}
}

// delayOf extracts the ProcessIn delay from recorded options.
func delayOf(t *testing.T, opts []asynq.Option) time.Duration {
	t.Helper()
	for _, opt := range opts {
		if opt.Type() == asynq.ProcessInOpt {
			return opt.Value().(time.Duration)
		}
	}
	t.Fatal("no ProcessIn option recorded")
	return 0
}

func queueOf(t *testing.T, opts []asynq.Option) string {
	t.Helper()
	for _, opt := range opts {
		if opt.Type() == asynq.QueueOpt {
			return opt.Value().(string)
		}
	}
	t.Fatal("no Queue option recorded")
	return ""
}

func TestDispatcher_Dispatch(t *testing.T) {
	ctx := context.Background()

	t.Run("spaces jobs one second apart under the rate budget", func(t *testing.T) {
		enq := &recordingEnqueuer{}
		d := newTestDispatcher(enq, nil)

		result, err := d.Dispatch(ctx, DispatchOptions{
			Repositories: []string{"github.com/a/one", "github.com/b/two", "github.com/c/three"},
		})

		require.NoError(t, err)
		require.Len(t, enq.tasks, 3)
		assert.Equal(t, time.Duration(0), delayOf(t, enq.opts[0]))
		assert.Equal(t, time.Second, delayOf(t, enq.opts[1]))
		assert.Equal(t, 2*time.Second, delayOf(t, enq.opts[2]))
		assert.Equal(t, 3, result.Count)
		assert.Equal(t, 1, result.EstimatedDuration)
		assert.Contains(t, result.JobID, "sync-batch-")
	})

	t.Run("stretches spacing beyond 1s when the batch exceeds the budget", func(t *testing.T) {
		// 2001 repositories * 2 requests > 5000 * 0.8.
		repos := make([]string, 2001)
		for i := range repos {
			repos[i] = "github.com/owner/repo"
		}
		enq := &recordingEnqueuer{}
		d := newTestDispatcher(enq, nil)

		result, err := d.Dispatch(ctx, DispatchOptions{Repositories: repos})

		require.NoError(t, err)
		spacing := delayOf(t, enq.opts[1])
		assert.Greater(t, spacing, time.Second)
		// hourMs / 4000 * 2 = 1800ms.
		assert.Equal(t, 1800*time.Millisecond, spacing)
		assert.Equal(t, 2001, result.Count)
	})

	t.Run("enqueues nothing for an empty repository list", func(t *testing.T) {
		enq := &recordingEnqueuer{}
		d := newTestDispatcher(enq, nil)

		result, err := d.Dispatch(ctx, DispatchOptions{})

		require.NoError(t, err)
		assert.Empty(t, enq.tasks)
		assert.Equal(t, 0, result.Count)
		assert.Equal(t, 0, result.EstimatedDuration)
	})

	t.Run("falls back to the configured default list", func(t *testing.T) {
		enq := &recordingEnqueuer{}
		d := newTestDispatcher(enq, []string{"github.com/x/default"})

		result, err := d.Dispatch(ctx, DispatchOptions{})

		require.NoError(t, err)
		require.Len(t, enq.tasks, 1)
		assert.Equal(t, 1, result.Count)

		var payload SyncRepositoryPayload
		require.NoError(t, json.Unmarshal(enq.tasks[0].Payload(), &payload))
		assert.Equal(t, "github.com/x/default", payload.URL)
	})

	t.Run("maps the priority hint to queue names", func(t *testing.T) {
		enq := &recordingEnqueuer{}
		d := newTestDispatcher(enq, nil)

		_, err := d.Dispatch(ctx, DispatchOptions{
			Repositories: []string{"github.com/a/one"},
			Priority:     "high",
		})
		require.NoError(t, err)
		assert.Equal(t, QueueHigh, queueOf(t, enq.opts[0]))

		_, err = d.Dispatch(ctx, DispatchOptions{
			Repositories: []string{"github.com/a/one"},
		})
		require.NoError(t, err)
		assert.Equal(t, QueueDefault, queueOf(t, enq.opts[1]))
	})

	t.Run("propagates queue errors to the caller", func(t *testing.T) {
		enq := &recordingEnqueuer{err: errors.New("redis unavailable")}
		d := newTestDispatcher(enq, nil)

		_, err := d.Dispatch(ctx, DispatchOptions{Repositories: []string{"github.com/a/one"}})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "github.com/a/one")
	})
}

func TestDelayBetweenJobs(t *testing.T) {
	assert.Equal(t, time.Second, delayBetweenJobs(2))
	assert.Equal(t, time.Second, delayBetweenJobs(2000))
	assert.Equal(t, 1800*time.Millisecond, delayBetweenJobs(2001))
}

func TestEstimatedMinutes(t *testing.T) {
	assert.Equal(t, 0, estimatedMinutes(0, time.Second))
	assert.Equal(t, 1, estimatedMinutes(3, time.Second))
	assert.Equal(t, 2, estimatedMinutes(61, time.Second))
}
