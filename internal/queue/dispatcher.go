// internal/queue/dispatcher.go
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/hibiken/asynq"
)

// Rate budget against the GitHub API. Each sync job spends two requests (one
// metadata call, one issues call); the dispatcher spaces jobs so the batch
// stays under a safety margin of the published hourly limit.
const (
	githubRateLimit = 5000
	requestsPerRepo = 2
	safetyMargin    = 0.8
	flatJobSpacing  = time.Second
)

// enqueuer is the slice of asynq.Client the dispatcher needs; tests substitute
// a mock.
type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// DispatchOptions are the caller-supplied knobs for one batch.
type DispatchOptions struct {
	// Repositories overrides the configured default list when non-empty.
	Repositories []string
	// Priority is "high" or "normal" (default).
	Priority string
}

// DispatchResult summarizes one enqueued batch.
type DispatchResult struct {
	JobID             string `json:"jobId"`
	Count             int    `json:"count"`
	EstimatedDuration int    `json:"estimatedDuration"` // minutes
}

// Dispatcher enqueues one sync job per repository with increasing delay.
type Dispatcher struct {
	client       enqueuer
	defaultRepos []string
	logger       *slog.Logger
}

// NewDispatcher creates a Dispatcher using the given asynq client and the
// configured default repository list.
func NewDispatcher(client *asynq.Client, defaultRepos []string, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		client:       client,
		defaultRepos: defaultRepos,
		logger:       logger,
	}
}

// Dispatch enqueues one job per repository. Jobs get delay = index * spacing,
// where spacing is 1s unless the batch would exceed the rate budget, in which
// case it is stretched so the hourly request volume stays under the margin.
// Failed jobs are retained in the queue archive; completed jobs are dropped.
func (d *Dispatcher) Dispatch(ctx context.Context, opts DispatchOptions) (*DispatchResult, error) {
	repos := opts.Repositories
	if len(repos) == 0 {
		repos = d.defaultRepos
	}

	delay := delayBetweenJobs(len(repos))
	queueName := QueueDefault
	if opts.Priority == "high" {
		queueName = QueueHigh
	}

	for i, repo := range repos {
		task, err := NewSyncRepositoryTask(repo)
		if err != nil {
			return nil, err
		}

		info, err := d.client.EnqueueContext(ctx, task,
			asynq.Queue(queueName),
			asynq.ProcessIn(time.Duration(i)*delay),
			asynq.MaxRetry(0),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to enqueue sync job for %s: %w", repo, err)
		}
		d.logger.Debug("Enqueued sync job", "repo", repo, "task_id", info.ID, "delay", time.Duration(i)*delay)
	}

	result := &DispatchResult{
		JobID:             fmt.Sprintf("sync-batch-%d", time.Now().UnixMilli()),
		Count:             len(repos),
		EstimatedDuration: estimatedMinutes(len(repos), delay),
	}
	d.logger.Info("Dispatched sync batch", "job_id", result.JobID, "count", result.Count, "estimated_minutes", result.EstimatedDuration)
	return result, nil
}

// delayBetweenJobs computes the per-job spacing for a batch of n repositories.
func delayBetweenJobs(n int) time.Duration {
	totalRequests := n * requestsPerRepo
	maxRequestsPerHour := githubRateLimit * safetyMargin

	if float64(totalRequests) > maxRequestsPerHour {
		hourMs := float64(time.Hour / time.Millisecond)
		ms := math.Ceil(hourMs / maxRequestsPerHour * requestsPerRepo)
		return time.Duration(ms) * time.Millisecond
	}
	return flatJobSpacing
}

// estimatedMinutes is the batch's span rounded up to whole minutes.
func estimatedMinutes(n int, delay time.Duration) int {
	if n == 0 {
		return 0
	}
	ms := float64(n) * float64(delay/time.Millisecond)
	return int(math.Ceil(ms / 1000 / 60))
}
