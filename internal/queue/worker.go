// internal/queue/worker.go
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// taskInterval caps throughput at 1 job per 150ms window.
const taskInterval = 150 * time.Millisecond

// SyncHandler processes one repository sync job.
type SyncHandler interface {
	SyncRepository(ctx context.Context, repoURL string) error
}

// Worker consumes sync jobs one at a time from the Redis-backed queue.
type Worker struct {
	srv     *asynq.Server
	mux     *asynq.ServeMux
	handler SyncHandler
	logger  *slog.Logger
}

// NewWorker configures the queue consumer: a single in-process job at a time,
// strict queue priority (high before default), and a throughput limiter.
func NewWorker(redisOpt asynq.RedisClientOpt, handler SyncHandler, logger *slog.Logger) *Worker {
	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 1,
		Queues: map[string]int{
			QueueHigh:    5,
			QueueDefault: 1,
		},
		StrictPriority:  true,
		ShutdownTimeout: 30 * time.Second,
		Logger:          &asynqLogger{logger: logger.With("component", "asynq")},
	})

	w := &Worker{
		srv:     srv,
		mux:     asynq.NewServeMux(),
		handler: handler,
		logger:  logger,
	}

	w.mux.Use(newThroughputLimiter(taskInterval).middleware)
	w.mux.HandleFunc(TypeSyncRepository, w.handleSyncRepository)

	return w
}

// Start begins consuming jobs. It does not block.
func (w *Worker) Start() error {
	return w.srv.Start(w.mux)
}

// Shutdown waits for the in-flight job and stops the consumer.
func (w *Worker) Shutdown() {
	w.srv.Shutdown()
}

// handleSyncRepository unpacks the payload and runs the sync. Returned errors
// reach the queue's failure bookkeeping; the worker itself never retries.
func (w *Worker) handleSyncRepository(ctx context.Context, task *asynq.Task) error {
	var payload SyncRepositoryPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid sync job payload: %w", err)
	}

	taskID, _ := asynq.GetTaskID(ctx)
	w.logger.Debug("Processing sync job", "task_id", taskID, "url", payload.URL)

	if err := w.handler.SyncRepository(ctx, payload.URL); err != nil {
		w.logger.Error("Sync job failed", "task_id", taskID, "url", payload.URL, "error", err)
		return err
	}

	w.logger.Debug("Sync job completed", "task_id", taskID, "url", payload.URL)
	return nil
}

// asynqLogger adapts slog to asynq's internal logger interface.
type asynqLogger struct {
	logger *slog.Logger
}

func (l *asynqLogger) Debug(args ...interface{}) { l.logger.Debug(fmt.Sprint(args...)) }
func (l *asynqLogger) Info(args ...interface{})  { l.logger.Info(fmt.Sprint(args...)) }
func (l *asynqLogger) Warn(args ...interface{})  { l.logger.Warn(fmt.Sprint(args...)) }
func (l *asynqLogger) Error(args ...interface{}) { l.logger.Error(fmt.Sprint(args...)) }
func (l *asynqLogger) Fatal(args ...interface{}) { l.logger.Error(fmt.Sprint(args...)) }
