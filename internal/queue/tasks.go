// internal/queue/tasks.go
package queue

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// TypeSyncRepository is the task type for one repository sync job.
const TypeSyncRepository = "sync:repository"

// Queue names, highest urgency first.
const (
	QueueHigh    = "high"
	QueueDefault = "default"
)

// SyncRepositoryPayload is the job payload carried from dispatcher to worker.
type SyncRepositoryPayload struct {
	URL string `json:"url"` // 'host/owner/repo'
}

// NewSyncRepositoryTask builds the asynq task for one repository.
func NewSyncRepositoryTask(repoURL string) (*asynq.Task, error) {
	payload, err := json.Marshal(SyncRepositoryPayload{URL: repoURL})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeSyncRepository, payload), nil
}
