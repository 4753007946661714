// internal/model/models.go
package model

import (
	"time"
)

// Sync history status values. A history row moves from running to exactly one
// terminal state.
const (
	SyncStatusPending   = "pending"
	SyncStatusRunning   = "running"
	SyncStatusCompleted = "completed"
	SyncStatusFailed    = "failed"
)

// SyncTypeFull is the only sync type the worker currently performs.
const SyncTypeFull = "full"

// Repository is a tracked GitHub repository. FullName ("owner/repo") is the
// unique upsert key.
type Repository struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	FullName     string     `json:"fullName"`
	Description  string     `json:"description"`
	Language     string     `json:"language"`
	Stars        int        `json:"stars"`
	URL          string     `json:"url"`
	Owner        string     `json:"owner"`
	Repo         string     `json:"repo"`
	Labels       []string   `json:"labels"`
	Topics       []string   `json:"topics"`
	LastActivity *time.Time `json:"lastActivity"`
	IsActive     bool       `json:"isActive"`
	IssueCount   int        `json:"issueCount"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// RepositoryMeta is what the GitHub fetch produces for one repository before
// it is persisted.
type RepositoryMeta struct {
	Name         string
	FullName     string
	Description  string
	Language     string
	Stars        int
	URL          string
	Owner        string
	Repo         string
	Topics       []string
	Labels       []string
	LastActivity time.Time
}

// Issue is a GitHub issue tracked locally. GithubID is the unique upsert key.
type Issue struct {
	ID               string    `json:"id"`
	GithubID         string    `json:"githubId"`
	Number           int       `json:"number"`
	Title            string    `json:"title"`
	State            string    `json:"state"`
	URL              string    `json:"url"`
	RepositoryID     string    `json:"repositoryId"`
	Comments         int       `json:"comments"`
	IsGoodFirstIssue bool      `json:"isGoodFirstIssue"`
	GithubCreatedAt  time.Time `json:"githubCreatedAt"`
	GithubUpdatedAt  time.Time `json:"githubUpdatedAt"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// GithubIssue is the fetched, not-yet-persisted form of an issue.
type GithubIssue struct {
	ID        int64
	Number    int
	Title     string
	State     string
	URL       string
	Comments  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SyncHistory records one sync attempt for a repository.
type SyncHistory struct {
	ID              string     `json:"id"`
	RepositoryID    string     `json:"repositoryId"`
	SyncType        string     `json:"syncType"`
	Status          string     `json:"status"`
	IssuesFound     int        `json:"issuesFound"`
	IssuesProcessed int        `json:"issuesProcessed"`
	ErrorMessage    *string    `json:"errorMessage"`
	StartedAt       time.Time  `json:"startedAt"`
	CompletedAt     *time.Time `json:"completedAt"`
	Duration        *int       `json:"duration"`
}

// LanguageCount is one row of the repositories-per-language rollup.
type LanguageCount struct {
	Language string `json:"language"`
	Count    int    `json:"count"`
}

// TopicCount is one row of the repositories-per-topic rollup.
type TopicCount struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}

// Statistics is a periodically computed reporting rollup.
type Statistics struct {
	ID                   string          `json:"id"`
	TotalRepositories    int             `json:"totalRepositories"`
	TotalIssues          int             `json:"totalIssues"`
	TotalOpenIssues      int             `json:"totalOpenIssues"`
	TotalGoodFirstIssues int             `json:"totalGoodFirstIssues"`
	TopLanguages         []LanguageCount `json:"topLanguages"`
	TopTopics            []TopicCount    `json:"topTopics"`
	LastUpdated          time.Time       `json:"lastUpdated"`
}

// SyncSummary is what a completed sync job returns to the queue.
type SyncSummary struct {
	Message         string `json:"message"`
	Repository      string `json:"repository"`
	IssuesFound     int    `json:"issuesFound"`
	IssuesProcessed int    `json:"issuesProcessed"`
	SyncID          string `json:"syncId"`
}
