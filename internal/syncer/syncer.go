// internal/syncer/syncer.go
package syncer

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"good-first-issues/internal/database"
	apperrors "good-first-issues/internal/errors"
	"good-first-issues/internal/model"
)

// Fetcher is the GitHub boundary the syncer depends on.
type Fetcher interface {
	GetRepositoryMeta(ctx context.Context, owner, repo string) (*model.RepositoryMeta, error)
	GetGoodFirstIssues(ctx context.Context, owner, repo string, labels []string) ([]model.GithubIssue, error)
}

// Syncer performs one repository's full sync: metadata upsert, history row,
// issue upserts, history completion.
type Syncer struct {
	store   database.Store
	fetcher Fetcher
	logger  *slog.Logger
}

// NewSyncer creates a Syncer.
func NewSyncer(store database.Store, fetcher Fetcher, logger *slog.Logger) *Syncer {
	return &Syncer{
		store:   store,
		fetcher: fetcher,
		logger:  logger,
	}
}

// SyncRepository is the queue worker callback for one sync job.
func (s *Syncer) SyncRepository(ctx context.Context, repoURL string) error {
	_, err := s.Sync(ctx, repoURL)
	return err
}

// Sync runs the full sequence for one repository URL of the form
// 'host/owner/repo'. The database steps run in a single transaction with
// per-issue savepoints: one bad issue is logged and skipped, any other
// failure rolls the whole attempt back. A rolled-back attempt is then
// recorded as a terminal failed history row so it stays observable.
func (s *Syncer) Sync(ctx context.Context, repoURL string) (*model.SyncSummary, error) {
	owner, repo, err := parseRepoURL(repoURL)
	if err != nil {
		return nil, err
	}

	logger := s.logger.With("owner", owner, "repo", repo)
	logger.Info("Syncing repository")
	startedAt := time.Now()

	meta, err := s.fetcher.GetRepositoryMeta(ctx, owner, repo)
	if err != nil {
		return nil, err
	}

	var summary *model.SyncSummary

	err = s.store.WithTx(ctx, func(tx database.Store) error {
		repository, err := tx.UpsertRepository(ctx, meta)
		if err != nil {
			return err
		}

		history, err := tx.CreateSyncHistory(ctx, repository.ID, model.SyncTypeFull)
		if err != nil {
			return err
		}

		issues, err := s.fetcher.GetGoodFirstIssues(ctx, owner, repo, nil)
		if err != nil {
			return err
		}
		logger.Info("Found issues", "count", len(issues))

		processed := 0
		for _, issue := range issues {
			if err := tx.UpsertIssue(ctx, repository.ID, issue); err != nil {
				logger.Error("Failed to process issue, skipping", "number", issue.Number, "error", err)
				continue
			}
			processed++
		}

		if err := tx.CompleteSyncHistory(ctx, history.ID, len(issues), processed); err != nil {
			return err
		}

		summary = &model.SyncSummary{
			Message:         "Repository synchronized successfully",
			Repository:      repository.FullName,
			IssuesFound:     len(issues),
			IssuesProcessed: processed,
			SyncID:          history.ID,
		}
		return nil
	})
	if err != nil {
		s.recordFailure(ctx, meta.FullName, err, startedAt)
		return nil, err
	}

	logger.Info("Repository synchronized",
		"issues_found", summary.IssuesFound,
		"issues_processed", summary.IssuesProcessed,
		"sync_id", summary.SyncID)
	return summary, nil
}

// recordFailure writes the terminal failed history row for a rolled-back
// attempt. Best effort: the repository row itself may have vanished with the
// rollback if this was its very first sync, and the job error already
// propagates to the queue either way.
func (s *Syncer) recordFailure(ctx context.Context, fullName string, syncErr error, startedAt time.Time) {
	repository, err := s.store.GetRepositoryByFullName(ctx, fullName)
	if err != nil {
		return
	}
	if err := s.store.RecordSyncFailure(ctx, repository.ID, syncErr.Error(), startedAt); err != nil {
		s.logger.Error("Failed to record sync failure", "repository", fullName, "error", err)
	}
}

// parseRepoURL splits a 'host/owner/repo' URL into owner and repo.
func parseRepoURL(repoURL string) (owner, repo string, err error) {
	parts := strings.Split(repoURL, "/")
	if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
		return "", "", &apperrors.ErrInvalidRepoURL{URL: repoURL}
	}
	return parts[1], parts[2], nil
}
