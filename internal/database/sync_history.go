// internal/database/sync_history.go
package database

import (
	"context"
	"fmt"
	"time"

	"good-first-issues/internal/model"
)

// CreateSyncHistory inserts a history row for a starting sync attempt.
func (s *Postgres) CreateSyncHistory(ctx context.Context, repositoryID, syncType string) (model.SyncHistory, error) {
	row := s.q().QueryRow(ctx, `
		INSERT INTO sync_history (id, repository_id, sync_type, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, repository_id, sync_type, status, issues_found,
			issues_processed, error_message, started_at, completed_at, duration`,
		newID(), repositoryID, syncType, model.SyncStatusRunning,
	)

	var h model.SyncHistory
	if err := scanSyncHistory(row, &h); err != nil {
		return model.SyncHistory{}, fmt.Errorf("failed to create sync history: %w", err)
	}
	return h, nil
}

// CompleteSyncHistory transitions a running history row to completed, filling
// in counts, completion time and duration in seconds since the row started.
func (s *Postgres) CompleteSyncHistory(ctx context.Context, id string, issuesFound, issuesProcessed int) error {
	_, err := s.q().Exec(ctx, `
		UPDATE sync_history SET
			status = $2,
			issues_found = $3,
			issues_processed = $4,
			completed_at = NOW(),
			duration = FLOOR(EXTRACT(EPOCH FROM (NOW() - started_at)))::INT
		WHERE id = $1`,
		id, model.SyncStatusCompleted, issuesFound, issuesProcessed,
	)
	if err != nil {
		return fmt.Errorf("failed to complete sync history %s: %w", id, err)
	}
	return nil
}

// RecordSyncFailure writes a terminal failed history row for a sync attempt
// whose transaction was rolled back, so the failure stays visible in the
// history table.
func (s *Postgres) RecordSyncFailure(ctx context.Context, repositoryID, errMsg string, startedAt time.Time) error {
	_, err := s.q().Exec(ctx, `
		INSERT INTO sync_history (
			id, repository_id, sync_type, status, error_message,
			started_at, completed_at, duration
		) VALUES (
			$1, $2, $3, $4, $5, $6, NOW(),
			FLOOR(EXTRACT(EPOCH FROM (NOW() - $6::TIMESTAMPTZ)))::INT
		)`,
		newID(), repositoryID, model.SyncTypeFull, model.SyncStatusFailed, errMsg, startedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record sync failure: %w", err)
	}
	return nil
}

// ListSyncHistory returns one page of sync attempts for a repository, most
// recent first.
func (s *Postgres) ListSyncHistory(ctx context.Context, repositoryID string, limit, offset int) (model.SyncHistoryPage, error) {
	rows, err := s.q().Query(ctx, `
		SELECT id, repository_id, sync_type, status, issues_found,
			issues_processed, error_message, started_at, completed_at, duration
		FROM sync_history
		WHERE repository_id = $1
		ORDER BY started_at DESC
		LIMIT $2 OFFSET $3`,
		repositoryID, limit, offset,
	)
	if err != nil {
		return model.SyncHistoryPage{}, fmt.Errorf("failed to list sync history: %w", err)
	}
	defer rows.Close()

	items := []model.SyncHistory{}
	for rows.Next() {
		var h model.SyncHistory
		if err := scanSyncHistory(rows, &h); err != nil {
			return model.SyncHistoryPage{}, err
		}
		items = append(items, h)
	}
	if err := rows.Err(); err != nil {
		return model.SyncHistoryPage{}, err
	}

	var total int
	if err := s.q().QueryRow(ctx,
		"SELECT COUNT(*) FROM sync_history WHERE repository_id = $1", repositoryID,
	).Scan(&total); err != nil {
		return model.SyncHistoryPage{}, err
	}

	return model.SyncHistoryPage{
		Items:      items,
		Pagination: model.NewPagination(total, limit, offset, len(items)),
	}, nil
}

// scanner is the subset shared by pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSyncHistory(row scanner, h *model.SyncHistory) error {
	return row.Scan(
		&h.ID, &h.RepositoryID, &h.SyncType, &h.Status, &h.IssuesFound,
		&h.IssuesProcessed, &h.ErrorMessage, &h.StartedAt, &h.CompletedAt, &h.Duration,
	)
}
