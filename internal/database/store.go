// internal/database/store.go
package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"good-first-issues/internal/model"
)

// Store is the persistence boundary consumed by the syncer and the API layer.
type Store interface {
	UpsertRepository(ctx context.Context, meta *model.RepositoryMeta) (model.Repository, error)
	GetRepositoryByFullName(ctx context.Context, fullName string) (model.Repository, error)
	ListRepositories(ctx context.Context, q model.RepositoryQuery) (model.RepositoryPage, error)
	CountRepositoriesByLanguage(ctx context.Context) ([]model.LanguageCount, error)

	UpsertIssue(ctx context.Context, repositoryID string, issue model.GithubIssue) error
	ListIssues(ctx context.Context, q model.IssueQuery) (model.IssuePage, error)

	CreateSyncHistory(ctx context.Context, repositoryID, syncType string) (model.SyncHistory, error)
	CompleteSyncHistory(ctx context.Context, id string, issuesFound, issuesProcessed int) error
	RecordSyncFailure(ctx context.Context, repositoryID, errMsg string, startedAt time.Time) error
	ListSyncHistory(ctx context.Context, repositoryID string, limit, offset int) (model.SyncHistoryPage, error)

	RefreshStatistics(ctx context.Context) (model.Statistics, error)
	GetLatestStatistics(ctx context.Context) (*model.Statistics, error)

	// WithTx runs fn against a Store bound to a single transaction. The
	// transaction is rolled back if fn returns an error.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so every statement
// can run against the pool or inside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres implements Store on a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

// NewPostgres creates a Store backed by the given pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (s *Postgres) q() querier {
	if s.tx != nil {
		return s.tx
	}
	return s.pool
}

// WithTx begins a transaction and hands fn a Store bound to it. Rollback is a
// no-op once the transaction has been committed.
func (s *Postgres) WithTx(ctx context.Context, fn func(Store) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(&Postgres{pool: s.pool, tx: tx}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// newID generates a time-ordered UUID for primary keys.
func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}
