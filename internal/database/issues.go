// internal/database/issues.go
package database

import (
	"context"
	"fmt"
	"strconv"

	"good-first-issues/internal/model"
)

// UpsertIssue inserts an issue or, on github_id conflict, overwrites its
// mutable fields. Every issue written through this path is a good-first-issue
// candidate, so is_good_first_issue is set unconditionally on insert.
//
// When the store is transaction-bound the statement runs inside a savepoint,
// so a failing issue rolls back only itself, not the surrounding sync.
func (s *Postgres) UpsertIssue(ctx context.Context, repositoryID string, issue model.GithubIssue) error {
	if s.tx == nil {
		return s.upsertIssue(ctx, s.q(), repositoryID, issue)
	}

	sp, err := s.tx.Begin(ctx)
	if err != nil {
		return err
	}
	if err := s.upsertIssue(ctx, sp, repositoryID, issue); err != nil {
		sp.Rollback(ctx)
		return err
	}
	return sp.Commit(ctx)
}

func (s *Postgres) upsertIssue(ctx context.Context, q querier, repositoryID string, issue model.GithubIssue) error {
	_, err := q.Exec(ctx, `
		INSERT INTO issues (
			id, github_id, number, title, state, url, repository_id, comments,
			is_good_first_issue, github_created_at, github_updated_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, TRUE, $9, $10, NOW()
		) ON CONFLICT (github_id) DO UPDATE SET
			title = EXCLUDED.title,
			state = EXCLUDED.state,
			comments = EXCLUDED.comments,
			github_updated_at = EXCLUDED.github_updated_at,
			updated_at = NOW()`,
		newID(), strconv.FormatInt(issue.ID, 10), issue.Number, issue.Title,
		issue.State, issue.URL, repositoryID, issue.Comments,
		issue.CreatedAt, issue.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert issue #%d: %w", issue.Number, err)
	}
	return nil
}

// issueSortColumns whitelists sortBy values against SQL columns.
var issueSortColumns = map[string]string{
	"createdAt":       "created_at",
	"updatedAt":       "updated_at",
	"githubCreatedAt": "github_created_at",
	"githubUpdatedAt": "github_updated_at",
	"comments":        "comments",
	"number":          "number",
}

// ListIssues returns one page of issues. Search is a case-insensitive
// substring match on the title; state, good-first-issue flag and repository
// id are exact filters.
func (s *Postgres) ListIssues(ctx context.Context, q model.IssueQuery) (model.IssuePage, error) {
	orderBy, ok := issueSortColumns[q.SortBy]
	if !ok {
		orderBy = "github_created_at"
	}
	direction := "DESC"
	if q.SortOrder == model.SortAsc {
		direction = "ASC"
	}

	where := ""
	args := []any{}
	addCondition := func(cond string, arg any) {
		args = append(args, arg)
		clause := fmt.Sprintf(cond, len(args))
		if where == "" {
			where = "WHERE " + clause
		} else {
			where += " AND " + clause
		}
	}

	if q.Search != "" {
		addCondition("title ILIKE $%d", "%"+q.Search+"%")
	}
	if q.State != "" {
		addCondition("state = $%d", q.State)
	}
	if q.IsGoodFirstIssue != nil {
		addCondition("is_good_first_issue = $%d", *q.IsGoodFirstIssue)
	}
	if q.RepositoryID != "" {
		addCondition("repository_id = $%d", q.RepositoryID)
	}

	query := fmt.Sprintf(`
		SELECT id, github_id, number, title, state, url, repository_id, comments,
			is_good_first_issue, github_created_at, github_updated_at, created_at, updated_at
		FROM issues
		%s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d`,
		where, orderBy, direction, len(args)+1, len(args)+2)

	rows, err := s.q().Query(ctx, query, append(args, q.Limit, q.Offset)...)
	if err != nil {
		return model.IssuePage{}, fmt.Errorf("failed to list issues: %w", err)
	}
	defer rows.Close()

	items := []model.Issue{}
	for rows.Next() {
		var issue model.Issue
		if err := rows.Scan(
			&issue.ID, &issue.GithubID, &issue.Number, &issue.Title, &issue.State,
			&issue.URL, &issue.RepositoryID, &issue.Comments, &issue.IsGoodFirstIssue,
			&issue.GithubCreatedAt, &issue.GithubUpdatedAt, &issue.CreatedAt, &issue.UpdatedAt,
		); err != nil {
			return model.IssuePage{}, err
		}
		items = append(items, issue)
	}
	if err := rows.Err(); err != nil {
		return model.IssuePage{}, err
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM issues " + where
	if err := s.q().QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return model.IssuePage{}, fmt.Errorf("failed to count issues: %w", err)
	}

	return model.IssuePage{
		Items:      items,
		Pagination: model.NewPagination(total, q.Limit, q.Offset, len(items)),
	}, nil
}
