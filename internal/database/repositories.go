// internal/database/repositories.go
package database

import (
	"context"
	"fmt"

	"good-first-issues/internal/model"
)

const repositoryColumns = `r.id, r.name, r.full_name, COALESCE(r.description, ''),
	COALESCE(r.language, ''), r.stars, r.url, r.owner, r.repo, r.labels, r.topics,
	r.last_activity, r.is_active, r.created_at, r.updated_at`

// UpsertRepository inserts a repository or, on full_name conflict, overwrites
// its mutable metadata. Identity fields (name, full_name, owner, repo, url)
// are never rewritten for an existing row.
func (s *Postgres) UpsertRepository(ctx context.Context, meta *model.RepositoryMeta) (model.Repository, error) {
	row := s.q().QueryRow(ctx, `
		INSERT INTO repositories (
			id, name, full_name, description, language, stars, url, owner, repo,
			labels, topics, last_activity, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW()
		) ON CONFLICT (full_name) DO UPDATE SET
			description = EXCLUDED.description,
			language = EXCLUDED.language,
			stars = EXCLUDED.stars,
			labels = EXCLUDED.labels,
			topics = EXCLUDED.topics,
			last_activity = EXCLUDED.last_activity,
			updated_at = NOW()
		RETURNING id, name, full_name, COALESCE(description, ''),
			COALESCE(language, ''), stars, url, owner, repo, labels, topics,
			last_activity, is_active, created_at, updated_at`,
		newID(), meta.Name, meta.FullName, meta.Description, meta.Language,
		meta.Stars, meta.URL, meta.Owner, meta.Repo, meta.Labels, meta.Topics,
		meta.LastActivity,
	)

	var repo model.Repository
	if err := row.Scan(
		&repo.ID, &repo.Name, &repo.FullName, &repo.Description, &repo.Language,
		&repo.Stars, &repo.URL, &repo.Owner, &repo.Repo, &repo.Labels, &repo.Topics,
		&repo.LastActivity, &repo.IsActive, &repo.CreatedAt, &repo.UpdatedAt,
	); err != nil {
		return model.Repository{}, fmt.Errorf("failed to upsert repository %s: %w", meta.FullName, err)
	}

	return repo, nil
}

// GetRepositoryByFullName looks a repository up by its unique full name.
func (s *Postgres) GetRepositoryByFullName(ctx context.Context, fullName string) (model.Repository, error) {
	row := s.q().QueryRow(ctx, `
		SELECT `+repositoryColumns+`
		FROM repositories r
		WHERE r.full_name = $1`, fullName)

	var repo model.Repository
	if err := row.Scan(
		&repo.ID, &repo.Name, &repo.FullName, &repo.Description, &repo.Language,
		&repo.Stars, &repo.URL, &repo.Owner, &repo.Repo, &repo.Labels, &repo.Topics,
		&repo.LastActivity, &repo.IsActive, &repo.CreatedAt, &repo.UpdatedAt,
	); err != nil {
		return model.Repository{}, err
	}

	return repo, nil
}

// repositorySortColumns whitelists sortBy values against SQL columns.
var repositorySortColumns = map[string]string{
	"stars":        "r.stars",
	"lastActivity": "r.last_activity",
	"createdAt":    "r.created_at",
	"name":         "r.name",
}

// ListRepositories returns one page of repositories with their issue counts.
// Search is a case-insensitive substring match on the primary language.
func (s *Postgres) ListRepositories(ctx context.Context, q model.RepositoryQuery) (model.RepositoryPage, error) {
	orderBy, ok := repositorySortColumns[q.SortBy]
	if !ok {
		orderBy = "r.stars"
	}
	direction := "DESC"
	if q.SortOrder == model.SortAsc {
		direction = "ASC"
	}

	where := ""
	args := []any{}
	if q.Search != "" {
		where = "WHERE r.language ILIKE $1"
		args = append(args, "%"+q.Search+"%")
	}

	query := fmt.Sprintf(`
		SELECT %s, COUNT(i.id) AS issue_count
		FROM repositories r
		LEFT JOIN issues i ON i.repository_id = r.id
		%s
		GROUP BY r.id
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d`,
		repositoryColumns, where, orderBy, direction, len(args)+1, len(args)+2)

	rows, err := s.q().Query(ctx, query, append(args, q.Limit, q.Offset)...)
	if err != nil {
		return model.RepositoryPage{}, fmt.Errorf("failed to list repositories: %w", err)
	}
	defer rows.Close()

	items := []model.Repository{}
	for rows.Next() {
		var repo model.Repository
		if err := rows.Scan(
			&repo.ID, &repo.Name, &repo.FullName, &repo.Description, &repo.Language,
			&repo.Stars, &repo.URL, &repo.Owner, &repo.Repo, &repo.Labels, &repo.Topics,
			&repo.LastActivity, &repo.IsActive, &repo.CreatedAt, &repo.UpdatedAt,
			&repo.IssueCount,
		); err != nil {
			return model.RepositoryPage{}, err
		}
		items = append(items, repo)
	}
	if err := rows.Err(); err != nil {
		return model.RepositoryPage{}, err
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM repositories r " + where
	if err := s.q().QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return model.RepositoryPage{}, fmt.Errorf("failed to count repositories: %w", err)
	}

	return model.RepositoryPage{
		Items:      items,
		Pagination: model.NewPagination(total, q.Limit, q.Offset, len(items)),
	}, nil
}

// CountRepositoriesByLanguage rolls repositories up per primary language,
// most common first.
func (s *Postgres) CountRepositoriesByLanguage(ctx context.Context) ([]model.LanguageCount, error) {
	rows, err := s.q().Query(ctx, `
		SELECT language, COUNT(*)
		FROM repositories
		WHERE language IS NOT NULL AND language != ''
		GROUP BY language
		ORDER BY COUNT(*) DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to count repositories by language: %w", err)
	}
	defer rows.Close()

	counts := []model.LanguageCount{}
	for rows.Next() {
		var lc model.LanguageCount
		if err := rows.Scan(&lc.Language, &lc.Count); err != nil {
			return nil, err
		}
		counts = append(counts, lc)
	}
	return counts, rows.Err()
}
