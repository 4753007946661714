// internal/database/statistics.go
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/errgroup"

	"good-first-issues/internal/model"
)

const topN = 10

// RefreshStatistics recomputes the reporting rollup from the live tables and
// stores it as a new statistics row. The component counts are independent, so
// they run in parallel.
func (s *Postgres) RefreshStatistics(ctx context.Context) (model.Statistics, error) {
	var stats model.Statistics

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.q().QueryRow(gctx, "SELECT COUNT(*) FROM repositories").Scan(&stats.TotalRepositories)
	})
	g.Go(func() error {
		return s.q().QueryRow(gctx, "SELECT COUNT(*) FROM issues").Scan(&stats.TotalIssues)
	})
	g.Go(func() error {
		return s.q().QueryRow(gctx, "SELECT COUNT(*) FROM issues WHERE state = 'open'").Scan(&stats.TotalOpenIssues)
	})
	g.Go(func() error {
		return s.q().QueryRow(gctx, "SELECT COUNT(*) FROM issues WHERE is_good_first_issue").Scan(&stats.TotalGoodFirstIssues)
	})
	g.Go(func() error {
		languages, err := s.topLanguages(gctx)
		if err != nil {
			return err
		}
		stats.TopLanguages = languages
		return nil
	})
	g.Go(func() error {
		topics, err := s.topTopics(gctx)
		if err != nil {
			return err
		}
		stats.TopTopics = topics
		return nil
	})

	if err := g.Wait(); err != nil {
		return model.Statistics{}, fmt.Errorf("failed to compute statistics: %w", err)
	}

	row := s.q().QueryRow(ctx, `
		INSERT INTO statistics (
			id, total_repositories, total_issues, total_open_issues,
			total_good_first_issues, top_languages, top_topics
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, last_updated`,
		newID(), stats.TotalRepositories, stats.TotalIssues, stats.TotalOpenIssues,
		stats.TotalGoodFirstIssues, stats.TopLanguages, stats.TopTopics,
	)
	if err := row.Scan(&stats.ID, &stats.LastUpdated); err != nil {
		return model.Statistics{}, fmt.Errorf("failed to store statistics: %w", err)
	}

	return stats, nil
}

// GetLatestStatistics returns the most recent rollup, or nil when none has
// been computed yet.
func (s *Postgres) GetLatestStatistics(ctx context.Context) (*model.Statistics, error) {
	row := s.q().QueryRow(ctx, `
		SELECT id, total_repositories, total_issues, total_open_issues,
			total_good_first_issues, top_languages, top_topics, last_updated
		FROM statistics
		ORDER BY last_updated DESC
		LIMIT 1`)

	var stats model.Statistics
	err := row.Scan(
		&stats.ID, &stats.TotalRepositories, &stats.TotalIssues, &stats.TotalOpenIssues,
		&stats.TotalGoodFirstIssues, &stats.TopLanguages, &stats.TopTopics, &stats.LastUpdated,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest statistics: %w", err)
	}

	return &stats, nil
}

func (s *Postgres) topLanguages(ctx context.Context) ([]model.LanguageCount, error) {
	rows, err := s.q().Query(ctx, `
		SELECT language, COUNT(*)
		FROM repositories
		WHERE language IS NOT NULL AND language != ''
		GROUP BY language
		ORDER BY COUNT(*) DESC
		LIMIT $1`, topN)
	if err != nil {
		return nil, err
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

func (s *Postgres) topTopics(ctx context.Context) ([]model.TopicCount, error) {
	rows, err := s.q().Query(ctx, `
		SELECT topic, COUNT(*)
		FROM repositories, jsonb_array_elements_text(topics) AS topic
		GROUP BY topic
		ORDER BY COUNT(*) DESC
		LIMIT $1`, topN)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := []model.TopicCount{}
	for rows.Next() {
		var tc model.TopicCount
		if err := rows.Scan(&tc.Topic, &tc.Count); err != nil {
			return nil, err
		}
		counts = append(counts, tc)
	}
	return counts, rows.Err()
}
