// internal/github/client.go
package github

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"

	apperrors "good-first-issues/internal/errors"
	"good-first-issues/internal/model"
)

const (
	labelsPerPage = 100
	issuesPerPage = 50
)

// defaultIssueLabels is the label list queried when the caller does not supply
// an explicit one.
var defaultIssueLabels = []string{
	"good first issue",
	"good-first-issue",
	"beginner",
	"easy",
	"help wanted",
}

// Client is a wrapper around the go-github client.
type Client struct {
	gh     *github.Client
	logger *slog.Logger
}

// NewClient creates and configures a new Client instance. The provided token
// is used to create an authenticated http.Client whose transport retries
// transient failures but never client errors.
func NewClient(token string, logger *slog.Logger) *Client {
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(context.Background(), ts)
	tc.Transport = newRetryTransport(tc.Transport)

	return &Client{
		gh:     github.NewClient(tc),
		logger: logger,
	}
}

// GetRepositoryMeta fetches repository metadata and the repository's label set,
// combining them into one RepositoryMeta. Absent description, language and
// topics fall back to "", "unknown" and an empty list. Any failure from either
// call is wrapped into a single error naming the repository.
func (c *Client) GetRepositoryMeta(ctx context.Context, owner, repo string) (*model.RepositoryMeta, error) {
	ghRepo, _, err := c.gh.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return nil, &apperrors.ErrRepoFetch{Owner: owner, Repo: repo, Err: err}
	}

	labels, err := c.listAllLabels(ctx, owner, repo)
	if err != nil {
		return nil, &apperrors.ErrRepoFetch{Owner: owner, Repo: repo, Err: err}
	}

	meta := &model.RepositoryMeta{
		Name:         ghRepo.GetName(),
		FullName:     ghRepo.GetFullName(),
		Description:  ghRepo.GetDescription(),
		Language:     ghRepo.GetLanguage(),
		Stars:        ghRepo.GetStargazersCount(),
		URL:          ghRepo.GetHTMLURL(),
		Owner:        owner,
		Repo:         repo,
		Topics:       ghRepo.Topics,
		Labels:       MatchGoodFirstIssueLabels(labels),
		LastActivity: ghRepo.GetUpdatedAt().Time,
	}
	if meta.Language == "" {
		meta.Language = "unknown"
	}
	if meta.Topics == nil {
		meta.Topics = []string{}
	}

	return meta, nil
}

// listAllLabels pages through every label defined on the repository.
func (c *Client) listAllLabels(ctx context.Context, owner, repo string) ([]string, error) {
	var names []string

	opts := &github.ListOptions{PerPage: labelsPerPage}
	for {
		labels, resp, err := c.gh.Issues.ListLabels(ctx, owner, repo, opts)
		if err != nil {
			return nil, err
		}
		for _, label := range labels {
			names = append(names, label.GetName())
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return names, nil
}

// GetGoodFirstIssues queries open issues once per label, skipping pull
// requests. A label whose query fails (e.g. the label does not exist on the
// repository) is logged and skipped. Results are merged and deduplicated by
// issue id, preserving first-seen order.
func (c *Client) GetGoodFirstIssues(ctx context.Context, owner, repo string, labels []string) ([]model.GithubIssue, error) {
	if len(labels) == 0 {
		labels = defaultIssueLabels
	}

	var issues []model.GithubIssue
	for _, label := range labels {
		opts := &github.IssueListByRepoOptions{
			Labels:      []string{label},
			State:       "open",
			ListOptions: github.ListOptions{PerPage: issuesPerPage},
		}

		batch, _, err := c.gh.Issues.ListByRepo(ctx, owner, repo, opts)
		if err != nil {
			c.logger.Warn("Label query failed, skipping", "owner", owner, "repo", repo, "label", label, "error", err)
			continue
		}

		for _, issue := range batch {
			if issue.IsPullRequest() {
				continue
			}
			issues = append(issues, toGithubIssue(issue))
		}
	}

	return dedupeIssues(issues), nil
}

// dedupeIssues keeps the first occurrence of each issue id across the label
// iteration order.
func dedupeIssues(issues []model.GithubIssue) []model.GithubIssue {
	seen := make(map[int64]struct{}, len(issues))
	unique := make([]model.GithubIssue, 0, len(issues))
	for _, issue := range issues {
		if _, ok := seen[issue.ID]; ok {
			continue
		}
		seen[issue.ID] = struct{}{}
		unique = append(unique, issue)
	}
	return unique
}

func toGithubIssue(i *github.Issue) model.GithubIssue {
	return model.GithubIssue{
		ID:        i.GetID(),
		Number:    i.GetNumber(),
		Title:     i.GetTitle(),
		State:     i.GetState(),
		URL:       i.GetHTMLURL(),
		Comments:  i.GetComments(),
		CreatedAt: i.GetCreatedAt().Time,
		UpdatedAt: i.GetUpdatedAt().Time,
	}
}

// retryTransport retries transient HTTP failures with exponential backoff.
type retryTransport struct {
	base       http.RoundTripper
	maxRetries int
	backoff    time.Duration
	multiplier int
}

func newRetryTransport(base http.RoundTripper) *retryTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &retryTransport{
		base:       base,
		maxRetries: 3,
		backoff:    time.Second,
		multiplier: 2,
	}
}

// noRetryStatus lists client errors that must never be retried.
var noRetryStatus = map[int]bool{
	http.StatusBadRequest:          true,
	http.StatusUnauthorized:        true,
	http.StatusForbidden:           true,
	http.StatusNotFound:            true,
	http.StatusUnprocessableEntity: true,
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	backoff := t.backoff
	for attempt := 1; ; attempt++ {
		resp, err := t.base.RoundTrip(req)
		if err == nil && (resp.StatusCode < 500 || noRetryStatus[resp.StatusCode]) {
			return resp, nil
		}
		if attempt >= t.maxRetries {
			return resp, err
		}

		// Server error or transport failure: discard and try again.
		if resp != nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(backoff):
		}
		backoff *= time.Duration(t.multiplier)
	}
}
