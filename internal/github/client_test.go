// internal/github/client_test.go
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "good-first-issues/internal/errors"
)

// setupTestClient creates an httptest server and a Client pointing to it. The
// retry transport is deliberately absent so failure tests stay fast.
func setupTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	client := &Client{gh: github.NewClient(server.Client()), logger: logger}

	baseURL, err := url.Parse(server.URL + "/")
	require.NoError(t, err)
	client.gh.BaseURL = baseURL

	return client, server
}

func TestClient_GetRepositoryMeta(t *testing.T) {
	t.Run("combines metadata and matched labels", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/repos/test-owner/test-repo":
				fmt.Fprintln(w, `{
					"name": "test-repo",
					"full_name": "test-owner/test-repo",
					"description": "A test repository",
					"language": "Go",
					"stargazers_count": 42,
					"html_url": "https://github.com/test-owner/test-repo",
					"topics": ["testing", "golang"],
					"updated_at": "2024-05-01T12:00:00Z"
				}`)
			case "/repos/test-owner/test-repo/labels":
				fmt.Fprintln(w, `[
					{"name": "bug"},
					{"name": "Good First Issue"},
					{"name": "help wanted"}
				]`)
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		})
		client, _ := setupTestClient(t, handler)

		meta, err := client.GetRepositoryMeta(context.Background(), "test-owner", "test-repo")

		require.NoError(t, err)
		assert.Equal(t, "test-repo", meta.Name)
		assert.Equal(t, "test-owner/test-repo", meta.FullName)
		assert.Equal(t, "A test repository", meta.Description)
		assert.Equal(t, "Go", meta.Language)
		assert.Equal(t, 42, meta.Stars)
		assert.Equal(t, []string{"testing", "golang"}, meta.Topics)
		assert.Equal(t, []string{"good first issue", "help wanted"}, meta.Labels)
		assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), meta.LastActivity)
	})

	t.Run("defaults absent description, language and topics", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/repos/test-owner/test-repo":
				fmt.Fprintln(w, `{"name": "test-repo", "full_name": "test-owner/test-repo"}`)
			case "/repos/test-owner/test-repo/labels":
				fmt.Fprintln(w, `[]`)
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		})
		client, _ := setupTestClient(t, handler)

		meta, err := client.GetRepositoryMeta(context.Background(), "test-owner", "test-repo")

		require.NoError(t, err)
		assert.Equal(t, "", meta.Description)
		assert.Equal(t, "unknown", meta.Language)
		assert.Equal(t, []string{}, meta.Topics)
		assert.Empty(t, meta.Labels)
	})

	t.Run("pages through the label list", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/repos/test-owner/test-repo":
				fmt.Fprintln(w, `{"name": "test-repo", "full_name": "test-owner/test-repo"}`)
			case "/repos/test-owner/test-repo/labels":
				if r.URL.Query().Get("page") == "2" {
					fmt.Fprintln(w, `[{"name": "beginner"}]`)
					return
				}
				w.Header().Set("Link", fmt.Sprintf(`<http://%s/repos/test-owner/test-repo/labels?page=2>; rel="next"`, r.Host))
				fmt.Fprintln(w, `[{"name": "easy"}]`)
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		})
		client, _ := setupTestClient(t, handler)

		meta, err := client.GetRepositoryMeta(context.Background(), "test-owner", "test-repo")

		require.NoError(t, err)
		assert.Equal(t, []string{"easy", "beginner"}, meta.Labels)
	})

	t.Run("wraps failures naming the repository", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
		client, _ := setupTestClient(t, handler)

		_, err := client.GetRepositoryMeta(context.Background(), "test-owner", "test-repo")

		require.Error(t, err)
		var fetchErr *apperrors.ErrRepoFetch
		require.ErrorAs(t, err, &fetchErr)
		assert.Equal(t, "test-owner", fetchErr.Owner)
		assert.Equal(t, "test-repo", fetchErr.Repo)
		assert.Contains(t, err.Error(), "test-owner/test-repo")
	})

	t.Run("labels failure also aborts the fetch", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/repos/test-owner/test-repo" {
				fmt.Fprintln(w, `{"name": "test-repo", "full_name": "test-owner/test-repo"}`)
				return
			}
			w.WriteHeader(http.StatusInternalServerError)
		})
		client, _ := setupTestClient(t, handler)

		_, err := client.GetRepositoryMeta(context.Background(), "test-owner", "test-repo")

		require.Error(t, err)
		var fetchErr *apperrors.ErrRepoFetch
		assert.ErrorAs(t, err, &fetchErr)
	})
}

func TestClient_GetGoodFirstIssues(t *testing.T) {
	issueJSON := func(id, number int, title string) string {
		return fmt.Sprintf(`{
			"id": %d, "number": %d, "title": %q, "state": "open",
			"html_url": "https://github.com/test-owner/test-repo/issues/%d",
			"comments": 3,
			"created_at": "2024-01-01T00:00:00Z",
			"updated_at": "2024-02-01T00:00:00Z"
		}`, id, number, title, number)
	}

	t.Run("merges and deduplicates across label queries", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/repos/test-owner/test-repo/issues", r.URL.Path)
			assert.Equal(t, "open", r.URL.Query().Get("state"))

			switch r.URL.Query().Get("labels") {
			case "good first issue":
				fmt.Fprintf(w, "[%s, %s]", issueJSON(1, 10, "first"), issueJSON(2, 11, "second"))
			case "help wanted":
				// Issue 2 appears under both labels.
				fmt.Fprintf(w, "[%s, %s]", issueJSON(2, 11, "second"), issueJSON(3, 12, "third"))
			default:
				fmt.Fprintln(w, `[]`)
			}
		})
		client, _ := setupTestClient(t, handler)

		issues, err := client.GetGoodFirstIssues(context.Background(), "test-owner", "test-repo", nil)

		require.NoError(t, err)
		require.Len(t, issues, 3)
		assert.Equal(t, int64(1), issues[0].ID)
		assert.Equal(t, int64(2), issues[1].ID)
		assert.Equal(t, int64(3), issues[2].ID)
		assert.Equal(t, "second", issues[1].Title)
		assert.Equal(t, 3, issues[1].Comments)
	})

	t.Run("filters out pull requests", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("labels") == "easy" {
				fmt.Fprintf(w, `[%s, {"id": 99, "number": 99, "title": "a PR", "state": "open",
					"pull_request": {"url": "https://api.github.com/repos/test-owner/test-repo/pulls/99"},
					"created_at": "2024-01-01T00:00:00Z", "updated_at": "2024-01-01T00:00:00Z"}]`,
					issueJSON(1, 10, "real issue"))
				return
			}
			fmt.Fprintln(w, `[]`)
		})
		client, _ := setupTestClient(t, handler)

		issues, err := client.GetGoodFirstIssues(context.Background(), "test-owner", "test-repo", nil)

		require.NoError(t, err)
		require.Len(t, issues, 1)
		assert.Equal(t, int64(1), issues[0].ID)
	})

	t.Run("a failing label query is skipped, not fatal", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Query().Get("labels") {
			case "beginner":
				w.WriteHeader(http.StatusNotFound)
			case "good first issue":
				fmt.Fprintf(w, "[%s]", issueJSON(1, 10, "first"))
			case "easy":
				fmt.Fprintf(w, "[%s]", issueJSON(2, 11, "second"))
			default:
				fmt.Fprintln(w, `[]`)
			}
		})
		client, _ := setupTestClient(t, handler)

		issues, err := client.GetGoodFirstIssues(context.Background(), "test-owner", "test-repo", nil)

		require.NoError(t, err)
		require.Len(t, issues, 2)
		assert.Equal(t, int64(1), issues[0].ID)
		assert.Equal(t, int64(2), issues[1].ID)
	})

	t.Run("explicit label list overrides the default", func(t *testing.T) {
		var queried []string
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			queried = append(queried, r.URL.Query().Get("labels"))
			fmt.Fprintln(w, `[]`)
		})
		client, _ := setupTestClient(t, handler)

		issues, err := client.GetGoodFirstIssues(context.Background(), "test-owner", "test-repo", []string{"custom-label"})

		require.NoError(t, err)
		assert.Empty(t, issues)
		assert.Equal(t, []string{"custom-label"}, queried)
	})
}

func TestRetryTransport(t *testing.T) {
	newTestTransport := func() *retryTransport {
		return &retryTransport{
			base:       http.DefaultTransport,
			maxRetries: 3,
			backoff:    time.Millisecond,
			multiplier: 2,
		}
	}

	t.Run("retries server errors and succeeds", func(t *testing.T) {
		var requestCount int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&requestCount, 1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			fmt.Fprintln(w, `{}`)
		}))
		defer server.Close()

		client := &http.Client{Transport: newTestTransport()}
		resp, err := client.Get(server.URL)

		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, int32(2), atomic.LoadInt32(&requestCount))
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		var requestCount int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&requestCount, 1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := &http.Client{Transport: newTestTransport()}
		resp, err := client.Get(server.URL)

		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, int32(3), atomic.LoadInt32(&requestCount))
	})

	t.Run("never retries client errors", func(t *testing.T) {
		for _, status := range []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusUnprocessableEntity,
		} {
			t.Run(fmt.Sprint(status), func(t *testing.T) {
				var requestCount int32
				server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					atomic.AddInt32(&requestCount, 1)
					w.WriteHeader(status)
				}))
				defer server.Close()

				client := &http.Client{Transport: newTestTransport()}
				resp, err := client.Get(server.URL)

				require.NoError(t, err)
				defer resp.Body.Close()
				assert.Equal(t, status, resp.StatusCode)
				assert.Equal(t, int32(1), atomic.LoadInt32(&requestCount))
			})
		}
	})
}
