// internal/api/handler.go
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"good-first-issues/internal/cache"
	"good-first-issues/internal/database"
	"good-first-issues/internal/model"
	"good-first-issues/internal/queue"
)

// triggerSecretHeader carries the pre-shared secret for the sync trigger.
const triggerSecretHeader = "X-Trigger-Secret"

// dispatcher is the slice of queue.Dispatcher the trigger endpoint needs.
type dispatcher interface {
	Dispatch(ctx context.Context, opts queue.DispatchOptions) (*queue.DispatchResult, error)
}

// Handler is the container for API dependencies.
type Handler struct {
	store         database.Store
	dispatcher    dispatcher
	cache         *cache.Cache
	triggerSecret string
	logger        *slog.Logger
}

// NewRouter creates and configures a chi router with all API routes.
func NewRouter(store database.Store, d dispatcher, c *cache.Cache, triggerSecret string, logger *slog.Logger) http.Handler {
	h := &Handler{
		store:         store,
		dispatcher:    d,
		cache:         c,
		triggerSecret: triggerSecret,
		logger:        logger,
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", h.healthCheck)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/repositories", h.listRepositories)
		r.Get("/repositories/languages/count", h.countLanguages)
		r.Get("/repositories/{repositoryID}/issues", h.listRepositoryIssues)
		r.Get("/repositories/{repositoryID}/sync-history", h.listSyncHistory)
		r.Get("/issues", h.listIssues)
		r.Get("/statistics", h.getStatistics)
		r.Get("/trigger/sync", h.triggerSync)
	})

	return r
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// listRepositories returns one page of repositories.
// GET /api/v1/repositories?limit=&offset=&search=&sortBy=&sortOrder=
func (h *Handler) listRepositories(w http.ResponseWriter, r *http.Request) {
	q, err := parseRepositoryQuery(r.URL.Query())
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := cache.Key(cache.KeyRepositoriesList, repositoryQueryKey(q))
	var page model.RepositoryPage
	if h.cache.Get(r.Context(), key, &page) {
		respondWithJSON(w, http.StatusOK, page)
		return
	}

	page, err = h.store.ListRepositories(r.Context(), q)
	if err != nil {
		h.logger.Error("Failed to list repositories", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.cache.Set(r.Context(), key, page)
	respondWithJSON(w, http.StatusOK, page)
}

// countLanguages returns the repositories-per-language rollup.
// GET /api/v1/repositories/languages/count
func (h *Handler) countLanguages(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Items []model.LanguageCount `json:"items"`
		Total int                   `json:"total"`
	}

	key := cache.Key(cache.KeyLanguagesCount)
	var resp response
	if h.cache.Get(r.Context(), key, &resp) {
		respondWithJSON(w, http.StatusOK, resp)
		return
	}

	counts, err := h.store.CountRepositoriesByLanguage(r.Context())
	if err != nil {
		h.logger.Error("Failed to count languages", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	resp = response{Items: counts, Total: len(counts)}
	h.cache.Set(r.Context(), key, resp)
	respondWithJSON(w, http.StatusOK, resp)
}

// listIssues returns one page of issues across all repositories.
// GET /api/v1/issues?limit=&offset=&search=&sortBy=&sortOrder=&state=&isGoodFirstIssue=&repositoryId=
func (h *Handler) listIssues(w http.ResponseWriter, r *http.Request) {
	q, err := parseIssueQuery(r.URL.Query())
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := cache.Key(cache.KeyIssuesList, issueQueryKey(q))
	h.respondIssuePage(w, r, q, key)
}

// listRepositoryIssues returns one page of a single repository's issues.
// GET /api/v1/repositories/{repositoryID}/issues
func (h *Handler) listRepositoryIssues(w http.ResponseWriter, r *http.Request) {
	q, err := parseIssueQuery(r.URL.Query())
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	q.RepositoryID = chi.URLParam(r, "repositoryID")

	key := cache.Key(cache.KeyRepositoryIssues, q.RepositoryID, issueQueryKey(q))
	h.respondIssuePage(w, r, q, key)
}

func (h *Handler) respondIssuePage(w http.ResponseWriter, r *http.Request, q model.IssueQuery, key string) {
	var page model.IssuePage
	if h.cache.Get(r.Context(), key, &page) {
		respondWithJSON(w, http.StatusOK, page)
		return
	}

	page, err := h.store.ListIssues(r.Context(), q)
	if err != nil {
		h.logger.Error("Failed to list issues", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.cache.Set(r.Context(), key, page)
	respondWithJSON(w, http.StatusOK, page)
}

// listSyncHistory returns one page of a repository's sync attempts.
// GET /api/v1/repositories/{repositoryID}/sync-history
func (h *Handler) listSyncHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := parseIntParam(r.URL.Query(), "limit", defaultLimit, 1, maxLimit)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	offset, err := parseIntParam(r.URL.Query(), "offset", 0, 0, -1)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := h.store.ListSyncHistory(r.Context(), chi.URLParam(r, "repositoryID"), limit, offset)
	if err != nil {
		h.logger.Error("Failed to list sync history", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, page)
}

// getStatistics returns the latest reporting rollup.
// GET /api/v1/statistics
func (h *Handler) getStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.GetLatestStatistics(r.Context())
	if err != nil {
		h.logger.Error("Failed to get statistics", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if stats == nil {
		respondWithError(w, http.StatusNotFound, "No statistics computed yet")
		return
	}

	respondWithJSON(w, http.StatusOK, stats)
}

// triggerSync enqueues a sync batch for the configured repository list.
// GET /api/v1/trigger/sync, guarded by the pre-shared secret header.
func (h *Handler) triggerSync(w http.ResponseWriter, r *http.Request) {
	secret := r.Header.Get(triggerSecretHeader)
	if subtle.ConstantTimeCompare([]byte(secret), []byte(h.triggerSecret)) != 1 {
		respondWithError(w, http.StatusUnauthorized, "Invalid or missing trigger secret")
		return
	}

	result, err := h.dispatcher.Dispatch(r.Context(), queue.DispatchOptions{})
	if err != nil {
		h.logger.Error("Failed to dispatch sync batch", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to dispatch sync batch")
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// repositoryQueryKey canonicalizes listing options into a cache key segment.
func repositoryQueryKey(q model.RepositoryQuery) string {
	return fmt.Sprintf("%d:%d:%s:%s:%s", q.Limit, q.Offset, q.Search, q.SortBy, q.SortOrder)
}

func issueQueryKey(q model.IssueQuery) string {
	gfi := ""
	if q.IsGoodFirstIssue != nil {
		gfi = fmt.Sprintf("%t", *q.IsGoodFirstIssue)
	}
	return fmt.Sprintf("%d:%d:%s:%s:%s:%s:%s:%s",
		q.Limit, q.Offset, q.Search, q.SortBy, q.SortOrder, q.State, gfi, q.RepositoryID)
}

func respondWithJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func respondWithError(w http.ResponseWriter, status int, message string) {
	respondWithJSON(w, status, map[string]string{"error": message})
}
