// internal/api/params.go
package api

import (
	"fmt"
	"net/url"
	"strconv"

	"good-first-issues/internal/model"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

var repositorySortFields = map[string]bool{
	"stars":        true,
	"lastActivity": true,
	"createdAt":    true,
	"name":         true,
}

var issueSortFields = map[string]bool{
	"createdAt":       true,
	"updatedAt":       true,
	"githubCreatedAt": true,
	"githubUpdatedAt": true,
	"comments":        true,
	"number":          true,
}

// parseRepositoryQuery validates repository listing parameters, rejecting the
// request before the store is touched.
func parseRepositoryQuery(values url.Values) (model.RepositoryQuery, error) {
	q := model.RepositoryQuery{
		Limit:     defaultLimit,
		Offset:    0,
		Search:    values.Get("search"),
		SortBy:    "stars",
		SortOrder: model.SortDesc,
	}

	var err error
	if q.Limit, err = parseIntParam(values, "limit", defaultLimit, 1, maxLimit); err != nil {
		return q, err
	}
	if q.Offset, err = parseIntParam(values, "offset", 0, 0, -1); err != nil {
		return q, err
	}
	if v := values.Get("sortBy"); v != "" {
		if !repositorySortFields[v] {
			return q, fmt.Errorf("invalid 'sortBy' parameter: %q", v)
		}
		q.SortBy = v
	}
	if q.SortOrder, err = parseSortOrder(values); err != nil {
		return q, err
	}

	return q, nil
}

// parseIssueQuery validates issue listing parameters.
func parseIssueQuery(values url.Values) (model.IssueQuery, error) {
	q := model.IssueQuery{
		Limit:     defaultLimit,
		Offset:    0,
		Search:    values.Get("search"),
		SortBy:    "githubCreatedAt",
		SortOrder: model.SortDesc,
	}

	var err error
	if q.Limit, err = parseIntParam(values, "limit", defaultLimit, 1, maxLimit); err != nil {
		return q, err
	}
	if q.Offset, err = parseIntParam(values, "offset", 0, 0, -1); err != nil {
		return q, err
	}
	if v := values.Get("sortBy"); v != "" {
		if !issueSortFields[v] {
			return q, fmt.Errorf("invalid 'sortBy' parameter: %q", v)
		}
		q.SortBy = v
	}
	if q.SortOrder, err = parseSortOrder(values); err != nil {
		return q, err
	}

	if v := values.Get("state"); v != "" {
		if v != "open" && v != "closed" {
			return q, fmt.Errorf("invalid 'state' parameter: %q, expected open or closed", v)
		}
		q.State = v
	}
	if v := values.Get("isGoodFirstIssue"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return q, fmt.Errorf("invalid 'isGoodFirstIssue' parameter: %q", v)
		}
		q.IsGoodFirstIssue = &b
	}
	q.RepositoryID = values.Get("repositoryId")

	return q, nil
}

// parseIntParam reads an integer query parameter with bounds. A max of -1
// means unbounded.
func parseIntParam(values url.Values, name string, def, min, max int) (int, error) {
	v := values.Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < min || (max >= 0 && n > max) {
		if max >= 0 {
			return 0, fmt.Errorf("invalid %q parameter: must be an integer between %d and %d", name, min, max)
		}
		return 0, fmt.Errorf("invalid %q parameter: must be an integer >= %d", name, min)
	}
	return n, nil
}

func parseSortOrder(values url.Values) (string, error) {
	v := values.Get("sortOrder")
	switch v {
	case "":
		return model.SortDesc, nil
	case model.SortAsc, model.SortDesc:
		return v, nil
	default:
		return "", fmt.Errorf("invalid 'sortOrder' parameter: %q, expected asc or desc", v)
	}
}
