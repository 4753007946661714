// internal/model/pagination.go
package model

// Pagination describes one page of a listing response.
type Pagination struct {
	Total           int  `json:"total"`
	Limit           int  `json:"limit"`
	Offset          int  `json:"offset"`
	Page            int  `json:"page"`
	TotalPages      int  `json:"totalPages"`
	HasNextPage     bool `json:"hasNextPage"`
	HasPreviousPage bool `json:"hasPreviousPage"`
}

// NewPagination computes page arithmetic for a listing of total rows, of which
// itemCount were returned starting at offset.
func NewPagination(total, limit, offset, itemCount int) Pagination {
	return Pagination{
		Total:           total,
		Limit:           limit,
		Offset:          offset,
		Page:            offset/limit + 1,
		TotalPages:      (total + limit - 1) / limit,
		HasNextPage:     offset+itemCount < total,
		HasPreviousPage: offset > 0,
	}
}

// RepositoryPage is a paginated repository listing.
type RepositoryPage struct {
	Items      []Repository `json:"items"`
	Pagination Pagination   `json:"pagination"`
}

// IssuePage is a paginated issue listing.
type IssuePage struct {
	Items      []Issue    `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// SyncHistoryPage is a paginated sync history listing.
type SyncHistoryPage struct {
	Items      []SyncHistory `json:"items"`
	Pagination Pagination    `json:"pagination"`
}

// SortOrder values accepted by the listing endpoints.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// RepositoryQuery holds validated listing options for repositories.
type RepositoryQuery struct {
	Limit     int
	Offset    int
	Search    string
	SortBy    string // stars | lastActivity | createdAt | name
	SortOrder string
}

// IssueQuery holds validated listing options for issues.
type IssueQuery struct {
	Limit            int
	Offset           int
	Search           string
	SortBy           string // createdAt | updatedAt | githubCreatedAt | githubUpdatedAt | comments | number
	SortOrder        string
	State            string // open | closed | ""
	IsGoodFirstIssue *bool
	RepositoryID     string
}
