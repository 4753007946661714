// internal/errors/errors.go
package errors

import "fmt"

// ErrInvalidRepoURL is returned when a sync job payload does not carry a
// 'host/owner/repo' repository URL.
type ErrInvalidRepoURL struct {
	URL string
}

func (e *ErrInvalidRepoURL) Error() string {
	return fmt.Sprintf("invalid repository url: %q, expected 'host/owner/repo'", e.URL)
}

// ErrRepoFetch wraps any failure of the two required GitHub calls (repository
// metadata, repository labels) for one repository.
type ErrRepoFetch struct {
	Owner string
	Repo  string
	Err   error
}

func (e *ErrRepoFetch) Error() string {
	return fmt.Sprintf("failed to fetch repository metadata for %s/%s: %v", e.Owner, e.Repo, e.Err)
}

func (e *ErrRepoFetch) Unwrap() error { return e.Err }
