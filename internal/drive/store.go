package drive

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/aidalabs/drive-connector/internal/domain"
)

var (
	// ErrNoCredentials indicates no credential material is available.
	// This is fatal for the whole process scope; the operator has to
	// provision a token before the connector can serve anything.
	ErrNoCredentials = errors.New("no drive credentials available")

	// ErrFileNotFound indicates the requested file does not exist in the
	// remote store.
	ErrFileNotFound = errors.New("file not found in remote store")
)

// Store is the remote file store consumed by the connector. Implementations
// must be safe for concurrent use.
type Store interface {
	// List returns one page of items matching the query, plus the token
	// for the next page ("" when the listing is drained).
	List(ctx context.Context, q Query, pageSize int64, pageToken string) ([]domain.FileRecord, string, error)

	// GetMetadata returns name, mime type and modification time for a file.
	GetMetadata(ctx context.Context, id string) (domain.FileRecord, error)

	// Download opens the file content for reading. The caller closes it.
	Download(ctx context.Context, id string) (io.ReadCloser, error)
}

// Query is a conjunction of remote-store filters: parent containment,
// substring-in-name, and the trashed flag.
type Query struct {
	ParentID     string
	NameContains string
	IncludeTrash bool
}

// Encode renders the query in the drive filter expression syntax. Terms are
// joined with "and"; trashed items are excluded unless requested.
func (q Query) Encode() string {
	var terms []string
	if q.ParentID != "" {
		terms = append(terms, "'"+escapeTerm(q.ParentID)+"' in parents")
	}
	if q.NameContains != "" {
		terms = append(terms, "name contains '"+escapeTerm(q.NameContains)+"'")
	}
	if !q.IncludeTrash {
		terms = append(terms, "trashed=false")
	}
	return strings.Join(terms, " and ")
}

// escapeTerm escapes single quotes and backslashes so user-supplied terms
// cannot break out of the quoted filter literal.
func escapeTerm(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

// ListAll drains every page of a listing. Used by callers that need the
// complete result set rather than cursor-driven paging.
func ListAll(ctx context.Context, s Store, q Query, pageSize int64) ([]domain.FileRecord, error) {
	var all []domain.FileRecord
	pageToken := ""
	for {
		items, next, err := s.List(ctx, q, pageSize, pageToken)
		if err != nil {
			return all, err
		}
		all = append(all, items...)
		if next == "" {
			return all, nil
		}
		pageToken = next
	}
}
