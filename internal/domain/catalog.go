package domain

// CatalogDocument represents one snapshot record stored in the Bleve
// catalog. It is the primary data structure for offline file lookup.
type CatalogDocument struct {
	// ID is the remote store identifier of the file.
	ID string `json:"id"`

	// Name is the file display name, analyzed for full-text lookup.
	Name string `json:"name"`

	// Path is the materialized ancestry from the snapshot walk.
	Path string `json:"path"`

	// MimeType classifies the document kind.
	MimeType string `json:"mime_type"`

	// ModifiedTime is the RFC 3339 modification timestamp.
	ModifiedTime string `json:"modified_time"`
}

// Bleve field name constants for consistent field references in queries
// and mappings.
const (
	CatalogFieldID           = "id"
	CatalogFieldName         = "name"
	CatalogFieldPath         = "path"
	CatalogFieldMimeType     = "mime_type"
	CatalogFieldModifiedTime = "modified_time"
)
