package domain

import "time"

// FileRecord is the metadata for a single item in the remote drive.
// Path is only populated by the tree walker; listing calls leave it empty.
type FileRecord struct {
	// ID is the opaque identifier assigned by the remote store.
	ID string `json:"id"`

	// Name is the display name of the file or folder.
	Name string `json:"name"`

	// MimeType classifies the document kind (e.g. application/pdf).
	MimeType string `json:"mimeType"`

	// ModifiedTime is the last modification timestamp reported by the store.
	ModifiedTime time.Time `json:"modifiedTime"`

	// Parents holds the identifiers of the containing folders.
	Parents []string `json:"parents,omitempty"`

	// Path is the slash-joined ancestry materialized during a tree walk.
	Path string `json:"path,omitempty"`
}

// IsFolder reports whether the record is a folder rather than a file.
func (r FileRecord) IsFolder() bool {
	return r.MimeType == MimeFolder
}

// TextChunk is a bounded span of extracted document text, the unit of
// embedding. Chunk boundaries always fall on paragraph boundaries.
type TextChunk struct {
	SourceFileID   string
	SourceFileName string
	Text           string
	Ordinal        int
}

// ChunkRef is the persisted metadata for one indexed chunk. The metadata
// sequence is parallel to the vector index: position i in the index always
// refers to ChunkRef i.
type ChunkRef struct {
	SourceFileName string `json:"source_file_name"`
	SourceFileID   string `json:"source_file_id"`
	TextPreview    string `json:"text_preview"`
}

// ScoredChunk is a semantic search hit: a chunk reference with its
// similarity score derived from L2 distance.
type ScoredChunk struct {
	Chunk      ChunkRef `json:"chunk"`
	Similarity float64  `json:"similarity"`
}

// Slide is one slide extracted from a presentation, with its shape texts
// joined in document order.
type Slide struct {
	Number  int    `json:"slide_numero"`
	Title   string `json:"titulo"`
	Content string `json:"conteudo"`
}
