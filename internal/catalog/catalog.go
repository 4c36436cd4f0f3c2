// Package catalog maintains a Bleve full-text index over the file records
// of the latest drive snapshot, for offline name lookup.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/aidalabs/drive-connector/internal/domain"
)

const (
	// IndexDirname is the catalog index directory under the base dir.
	IndexDirname = "catalog.bleve"

	// MaxBatchSize is the maximum number of documents per batch.
	MaxBatchSize = 100
)

// ErrNoCatalog reports that no catalog has been built yet.
var ErrNoCatalog = errors.New("file catalog not built")

// Catalog wraps the Bleve index over snapshot records. Rebuild replaces
// the whole index; Search opens it lazily.
type Catalog struct {
	path string

	mu    sync.Mutex
	index bleve.Index
}

// New creates a catalog persisting under baseDir.
func New(baseDir string) *Catalog {
	return &Catalog{path: filepath.Join(baseDir, IndexDirname)}
}

// CreateIndexMapping creates the Bleve index mapping for catalog documents.
func CreateIndexMapping() mapping.IndexMapping {
	docMapping := bleve.NewDocumentMapping()

	// Name - analyzed for full-text lookup
	nameField := bleve.NewTextFieldMapping()
	nameField.Analyzer = standard.Name
	nameField.Store = true
	docMapping.AddFieldMappingsAt(domain.CatalogFieldName, nameField)

	// Path - keyword (not analyzed), stored for retrieval
	pathField := bleve.NewTextFieldMapping()
	pathField.Analyzer = keyword.Name
	pathField.Store = true
	docMapping.AddFieldMappingsAt(domain.CatalogFieldPath, pathField)

	// MimeType - keyword, stored
	mimeField := bleve.NewTextFieldMapping()
	mimeField.Analyzer = keyword.Name
	mimeField.Store = true
	docMapping.AddFieldMappingsAt(domain.CatalogFieldMimeType, mimeField)

	// ModifiedTime - stored but not indexed
	mtimeField := bleve.NewTextFieldMapping()
	mtimeField.Index = false
	mtimeField.Store = true
	docMapping.AddFieldMappingsAt(domain.CatalogFieldModifiedTime, mtimeField)

	// ID - stored but not indexed (we use the document ID)
	idField := bleve.NewTextFieldMapping()
	idField.Index = false
	idField.Store = true
	docMapping.AddFieldMappingsAt(domain.CatalogFieldID, idField)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = standard.Name

	return indexMapping
}

// Rebuild replaces the catalog with one built from the given records.
// Folders are skipped. Returns the number of indexed documents.
func (c *Catalog) Rebuild(items []domain.FileRecord) (count int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.index != nil {
		if cerr := c.index.Close(); cerr != nil {
			return 0, fmt.Errorf("close previous catalog: %w", cerr)
		}
		c.index = nil
	}
	if err := os.RemoveAll(c.path); err != nil {
		return 0, fmt.Errorf("remove previous catalog: %w", err)
	}

	index, err := bleve.New(c.path, CreateIndexMapping())
	if err != nil {
		return 0, fmt.Errorf("failed to create catalog index: %w", err)
	}

	batch := index.NewBatch()
	batchSize := 0
	for _, rec := range items {
		if rec.IsFolder() {
			continue
		}

		doc := domain.CatalogDocument{
			ID:           rec.ID,
			Name:         rec.Name,
			Path:         rec.Path,
			MimeType:     rec.MimeType,
			ModifiedTime: rec.ModifiedTime.Format(time.RFC3339),
		}
		if err := batch.Index(doc.ID, doc); err != nil {
			continue
		}
		batchSize++
		count++

		if batchSize >= MaxBatchSize {
			if err := index.Batch(batch); err != nil {
				_ = index.Close()
				return count - batchSize, fmt.Errorf("batch index failed: %w", err)
			}
			batch = index.NewBatch()
			batchSize = 0
		}
	}
	if batchSize > 0 {
		if err := index.Batch(batch); err != nil {
			_ = index.Close()
			return count - batchSize, fmt.Errorf("final batch index failed: %w", err)
		}
	}

	c.index = index
	return count, nil
}

// Search returns the catalog records matching q by name, best first.
func (c *Catalog) Search(q string, limit int) ([]domain.FileRecord, error) {
	index, err := c.open()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}

	searchReq := bleve.NewSearchRequest(buildQuery(q))
	searchReq.Size = limit
	searchReq.Fields = []string{
		domain.CatalogFieldID,
		domain.CatalogFieldName,
		domain.CatalogFieldPath,
		domain.CatalogFieldMimeType,
		domain.CatalogFieldModifiedTime,
	}

	results, err := index.Search(searchReq)
	if err != nil {
		return nil, fmt.Errorf("catalog search failed: %w", err)
	}

	records := make([]domain.FileRecord, 0, len(results.Hits))
	for _, hit := range results.Hits {
		rec := domain.FileRecord{ID: hit.ID}
		if val, ok := hit.Fields[domain.CatalogFieldName].(string); ok {
			rec.Name = val
		}
		if val, ok := hit.Fields[domain.CatalogFieldPath].(string); ok {
			rec.Path = val
		}
		if val, ok := hit.Fields[domain.CatalogFieldMimeType].(string); ok {
			rec.MimeType = val
		}
		if val, ok := hit.Fields[domain.CatalogFieldModifiedTime].(string); ok {
			if t, perr := time.Parse(time.RFC3339, val); perr == nil {
				rec.ModifiedTime = t
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// buildQuery matches the name field, with an exact-term boost so a
// verbatim filename outranks partial matches.
func buildQuery(q string) query.Query {
	nameQuery := bleve.NewMatchQuery(q)
	nameQuery.SetField(domain.CatalogFieldName)

	phraseQuery := bleve.NewMatchPhraseQuery(q)
	phraseQuery.SetField(domain.CatalogFieldName)
	phraseQuery.SetBoost(2.0)

	return bleve.NewDisjunctionQuery(nameQuery, phraseQuery)
}

// DocCount returns the number of cataloged documents.
func (c *Catalog) DocCount() (uint64, error) {
	index, err := c.open()
	if err != nil {
		return 0, err
	}
	return index.DocCount()
}

// Close releases the underlying index.
func (c *Catalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.index == nil {
		return nil
	}
	err := c.index.Close()
	c.index = nil
	return err
}

// open returns the cached index, opening the persisted one on first use.
func (c *Catalog) open() (bleve.Index, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.index != nil {
		return c.index, nil
	}
	if _, err := os.Stat(c.path); err != nil {
		return nil, ErrNoCatalog
	}

	index, err := bleve.Open(c.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog index: %w", err)
	}
	c.index = index
	return c.index, nil
}
