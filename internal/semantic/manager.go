package semantic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/aidalabs/drive-connector/internal/domain"
)

// ErrNoIndex reports that no semantic index has been built yet. It is
// distinct from a search that matches nothing.
var ErrNoIndex = errors.New("semantic index not built")

const (
	indexFileName    = "chunks.index"
	metadataFileName = "chunks_metadata.json"

	// previewLength bounds the metadata text preview per chunk.
	previewLength = 200
)

// Manager owns the vector index and its parallel metadata list. Builds
// replace both as one generation; queries lazy-load the persisted pair and
// cache it for the process lifetime.
type Manager struct {
	dir      string
	embedder Embedder

	mu    sync.RWMutex
	index *FlatIndex
	meta  []domain.ChunkRef
}

// NewManager creates a manager persisting under dir.
func NewManager(dir string, embedder Embedder) *Manager {
	return &Manager{dir: dir, embedder: embedder}
}

// Build embeds the chunks in order, constructs a fresh index with metadata
// entry i describing vector i, and atomically replaces the persisted pair.
// It returns the number of indexed chunks.
func (m *Manager) Build(ctx context.Context, chunks []domain.TextChunk) (int, error) {
	if len(chunks) == 0 {
		return 0, errors.New("no chunks to index")
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := m.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	index := NewFlatIndex(len(vectors[0]))
	meta := make([]domain.ChunkRef, 0, len(chunks))
	for i, vec := range vectors {
		Normalize(vec)
		if err := index.Add(vec); err != nil {
			return 0, fmt.Errorf("add vector %d: %w", i, err)
		}
		meta = append(meta, chunkRef(chunks[i]))
	}

	if err := m.persist(index, meta); err != nil {
		return 0, err
	}

	m.mu.Lock()
	m.index = index
	m.meta = meta
	m.mu.Unlock()

	slog.Info("Semantic index built", "chunks", index.Len(), "dimension", index.Dim())
	return index.Len(), nil
}

// Query embeds text with the build-time model and returns the k nearest
// chunks by L2 distance. The similarity score is 1 - distance/2, bounded
// because indexed and query vectors are unit-normalized. Returns ErrNoIndex
// when no index was ever built.
func (m *Manager) Query(ctx context.Context, text string, k int) ([]domain.ScoredChunk, error) {
	index, meta, err := m.load()
	if err != nil {
		return nil, err
	}
	if k <= 0 {
		k = 1
	}

	vectors, err := m.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	query := vectors[0]
	Normalize(query)

	ids, dists, err := index.Search(query, k)
	if err != nil {
		return nil, err
	}

	results := make([]domain.ScoredChunk, 0, len(ids))
	for i, id := range ids {
		results = append(results, domain.ScoredChunk{
			Chunk:      meta[id],
			Similarity: 1 - float64(dists[i])/2,
		})
	}
	return results, nil
}

// Size returns the number of indexed chunks, or ErrNoIndex.
func (m *Manager) Size() (int, error) {
	index, _, err := m.load()
	if err != nil {
		return 0, err
	}
	return index.Len(), nil
}

// load returns the cached index/metadata pair, reading it from disk on
// first use.
func (m *Manager) load() (*FlatIndex, []domain.ChunkRef, error) {
	m.mu.RLock()
	if m.index != nil {
		defer m.mu.RUnlock()
		return m.index, m.meta, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.index != nil {
		return m.index, m.meta, nil
	}

	f, err := os.Open(filepath.Join(m.dir, indexFileName))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, ErrNoIndex
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open index: %w", err)
	}
	defer f.Close()

	index, err := ReadIndex(f)
	if err != nil {
		return nil, nil, fmt.Errorf("load index: %w", err)
	}

	raw, err := os.ReadFile(filepath.Join(m.dir, metadataFileName))
	if err != nil {
		return nil, nil, fmt.Errorf("load index metadata: %w", err)
	}
	var meta []domain.ChunkRef
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, nil, fmt.Errorf("parse index metadata: %w", err)
	}
	if len(meta) != index.Len() {
		return nil, nil, fmt.Errorf("metadata has %d entries for %d vectors", len(meta), index.Len())
	}

	m.index = index
	m.meta = meta
	return m.index, m.meta, nil
}

// persist writes both files to temporaries and renames them in place, so a
// reader opening the pair never sees a metadata file from one build paired
// with vectors from another.
func (m *Manager) persist(index *FlatIndex, meta []domain.ChunkRef) error {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}

	indexTmp, err := writeTemp(m.dir, indexFileName, func(f *os.File) error {
		_, err := index.WriteTo(f)
		return err
	})
	if err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	defer os.Remove(indexTmp)

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal index metadata: %w", err)
	}
	metaTmp, err := writeTemp(m.dir, metadataFileName, func(f *os.File) error {
		_, err := f.Write(data)
		return err
	})
	if err != nil {
		return fmt.Errorf("write index metadata: %w", err)
	}
	defer os.Remove(metaTmp)

	if err := os.Rename(metaTmp, filepath.Join(m.dir, metadataFileName)); err != nil {
		return fmt.Errorf("replace index metadata: %w", err)
	}
	if err := os.Rename(indexTmp, filepath.Join(m.dir, indexFileName)); err != nil {
		return fmt.Errorf("replace index: %w", err)
	}
	return nil
}

// writeTemp creates a temporary file in dir, fills it and returns its path.
func writeTemp(dir, name string, fill func(*os.File) error) (string, error) {
	tmp, err := os.CreateTemp(dir, name+".tmp-*")
	if err != nil {
		return "", err
	}
	if err := fill(tmp); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

// chunkRef projects a chunk into its index metadata entry.
func chunkRef(c domain.TextChunk) domain.ChunkRef {
	return domain.ChunkRef{
		SourceFileName: c.SourceFileName,
		SourceFileID:   c.SourceFileID,
		TextPreview:    truncateRunes(c.Text, previewLength),
	}
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
