// Package connector composes the drive store, extractors, caches and
// indexes into the operations exposed by the HTTP and MCP surfaces.
package connector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aidalabs/drive-connector/internal/cache"
	"github.com/aidalabs/drive-connector/internal/catalog"
	"github.com/aidalabs/drive-connector/internal/config"
	"github.com/aidalabs/drive-connector/internal/domain"
	"github.com/aidalabs/drive-connector/internal/drive"
	"github.com/aidalabs/drive-connector/internal/extract"
	"github.com/aidalabs/drive-connector/internal/search"
	"github.com/aidalabs/drive-connector/internal/semantic"
	"github.com/aidalabs/drive-connector/internal/walker"
)

const (
	// LockFilename is the name of the index build lock file.
	LockFilename = "build.lock"

	// CacheFilename is the name of the content cache database.
	CacheFilename = "content_cache.db"

	// SemanticDirname holds the vector index and its metadata.
	SemanticDirname = "semantic"
)

// ErrNotPresentation reports a slide operation on a non-presentation file.
var ErrNotPresentation = errors.New("file is not a presentation")

// Service coordinates drive access, extraction, search and indexing.
type Service struct {
	settings  *config.Settings
	extractor *extract.Extractor
	detector  *search.Detector
	cache     *cache.ContentCache
	catalog   *catalog.Catalog
	manager   *semantic.Manager
	lock      *BuildLock

	mu    sync.Mutex
	store drive.Store
}

// NewService creates the service from settings. The drive client itself is
// constructed lazily on first use, so the server starts without credentials
// and reports them missing per request.
func NewService(settings *config.Settings) (*Service, error) {
	if settings == nil {
		return nil, fmt.Errorf("settings cannot be nil")
	}

	baseDir := settings.Index.BaseDir
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	contentCache, err := cache.Open(filepath.Join(baseDir, CacheFilename))
	if err != nil {
		return nil, err
	}

	embedder := semantic.NewOllamaEmbedder(settings.Embedder.URL, settings.Embedder.Model)

	return &Service{
		settings:  settings,
		extractor: extract.New(settings.Index.PayloadLimit),
		detector:  search.NewDetector(settings.Search.PrimaryLanguage, nil),
		cache:     contentCache,
		catalog:   catalog.New(baseDir),
		manager:   semantic.NewManager(filepath.Join(baseDir, SemanticDirname), embedder),
		lock:      NewBuildLock(filepath.Join(baseDir, LockFilename)),
	}, nil
}

// SetStore allows injecting a custom drive store for testing.
func (s *Service) SetStore(store drive.Store) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store = store
}

// SetEmbedder allows injecting a custom embedder for testing.
func (s *Service) SetEmbedder(e semantic.Embedder) {
	s.manager = semantic.NewManager(filepath.Join(s.settings.Index.BaseDir, SemanticDirname), e)
}

// GetSettings returns the service settings.
func (s *Service) GetSettings() *config.Settings {
	return s.settings
}

// driveStore returns the shared drive client, creating it on first use.
func (s *Service) driveStore() (drive.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store != nil {
		return s.store, nil
	}
	store, err := drive.NewGoogleStore(context.Background(), s.settings.Drive.CredentialsFile)
	if err != nil {
		return nil, err
	}
	s.store = store
	return s.store, nil
}

// FileContent is the readable text of one file.
type FileContent struct {
	ID      string `json:"id"`
	Name    string `json:"nome"`
	Content string `json:"conteudo"`
}

// SlideSearchResult holds the slides of one presentation matching a query.
type SlideSearchResult struct {
	File   string         `json:"arquivo"`
	Query  string         `json:"query"`
	Slides []domain.Slide `json:"slides"`
	Total  int            `json:"total"`
}

// IndexDriveResult summarizes a completed tree walk.
type IndexDriveResult struct {
	TotalItems int       `json:"total_arquivos"`
	Cataloged  int       `json:"catalogados"`
	Timestamp  time.Time `json:"timestamp"`
}

// IndexSemanticResult summarizes a completed semantic index build.
type IndexSemanticResult struct {
	Files   int `json:"arquivos_processados"`
	Chunks  int `json:"chunks_indexados"`
	Skipped int `json:"arquivos_ignorados"`
}

// ListFiles returns the files matching the query by name, searched across
// all expanded terms and deduplicated. An empty query lists the configured
// root folder instead.
func (s *Service) ListFiles(ctx context.Context, query string) ([]domain.FileRecord, error) {
	store, err := s.driveStore()
	if err != nil {
		return nil, err
	}

	if query == "" {
		return drive.ListAll(ctx, store, drive.Query{ParentID: s.settings.Drive.RootFolder}, s.settings.Drive.PageSize)
	}

	seen := make(map[string]struct{})
	var files []domain.FileRecord
	for _, term := range search.Expand(query) {
		records, err := drive.ListAll(ctx, store, drive.Query{NameContains: term}, s.settings.Drive.PageSize)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			if _, ok := seen[rec.ID]; ok {
				continue
			}
			seen[rec.ID] = struct{}{}
			files = append(files, rec)
			if len(files) >= s.settings.Search.MaxResults {
				return files, nil
			}
		}
	}
	return files, nil
}

// ReadFile returns the readable text of a file. For presentations a slide
// range restricts the output; slideFrom/slideTo are 1-based and inclusive,
// zero means unrestricted.
func (s *Service) ReadFile(ctx context.Context, fileID string, slideFrom, slideTo int) (FileContent, error) {
	store, err := s.driveStore()
	if err != nil {
		return FileContent{}, err
	}
	rec, err := store.GetMetadata(ctx, fileID)
	if err != nil {
		return FileContent{}, err
	}

	if slideFrom > 0 && domain.KindOf(rec.MimeType) == domain.KindSlides {
		slides, err := s.slides(ctx, rec)
		if err != nil {
			return FileContent{}, err
		}
		return FileContent{ID: rec.ID, Name: rec.Name, Content: renderSlideRange(slides, slideFrom, slideTo)}, nil
	}

	content, err := s.Content(ctx, rec)
	if err != nil {
		return FileContent{}, err
	}
	return FileContent{ID: rec.ID, Name: rec.Name, Content: content}, nil
}

// StreamFile returns the raw bytes of a file. The caller owns the reader.
func (s *Service) StreamFile(ctx context.Context, fileID string) (domain.FileRecord, io.ReadCloser, error) {
	store, err := s.driveStore()
	if err != nil {
		return domain.FileRecord{}, nil, err
	}
	rec, err := store.GetMetadata(ctx, fileID)
	if err != nil {
		return domain.FileRecord{}, nil, err
	}
	body, err := store.Download(ctx, fileID)
	if err != nil {
		return domain.FileRecord{}, nil, err
	}
	return rec, body, nil
}

// SlideSearch returns the slides of a presentation whose content matches
// the query. Non-presentation files yield ErrNotPresentation.
func (s *Service) SlideSearch(ctx context.Context, fileID, query string) (SlideSearchResult, error) {
	store, err := s.driveStore()
	if err != nil {
		return SlideSearchResult{}, err
	}
	rec, err := store.GetMetadata(ctx, fileID)
	if err != nil {
		return SlideSearchResult{}, err
	}
	if domain.KindOf(rec.MimeType) != domain.KindSlides {
		return SlideSearchResult{}, fmt.Errorf("%w: %s", ErrNotPresentation, rec.Name)
	}

	slides, err := s.slides(ctx, rec)
	if err != nil {
		return SlideSearchResult{}, err
	}

	hits := search.SlideHits(slides, query)
	return SlideSearchResult{
		File:   rec.Name,
		Query:  query,
		Slides: hits,
		Total:  len(hits),
	}, nil
}

// SmartSearch runs the two-tier person-aware keyword search.
func (s *Service) SmartSearch(ctx context.Context, query string) (search.SmartResult, error) {
	store, err := s.driveStore()
	if err != nil {
		return search.SmartResult{}, err
	}
	orchestrator := search.NewOrchestrator(store, s, s.detector, s.settings.Drive.PageSize)
	return orchestrator.Search(ctx, query)
}

// SemanticSearch returns the top-k chunks nearest to the query.
func (s *Service) SemanticSearch(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error) {
	if k <= 0 {
		k = s.settings.Search.DefaultTopK
	}
	return s.manager.Query(ctx, query, k)
}

// CatalogSearch looks up files by name in the snapshot catalog.
func (s *Service) CatalogSearch(query string, limit int) ([]domain.FileRecord, error) {
	if limit <= 0 {
		limit = s.settings.Search.MaxResults
	}
	return s.catalog.Search(query, limit)
}

// IndexDrive walks the whole tree, persists the snapshot and rebuilds the
// file catalog from it. Only one build runs at a time.
func (s *Service) IndexDrive(ctx context.Context) (IndexDriveResult, error) {
	if err := s.lock.Acquire(); err != nil {
		return IndexDriveResult{}, err
	}
	defer func() {
		if err := s.lock.Release(); err != nil {
			slog.Error("Failed to release build lock", "error", err)
		}
	}()

	snap, err := s.walk(ctx)
	if err != nil {
		return IndexDriveResult{}, err
	}

	cataloged, err := s.catalog.Rebuild(snap.Items)
	if err != nil {
		return IndexDriveResult{}, fmt.Errorf("rebuild catalog: %w", err)
	}

	return IndexDriveResult{
		TotalItems: snap.TotalItems,
		Cataloged:  cataloged,
		Timestamp:  snap.Timestamp,
	}, nil
}

// IndexSemantic walks the tree, extracts and chunks every supported
// document, and rebuilds the vector index. Files that fail to download or
// decode are logged and skipped.
func (s *Service) IndexSemantic(ctx context.Context) (IndexSemanticResult, error) {
	if err := s.lock.Acquire(); err != nil {
		return IndexSemanticResult{}, err
	}
	defer func() {
		if err := s.lock.Release(); err != nil {
			slog.Error("Failed to release build lock", "error", err)
		}
	}()

	snap, err := s.walk(ctx)
	if err != nil {
		return IndexSemanticResult{}, err
	}

	var result IndexSemanticResult
	var chunks []domain.TextChunk
	for _, rec := range snap.Items {
		kind := domain.KindOf(rec.MimeType)
		if !kind.Extractable() {
			continue
		}

		fileChunks, err := s.chunkFile(ctx, rec, kind)
		if err != nil {
			slog.Warn("Skipping file in semantic index", "file", rec.Name, "error", err)
			result.Skipped++
			continue
		}
		if len(fileChunks) == 0 {
			continue
		}
		chunks = append(chunks, fileChunks...)
		result.Files++
	}

	indexed, err := s.manager.Build(ctx, chunks)
	if err != nil {
		return result, err
	}
	result.Chunks = indexed
	return result, nil
}

// SemanticIndexSize returns the number of indexed chunks.
func (s *Service) SemanticIndexSize() (int, error) {
	return s.manager.Size()
}

// Content returns the extracted text of a file, served from the content
// cache when the file is unchanged. It implements search.ContentFetcher.
func (s *Service) Content(ctx context.Context, rec domain.FileRecord) (string, error) {
	return s.cache.GetOrFetch(ctx, rec, s.extractContent)
}

// Close releases the cache and catalog.
func (s *Service) Close() error {
	if err := s.cache.Close(); err != nil {
		return err
	}
	return s.catalog.Close()
}

func (s *Service) walk(ctx context.Context) (*walker.Snapshot, error) {
	store, err := s.driveStore()
	if err != nil {
		return nil, err
	}
	w := walker.New(
		store,
		filepath.Join(s.settings.Index.BaseDir, walker.SnapshotFilename),
		s.settings.Drive.PageSize,
		s.settings.Index.CheckpointEvery,
	)
	return w.Walk(ctx, s.settings.Drive.RootFolder)
}

func (s *Service) chunkFile(ctx context.Context, rec domain.FileRecord, kind domain.Kind) ([]domain.TextChunk, error) {
	data, err := s.download(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	paragraphs, err := s.extractor.Paragraphs(kind, data)
	if err != nil {
		return nil, &extract.ExtractionError{FileName: rec.Name, Err: err}
	}

	texts := semantic.SplitParagraphs(paragraphs, s.settings.Index.ChunkBudget)
	chunks := make([]domain.TextChunk, 0, len(texts))
	for i, text := range texts {
		chunks = append(chunks, domain.TextChunk{
			SourceFileID:   rec.ID,
			SourceFileName: rec.Name,
			Text:           text,
			Ordinal:        i,
		})
	}
	return chunks, nil
}

func (s *Service) extractContent(ctx context.Context, rec domain.FileRecord) (string, error) {
	kind := domain.KindOf(rec.MimeType)
	if !kind.Extractable() {
		return s.extractor.Content(kind, rec.MimeType, nil)
	}
	data, err := s.download(ctx, rec.ID)
	if err != nil {
		return "", err
	}
	return s.extractor.Content(kind, rec.MimeType, data)
}

func (s *Service) slides(ctx context.Context, rec domain.FileRecord) ([]domain.Slide, error) {
	data, err := s.download(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	slides, err := extract.ExtractSlides(data)
	if err != nil {
		return nil, &extract.ExtractionError{FileName: rec.Name, Err: err}
	}
	return slides, nil
}

func (s *Service) download(ctx context.Context, fileID string) ([]byte, error) {
	store, err := s.driveStore()
	if err != nil {
		return nil, err
	}
	body, err := store.Download(ctx, fileID)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return io.ReadAll(body)
}

// renderSlideRange joins the slides within the 1-based inclusive range.
// slideTo == 0 means through the last slide.
func renderSlideRange(slides []domain.Slide, from, to int) string {
	if to <= 0 {
		to = len(slides)
	}
	var parts []string
	for _, slide := range slides {
		if slide.Number < from || slide.Number > to {
			continue
		}
		parts = append(parts, fmt.Sprintf("[Slide %d] %s\n%s", slide.Number, slide.Title, slide.Content))
	}
	if len(parts) == 0 {
		return extract.NoTextPlaceholder
	}
	return strings.Join(parts, "\n\n")
}
