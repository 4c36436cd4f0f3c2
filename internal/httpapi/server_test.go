package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aidalabs/drive-connector/internal/config"
	"github.com/aidalabs/drive-connector/internal/connector"
	"github.com/aidalabs/drive-connector/internal/domain"
	"github.com/aidalabs/drive-connector/internal/drive"
)

type fakeStore struct {
	records []domain.FileRecord
	data    map[string][]byte
}

func (f *fakeStore) List(_ context.Context, q drive.Query, _ int64, _ string) ([]domain.FileRecord, string, error) {
	var out []domain.FileRecord
	for _, rec := range f.records {
		if q.ParentID != "" {
			match := false
			for _, p := range rec.Parents {
				if p == q.ParentID {
					match = true
				}
			}
			if !match {
				continue
			}
		}
		if q.NameContains != "" && !strings.Contains(strings.ToLower(rec.Name), strings.ToLower(q.NameContains)) {
			continue
		}
		out = append(out, rec)
	}
	return out, "", nil
}

func (f *fakeStore) GetMetadata(_ context.Context, id string) (domain.FileRecord, error) {
	for _, rec := range f.records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return domain.FileRecord{}, drive.ErrFileNotFound
}

func (f *fakeStore) Download(_ context.Context, id string) (io.ReadCloser, error) {
	raw, ok := f.data[id]
	if !ok {
		return nil, drive.ErrFileNotFound
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

func testSettings(t *testing.T) *config.Settings {
	t.Helper()
	return &config.Settings{
		Transport: config.TransportHTTP,
		Drive: config.DriveSettings{
			CredentialsFile: filepath.Join(t.TempDir(), "token.json"),
			RootFolder:      "root",
			PageSize:        100,
		},
		Index: config.IndexSettings{
			BaseDir:         t.TempDir(),
			ChunkBudget:     5000,
			CheckpointEvery: 500,
			PayloadLimit:    100_000,
		},
		Embedder: config.EmbedderSettings{URL: "http://localhost:11434", Model: "nomic-embed-text"},
		Search:   config.SearchSettings{DefaultTopK: 3, PrimaryLanguage: "en", MaxResults: 20},
	}
}

func newTestServer(t *testing.T, store *fakeStore) *httptest.Server {
	t.Helper()
	service, err := connector.NewService(testSettings(t))
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	t.Cleanup(func() { service.Close() })
	if store != nil {
		service.SetStore(store)
	}

	ts := httptest.NewServer(NewServer(service).Router())
	t.Cleanup(ts.Close)
	return ts
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return body
}

func TestRoot(t *testing.T) {
	ts := newTestServer(t, &fakeStore{})

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET / failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Status = %d", resp.StatusCode)
	}
	body := decode(t, resp)
	if body["service"] != "drive-connector" {
		t.Errorf("service = %v", body["service"])
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, &fakeStore{})

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	body := decode(t, resp)
	if body["ok"] != true {
		t.Errorf("ok = %v", body["ok"])
	}
}

func TestListFiles(t *testing.T) {
	store := &fakeStore{records: []domain.FileRecord{
		{ID: "1", Name: "budget review.txt", MimeType: "text/plain"},
	}}
	ts := newTestServer(t, store)

	resp, err := http.Get(ts.URL + "/files?q=budget")
	if err != nil {
		t.Fatalf("GET /files failed: %v", err)
	}
	body := decode(t, resp)
	if body["total"] != float64(1) {
		t.Errorf("total = %v, want 1", body["total"])
	}
}

func TestListFiles_MissingCredentials(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/files?q=anything")
	if err != nil {
		t.Fatalf("GET /files failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Status = %d, want 401", resp.StatusCode)
	}
}

func TestReadFile(t *testing.T) {
	store := &fakeStore{
		records: []domain.FileRecord{{ID: "1", Name: "notes.txt", MimeType: "text/plain", ModifiedTime: time.Now()}},
		data:    map[string][]byte{"1": []byte("plain text body")},
	}
	ts := newTestServer(t, store)

	resp, err := http.Get(ts.URL + "/files/1")
	if err != nil {
		t.Fatalf("GET /files/1 failed: %v", err)
	}
	body := decode(t, resp)
	if body["nome"] != "notes.txt" {
		t.Errorf("nome = %v", body["nome"])
	}
	if content, _ := body["conteudo"].(string); !strings.Contains(content, "plain text body") {
		t.Errorf("conteudo = %v", body["conteudo"])
	}
}

func TestReadFile_NotFound(t *testing.T) {
	ts := newTestServer(t, &fakeStore{})

	resp, err := http.Get(ts.URL + "/files/ghost")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Status = %d, want 404", resp.StatusCode)
	}
}

func TestStreamFile(t *testing.T) {
	store := &fakeStore{
		records: []domain.FileRecord{{ID: "1", Name: "raw.pdf", MimeType: domain.MimePDF}},
		data:    map[string][]byte{"1": []byte("%PDF raw bytes")},
	}
	ts := newTestServer(t, store)

	resp, err := http.Get(ts.URL + "/files/1/stream")
	if err != nil {
		t.Fatalf("GET stream failed: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("Content-Type"); got != domain.MimePDF {
		t.Errorf("Content-Type = %q", got)
	}
	raw, _ := io.ReadAll(resp.Body)
	if string(raw) != "%PDF raw bytes" {
		t.Errorf("Body = %q", raw)
	}
}

func TestSmartRead_RequiresParams(t *testing.T) {
	ts := newTestServer(t, &fakeStore{})

	resp, err := http.Get(ts.URL + "/smart_read?file_id=x")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400", resp.StatusCode)
	}
}

func TestSemanticSearch_WithoutIndex(t *testing.T) {
	ts := newTestServer(t, &fakeStore{})

	resp, err := http.Get(ts.URL + "/semantic_search?q=governance")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Status = %d, want 404", resp.StatusCode)
	}
}

func TestCatalogSearch_WithoutCatalog(t *testing.T) {
	ts := newTestServer(t, &fakeStore{})

	resp, err := http.Get(ts.URL + "/catalog_search?q=governance")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Status = %d, want 404", resp.StatusCode)
	}
}

func TestIndexDriveThenCatalogSearch(t *testing.T) {
	mtime := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{
		records: []domain.FileRecord{
			{ID: "1", Name: "governance notes.txt", MimeType: "text/plain", ModifiedTime: mtime, Parents: []string{"root"}},
		},
		data: map[string][]byte{"1": []byte("governance content")},
	}
	ts := newTestServer(t, store)

	resp, err := http.Post(ts.URL+"/index_drive", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /index_drive failed: %v", err)
	}
	body := decode(t, resp)
	if body["total_arquivos"] != float64(1) {
		t.Errorf("total_arquivos = %v, want 1", body["total_arquivos"])
	}

	resp, err = http.Get(ts.URL + "/catalog_search?q=governance")
	if err != nil {
		t.Fatalf("GET /catalog_search failed: %v", err)
	}
	body = decode(t, resp)
	if body["total"] != float64(1) {
		t.Errorf("catalog total = %v, want 1", body["total"])
	}
}

func TestIndexDrive_MethodNotAllowed(t *testing.T) {
	ts := newTestServer(t, &fakeStore{})

	resp, err := http.Get(ts.URL + "/index_drive")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("Status = %d, want 405", resp.StatusCode)
	}
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t, &fakeStore{})

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/files", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("OPTIONS failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("Status = %d, want 204", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q", got)
	}
}
