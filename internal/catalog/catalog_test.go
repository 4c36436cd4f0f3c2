package catalog

import (
	"errors"
	"testing"
	"time"

	"github.com/aidalabs/drive-connector/internal/domain"
)

func testRecords() []domain.FileRecord {
	mtime := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	return []domain.FileRecord{
		{ID: "1", Name: "governance policy.docx", Path: "/policies/governance policy.docx", MimeType: domain.MimeDocx, ModifiedTime: mtime},
		{ID: "2", Name: "budget review.pdf", Path: "/finance/budget review.pdf", MimeType: domain.MimePDF, ModifiedTime: mtime},
		{ID: "3", Name: "policies", Path: "/policies", MimeType: domain.MimeFolder},
	}
}

func TestCatalog_SearchWithoutIndex(t *testing.T) {
	c := New(t.TempDir())
	if _, err := c.Search("anything", 10); !errors.Is(err, ErrNoCatalog) {
		t.Errorf("Expected ErrNoCatalog, got %v", err)
	}
}

func TestCatalog_RebuildSkipsFolders(t *testing.T) {
	c := New(t.TempDir())
	defer c.Close()

	count, err := c.Rebuild(testRecords())
	if err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Indexed %d documents, want 2", count)
	}
}

func TestCatalog_SearchByName(t *testing.T) {
	c := New(t.TempDir())
	defer c.Close()

	if _, err := c.Rebuild(testRecords()); err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}

	records, err := c.Search("governance", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 hit, got %d", len(records))
	}

	rec := records[0]
	if rec.ID != "1" {
		t.Errorf("ID = %q, want 1", rec.ID)
	}
	if rec.Path != "/policies/governance policy.docx" {
		t.Errorf("Path = %q", rec.Path)
	}
	if rec.MimeType != domain.MimeDocx {
		t.Errorf("MimeType = %q", rec.MimeType)
	}
	if rec.ModifiedTime.IsZero() {
		t.Error("ModifiedTime was not restored")
	}
}

func TestCatalog_SearchRespectsLimit(t *testing.T) {
	c := New(t.TempDir())
	defer c.Close()

	var records []domain.FileRecord
	for i := 0; i < 5; i++ {
		records = append(records, domain.FileRecord{
			ID:       string(rune('a' + i)),
			Name:     "weekly report.pdf",
			MimeType: domain.MimePDF,
		})
	}
	if _, err := c.Rebuild(records); err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}

	hits, err := c.Search("report", 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) != 2 {
		t.Errorf("Expected 2 hits, got %d", len(hits))
	}
}

func TestCatalog_RebuildReplacesPreviousIndex(t *testing.T) {
	c := New(t.TempDir())
	defer c.Close()

	if _, err := c.Rebuild(testRecords()); err != nil {
		t.Fatalf("First rebuild failed: %v", err)
	}
	if _, err := c.Rebuild([]domain.FileRecord{
		{ID: "9", Name: "fresh notes.docx", MimeType: domain.MimeDocx},
	}); err != nil {
		t.Fatalf("Second rebuild failed: %v", err)
	}

	count, err := c.DocCount()
	if err != nil {
		t.Fatalf("DocCount failed: %v", err)
	}
	if count != 1 {
		t.Errorf("DocCount = %d after rebuild, want 1", count)
	}

	if hits, _ := c.Search("governance", 10); len(hits) != 0 {
		t.Errorf("Old documents still searchable: %v", hits)
	}
}

func TestCatalog_ReopensPersistedIndex(t *testing.T) {
	dir := t.TempDir()

	first := New(dir)
	if _, err := first.Rebuild(testRecords()); err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	second := New(dir)
	defer second.Close()
	hits, err := second.Search("budget", 10)
	if err != nil {
		t.Fatalf("Search on reopened catalog failed: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "2" {
		t.Errorf("Hits = %v, want budget review.pdf", hits)
	}
}
