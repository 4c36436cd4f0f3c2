// Package cache provides a persistent content cache keyed by file id,
// invalidated by modification time. It spares repeated download and
// extraction of unchanged documents during keyword searches.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/aidalabs/drive-connector/internal/domain"
)

var bucketContent = []byte("content")

// FetchFunc produces the extracted text of a file on a cache miss.
type FetchFunc func(ctx context.Context, rec domain.FileRecord) (string, error)

// ContentCache stores extracted text per file in a bbolt database.
type ContentCache struct {
	db *bolt.DB
}

type entry struct {
	ModifiedTime time.Time `json:"modified_time"`
	Text         string    `json:"text"`
}

// Open opens or creates the cache database at path.
func Open(path string) (*ContentCache, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open content cache: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketContent)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create content bucket: %w", err)
	}
	return &ContentCache{db: db}, nil
}

// Close releases the database.
func (c *ContentCache) Close() error {
	return c.db.Close()
}

// GetOrFetch returns the cached text for rec when its modification time
// matches, otherwise fetches, stores and returns the fresh text. Storing
// failures degrade to a warning; the fetched text is still returned.
func (c *ContentCache) GetOrFetch(ctx context.Context, rec domain.FileRecord, fetch FetchFunc) (string, error) {
	if text, ok := c.lookup(rec); ok {
		return text, nil
	}

	text, err := fetch(ctx, rec)
	if err != nil {
		return "", err
	}

	if err := c.store(rec, text); err != nil {
		slog.Warn("Caching file content failed", "file", rec.Name, "error", err)
	}
	return text, nil
}

// Invalidate drops the cached entry for a file id.
func (c *ContentCache) Invalidate(fileID string) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketContent).Delete([]byte(fileID))
	})
}

func (c *ContentCache) lookup(rec domain.FileRecord) (string, bool) {
	var text string
	var ok bool
	_ = c.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketContent).Get([]byte(rec.ID))
		if raw == nil {
			return nil
		}
		var e entry
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil
		}
		if e.ModifiedTime.Equal(rec.ModifiedTime) {
			text = e.Text
			ok = true
		}
		return nil
	})
	return text, ok
}

func (c *ContentCache) store(rec domain.FileRecord, text string) error {
	raw, err := json.Marshal(entry{ModifiedTime: rec.ModifiedTime, Text: text})
	if err != nil {
		return err
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketContent).Put([]byte(rec.ID), raw)
	})
}
