package drive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	driveapi "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/aidalabs/drive-connector/internal/domain"
)

const (
	driveScope = "https://www.googleapis.com/auth/drive.readonly"

	listFields = "nextPageToken, files(id, name, mimeType, modifiedTime, parents)"
	getFields  = "id, name, mimeType, modifiedTime, parents"

	// maxAttempts bounds the retry loop for transient remote failures.
	maxAttempts = 3

	retryBaseDelay = 500 * time.Millisecond
)

// authorizedUser is the persisted credential format: a client identity plus
// a refresh token, as produced by the OAuth consent bootstrap.
type authorizedUser struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RefreshToken string `json:"refresh_token"`
}

// GoogleStore implements Store on top of the Drive v3 API.
type GoogleStore struct {
	svc *driveapi.Service
}

// NewGoogleStore builds an authenticated Drive client from the credential
// file at path. A missing file yields ErrNoCredentials.
func NewGoogleStore(ctx context.Context, credentialsFile string) (*GoogleStore, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s missing, run the auth bootstrap first", ErrNoCredentials, credentialsFile)
		}
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	var user authorizedUser
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	if user.RefreshToken == "" {
		return nil, fmt.Errorf("%w: credential file has no refresh token", ErrNoCredentials)
	}

	conf := &oauth2.Config{
		ClientID:     user.ClientID,
		ClientSecret: user.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{driveScope},
	}
	ts := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: user.RefreshToken})

	svc, err := driveapi.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return &GoogleStore{svc: svc}, nil
}

// List returns one page of items matching the query.
func (g *GoogleStore) List(ctx context.Context, q Query, pageSize int64, pageToken string) ([]domain.FileRecord, string, error) {
	var list *driveapi.FileList
	err := withRetry(ctx, "list", func() error {
		var err error
		call := g.svc.Files.List().
			Q(q.Encode()).
			Fields(listFields).
			PageSize(pageSize).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		list, err = call.Do()
		return err
	})
	if err != nil {
		return nil, "", fmt.Errorf("drive list: %w", err)
	}

	records := make([]domain.FileRecord, 0, len(list.Files))
	for _, f := range list.Files {
		records = append(records, toRecord(f))
	}
	return records, list.NextPageToken, nil
}

// GetMetadata returns the metadata for a single file.
func (g *GoogleStore) GetMetadata(ctx context.Context, id string) (domain.FileRecord, error) {
	var f *driveapi.File
	err := withRetry(ctx, "get", func() error {
		var err error
		f, err = g.svc.Files.Get(id).Fields(getFields).Context(ctx).Do()
		return err
	})
	if err != nil {
		if isNotFound(err) {
			return domain.FileRecord{}, fmt.Errorf("%w: %s", ErrFileNotFound, id)
		}
		return domain.FileRecord{}, fmt.Errorf("drive get %s: %w", id, err)
	}
	return toRecord(f), nil
}

// Download opens the file content stream.
func (g *GoogleStore) Download(ctx context.Context, id string) (io.ReadCloser, error) {
	var resp *http.Response
	err := withRetry(ctx, "download", func() error {
		var err error
		resp, err = g.svc.Files.Get(id).Context(ctx).Download()
		return err
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, id)
		}
		return nil, fmt.Errorf("drive download %s: %w", id, err)
	}
	return resp.Body, nil
}

// toRecord converts an API file into the connector's record type.
func toRecord(f *driveapi.File) domain.FileRecord {
	modified, _ := time.Parse(time.RFC3339, f.ModifiedTime)
	return domain.FileRecord{
		ID:           f.Id,
		Name:         f.Name,
		MimeType:     f.MimeType,
		ModifiedTime: modified,
		Parents:      f.Parents,
	}
}

// withRetry runs op with bounded retry and backoff on transient failures.
// Remote calls dominate the connector's failure surface, so paging and
// download hiccups get a second chance instead of failing the batch.
func withRetry(ctx context.Context, opName string, op func() error) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = op()
		if err == nil || !isTransient(err) {
			return err
		}
		if attempt == maxAttempts {
			break
		}
		delay := retryBaseDelay << (attempt - 1)
		slog.Warn("Transient drive failure, retrying", "op", opName, "attempt", attempt, "delay", delay, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return err
}

// isTransient reports whether an API error is worth retrying.
func isTransient(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	}
	// Network-level failures come through as plain errors.
	return true
}

// isNotFound reports whether the API error is a 404.
func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
