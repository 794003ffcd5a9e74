package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	catalogapp "github.com/shopdesk/backoffice/internal/application/catalog"
)

var _ catalogapp.ObjectStorageService = (*StubMediaStore)(nil)

// StubMediaStore hands out fake upload URLs. It backs local development
// when no S3-compatible storage is configured.
type StubMediaStore struct {
	// BaseURL defaults to "https://media.example.com"
	BaseURL string
}

// NewStubMediaStore creates a new StubMediaStore
func NewStubMediaStore() *StubMediaStore {
	return &StubMediaStore{BaseURL: "https://media.example.com"}
}

// GenerateUploadURL returns a URL that encodes the key and expiry
func (s *StubMediaStore) GenerateUploadURL(
	ctx context.Context,
	storageKey, contentType string,
	expiresIn time.Duration,
) (string, time.Time, error) {
	if storageKey == "" {
		return "", time.Time{}, errors.New("storage key is required")
	}

	expiresAt := time.Now().Add(expiresIn)
	return s.BaseURL + "/upload/" + storageKey + "?expires=" + expiresAt.Format(time.RFC3339), expiresAt, nil
}

// ObjectURL returns BaseURL joined with the key
func (s *StubMediaStore) ObjectURL(storageKey string) string {
	return strings.TrimRight(s.BaseURL, "/") + "/" + strings.TrimLeft(storageKey, "/")
}
