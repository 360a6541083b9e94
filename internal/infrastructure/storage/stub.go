package storage

import (
	"context"
	"errors"
	"sync"
	"time"

	analyticsapp "github.com/recipefy/backend/internal/application/analytics"
)

// StubObjectStorage is an in-memory implementation of ObjectStorageService.
// It keeps uploaded exports in a map and hands out fake download URLs. Use it
// for development when no S3-compatible backend is configured.
type StubObjectStorage struct {
	// BaseURL is the base URL for generated download URLs
	// Defaults to "https://storage.example.com" if not set
	BaseURL string

	mu      sync.RWMutex
	objects map[string][]byte
}

// NewStubObjectStorage creates a new StubObjectStorage
func NewStubObjectStorage() *StubObjectStorage {
	return &StubObjectStorage{
		BaseURL: "https://storage.example.com",
		objects: make(map[string][]byte),
	}
}

// Ensure StubObjectStorage implements ObjectStorageService
var _ analyticsapp.ObjectStorageService = (*StubObjectStorage)(nil)

// Upload stores the data in memory
func (s *StubObjectStorage) Upload(ctx context.Context, storageKey string, data []byte, contentType string) error {
	if storageKey == "" {
		return errors.New("storage key is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]byte, len(data))
	copy(stored, data)
	s.objects[storageKey] = stored
	return nil
}

// GenerateDownloadURL generates a stub download URL for a stored object
func (s *StubObjectStorage) GenerateDownloadURL(
	ctx context.Context,
	storageKey string,
	expiresIn time.Duration,
) (string, time.Time, error) {
	if storageKey == "" {
		return "", time.Time{}, errors.New("storage key is required")
	}

	if expiresIn <= 0 {
		expiresIn = 15 * time.Minute
	}

	url := s.BaseURL + "/download/" + storageKey
	return url, time.Now().Add(expiresIn), nil
}

// Object returns a stored object's bytes, for inspection in development
func (s *StubObjectStorage) Object(storageKey string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[storageKey]
	return data, ok
}
