// Package storage provides object storage for generated bill artifacts.
package storage

import (
	"context"
	"errors"
	"sync"
	"time"

	billingapp "github.com/medbill/backend/internal/application/billing"
)

// Ensure MemoryArchiveStorage implements ArchiveStorage
var _ billingapp.ArchiveStorage = (*MemoryArchiveStorage)(nil)

// MemoryArchiveStorage keeps artifacts in process memory. Used in
// tests and when object storage is disabled in configuration.
type MemoryArchiveStorage struct {
	// BaseURL is the base URL for generated download links.
	// Defaults to "https://archive.local" if not set.
	BaseURL string

	mu      sync.RWMutex
	objects map[string]storedObject
}

type storedObject struct {
	data        []byte
	contentType string
}

// NewMemoryArchiveStorage creates an empty in-memory archive
func NewMemoryArchiveStorage() *MemoryArchiveStorage {
	return &MemoryArchiveStorage{
		BaseURL: "https://archive.local",
		objects: make(map[string]storedObject),
	}
}

// Upload stores an artifact in memory
func (s *MemoryArchiveStorage) Upload(_ context.Context, storageKey string, data []byte, contentType string) error {
	if storageKey == "" {
		return errors.New("storage key is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(data))
	copy(stored, data)
	s.objects[storageKey] = storedObject{data: stored, contentType: contentType}
	return nil
}

// GenerateDownloadURL returns a deterministic local URL for the key
func (s *MemoryArchiveStorage) GenerateDownloadURL(
	_ context.Context,
	storageKey string,
	expiresIn time.Duration,
) (string, time.Time, error) {
	if storageKey == "" {
		return "", time.Time{}, errors.New("storage key is required")
	}

	s.mu.RLock()
	_, ok := s.objects[storageKey]
	s.mu.RUnlock()
	if !ok {
		return "", time.Time{}, errors.New("object not found: " + storageKey)
	}

	if expiresIn <= 0 {
		expiresIn = defaultPresignExpiration
	}
	expiresAt := time.Now().Add(expiresIn)
	return s.BaseURL + "/" + storageKey, expiresAt, nil
}

// ObjectExists reports whether the key is stored
func (s *MemoryArchiveStorage) ObjectExists(_ context.Context, storageKey string) (bool, error) {
	if storageKey == "" {
		return false, errors.New("storage key is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[storageKey]
	return ok, nil
}

// DeleteObject removes the key if present
func (s *MemoryArchiveStorage) DeleteObject(_ context.Context, storageKey string) error {
	if storageKey == "" {
		return errors.New("storage key is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, storageKey)
	return nil
}

// Get returns a stored artifact, for test assertions
func (s *MemoryArchiveStorage) Get(storageKey string) ([]byte, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[storageKey]
	return obj.data, obj.contentType, ok
}

// Len returns the number of stored artifacts
func (s *MemoryArchiveStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
