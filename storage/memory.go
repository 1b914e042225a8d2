package storage

import (
	"context"
	"io"
	"sync"

	"github.com/google/uuid"
	muerrors "github.com/zostay/go-multipart/errors"
)

// Memory is an in-memory storage engine. It collects each file's
// bytes into a map keyed by a generated UUID, guarded by a mutex so it
// may be shared safely across concurrent requests.
type Memory struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewMemory builds an empty in-memory storage engine.
func NewMemory() *Memory {
	return &Memory{files: make(map[string][]byte)}
}

// Store drains body fully into memory and returns a StoredFile keyed
// by a generated identifier.
func (m *Memory) Store(ctx context.Context, meta FileMeta, body io.Reader) (StoredFile, error) {
	if err := ctx.Err(); err != nil {
		return StoredFile{}, muerrors.NewStorageError("context canceled before store", err)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return StoredFile{}, muerrors.NewStorageError("failed to read part stream", err)
	}

	key := uuid.NewString()
	m.mu.Lock()
	m.files[key] = data
	m.mu.Unlock()

	return StoredFile{
		StorageKey:  key,
		FieldName:   meta.FieldName,
		FileName:    meta.FileName,
		HasFileName: meta.HasFileName,
		ContentType: meta.ContentType,
		Size:        uint64(len(data)),
	}, nil
}

// Get returns the bytes stored under key, if any.
func (m *Memory) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[key]
	return data, ok
}

// Len returns the number of files currently stored.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.files)
}
