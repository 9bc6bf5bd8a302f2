// Package blobstore stores generated PDF artifacts (bills, discharge
// summaries) and hands back a URL. Content is never inspected.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var ErrBlobNotFound = errors.New("blob not found")

type Store interface {
	// Put stores the blob under key and returns its public URL.
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// Memory is an in-memory Store for tests and local development.
type Memory struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{blobs: make(map[string][]byte)}
}

func (m *Memory) Put(_ context.Context, key, _ string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	buf := make([]byte, len(data))
	copy(buf, data)
	m.blobs[key] = buf

	return fmt.Sprintf("memory://%s", key), nil
}

func (m *Memory) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.blobs[key]
	if !ok {
		return nil, ErrBlobNotFound
	}
	return data, nil
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blobs)
}
