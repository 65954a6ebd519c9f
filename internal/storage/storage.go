// Package storage persists small client-side values, the favorite
// zone ids and the bearer token, under fixed keys. It plays the part
// of device storage for the NugulMap client core.
package storage

import (
	"context"
	"sync"
)

const (
	// FavoritesKey holds the JSON array of favorite zone ids.
	FavoritesKey = "@nugulmap:favorites:v1"

	// AccessTokenKey holds the bearer token as a plain string.
	AccessTokenKey = "@nugulmap:access-token:v1"
)

// Store is the interface that wraps the Get, Set and Remove methods.
//
// Get returns the value stored at key. ok is false when nothing is
// stored there.
//
// Set stores value at key, replacing any previous value.
//
// Remove deletes key. Removing a missing key is not an error.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key string, value string) error
	Remove(ctx context.Context, key string) error
}

// MemoryStore keeps values in process memory. Values are lost
// when the process exits.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: map[string]string{}}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.values == nil {
		m.values = map[string]string{}
	}
	m.values[key] = value
	return nil
}

func (m *MemoryStore) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)
	return nil
}
