// Package favorite keeps the set of zone ids a user starred. The set
// lives on the device only and is never synced with the server; a
// favorite id without a fetched zone is legal and simply invisible
// until that zone is back in view.
package favorite

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/cicconee/nugulmap/internal/storage"
)

// Set is a persisted set of zone ids. It is safe for concurrent use.
type Set struct {
	Store  storage.Store
	Logger *slog.Logger

	mu  sync.RWMutex
	ids map[int]struct{}

	// writeMu orders persists so the last write always holds
	// the latest membership.
	writeMu sync.Mutex
}

func New(store storage.Store, logger *slog.Logger) *Set {
	return &Set{
		Store:  store,
		Logger: logger,
		ids:    map[int]struct{}{},
	}
}

func (s *Set) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}

	return s.Logger
}

// Load replaces the in-memory set with the persisted one. A missing
// or corrupt value loads as an empty set. Only a failing store is
// reported as an error, and the set is left empty in that case.
func (s *Set) Load(ctx context.Context) error {
	ids := map[int]struct{}{}
	defer func() {
		s.mu.Lock()
		s.ids = ids
		s.mu.Unlock()
	}()

	saved, ok, err := s.Store.Get(ctx, storage.FavoritesKey)
	if err != nil {
		return fmt.Errorf("failed reading favorites: %w", err)
	}
	if !ok || saved == "" {
		return nil
	}

	var parsed []int
	if err := json.Unmarshal([]byte(saved), &parsed); err != nil {
		s.logger().Warn("discarding corrupt favorites", "error", err)
		return nil
	}

	for _, id := range parsed {
		ids[id] = struct{}{}
	}

	return nil
}

// Flip toggles id in memory only and reports whether id is a
// favorite afterwards.
func (s *Set) Flip(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ids == nil {
		s.ids = map[int]struct{}{}
	}

	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
		return false
	}

	s.ids[id] = struct{}{}
	return true
}

// Persist writes the whole current set to the store.
func (s *Set) Persist(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	b, err := json.Marshal(s.IDs())
	if err != nil {
		return fmt.Errorf("failed encoding favorites: %w", err)
	}

	if err := s.Store.Set(ctx, storage.FavoritesKey, string(b)); err != nil {
		return fmt.Errorf("failed writing favorites: %w", err)
	}

	return nil
}

// Toggle flips id and persists the set. The in-memory flip is kept
// even when persisting fails.
func (s *Set) Toggle(ctx context.Context, id int) (bool, error) {
	member := s.Flip(id)
	return member, s.Persist(ctx)
}

func (s *Set) Has(id int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.ids[id]
	return ok
}

func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.ids)
}

// IDs returns the favorite ids in ascending order.
func (s *Set) IDs() []int {
	s.mu.RLock()
	ids := make([]int, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	sort.Ints(ids)
	return ids
}
