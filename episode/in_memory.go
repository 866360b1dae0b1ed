package episode

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/hupe1980/agentgym/core"
)

// ErrNotFound is returned when no episode with the requested id exists.
// Backends wrap it with the id, so match with errors.Is.
var ErrNotFound = errors.New("episode not found")

// InMemoryStore is a volatile EpisodeStore implementation keeping episodes in
// a process-local map. It is safe for concurrent access and best suited for
// tests or ephemeral demo runs. Each returned episode is cloned to prevent
// external mutation of internal state.
type InMemoryStore struct {
	mu       sync.RWMutex
	episodes map[string]*core.Episode
}

// NewInMemoryStore constructs an empty in-memory episode store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{episodes: make(map[string]*core.Episode)}
}

// Create stores a clone of the episode. It fails when an episode with the
// same id already exists, so recorded history is never silently replaced.
func (s *InMemoryStore) Create(_ context.Context, ep *core.Episode) error {
	if ep == nil || ep.ID == "" {
		return fmt.Errorf("episode must have a non-empty id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.episodes[ep.ID]; exists {
		return fmt.Errorf("episode %q already exists", ep.ID)
	}
	s.episodes[ep.ID] = ep.Clone()

	return nil
}

// Get returns a clone of the stored episode.
func (s *InMemoryStore) Get(_ context.Context, id string) (*core.Episode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ep, ok := s.episodes[id]
	if !ok {
		return nil, fmt.Errorf("episode %q: %w", id, ErrNotFound)
	}

	return ep.Clone(), nil
}

// AppendStep adds a step record to the stored episode's history.
func (s *InMemoryStore) AppendStep(_ context.Context, id string, rec core.StepRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ep, ok := s.episodes[id]
	if !ok {
		return fmt.Errorf("episode %q: %w", id, ErrNotFound)
	}
	ep.AddStep(rec)

	return nil
}

// List returns all stored episode ids sorted alphabetically.
func (s *InMemoryStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.episodes))
	for id := range s.episodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return ids, nil
}

// Delete removes a stored episode and its history.
func (s *InMemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.episodes[id]; !ok {
		return fmt.Errorf("episode %q: %w", id, ErrNotFound)
	}
	delete(s.episodes, id)

	return nil
}
