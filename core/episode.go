package core

import (
	"sync"
	"time"
)

// Episode represents a single simulation run tracking mutable key/value state
// plus an ordered step history. It is safe for concurrent access.
//
// Contract:
//   - State mutations update the Updated timestamp
//   - GetSteps returns a defensive copy to avoid external mutation
//   - Finish stamps Ended exactly once; later calls are no-ops
//   - Clone performs deep copies of maps/slices for safe divergence.
type Episode struct {
	ID       string            `json:"id"`
	Steps    []StepRecord      `json:"steps"`
	State    map[string]any    `json:"state"`
	Metadata map[string]string `json:"metadata"`
	Started  time.Time         `json:"started"`
	Updated  time.Time         `json:"updated"`
	Ended    time.Time         `json:"ended"`
	mu       sync.RWMutex
}

// NewEpisode creates a new episode with a generated ID.
func NewEpisode() *Episode {
	return NewEpisodeWithID(NewID())
}

// NewEpisodeWithID creates a new episode with the given ID.
func NewEpisodeWithID(id string) *Episode {
	now := time.Now()
	return &Episode{ID: id, Steps: []StepRecord{}, State: map[string]any{}, Metadata: map[string]string{}, Started: now, Updated: now}
}

// GetState returns the value and existence flag for a state key.
func (e *Episode) GetState(key string) (any, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.State[key]
	return v, ok
}

// SetState sets a key/value pair in episode state updating the Updated timestamp.
func (e *Episode) SetState(key string, value any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.State[key] = value
	e.Updated = time.Now()
}

// ApplyStateDelta merges the provided key/value pairs into State.
func (e *Episode) ApplyStateDelta(delta map[string]any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for k, v := range delta {
		e.State[k] = v
	}
	e.Updated = time.Now()
}

// AddStep appends a step record to the history updating the Updated timestamp.
func (e *Episode) AddStep(rec StepRecord) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Steps = append(e.Steps, rec)
	e.Updated = time.Now()
}

// GetSteps returns a defensive copy of the full step history.
func (e *Episode) GetSteps() []StepRecord {
	e.mu.RLock()
	defer e.mu.RUnlock()
	steps := make([]StepRecord, len(e.Steps))
	copy(steps, e.Steps)
	return steps
}

// LastStep returns the most recent step record and true, or the zero record
// and false for an empty episode.
func (e *Episode) LastStep() (StepRecord, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if len(e.Steps) == 0 {
		return StepRecord{}, false
	}
	return e.Steps[len(e.Steps)-1], true
}

// Len returns the number of recorded steps.
func (e *Episode) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.Steps)
}

// Finish stamps the episode end time. Subsequent calls do nothing.
func (e *Episode) Finish() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.Ended.IsZero() {
		e.Ended = time.Now()
		e.Updated = e.Ended
	}
}

// Finished reports whether Finish has been called.
func (e *Episode) Finished() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return !e.Ended.IsZero()
}

// Clone returns a deep copy of the episode safe for independent mutation.
func (e *Episode) Clone() *Episode {
	e.mu.RLock()
	defer e.mu.RUnlock()
	clone := &Episode{ID: e.ID, Steps: make([]StepRecord, len(e.Steps)), State: make(map[string]any, len(e.State)), Metadata: make(map[string]string, len(e.Metadata)), Started: e.Started, Updated: e.Updated, Ended: e.Ended}
	copy(clone.Steps, e.Steps)
	for k, v := range e.State {
		clone.State[k] = v
	}
	for k, v := range e.Metadata {
		clone.Metadata[k] = v
	}
	return clone
}
