package testutil

import (
	"github.com/hupe1980/agentgym/core"
)

// EpisodeBuilder helps construct episodes with fluent chaining for tests.
// Example:
//
//	ep := NewEpisodeBuilder("ep-1").State("task", "triage").Steps(rec1, rec2).Build()
type EpisodeBuilder struct {
	id       string
	state    map[string]any
	metadata map[string]string
	steps    []core.StepRecord
	finished bool
}

// NewEpisodeBuilder creates a new builder for an episode with the given id.
// Use chainable methods (State, Metadata, Step, Steps, Finished) then call
// Build.
func NewEpisodeBuilder(id string) *EpisodeBuilder {
	return &EpisodeBuilder{id: id, state: map[string]any{}, metadata: map[string]string{}}
}

// State sets or overwrites a state key/value pair on the resulting episode (chainable).
func (b *EpisodeBuilder) State(key string, val any) *EpisodeBuilder {
	b.state[key] = val
	return b
}

// Metadata sets a metadata key/value pair on the resulting episode (chainable).
func (b *EpisodeBuilder) Metadata(key, val string) *EpisodeBuilder {
	b.metadata[key] = val
	return b
}

// Step appends a single step record to the episode history (chainable).
func (b *EpisodeBuilder) Step(rec core.StepRecord) *EpisodeBuilder {
	b.steps = append(b.steps, rec)
	return b
}

// Steps appends multiple step records to the episode history (chainable).
func (b *EpisodeBuilder) Steps(recs ...core.StepRecord) *EpisodeBuilder {
	b.steps = append(b.steps, recs...)
	return b
}

// Finished stamps the episode end time (chainable).
func (b *EpisodeBuilder) Finished() *EpisodeBuilder {
	b.finished = true
	return b
}

// Build returns a *core.Episode with pre-populated state and history.
func (b *EpisodeBuilder) Build() *core.Episode {
	ep := core.NewEpisodeWithID(b.id)

	for k, v := range b.state {
		ep.State[k] = v
	}
	for k, v := range b.metadata {
		ep.Metadata[k] = v
	}
	for _, rec := range b.steps {
		ep.AddStep(rec)
	}
	if b.finished {
		ep.Finish()
	}

	return ep
}
