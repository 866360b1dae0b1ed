package core

import "context"

// EpisodeStore persists episodes and their evolving step history.
//
// Implementations should be safe for concurrent use and scope all data by
// episode id. Short method names mirror the other interfaces for
// consistency.
type EpisodeStore interface {
	Create(ctx context.Context, ep *Episode) error
	Get(ctx context.Context, id string) (*Episode, error)
	AppendStep(ctx context.Context, id string, rec StepRecord) error
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, id string) error
}

// RecallResult represents a retrieved fragment of past episode history with a
// relevance score and arbitrary metadata.
type RecallResult struct {
	EpisodeID string
	Step      int
	Content   string
	Score     float64
	Metadata  map[string]any
}
