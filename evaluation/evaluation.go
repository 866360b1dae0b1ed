// Package evaluation scores recorded episodes after a run has finished.
package evaluation

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentgym/core"
)

// Result summarizes one evaluated episode.
type Result struct {
	// Steps is the number of recorded steps.
	Steps int
	// TotalReward is the summed reward per agent across all steps.
	TotalReward map[string]float64
	// MeanReward is the per-step average reward per agent.
	MeanReward map[string]float64
	// Terminated reports whether the final step ended the episode.
	Terminated bool
}

// Evaluator scores a recorded episode.
type Evaluator interface {
	Evaluate(ctx context.Context, ep *core.Episode) (*Result, error)
}

// RewardSummary aggregates the per-step rewards of an episode per agent.
type RewardSummary struct{}

// NewRewardSummary creates a new RewardSummary evaluator.
func NewRewardSummary() *RewardSummary {
	return &RewardSummary{}
}

// Evaluate sums and averages each agent's rewards across the episode. Agents
// that never earned a reward do not appear in the result maps.
func (r *RewardSummary) Evaluate(ctx context.Context, ep *core.Episode) (*Result, error) {
	if ep == nil {
		return nil, fmt.Errorf("episode is required")
	}

	steps := ep.GetSteps()

	total := make(map[string]float64)
	for _, rec := range steps {
		for id, reward := range rec.Result.Rewards {
			total[id] += reward
		}
	}

	mean := make(map[string]float64, len(total))
	for id, sum := range total {
		mean[id] = sum / float64(len(steps))
	}

	terminated := false
	if n := len(steps); n > 0 {
		terminated = steps[n-1].Result.Done
	}

	return &Result{
		Steps:       len(steps),
		TotalReward: total,
		MeanReward:  mean,
		Terminated:  terminated,
	}, nil
}
