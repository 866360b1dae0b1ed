package core

import "context"

// Environment owns world state and produces per-agent observations. It is
// created once per episode and reset between episodes.
//
// Determinism: Step must be deterministic given (prior state, input) unless
// the environment intentionally models stochastic dynamics, in which case the
// randomness source must be seeded by the caller for reproducibility.
type Environment interface {
	// RegisterAgents announces the agent ids the environment must produce
	// observations for. The network calls this before the first Reset.
	RegisterAgents(ids []string) error

	// AgentIDs returns the registered agent ids.
	AgentIDs() []string

	// Reset reinitializes world state and returns one initial observation
	// per registered agent.
	Reset(ctx context.Context) (map[string]Observation, error)

	// Step applies the collected agent actions to world state and returns
	// per-agent observations plus a termination flag. Iteration order over
	// actions is caller-determined; the network uses agent registration
	// order. Environments whose dynamics are order-dependent must document
	// that.
	Step(ctx context.Context, input StepInput) (StepResult, error)
}
