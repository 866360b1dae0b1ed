// Package environment provides the world-state side of an AgentGym network:
// an embeddable BaseEnvironment with agent roster management, a mutex-guarded
// state bag and batched tool execution, plus TaskEnvironment, a ready-made
// echoing environment for demos and tests.
//
// Concrete environments embed BaseEnvironment and implement Reset and Step to
// satisfy core.Environment. Step receives every agent's environment-directed
// actions for one network step and returns per-agent observations, a global
// done flag and optional rewards. Environments running in offline execution
// mode serve the batched tool invocations of a step through RunToolBatch.
package environment
