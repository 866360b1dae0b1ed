// Package agent contains first-class agent implementations and supporting
// utilities for building agents driven by an AgentGym network. The package
// focuses on three concerns:
//
//  1. Base lifecycle + inbox plumbing (BaseAgent)
//  2. A wiring smoke-test agent (EchoAgent)
//  3. Model-centric conversational / tool-calling agent (LLMAgent)
//
// Design principles:
//   - Minimal hidden global state: explicit wiring via the network
//   - Single-writer turns: the network drives an agent from one goroutine
//   - Extensibility: embed BaseAgent; only implement Act plus any custom API
//
// Execution model:
//   - The network delivers observations, messages and tool results between
//     turns; BaseAgent queues them until the next Act drains the inbox
//   - Act returns a core.StepOutput whose tool invocations the executor runs
//     and whose messages the network routes
//   - LLMAgent integrates with the llm and tool packages to call a model and
//     turn its tool calls into invocations each turn
//
// The package intentionally keeps persistence, model specifics and tool
// registry abstractions in their respective packages to avoid cyclic deps.
package agent
