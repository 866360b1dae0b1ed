// Package core provides the foundational domain types and contracts used by
// AgentGym. It defines the core abstractions for:
//
//   - Agents (autonomous actors driven by observations)
//   - Environments (world state with reset/step semantics)
//   - Tool invocations, responses and metadata (the internal wire format)
//   - Episodes (ordered per-step history of a simulation run)
//   - Pluggable tool executors and episode stores
//
// The package intentionally keeps implementation concerns (persistence,
// network orchestration, concrete agents) out of scope, exposing small
// interfaces to enable custom backends and extensions. All exported
// identifiers include concise documentation to aid discoverability and
// external consumption.
package core
