// Package network implements the orchestration layer for AgentGym.
//
// The Network is the central coordination hub that drives registered agents
// against a shared environment, one cooperative step at a time, and records
// every run as an episode. It bridges the gap between high-level AgentGym
// operations and the individual agent, tool and environment implementations.
//
// # Core Responsibilities
//
// Agent Management:
//   - Thread-safe agent registry with id-based lookup
//   - Stable registration order driving all per-step iteration
//   - Agent lifecycle coordination (reset, termination, status tracking)
//
// Step Orchestration:
//   - Sequential agent turns with pending-delivery bookkeeping
//   - Streaming or offline tool dispatch through the executor
//   - Message routing between agents (direct and broadcast)
//   - Environment stepping with observation fan-out
//
// Episode Recording:
//   - One core.StepRecord per step, appended to the in-memory episode
//   - Optional persistence through a core.EpisodeStore backend
//   - Extensible callback system for cross-cutting concerns
//
// # Architecture
//
//	┌─────────────────────────────────────────────────────────┐
//	│                    Client Layer                         │
//	├─────────────────────────────────────────────────────────┤
//	│                 Network Interface                       │
//	│  ┌──────────┐ ┌──────────┐ ┌──────────┐ ┌───────────┐  │
//	│  │  Reset   │ │   Step   │ │   Run    │ │ RunStream │  │
//	│  └──────────┘ └──────────┘ └──────────┘ └───────────┘  │
//	├─────────────────────────────────────────────────────────┤
//	│                Orchestration Layer                      │
//	│  ┌──────────┐ ┌──────────┐ ┌──────────┐ ┌───────────┐  │
//	│  │  Agent   │ │   Tool   │ │ Message  │ │ Callback  │  │
//	│  │  Turns   │ │ Dispatch │ │ Routing  │ │  Manager  │  │
//	│  └──────────┘ └──────────┘ └──────────┘ └───────────┘  │
//	├─────────────────────────────────────────────────────────┤
//	│                   Service Layer                         │
//	│  ┌──────────────┐ ┌──────────────┐ ┌────────────────┐  │
//	│  │ Environment  │ │ ToolExecutor │ │  EpisodeStore  │  │
//	│  └──────────────┘ └──────────────┘ └────────────────┘  │
//	└─────────────────────────────────────────────────────────┘
//
// # Step Lifecycle
//
// Each Step call walks the same sequence:
//
//  1. Deliver pending messages, then let each non-terminated agent act, in
//     registration order.
//  2. Dispatch tool invocations: streaming mode executes them immediately
//     through the executor and delivers results before the environment step;
//     offline mode batches them into the environment step and routes the
//     returned responses afterwards.
//  3. Queue agent messages for delivery at the start of the recipients'
//     next turn.
//  4. Apply collected environment actions via Environment.Step and fan the
//     resulting observations back out.
//  5. Record the step into the episode (and the configured store).
//
// # Usage
//
// Basic network setup:
//
//	nw := network.New(func(o *network.Options) {
//	    o.Environment = env
//	    o.Executor = exec
//	    o.Store = store
//	    o.Logger = logger
//	})
//
//	_ = nw.RegisterAgent(writer)
//	_ = nw.RegisterAgent(critic)
//
// Batch execution:
//
//	records, err := nw.Run(ctx, 10)
//	if err != nil {
//	    return err
//	}
//	processRecords(records)
//
// Streaming execution:
//
//	records, errs := nw.RunStream(ctx, 10)
//	for rec := range records {
//	    handleRecord(rec)
//	}
//	if err := <-errs; err != nil {
//	    return err
//	}
//
// # Concurrency Model
//
// The network uses a single-driver cooperative model:
//
//   - Agents take turns sequentially within a step; parallelism comes from
//     the executor's worker pool, not from concurrent agent execution
//   - Reset, Step, Run and RunStream are serialized against each other
//   - Agent registration is safe at any time and takes effect next step
//   - An agent is touched from at most one goroutine at a time
//
// # Error Handling
//
//   - Agent errors halt the step unless ContinueOnAgentError is set, in
//     which case the failing agent is terminated and the run continues
//   - Tool failures never halt the step; they are delivered to the caller
//     as error-carrying responses
//   - Environment and store errors are terminal for the run
//   - RunStream propagates terminal errors via its dedicated error channel
package network
