// Package agentgym provides a high-level façade over the core simulation
// building blocks (tools, executor, network, environments, episode stores &
// logging) enabling rapid construction of multi-agent simulations. Most
// applications interact with this package by:
//  1. Creating an AgentGym via New() with an environment (optionally
//     overriding the default in-memory store, mode and executor policy)
//  2. Registering one or more agents and the tools they may call
//  3. Running episodes synchronously (Run) or as a stream of step records
//     (RunStream)
//
// The façade delegates orchestration to network.Network while keeping setup
// and usage ergonomics concise. All defaults are safe for local development
// and testing; production deployments typically supply a durable episode
// store and a structured logger.
package agentgym

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/agentgym/core"
	"github.com/hupe1980/agentgym/episode"
	"github.com/hupe1980/agentgym/executor"
	"github.com/hupe1980/agentgym/logging"
	"github.com/hupe1980/agentgym/network"
	"github.com/hupe1980/agentgym/tool"
)

// Options configures the AgentGym instance.
type Options struct {
	// Environment owns world state and produces per-agent observations.
	// Required.
	Environment core.Environment

	// ExecutorPolicy selects how the shared executor dispatches tool
	// invocations. Defaults to synchronous dispatch.
	ExecutorPolicy executor.Policy

	// Mode selects streaming or offline tool execution for the network.
	// Defaults to streaming.
	Mode network.Mode

	// Store receives episodes and step records (defaults to an in-memory
	// implementation if not provided).
	Store core.EpisodeStore

	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger

	// StepTimeout bounds a single network step. Zero means no limit.
	StepTimeout time.Duration

	// ContinueOnAgentError terminates a failing agent and continues the run
	// instead of halting it.
	ContinueOnAgentError bool
}

// WithEnvironment sets the environment the network runs against.
func WithEnvironment(env core.Environment) func(o *Options) {
	return func(o *Options) { o.Environment = env }
}

// WithExecutorPolicy sets the dispatch policy of the shared tool executor.
func WithExecutorPolicy(policy executor.Policy) func(o *Options) {
	return func(o *Options) { o.ExecutorPolicy = policy }
}

// WithMode sets the tool execution mode of the network.
func WithMode(mode network.Mode) func(o *Options) {
	return func(o *Options) { o.Mode = mode }
}

// WithStore sets the episode store backend.
func WithStore(store core.EpisodeStore) func(o *Options) {
	return func(o *Options) { o.Store = store }
}

// WithLogger sets the logger shared by the registry, executor and network.
func WithLogger(logger logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = logger }
}

// WithStepTimeout bounds a single network step.
func WithStepTimeout(d time.Duration) func(o *Options) {
	return func(o *Options) { o.StepTimeout = d }
}

// AgentGym is the high-level façade aggregating a tool registry, a tool
// executor and the agent network behind one constructor.
type AgentGym struct {
	opts     Options
	registry *tool.Registry
	executor *executor.Executor
	network  *network.Network
}

// New creates a new AgentGym instance with optional overrides. The
// environment is required; any unset service is initialized with an in-memory
// implementation.
func New(optFns ...func(o *Options)) (*AgentGym, error) {
	opts := Options{
		Mode:   network.ModeStreaming,
		Store:  episode.NewInMemoryStore(),
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Environment == nil {
		return nil, fmt.Errorf("environment is required")
	}

	registry := tool.NewRegistry(func(o *tool.RegistryOptions) {
		o.Logger = opts.Logger
	})

	exec := executor.New(registry, func(o *executor.Options) {
		o.Policy = opts.ExecutorPolicy
		o.Logger = opts.Logger
	})

	nw := network.New(func(o *network.Options) {
		o.Environment = opts.Environment
		o.Executor = exec
		o.Mode = opts.Mode
		o.Store = opts.Store
		o.Logger = opts.Logger
		o.StepTimeout = opts.StepTimeout
		o.ContinueOnAgentError = opts.ContinueOnAgentError
	})

	return &AgentGym{opts: opts, registry: registry, executor: exec, network: nw}, nil
}

// RegisterAgent adds an agent to the underlying network.
func (g *AgentGym) RegisterAgent(a core.Agent) error { return g.network.RegisterAgent(a) }

// RegisterTool makes a tool invocable through the shared registry.
func (g *AgentGym) RegisterTool(t tool.Tool) error { return g.registry.Register(t) }

// Run executes up to numSteps network steps and returns their records. A
// fresh episode is started when none is in progress.
func (g *AgentGym) Run(ctx context.Context, numSteps int) ([]core.StepRecord, error) {
	return g.network.Run(ctx, numSteps)
}

// RunStream executes up to numSteps network steps, emitting step records as
// they are produced. Both channels are closed on completion; the error
// channel carries at most one terminal error.
func (g *AgentGym) RunStream(ctx context.Context, numSteps int) (<-chan core.StepRecord, <-chan error) {
	return g.network.RunStream(ctx, numSteps)
}

// Network returns the underlying agent network for direct stepping and
// callback registration.
func (g *AgentGym) Network() *network.Network { return g.network }

// Registry returns the shared tool registry.
func (g *AgentGym) Registry() *tool.Registry { return g.registry }

// Executor returns the shared tool executor.
func (g *AgentGym) Executor() *executor.Executor { return g.executor }
