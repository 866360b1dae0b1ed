package network

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/agentgym/core"
	"github.com/hupe1980/agentgym/logging"
)

// Mode selects how tool invocations emitted by agents are executed.
type Mode int

const (
	// ModeStreaming executes tool invocations immediately through the
	// network's executor, delivering each result to its caller before the
	// environment step.
	ModeStreaming Mode = iota

	// ModeOffline batches all tool invocations into the environment step.
	// The environment executes them and returns the responses, which the
	// network routes back to the callers after the step.
	ModeOffline
)

// String returns the string representation of the mode.
func (m Mode) String() string {
	switch m {
	case ModeStreaming:
		return "streaming"
	case ModeOffline:
		return "offline"
	default:
		return "unknown"
	}
}

// Options configures a Network instance using the functional options pattern.
type Options struct {
	// Environment owns world state and produces per-agent observations.
	// Required before the first Reset.
	Environment core.Environment

	// Executor dispatches tool invocations in streaming mode. When nil,
	// streaming invocations are skipped.
	Executor core.ToolExecutor

	// Mode selects streaming or offline tool execution. Defaults to
	// ModeStreaming.
	Mode Mode

	// Store receives the episode and its step records as they are produced.
	// Optional; the in-memory episode is always maintained.
	Store core.EpisodeStore

	// Logger provides structured logging. Defaults to NoOp logger if nil.
	Logger logging.Logger

	// ContinueOnAgentError terminates a failing agent and continues the run
	// instead of halting it.
	ContinueOnAgentError bool

	// StepTimeout bounds a single Step call. Zero means no limit.
	StepTimeout time.Duration

	// Callbacks fire at lifecycle points of the run. Defaults to an empty
	// manager; use Callbacks() to register hooks after construction.
	Callbacks *CallbackManager
}

// Network drives a set of agents against a shared environment, one step at a
// time, and records the run as an episode.
//
// Within a step the network iterates agents sequentially in registration
// order: it delivers pending messages, lets each agent act, dispatches the
// emitted tool invocations according to the configured Mode, routes
// agent-to-agent messages for the next step, applies the collected actions to
// the environment, and fans the resulting observations back out. Each step
// produces exactly one core.StepRecord appended to the episode under
// construction (and to the configured store).
//
// The network touches an agent from at most one goroutine at a time. Reset,
// Step and Run are serialized against each other; agent registration is safe
// at any time and takes effect at the next step.
type Network struct {
	environment          core.Environment
	executor             core.ToolExecutor
	mode                 Mode
	store                core.EpisodeStore
	logger               logging.Logger
	continueOnAgentError bool
	stepTimeout          time.Duration
	callbacks            *CallbackManager

	// Agent registry and episode pointer, protected for concurrent access.
	mu      sync.RWMutex
	agents  map[string]core.Agent
	order   []string
	episode *core.Episode

	// Run state, owned by the stepping goroutine. runMu serializes
	// Reset/Step/Run/RunStream.
	runMu       sync.Mutex
	stepNum     int
	finished    bool
	current     map[string]core.Observation
	pendingMsgs map[string][]core.Message
}

// New creates a Network with the given options. The zero configuration is
// usable for registration but needs an Environment before Reset.
func New(optFns ...func(o *Options)) *Network {
	opts := Options{
		Mode:      ModeStreaming,
		Callbacks: NewCallbackManager(),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Callbacks == nil {
		opts.Callbacks = NewCallbackManager()
	}

	return &Network{
		environment:          opts.Environment,
		executor:             opts.Executor,
		mode:                 opts.Mode,
		store:                opts.Store,
		logger:               core.EnsureLogger(opts.Logger),
		continueOnAgentError: opts.ContinueOnAgentError,
		stepTimeout:          opts.StepTimeout,
		callbacks:            opts.Callbacks,
		agents:               make(map[string]core.Agent),
		current:              make(map[string]core.Observation),
		pendingMsgs:          make(map[string][]core.Message),
	}
}

// RegisterAgent adds an agent to the network. It fails with
// *DuplicateAgentError when the id is already taken, leaving the existing
// registration untouched. Registration order is stable and drives all
// per-step iteration.
func (n *Network) RegisterAgent(a core.Agent) error {
	if a == nil || a.ID() == "" {
		return fmt.Errorf("agent must have a non-empty id")
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if _, exists := n.agents[a.ID()]; exists {
		return &DuplicateAgentError{ID: a.ID()}
	}
	n.agents[a.ID()] = a
	n.order = append(n.order, a.ID())

	n.logger.Debug("network.agent.registered", "agent_id", a.ID())

	return nil
}

// UnregisterAgent removes an agent by id. It fails with *AgentNotFoundError
// when no agent with that id is registered.
func (n *Network) UnregisterAgent(id string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, exists := n.agents[id]; !exists {
		return &AgentNotFoundError{ID: id}
	}
	delete(n.agents, id)
	for i, existing := range n.order {
		if existing == id {
			n.order = append(n.order[:i], n.order[i+1:]...)
			break
		}
	}

	n.logger.Debug("network.agent.unregistered", "agent_id", id)

	return nil
}

// AgentIDs returns the registered agent ids in registration order.
func (n *Network) AgentIDs() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()

	ids := make([]string, len(n.order))
	copy(ids, n.order)
	return ids
}

// Callbacks returns the callback manager for registering lifecycle hooks.
func (n *Network) Callbacks() *CallbackManager {
	return n.callbacks
}

// Episode returns the episode under construction, or nil before the first
// Reset. The episode is safe for concurrent reads while the network steps.
func (n *Network) Episode() *core.Episode {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.episode
}

// Reset starts a fresh episode: every agent is reset, the environment is
// reinitialized with the current roster, and each agent's initial observation
// is queued for delivery at the first step. The new episode is created in the
// configured store. Returns the initial observations per agent id.
func (n *Network) Reset(ctx context.Context) (map[string]core.Observation, error) {
	n.runMu.Lock()
	defer n.runMu.Unlock()
	return n.reset(ctx)
}

// Step executes one full network step and returns its record.
//
// The step sequence is: deliver pending messages and let each non-terminated
// agent act (registration order); dispatch tool invocations per the
// configured Mode; route agent messages for delivery at the start of the
// recipients' next turn; apply the collected environment actions via
// Environment.Step; route offline tool responses back to their callers; fan
// the new observations out; record the step.
//
// An error from an agent halts the step unless ContinueOnAgentError is set,
// in which case the offending agent is terminated and the step continues.
// Tool-level failures never halt the step: they are delivered to the caller
// as error-carrying responses.
func (n *Network) Step(ctx context.Context) (core.StepRecord, error) {
	n.runMu.Lock()
	defer n.runMu.Unlock()
	return n.step(ctx)
}

// Run resets the network (unless an unfinished episode with active agents is
// in progress) and executes up to numSteps steps. It stops early when the
// environment reports Done, when every agent is terminated, or on error.
// Returns one record per executed step, step numbers strictly increasing
// from 1.
func (n *Network) Run(ctx context.Context, numSteps int) ([]core.StepRecord, error) {
	n.runMu.Lock()
	defer n.runMu.Unlock()
	return n.run(ctx, numSteps, nil)
}

// RunStream is the asynchronous variant of Run: step records are emitted on
// the returned channel as they are produced. Both channels are closed on
// completion; the error channel carries at most one terminal error.
// Cancelling ctx stops the run.
func (n *Network) RunStream(ctx context.Context, numSteps int) (<-chan core.StepRecord, <-chan error) {
	buffer := numSteps
	if buffer < 1 {
		buffer = 1
	}
	recordCh := make(chan core.StepRecord, buffer)
	errCh := make(chan error, 1)

	go func() {
		defer close(recordCh)
		defer close(errCh)

		n.runMu.Lock()
		defer n.runMu.Unlock()

		_, err := n.run(ctx, numSteps, func(rec core.StepRecord) error {
			select {
			case recordCh <- rec:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil {
			errCh <- err
		}
	}()

	return recordCh, errCh
}

func (n *Network) reset(ctx context.Context) (map[string]core.Observation, error) {
	if n.environment == nil {
		return nil, fmt.Errorf("environment is required")
	}

	order, agents := n.roster()
	if len(order) == 0 {
		return nil, fmt.Errorf("no agents registered")
	}

	for _, id := range order {
		agents[id].Reset()
	}

	if err := n.environment.RegisterAgents(order); err != nil {
		return nil, fmt.Errorf("register agents with environment: %w", err)
	}

	observations, err := n.environment.Reset(ctx)
	if err != nil {
		return nil, fmt.Errorf("reset environment: %w", err)
	}

	ep := core.NewEpisode()
	if n.store != nil {
		if err := n.store.Create(ctx, ep); err != nil {
			return nil, fmt.Errorf("create episode in store: %w", err)
		}
	}

	n.mu.Lock()
	n.episode = ep
	n.mu.Unlock()

	n.stepNum = 0
	n.finished = false
	n.current = make(map[string]core.Observation, len(observations))
	for id, obs := range observations {
		n.current[id] = obs
	}
	n.pendingMsgs = make(map[string][]core.Message)

	n.logger.Debug("network.reset", "episode_id", ep.ID, "agents", len(order))

	return observations, nil
}

func (n *Network) step(ctx context.Context) (core.StepRecord, error) {
	if n.environment == nil {
		return core.StepRecord{}, fmt.Errorf("environment is required")
	}
	episode := n.Episode()
	if episode == nil {
		return core.StepRecord{}, fmt.Errorf("no active episode, call Reset first")
	}

	if n.stepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.stepTimeout)
		defer cancel()
	}

	stepNum := n.stepNum + 1

	if err := n.callbacks.ExecuteCallbacks(ctx, CallbackBeforeStep, &CallbackContext{
		EpisodeID:    episode.ID,
		Step:         stepNum,
		CallbackType: CallbackBeforeStep,
	}); err != nil {
		return core.StepRecord{}, fmt.Errorf("before step callback: %w", err)
	}

	order, agents := n.roster()

	// Deliveries routed during this step land in pendingMsgs for the next one.
	pendingMsgs := n.pendingMsgs
	n.pendingMsgs = make(map[string][]core.Message)

	outputs := make(map[string]core.StepOutput)
	var invocations []core.ToolInvocation
	callerByID := make(map[string]string)

	for _, id := range order {
		ag := agents[id]
		if ag.Status() == core.StatusTerminated {
			continue
		}

		for _, msg := range pendingMsgs[id] {
			ag.OnMessage(ctx, msg)
		}

		obs := n.current[id]

		if err := n.callbacks.ExecuteCallbacks(ctx, CallbackBeforeAgent, &CallbackContext{
			EpisodeID:    episode.ID,
			Step:         stepNum,
			AgentID:      id,
			Observation:  &obs,
			CallbackType: CallbackBeforeAgent,
		}); err != nil {
			return core.StepRecord{}, fmt.Errorf("before agent callback: %w", err)
		}

		out, err := ag.Act(ctx, obs)
		if err != nil {
			_ = n.callbacks.ExecuteCallbacks(ctx, CallbackOnError, &CallbackContext{
				EpisodeID:    episode.ID,
				Step:         stepNum,
				AgentID:      id,
				Err:          err,
				CallbackType: CallbackOnError,
			})
			if n.continueOnAgentError {
				n.logger.Warn("network.agent.failed", "agent_id", id, "step", stepNum, "error", err)
				ag.Terminate()
				continue
			}
			return core.StepRecord{}, fmt.Errorf("agent %q: %w", id, err)
		}

		if err := n.callbacks.ExecuteCallbacks(ctx, CallbackAfterAgent, &CallbackContext{
			EpisodeID:    episode.ID,
			Step:         stepNum,
			AgentID:      id,
			Output:       &out,
			CallbackType: CallbackAfterAgent,
		}); err != nil {
			return core.StepRecord{}, fmt.Errorf("after agent callback: %w", err)
		}

		if out.Terminated {
			ag.Terminate()
		}

		for i := range out.ToolInvocations {
			if out.ToolInvocations[i].ID == "" {
				out.ToolInvocations[i].ID = core.NewID()
			}
			if out.ToolInvocations[i].Caller == "" {
				out.ToolInvocations[i].Caller = id
			}
			callerByID[out.ToolInvocations[i].ID] = id
			invocations = append(invocations, out.ToolInvocations[i])
		}

		outputs[id] = out
	}

	if n.mode == ModeStreaming && len(invocations) > 0 {
		n.dispatchStreaming(ctx, agents, callerByID, invocations)
	}

	for _, id := range order {
		out, ok := outputs[id]
		if !ok {
			continue
		}
		for _, msg := range out.Messages {
			if msg.Sender == "" {
				msg.Sender = id
			}
			n.routeMessage(agents, order, id, msg)
		}
	}

	input := core.StepInput{Actions: make(map[string]map[string]any)}
	for _, id := range order {
		if out, ok := outputs[id]; ok && len(out.EnvironmentActions) > 0 {
			input.Actions[id] = out.EnvironmentActions
		}
	}
	if n.mode == ModeOffline {
		input.ToolInvocations = invocations
	}

	result, err := n.environment.Step(ctx, input)
	if err != nil {
		return core.StepRecord{}, fmt.Errorf("environment step: %w", err)
	}

	if n.mode == ModeOffline {
		for _, res := range result.ToolResponses {
			caller, ok := callerByID[res.ID]
			if !ok {
				n.logger.Warn("network.tool_result.dropped", "tool", res.Tool, "id", res.ID)
				continue
			}
			n.deliverToolResult(ctx, agents, caller, res)
		}
	}

	// Fan observations out for delivery at the start of the next step.
	for _, id := range order {
		if agents[id].Status() == core.StatusTerminated {
			continue
		}
		if obs, ok := result.Observations[id]; ok {
			n.current[id] = obs
		}
	}

	n.stepNum = stepNum
	rec := core.StepRecord{Step: stepNum, Outputs: outputs, Result: result, Timestamp: time.Now()}
	episode.AddStep(rec)
	if n.store != nil {
		if err := n.store.AppendStep(ctx, episode.ID, rec); err != nil {
			return core.StepRecord{}, fmt.Errorf("append step to store: %w", err)
		}
	}

	if result.Done {
		n.finished = true
		episode.Finish()
	}

	if err := n.callbacks.ExecuteCallbacks(ctx, CallbackAfterStep, &CallbackContext{
		EpisodeID:    episode.ID,
		Step:         stepNum,
		Record:       &rec,
		CallbackType: CallbackAfterStep,
	}); err != nil {
		return core.StepRecord{}, fmt.Errorf("after step callback: %w", err)
	}

	n.logger.Debug("network.step.completed",
		"episode_id", episode.ID,
		"step", stepNum,
		"agents", len(outputs),
		"tool_calls", len(invocations),
		"done", result.Done,
	)

	return rec, nil
}

func (n *Network) run(ctx context.Context, numSteps int, emit func(core.StepRecord) error) ([]core.StepRecord, error) {
	if numSteps <= 0 {
		return nil, fmt.Errorf("numSteps must be positive, got %d", numSteps)
	}

	if n.Episode() == nil || n.finished || n.allTerminated() {
		if _, err := n.reset(ctx); err != nil {
			return nil, err
		}
	}

	records := make([]core.StepRecord, 0, numSteps)
	for i := 0; i < numSteps; i++ {
		if err := ctx.Err(); err != nil {
			return records, err
		}
		if n.allTerminated() {
			break
		}

		rec, err := n.step(ctx)
		if err != nil {
			return records, err
		}
		records = append(records, rec)

		if emit != nil {
			if err := emit(rec); err != nil {
				return records, err
			}
		}

		if rec.Result.Done {
			break
		}
	}

	return records, nil
}

// dispatchStreaming submits every invocation, then awaits the handles in
// submission order so results arrive incrementally. Failures become
// error-carrying responses for the caller instead of halting the step.
func (n *Network) dispatchStreaming(ctx context.Context, agents map[string]core.Agent, callerByID map[string]string, invocations []core.ToolInvocation) {
	if n.executor == nil {
		n.logger.Debug("network.tools.skipped", "count", len(invocations))
		return
	}

	type pendingTask struct {
		inv    core.ToolInvocation
		handle core.TaskHandle
	}

	tasks := make([]pendingTask, 0, len(invocations))
	for _, inv := range invocations {
		handle, err := n.executor.Submit(ctx, inv)
		if err != nil {
			n.deliverToolResult(ctx, agents, callerByID[inv.ID], core.ToolResponse{
				ID:   inv.ID,
				Tool: inv.Tool,
				Err:  err.Error(),
			})
			continue
		}
		tasks = append(tasks, pendingTask{inv: inv, handle: handle})
	}

	for _, t := range tasks {
		res, err := t.handle.Await(ctx)
		if err != nil && res.Err == "" {
			res = core.ToolResponse{ID: t.inv.ID, Tool: t.inv.Tool, Err: err.Error()}
		}
		if res.ID == "" {
			res.ID = t.inv.ID
		}
		n.deliverToolResult(ctx, agents, callerByID[t.inv.ID], res)
	}
}

func (n *Network) deliverToolResult(ctx context.Context, agents map[string]core.Agent, caller string, res core.ToolResponse) {
	ag, ok := agents[caller]
	if !ok {
		n.logger.Warn("network.tool_result.dropped", "tool", res.Tool, "caller", caller)
		return
	}
	ag.OnToolResult(ctx, res)
}

// routeMessage queues a message for delivery at the start of the recipient's
// next turn. Broadcasts reach every other registered agent; messages to
// unknown recipients are dropped with a warning.
func (n *Network) routeMessage(agents map[string]core.Agent, order []string, sender string, msg core.Message) {
	if msg.IsBroadcast() {
		for _, rid := range order {
			if rid == sender {
				continue
			}
			n.pendingMsgs[rid] = append(n.pendingMsgs[rid], msg)
		}
		return
	}

	if _, ok := agents[msg.Recipient]; !ok {
		n.logger.Warn("network.message.dropped", "sender", sender, "recipient", msg.Recipient)
		return
	}
	n.pendingMsgs[msg.Recipient] = append(n.pendingMsgs[msg.Recipient], msg)
}

func (n *Network) roster() ([]string, map[string]core.Agent) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	order := make([]string, len(n.order))
	copy(order, n.order)
	agents := make(map[string]core.Agent, len(n.agents))
	for id, ag := range n.agents {
		agents[id] = ag
	}
	return order, agents
}

func (n *Network) allTerminated() bool {
	_, agents := n.roster()
	if len(agents) == 0 {
		return false
	}
	for _, ag := range agents {
		if ag.Status() != core.StatusTerminated {
			return false
		}
	}
	return true
}
