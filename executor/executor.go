// Package executor dispatches tool invocations against a registry under a
// configurable execution policy.
//
// Policies:
//   - PolicySync: invoke inline and block until the response is ready.
//   - PolicyAsync: schedule on a bounded worker pool; callers hold a
//     core.TaskHandle and poll or await completion.
//   - PolicySandboxed: route the invocation through a Sandbox boundary;
//     without a configured Sandbox the call degrades to synchronous dispatch.
//
// The executor never panics: panics inside tools are recovered and surfaced
// as *ExecutionError values carrying the captured stack. A configured
// timeout converts slow invocations into *ExecutionError values whose
// Timeout method reports true.
package executor

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/hupe1980/agentgym/core"
	"github.com/hupe1980/agentgym/logging"
	"github.com/hupe1980/agentgym/tool"
)

// Policy selects how Execute dispatches an invocation.
type Policy int

const (
	// PolicySync runs invocations inline on the caller's goroutine.
	PolicySync Policy = iota
	// PolicyAsync schedules invocations on the worker pool.
	PolicyAsync
	// PolicySandboxed routes invocations through the configured Sandbox.
	PolicySandboxed
)

// String returns a human-readable policy label.
func (p Policy) String() string {
	switch p {
	case PolicySync:
		return "sync"
	case PolicyAsync:
		return "async"
	case PolicySandboxed:
		return "sandboxed"
	default:
		return "unknown"
	}
}

// Options configures an Executor.
type Options struct {
	// Policy selects the dispatch strategy used by Execute.
	Policy Policy
	// MaxWorkers bounds concurrently running submitted invocations.
	MaxWorkers int
	// Timeout caps a single invocation. Zero means no limit.
	Timeout time.Duration
	// Sandbox is consulted when Policy is PolicySandboxed.
	Sandbox Sandbox
	// Logger receives structured execution logs.
	Logger logging.Logger
}

// Executor executes tool invocations against a registry. Implementations of
// the dispatch paths must:
//   - Respect ctx cancellation
//   - Never panic (recover internally and convert to *ExecutionError)
//   - Produce exactly one response per invocation
//   - Preserve the invocation id and tool name on every response
type Executor struct {
	registry *tool.Registry
	opts     Options
	logger   logging.Logger
	sem      chan struct{}
}

// New creates an Executor bound to the given registry.
func New(registry *tool.Registry, optFns ...func(o *Options)) *Executor {
	opts := Options{
		Policy:     PolicySync,
		MaxWorkers: 4,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.MaxWorkers < 1 {
		opts.MaxWorkers = 1
	}

	return &Executor{
		registry: registry,
		opts:     opts,
		logger:   core.EnsureLogger(opts.Logger),
		sem:      make(chan struct{}, opts.MaxWorkers),
	}
}

// Policy returns the configured dispatch policy.
func (e *Executor) Policy() Policy { return e.opts.Policy }

// Execute runs a single invocation according to the configured policy and
// blocks until the response is ready. The returned response always carries
// the invocation id and tool name; on failure its Err field mirrors the
// returned error so batch dispatchers can forward it without rebuilding.
func (e *Executor) Execute(ctx context.Context, inv core.ToolInvocation) (core.ToolResponse, error) {
	if inv.ID == "" {
		inv.ID = core.NewID()
	}

	if e.opts.Policy == PolicyAsync {
		handle, err := e.Submit(ctx, inv)
		if err != nil {
			return failureResponse(inv, err), err
		}

		return handle.Await(ctx)
	}

	start := time.Now()
	output, err := e.run(ctx, inv)
	err = e.classify(inv, err)
	dur := time.Since(start)

	if err != nil {
		e.logger.Error("executor.tool.error",
			"tool", inv.Tool,
			"invocation_id", inv.ID,
			"duration_ms", dur.Milliseconds(),
			"error", err.Error(),
		)

		return failureResponse(inv, err), err
	}

	e.logger.Debug("executor.tool.executed",
		"tool", inv.Tool,
		"invocation_id", inv.ID,
		"duration_ms", dur.Milliseconds(),
	)

	return core.ToolResponse{ID: inv.ID, Tool: inv.Tool, Output: output}, nil
}

// Submit schedules the invocation on the worker pool and returns immediately
// with a handle in state TaskPending. The handle's Poll is non-blocking and
// Await blocks until completion or ctx cancellation; completed handles are
// idempotent.
func (e *Executor) Submit(ctx context.Context, inv core.ToolInvocation) (core.TaskHandle, error) {
	if inv.Tool == "" {
		return nil, fmt.Errorf("invocation must name a tool")
	}

	if inv.ID == "" {
		inv.ID = core.NewID()
	}

	task := newTask(inv)

	e.logger.Debug("executor.task.submitted", "tool", inv.Tool, "invocation_id", inv.ID)

	go func() {
		// Wait for a pool slot unless the caller gives up first.
		select {
		case e.sem <- struct{}{}:
		case <-ctx.Done():
			err := e.classify(inv, ctx.Err())
			task.complete(failureResponse(inv, err), err)
			return
		}
		defer func() { <-e.sem }()

		start := time.Now()
		output, err := e.run(ctx, inv)
		err = e.classify(inv, err)
		dur := time.Since(start)

		if err != nil {
			e.logger.Error("executor.tool.error",
				"tool", inv.Tool,
				"invocation_id", inv.ID,
				"duration_ms", dur.Milliseconds(),
				"error", err.Error(),
			)
			task.complete(failureResponse(inv, err), err)
			return
		}

		e.logger.Debug("executor.tool.executed",
			"tool", inv.Tool,
			"invocation_id", inv.ID,
			"duration_ms", dur.Milliseconds(),
		)
		task.complete(core.ToolResponse{ID: inv.ID, Tool: inv.Tool, Output: output}, nil)
	}()

	return task, nil
}

// run dispatches one invocation, applying the sandbox seam, panic recovery
// and the configured timeout.
func (e *Executor) run(ctx context.Context, inv core.ToolInvocation) (map[string]any, error) {
	if e.opts.Timeout <= 0 {
		return e.dispatch(ctx, inv)
	}

	ctx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	type outcome struct {
		output map[string]any
		err    error
	}

	// Buffered so a late tool return never blocks the goroutine.
	done := make(chan outcome, 1)

	go func() {
		output, err := e.dispatch(ctx, inv)
		done <- outcome{output: output, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, &ExecutionError{
			InvocationID: inv.ID,
			Tool:         inv.Tool,
			Err:          ctx.Err(),
			timeout:      errors.Is(ctx.Err(), context.DeadlineExceeded),
		}
	case oc := <-done:
		return oc.output, oc.err
	}
}

// dispatch invokes through the registry, routing through the sandbox when
// the policy asks for it. Panics are converted to *ExecutionError.
func (e *Executor) dispatch(ctx context.Context, inv core.ToolInvocation) (output map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ExecutionError{
				InvocationID: inv.ID,
				Tool:         inv.Tool,
				Err:          fmt.Errorf("panic: %v", r),
				Stack:        debug.Stack(),
			}
			e.logger.Error("executor.tool.panic", "tool", inv.Tool, "invocation_id", inv.ID, "recover", fmt.Sprintf("%v", r))
		}
	}()

	invoke := func(ctx context.Context) (map[string]any, error) {
		return e.registry.Invoke(ctx, inv.Tool, inv.Arguments)
	}

	if e.opts.Policy == PolicySandboxed && e.opts.Sandbox != nil {
		return e.opts.Sandbox.Run(ctx, inv, invoke)
	}

	return invoke(ctx)
}

// classify normalizes failures: registry lookup and validation errors pass
// through typed, everything else becomes an *ExecutionError.
func (e *Executor) classify(inv core.ToolInvocation, err error) error {
	if err == nil {
		return nil
	}

	var notFound *tool.ToolNotFoundError
	if errors.As(err, &notFound) {
		return err
	}

	var invalid *tool.SchemaValidationError
	if errors.As(err, &invalid) {
		return err
	}

	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return err
	}

	return &ExecutionError{
		InvocationID: inv.ID,
		Tool:         inv.Tool,
		Err:          err,
		timeout:      errors.Is(err, context.DeadlineExceeded),
	}
}

func failureResponse(inv core.ToolInvocation, err error) core.ToolResponse {
	return core.ToolResponse{ID: inv.ID, Tool: inv.Tool, Err: err.Error()}
}
