package tool

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/agentgym/core"
	"github.com/hupe1980/agentgym/internal/util"
	"github.com/hupe1980/agentgym/logging"
)

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	// Logger receives registration and invocation logs. Defaults to no-op.
	Logger logging.Logger
}

// Registry maps unique tool names to Tool instances and routes invocation by
// name. Requests are validated against the tool's request schema before the
// call and responses against its response schema after it. Safe for
// concurrent use.
//
// Invariant: no two tools share a name within one registry. Insertion order
// is irrelevant; Names and Metadata list tools sorted by name.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]Tool
	logger logging.Logger
}

// NewRegistry creates an empty tool registry.
func NewRegistry(optFns ...func(o *RegistryOptions)) *Registry {
	opts := RegistryOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Registry{
		tools:  map[string]Tool{},
		logger: core.EnsureLogger(opts.Logger),
	}
}

// Register makes the tool invocable by name. It fails with
// *DuplicateToolError when the name is already taken, leaving the existing
// registration untouched.
func (r *Registry) Register(t Tool) error {
	if t == nil || t.Name() == "" {
		return fmt.Errorf("tool must have a non-empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[t.Name()]; exists {
		return &DuplicateToolError{Name: t.Name()}
	}
	r.tools[t.Name()] = t

	r.logger.Debug("tool.registered", "tool", t.Name())

	return nil
}

// Unregister removes a tool by name. It fails with *ToolNotFoundError when
// no tool with that name exists.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; !exists {
		return &ToolNotFoundError{Name: name}
	}
	delete(r.tools, name)

	r.logger.Debug("tool.unregistered", "tool", name)

	return nil
}

// Get returns the registered tool instance. It fails with
// *ToolNotFoundError when absent.
func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, exists := r.tools[name]
	if !exists {
		return nil, &ToolNotFoundError{Name: name}
	}
	return t, nil
}

// Has reports whether a tool with the given name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.tools[name]
	return exists
}

// Names returns the registered tool names sorted alphabetically.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Metadata produces one entry per registered tool (name, description and both
// schemas), sorted by name. The slice is rebuilt on every call so callers can
// iterate it repeatedly without aliasing registry state.
func (r *Registry) Metadata() []core.ToolMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	meta := make([]core.ToolMetadata, 0, len(names))
	for _, name := range names {
		t := r.tools[name]
		meta = append(meta, core.ToolMetadata{
			Name:           t.Name(),
			Description:    t.Description(),
			RequestSchema:  t.RequestSchema(),
			ResponseSchema: t.ResponseSchema(),
		})
	}
	return meta
}

// Invoke looks up the tool, validates the request against its request
// schema, executes it, validates the response against its response schema
// and returns it.
//
// Error Semantics:
//
//	*ToolNotFoundError      -> unknown tool name
//	*SchemaValidationError  -> request or response schema mismatch; the tool
//	                           is never called on a request mismatch
//	other error             -> forwarded from the tool's own Invoke
func (r *Registry) Invoke(ctx context.Context, name string, request map[string]any) (map[string]any, error) {
	t, err := r.Get(name)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	r.logger.Debug("tool.invoke.start", "tool", name)

	if err := util.ValidateParameters(request, t.RequestSchema()); err != nil {
		r.logger.Warn("tool.invoke.request_invalid", "tool", name, "error", err.Error())

		return nil, &SchemaValidationError{Tool: name, Direction: "request", Err: err}
	}

	response, err := t.Invoke(ctx, request)
	if err != nil {
		r.logger.Error("tool.invoke.error", "tool", name, "error", err.Error())

		return nil, err
	}

	if err := util.ValidateParameters(response, t.ResponseSchema()); err != nil {
		r.logger.Warn("tool.invoke.response_invalid", "tool", name, "error", err.Error())

		return nil, &SchemaValidationError{Tool: name, Direction: "response", Err: err}
	}

	r.logger.Info("tool.invoke.success", "tool", name, "duration_ms", time.Since(start).Milliseconds())

	return response, nil
}
