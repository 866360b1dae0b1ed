package executor

import (
	"context"

	"github.com/hupe1980/agentgym/core"
)

// Sandbox isolates tool execution when the executor runs under
// PolicySandboxed. The executor hands the boundary the invocation and an
// invoke callback that performs the actual registry dispatch; the boundary
// decides how (and whether) to call it. Implementations own the isolation
// internals, resource limits and cleanup.
//
// Without a configured Sandbox the executor falls back to synchronous
// dispatch, so a boundary is an extension point rather than a requirement.
type Sandbox interface {
	// Run executes one invocation inside the boundary. The invoke callback
	// performs the registry dispatch; ctx carries the executor's deadline.
	Run(ctx context.Context, inv core.ToolInvocation, invoke func(ctx context.Context) (map[string]any, error)) (map[string]any, error)
}
