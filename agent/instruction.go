package agent

import "context"

// Provider supplies dynamic instruction text at runtime.
// Implementations can derive instructions from agent scratch state, the
// episode so far, external systems, etc.
type Provider interface {
	Instruction(ctx context.Context, state map[string]any) (string, error)
}

// Func is a functional adapter to allow ordinary functions to be used as
// Providers.
type Func func(ctx context.Context, state map[string]any) (string, error)

// Instruction implements Provider.
func (f Func) Instruction(ctx context.Context, state map[string]any) (string, error) {
	return f(ctx, state)
}

// Instruction represents either a static instruction string or a dynamic
// provider. This mirrors a union of string | provider in a Go-idiomatic way.
type Instruction struct {
	text     string
	provider Provider
}

// NewInstructionFromText creates an Instruction from a static string. The
// text may contain template markers that the agent renders against its
// scratch state each turn.
func NewInstructionFromText(text string) Instruction { return Instruction{text: text} }

// NewInstructionFromProvider creates an Instruction from a dynamic provider.
func NewInstructionFromProvider(p Provider) Instruction { return Instruction{provider: p} }

// NewInstructionFromFunc creates an Instruction from a function.
func NewInstructionFromFunc(f func(ctx context.Context, state map[string]any) (string, error)) Instruction {
	return Instruction{provider: Func(f)}
}

// IsStatic returns true if the instruction is backed by a static string.
func (i Instruction) IsStatic() bool { return i.provider == nil }

// Resolve returns the instruction text, invoking the provider if needed.
// Template rendering of the result is the caller's concern.
func (i Instruction) Resolve(ctx context.Context, state map[string]any) (string, error) {
	if i.provider != nil {
		return i.provider.Instruction(ctx, state)
	}

	return i.text, nil
}
