package tool

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hupe1980/agentgym/internal/util"
	"github.com/stretchr/testify/assert"
)

// -------------------- Schema & Validation Tests --------------------

type sampleSchema struct {
	A string `json:"a" jsonschema:"description=Field A"`
	B *int   `json:"b,omitempty" jsonschema:"description=Optional pointer field"`
	C int    `json:"c,omitempty" jsonschema:"description=Omit empty field"`
}

func TestCreateSchema(t *testing.T) {
	schema := util.CreateSchema(sampleSchema{})
	props, ok := schema["properties"].(map[string]any)
	assert.True(t, ok)
	// Properties present
	assert.Contains(t, props, "a")
	assert.Contains(t, props, "b")
	assert.Contains(t, props, "c")
	// Required only includes fields without omitempty
	req, _ := schema["required"].([]string)
	if req == nil { // JSON round trip produces []any
		ifaceReq, _ := schema["required"].([]any)
		for _, v := range ifaceReq {
			req = append(req, v.(string))
		}
	}
	assert.ElementsMatch(t, []string{"a"}, req)
}

func TestValidateParameters(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"x": map[string]any{"type": "integer"},
		},
		// Use []any to mirror possible JSON decoded schema shape
		"required": []any{"x"},
	}

	// Success
	err := util.ValidateParameters(map[string]any{"x": 5}, schema)
	assert.NoError(t, err)

	// Missing required
	err = util.ValidateParameters(map[string]any{}, schema)
	assert.Error(t, err)
	if vErr, ok := err.(*ValidationError); ok {
		assert.Equal(t, "x", vErr.Field)
	} else {
		t.Fatalf("expected ValidationError, got %T", err)
	}

	// Wrong type
	err = util.ValidateParameters(map[string]any{"x": "not-int"}, schema)
	assert.Error(t, err)
	if vErr, ok := err.(*ValidationError); ok {
		assert.Contains(t, vErr.Message, "expected type integer")
	} else {
		t.Fatalf("expected ValidationError, got %T", err)
	}
}

// -------------------- Registry Tests --------------------

func TestRegistry_RegisterAndGet(t *testing.T) {
	reg := NewRegistry()
	echo := NewEchoTool()

	err := reg.Register(echo)
	assert.NoError(t, err)
	assert.True(t, reg.Has("echo"))
	assert.Equal(t, 1, reg.Len())

	got, err := reg.Get("echo")
	assert.NoError(t, err)
	assert.Same(t, echo, got, "registry must return the registered instance")
}

func TestRegistry_DuplicateRegister(t *testing.T) {
	reg := NewRegistry()
	first := NewEchoTool()
	assert.NoError(t, reg.Register(first))

	impostor := NewFunctionTool("echo", "Pretends to echo",
		map[string]any{"type": "object", "properties": map[string]any{}},
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(_ context.Context, _ map[string]any) (map[string]any, error) {
			return map[string]any{}, nil
		},
	)

	err := reg.Register(impostor)
	assert.Error(t, err)
	dupErr, ok := err.(*DuplicateToolError)
	if !ok {
		t.Fatalf("expected DuplicateToolError, got %T", err)
	}
	assert.Equal(t, "echo", dupErr.Name)

	// Original binding untouched
	got, err := reg.Get("echo")
	assert.NoError(t, err)
	assert.Same(t, first, got)
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_GetUnknown(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Get("missing")
	assert.Error(t, err)
	nfErr, ok := err.(*ToolNotFoundError)
	if !ok {
		t.Fatalf("expected ToolNotFoundError, got %T", err)
	}
	assert.Equal(t, "missing", nfErr.Name)
}

func TestRegistry_Unregister(t *testing.T) {
	reg := NewRegistry()
	assert.NoError(t, reg.Register(NewEchoTool()))
	assert.NoError(t, reg.Unregister("echo"))
	assert.False(t, reg.Has("echo"))

	err := reg.Unregister("echo")
	assert.Error(t, err)
	if _, ok := err.(*ToolNotFoundError); !ok {
		t.Fatalf("expected ToolNotFoundError, got %T", err)
	}
}

func TestRegistry_Metadata(t *testing.T) {
	reg := NewRegistry()
	assert.NoError(t, reg.Register(NewEchoTool()))
	assert.NoError(t, reg.Register(NewFunctionTool("adder", "Add numbers",
		map[string]any{"type": "object", "properties": map[string]any{}},
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(_ context.Context, _ map[string]any) (map[string]any, error) {
			return map[string]any{}, nil
		},
	)))

	meta := reg.Metadata()
	assert.Len(t, meta, 2)

	seen := map[string]int{}
	for _, m := range meta {
		seen[m.Name]++
		assert.NotNil(t, m.RequestSchema)
		assert.NotNil(t, m.ResponseSchema)
	}
	// Each tool listed exactly once
	assert.Equal(t, 1, seen["echo"])
	assert.Equal(t, 1, seen["adder"])

	// Sorted by name
	assert.Equal(t, "adder", meta[0].Name)
	assert.Equal(t, "echo", meta[1].Name)
}

func TestRegistry_InvokeRequestValidation(t *testing.T) {
	reg := NewRegistry()

	calls := 0
	strict := NewFunctionTool("strict", "Requires x",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"x": map[string]any{"type": "integer"},
			},
			"required": []string{"x"},
		},
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(_ context.Context, _ map[string]any) (map[string]any, error) {
			calls++
			return map[string]any{}, nil
		},
	)
	assert.NoError(t, reg.Register(strict))

	_, err := reg.Invoke(context.Background(), "strict", map[string]any{})
	assert.Error(t, err)
	svErr, ok := err.(*SchemaValidationError)
	if !ok {
		t.Fatalf("expected SchemaValidationError, got %T", err)
	}
	assert.Equal(t, "request", svErr.Direction)
	assert.Equal(t, "strict", svErr.Tool)
	assert.Equal(t, 0, calls, "tool must not run on invalid request")
}

func TestRegistry_InvokeResponseValidation(t *testing.T) {
	reg := NewRegistry()

	leaky := NewFunctionTool("leaky", "Promises ok but never delivers",
		map[string]any{"type": "object", "properties": map[string]any{}},
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"ok": map[string]any{"type": "boolean"},
			},
			"required": []string{"ok"},
		},
		func(_ context.Context, _ map[string]any) (map[string]any, error) {
			return map[string]any{}, nil
		},
	)
	assert.NoError(t, reg.Register(leaky))

	_, err := reg.Invoke(context.Background(), "leaky", map[string]any{})
	assert.Error(t, err)
	svErr, ok := err.(*SchemaValidationError)
	if !ok {
		t.Fatalf("expected SchemaValidationError, got %T", err)
	}
	assert.Equal(t, "response", svErr.Direction)
}

func TestRegistry_InvokeUnknownTool(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Invoke(context.Background(), "nope", map[string]any{})
	assert.Error(t, err)
	if _, ok := err.(*ToolNotFoundError); !ok {
		t.Fatalf("expected ToolNotFoundError, got %T", err)
	}
}

// -------------------- FunctionTool Tests --------------------

func TestFunctionTool_Success(t *testing.T) {
	params := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"a": map[string]any{"type": "number"},
			"b": map[string]any{"type": "number"},
		},
		"required": []string{"a", "b"},
	}
	result := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"sum": map[string]any{"type": "number"},
		},
		"required": []string{"sum"},
	}

	sumTool := NewFunctionTool("sum", "Add numbers", params, result,
		func(_ context.Context, req map[string]any) (map[string]any, error) {
			a := req["a"].(float64)
			b := req["b"].(float64)
			return map[string]any{"sum": a + b}, nil
		},
	)

	out, err := sumTool.Invoke(context.Background(), map[string]any{"a": 2.0, "b": 3.0})
	assert.NoError(t, err)
	assert.Equal(t, 5.0, out["sum"])
}

func TestFunctionTool_ExecutionError(t *testing.T) {
	empty := map[string]any{"type": "object", "properties": map[string]any{}}
	execTool := NewFunctionTool("fail", "Fails", empty, empty,
		func(_ context.Context, _ map[string]any) (map[string]any, error) {
			return nil, errors.New("boom")
		},
	)

	_, err := execTool.Invoke(context.Background(), map[string]any{})
	assert.Error(t, err)
	toolErr, ok := err.(*ToolError)
	assert.True(t, ok)
	assert.Equal(t, "EXECUTION_ERROR", toolErr.Code)
	assert.Contains(t, toolErr.Message, "boom")
}

func TestFunctionTool_ForwardsToolError(t *testing.T) {
	empty := map[string]any{"type": "object", "properties": map[string]any{}}
	custom := NewFunctionTool("custom", "Custom failure", empty, empty,
		func(_ context.Context, _ map[string]any) (map[string]any, error) {
			return nil, NewToolError("custom", "quota exceeded", "RATE_LIMITED")
		},
	)

	_, err := custom.Invoke(context.Background(), map[string]any{})
	assert.Error(t, err)
	toolErr, ok := err.(*ToolError)
	assert.True(t, ok)
	assert.Equal(t, "RATE_LIMITED", toolErr.Code)
}

func TestFunctionToolFromStructs(t *testing.T) {
	type greetRequest struct {
		Name string `json:"name" jsonschema:"description=Who to greet"`
	}
	type greetResponse struct {
		Greeting string `json:"greeting"`
	}

	greeter := NewFunctionToolFromStructs("greet", "Greet someone", greetRequest{}, greetResponse{},
		func(_ context.Context, req map[string]any) (map[string]any, error) {
			return map[string]any{"greeting": "hello " + req["name"].(string)}, nil
		},
	)

	props, ok := greeter.RequestSchema()["properties"].(map[string]any)
	assert.True(t, ok)
	assert.Contains(t, props, "name")

	reg := NewRegistry()
	assert.NoError(t, reg.Register(greeter))

	out, err := reg.Invoke(context.Background(), "greet", map[string]any{"name": "gopher"})
	assert.NoError(t, err)
	assert.Equal(t, "hello gopher", out["greeting"])
}

// -------------------- EchoTool Tests --------------------

func TestEchoTool_RoundTrip(t *testing.T) {
	reg := NewRegistry()
	assert.NoError(t, reg.Register(NewEchoTool()))

	out, err := reg.Invoke(context.Background(), "echo", map[string]any{"text": "hi"})
	assert.NoError(t, err)
	assert.Equal(t, "hi", out["text"])
	assert.Equal(t, 2, out["length"])
}

func TestEchoTool_MissingText(t *testing.T) {
	reg := NewRegistry()
	assert.NoError(t, reg.Register(NewEchoTool()))

	_, err := reg.Invoke(context.Background(), "echo", map[string]any{"message": "hi"})
	assert.Error(t, err)
	svErr, ok := err.(*SchemaValidationError)
	if !ok {
		t.Fatalf("expected SchemaValidationError, got %T", err)
	}
	assert.Equal(t, "request", svErr.Direction)
}

// -------------------- ToolError Formatting --------------------

func TestToolErrorFormatting(t *testing.T) {
	err := NewToolError("demo", "something failed", "E123")
	assert.Contains(t, err.Error(), "E123")
	assert.Contains(t, err.Error(), "demo")
}

// Ensure tests run quickly (sanity)
func TestToolPackageTestDuration(t *testing.T) {
	start := time.Now()
	// no-op
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}
