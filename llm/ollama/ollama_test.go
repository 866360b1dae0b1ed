package ollama

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentgym/llm"
)

func TestBuildTools(t *testing.T) {
	tools, err := buildTools([]llm.ToolSpec{{
		Name:        "echo",
		Description: "Echo the provided text back to the caller",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text": map[string]any{"type": "string"},
			},
			"required": []string{"text"},
		},
	}})
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "function", tools[0].Type)
	assert.Equal(t, "echo", tools[0].Function.Name)
}

func TestBuildTools_Empty(t *testing.T) {
	tools, err := buildTools(nil)
	require.NoError(t, err)
	assert.Nil(t, tools)
}

func TestBuildRequest_Roles(t *testing.T) {
	c, err := New(func(o *Options) { o.Model = "llama3" })
	require.NoError(t, err)

	req := llm.NewRequest([]llm.Message{
		llm.UserMessage("hi"),
		llm.AssistantMessage("hello"),
		llm.ToolMessage(`{"ok":true}`),
	}, func(o *llm.RequestOptions) {
		o.System = "be brief"
		o.MaxTokens = 64
	})

	chatReq, err := c.buildRequest(req, false)
	require.NoError(t, err)
	require.Len(t, chatReq.Messages, 4)
	assert.Equal(t, "system", chatReq.Messages[0].Role)
	assert.Equal(t, "user", chatReq.Messages[1].Role)
	assert.Equal(t, "assistant", chatReq.Messages[2].Role)
	assert.Equal(t, "tool", chatReq.Messages[3].Role)
	assert.Equal(t, "llama3", chatReq.Model)
	assert.False(t, *chatReq.Stream)
	assert.Equal(t, 64, chatReq.Options["num_predict"])
}
