// Package openai provides an implementation of llm.Client using the OpenAI
// Chat Completions API (including streaming + function/tool calling). It
// adapts AgentGym's normalized message format into the SDK's message format
// and back.
package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/agentgym/llm"
	"github.com/openai/openai-go"
)

// Options configure the OpenAI client adapter.
// Fields mirror a subset of Chat Completion parameters intentionally kept
// minimal; extend via functional options without breaking callers.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int64
}

// Client wraps the OpenAI Chat Completions API behind the generic llm.Client
// interface.
type Client struct {
	client *openai.Client
	opts   Options
}

// New creates a new OpenAI client using the official SDK; the API key is
// read from the OPENAI_API_KEY environment variable.
func New(optFns ...func(o *Options)) *Client {
	client := openai.NewClient()
	return NewFromClient(&client, optFns...)
}

// NewFromClient creates a new OpenAI client from an existing SDK client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Client {
	opts := Options{
		Model:       openai.ChatModelGPT4oMini,
		Temperature: 0.7,
		MaxTokens:   4096,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Client{client: client, opts: opts}
}

// Complete implements llm.Client.
func (c *Client) Complete(ctx context.Context, prompt string, optFns ...func(o *llm.RequestOptions)) (*llm.Result, error) {
	return c.Chat(ctx, []llm.Message{llm.UserMessage(prompt)}, optFns...)
}

// Chat implements llm.Client.
func (c *Client) Chat(ctx context.Context, messages []llm.Message, optFns ...func(o *llm.RequestOptions)) (*llm.Result, error) {
	req := llm.NewRequest(messages, optFns...)
	params := c.buildParams(req)

	start := time.Now()

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, c.convertError(params.Model, time.Since(start), err)
	}

	if len(resp.Choices) == 0 {
		return nil, &llm.RequestError{Provider: "openai", Model: params.Model, Err: fmt.Errorf("no choices returned")}
	}

	msg := resp.Choices[0].Message

	result := &llm.Result{
		Text: msg.Content,
		Raw:  resp,
		Usage: llm.Usage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:  int(resp.Usage.TotalTokens),
		},
	}

	for _, tc := range msg.ToolCalls {
		result.ToolCalls = append(result.ToolCalls, llm.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	return result, nil
}

// Stream implements llm.Client; forwards text deltas as they arrive.
func (c *Client) Stream(ctx context.Context, messages []llm.Message, optFns ...func(o *llm.RequestOptions)) (<-chan llm.StreamChunk, <-chan error) {
	out := make(chan llm.StreamChunk, 32)
	errCh := make(chan error, 1)

	req := llm.NewRequest(messages, optFns...)
	params := c.buildParams(req)

	go func() {
		defer close(out)
		defer close(errCh)

		start := time.Now()

		stream := c.client.Chat.Completions.NewStreaming(ctx, params)
		for stream.Next() {
			ck := stream.Current()
			for _, choice := range ck.Choices {
				if choice.Delta.Content == "" {
					continue
				}

				select {
				case <-ctx.Done():
					errCh <- c.convertError(params.Model, time.Since(start), ctx.Err())
					return
				case out <- llm.StreamChunk{TextDelta: choice.Delta.Content, Raw: ck}:
				}
			}
		}

		if err := stream.Err(); err != nil {
			errCh <- c.convertError(params.Model, time.Since(start), err)
		}
	}()

	return out, errCh
}

// Info returns metadata describing this OpenAI client implementation.
func (c *Client) Info() llm.Info {
	return llm.Info{Provider: "openai", Model: c.opts.Model}
}

// buildParams assembles the OpenAI request parameters including tool
// definitions.
func (c *Client) buildParams(req llm.Request) openai.ChatCompletionNewParams {
	model := c.opts.Model
	if req.Model != "" {
		model = req.Model
	}

	maxTokens := c.opts.MaxTokens
	if req.MaxTokens > 0 {
		maxTokens = int64(req.MaxTokens)
	}

	temperature := c.opts.Temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}

	params := openai.ChatCompletionNewParams{
		Messages:            buildMessages(req),
		Model:               model,
		Temperature:         openai.Float(temperature),
		MaxCompletionTokens: openai.Int(maxTokens),
	}

	if len(req.Tools) == 0 {
		return params
	}

	tools := make([]openai.ChatCompletionToolParam, len(req.Tools))
	for i, spec := range req.Tools {
		tools[i] = openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        spec.Name,
				Description: openai.String(spec.Description),
				Parameters:  spec.Schema,
			},
		}
	}
	params.Tools = tools

	return params
}

// buildMessages converts normalized messages into OpenAI chat messages. The
// normalized tool role carries no call id, so tool results are surfaced as
// user messages framed as tool output.
func buildMessages(req llm.Request) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)

	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}

	for _, m := range req.Messages {
		switch m.Role {
		case llm.RoleSystem:
			messages = append(messages, openai.SystemMessage(m.Content))
		case llm.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		case llm.RoleTool:
			messages = append(messages, openai.UserMessage("Tool result: "+m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	return messages
}

// convertError maps SDK failures to the llm error taxonomy, preserving the
// HTTP status when the SDK exposes one.
func (c *Client) convertError(model string, elapsed time.Duration, err error) error {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		return &llm.RequestError{Provider: "openai", Model: model, StatusCode: apierr.StatusCode, Err: err}
	}

	return llm.ConvertError("openai", model, elapsed, err)
}
