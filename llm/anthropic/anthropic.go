// Package anthropic provides an llm.Client wrapper for the Anthropic Claude
// API.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"
	"github.com/hupe1980/agentgym/llm"
)

// Options configures the Anthropic client adapter (temperature, model id,
// max tokens, API key). Extend via functional options to preserve stability.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Client wraps the Anthropic Messages API behind the generic llm.Client
// interface.
type Client struct {
	client *anthropic.Client
	opts   Options
}

// New creates a new Anthropic client using the official SDK. Without an
// explicit APIKey the SDK reads ANTHROPIC_API_KEY.
func New(optFns ...func(o *Options)) *Client {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	client := anthropic.NewClient(clientOpts...)

	return &Client{
		client: &client,
		opts:   opts,
	}
}

// NewFromClient creates a new Anthropic client from an existing SDK client.
func NewFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Client {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Client{
		client: client,
		opts:   opts,
	}
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

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, c.convertError(string(params.Model), time.Since(start), err)
	}

	result := &llm.Result{
		Raw: resp,
		Usage: llm.Usage{
			InputTokens:  int(resp.Usage.InputTokens),
			OutputTokens: int(resp.Usage.OutputTokens),
			TotalTokens:  int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
	}

	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			result.Text += block.AsText().Text
		case "tool_use":
			toolBlock := block.AsToolUse()

			args := ""
			if toolBlock.Input != nil {
				if argsBytes, err := json.Marshal(toolBlock.Input); err == nil {
					args = string(argsBytes)
				}
			}

			result.ToolCalls = append(result.ToolCalls, llm.ToolCall{
				ID:        toolBlock.ID,
				Name:      toolBlock.Name,
				Arguments: args,
			})
		}
	}

	return result, nil
}

// Stream implements llm.Client; forwards text deltas from the Messages
// streaming API.
func (c *Client) Stream(ctx context.Context, messages []llm.Message, optFns ...func(o *llm.RequestOptions)) (<-chan llm.StreamChunk, <-chan error) {
	out := make(chan llm.StreamChunk, 32)
	errCh := make(chan error, 1)

	req := llm.NewRequest(messages, optFns...)
	params := c.buildParams(req)

	go func() {
		defer close(out)
		defer close(errCh)

		start := time.Now()

		stream := c.client.Messages.NewStreaming(ctx, params)
		for stream.Next() {
			event := stream.Current()

			deltaEvent, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent)
			if !ok {
				continue
			}

			textDelta, ok := deltaEvent.Delta.AsAny().(anthropic.TextDelta)
			if !ok || textDelta.Text == "" {
				continue
			}

			select {
			case <-ctx.Done():
				errCh <- c.convertError(string(params.Model), time.Since(start), ctx.Err())
				return
			case out <- llm.StreamChunk{TextDelta: textDelta.Text, Raw: event}:
			}
		}

		if err := stream.Err(); err != nil {
			errCh <- c.convertError(string(params.Model), time.Since(start), err)
		}
	}()

	return out, errCh
}

// Info returns metadata describing this Anthropic client implementation.
func (c *Client) Info() llm.Info {
	return llm.Info{Provider: "anthropic", Model: string(c.opts.Model)}
}

// buildParams assembles the Messages API parameters including system blocks
// and tool declarations.
func (c *Client) buildParams(req llm.Request) anthropic.MessageNewParams {
	model := c.opts.Model
	if req.Model != "" {
		model = anthropic.Model(req.Model)
	}

	maxTokens := c.opts.MaxTokens
	if req.MaxTokens > 0 {
		maxTokens = int64(req.MaxTokens)
	}

	temperature := c.opts.Temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}

	params := anthropic.MessageNewParams{
		Model:       model,
		Messages:    buildMessages(req.Messages),
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(temperature),
	}

	if systemBlocks := extractSystem(req); len(systemBlocks) > 0 {
		params.System = systemBlocks
	}

	if len(req.Tools) > 0 {
		params.Tools = buildTools(req.Tools)
	}

	return params
}

// buildMessages converts normalized messages to the Anthropic message
// format. The normalized tool role carries no call id, so tool results are
// surfaced as user messages framed as tool output.
func buildMessages(messages []llm.Message) []anthropic.MessageParam {
	var out []anthropic.MessageParam

	for _, m := range messages {
		if m.Content == "" || m.Role == llm.RoleSystem {
			continue // System messages handled separately
		}

		switch m.Role {
		case llm.RoleAssistant:
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		case llm.RoleTool:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock("Tool result: "+m.Content)))
		default:
			// Treat unknown roles as user
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	return out
}

// extractSystem collects the system instruction blocks from the request.
func extractSystem(req llm.Request) []anthropic.TextBlockParam {
	var blocks []anthropic.TextBlockParam

	if req.System != "" {
		blocks = append(blocks, anthropic.TextBlockParam{Text: req.System})
	}

	for _, m := range req.Messages {
		if m.Role == llm.RoleSystem && m.Content != "" {
			blocks = append(blocks, anthropic.TextBlockParam{Text: m.Content})
		}
	}

	return blocks
}

// buildTools converts tool specs to the Anthropic tool format.
func buildTools(specs []llm.ToolSpec) []anthropic.ToolUnionParam {
	tools := make([]anthropic.ToolUnionParam, len(specs))

	for i, spec := range specs {
		inputSchema := anthropic.ToolInputSchemaParam{
			Type: constant.Object("object"),
		}

		if spec.Schema != nil {
			if properties, exists := spec.Schema["properties"]; exists {
				inputSchema.Properties = properties
			}

			if required, exists := spec.Schema["required"]; exists {
				if reqSlice, ok := required.([]string); ok {
					inputSchema.Required = reqSlice
				} else if reqIface, ok := required.([]interface{}); ok {
					var reqStrings []string
					for _, r := range reqIface {
						if s, ok := r.(string); ok {
							reqStrings = append(reqStrings, s)
						}
					}
					inputSchema.Required = reqStrings
				}
			}
		}

		tools[i] = anthropic.ToolUnionParamOfTool(inputSchema, spec.Name)
	}

	return tools
}

// convertError maps SDK failures to the llm error taxonomy, preserving the
// HTTP status when the SDK exposes one.
func (c *Client) convertError(model string, elapsed time.Duration, err error) error {
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		return &llm.RequestError{Provider: "anthropic", Model: model, StatusCode: apierr.StatusCode, Err: err}
	}

	return llm.ConvertError("anthropic", model, elapsed, err)
}
