// Package ollama provides an llm.Client for models served by a local Ollama
// instance. The host is taken from the options or the OLLAMA_HOST
// environment variable, defaulting to http://localhost:11434.
package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	api "github.com/ollama/ollama/api"

	"github.com/hupe1980/agentgym/llm"
)

// Options configures the Ollama client adapter.
type Options struct {
	// Model is the Ollama model tag, e.g. "llama3".
	Model string
	// Host overrides OLLAMA_HOST.
	Host string
	// Temperature passed through as a model option.
	Temperature float64
	// HTTPTimeout bounds a single request round trip.
	HTTPTimeout time.Duration
}

// Client wraps the Ollama HTTP API behind the generic llm.Client interface.
type Client struct {
	client *api.Client
	opts   Options
}

// New creates a new Ollama client.
func New(optFns ...func(o *Options)) (*Client, error) {
	opts := Options{
		Model:       "llama3",
		Temperature: 0.7,
		HTTPTimeout: 60 * time.Second,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	host := opts.Host
	if host == "" {
		host = os.Getenv("OLLAMA_HOST")
	}
	if host == "" {
		host = "http://localhost:11434"
	}

	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}

	httpClient := &http.Client{
		Timeout: opts.HTTPTimeout,
	}

	return &Client{
		client: api.NewClient(u, httpClient),
		opts:   opts,
	}, nil
}

// Complete implements llm.Client.
func (c *Client) Complete(ctx context.Context, prompt string, optFns ...func(o *llm.RequestOptions)) (*llm.Result, error) {
	return c.Chat(ctx, []llm.Message{llm.UserMessage(prompt)}, optFns...)
}

// Chat implements llm.Client.
func (c *Client) Chat(ctx context.Context, messages []llm.Message, optFns ...func(o *llm.RequestOptions)) (*llm.Result, error) {
	req := llm.NewRequest(messages, optFns...)

	chatReq, err := c.buildRequest(req, false)
	if err != nil {
		return nil, &llm.RequestError{Provider: "ollama", Model: c.modelFor(req), Err: err}
	}

	var (
		text strings.Builder
		last api.ChatResponse
	)

	start := time.Now()

	err = c.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
		if resp.Message.Content != "" {
			text.WriteString(resp.Message.Content)
		}
		last = resp
		return nil
	})
	if err != nil {
		return nil, c.convertError(chatReq.Model, time.Since(start), err)
	}

	result := &llm.Result{
		Text: text.String(),
		Raw:  last,
		Usage: llm.Usage{
			InputTokens:  last.PromptEvalCount,
			OutputTokens: last.EvalCount,
			TotalTokens:  last.PromptEvalCount + last.EvalCount,
		},
	}

	for _, tc := range last.Message.ToolCalls {
		result.ToolCalls = append(result.ToolCalls, llm.ToolCall{
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments.String(),
		})
	}

	return result, nil
}

// Stream implements llm.Client; each callback delivery becomes one chunk.
func (c *Client) Stream(ctx context.Context, messages []llm.Message, optFns ...func(o *llm.RequestOptions)) (<-chan llm.StreamChunk, <-chan error) {
	out := make(chan llm.StreamChunk, 32)
	errCh := make(chan error, 1)

	req := llm.NewRequest(messages, optFns...)

	go func() {
		defer close(out)
		defer close(errCh)

		chatReq, err := c.buildRequest(req, true)
		if err != nil {
			errCh <- &llm.RequestError{Provider: "ollama", Model: c.modelFor(req), Err: err}
			return
		}

		start := time.Now()

		err = c.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
			if resp.Message.Content == "" {
				return nil
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case out <- llm.StreamChunk{TextDelta: resp.Message.Content, Raw: resp}:
				return nil
			}
		})
		if err != nil {
			errCh <- c.convertError(chatReq.Model, time.Since(start), err)
		}
	}()

	return out, errCh
}

// Info returns metadata describing this Ollama client implementation.
func (c *Client) Info() llm.Info {
	return llm.Info{Provider: "ollama", Model: c.opts.Model}
}

func (c *Client) modelFor(req llm.Request) string {
	if req.Model != "" {
		return req.Model
	}

	return c.opts.Model
}

// buildRequest assembles an Ollama chat request from the normalized input.
func (c *Client) buildRequest(req llm.Request, stream bool) (*api.ChatRequest, error) {
	msgs := make([]api.Message, 0, len(req.Messages)+1)

	if req.System != "" {
		msgs = append(msgs, api.Message{Role: "system", Content: req.System})
	}

	for _, m := range req.Messages {
		msgs = append(msgs, api.Message{Role: string(m.Role), Content: m.Content})
	}

	temperature := c.opts.Temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}

	options := map[string]any{
		"temperature": temperature,
	}
	if req.MaxTokens > 0 {
		options["num_predict"] = req.MaxTokens
	}

	tools, err := buildTools(req.Tools)
	if err != nil {
		return nil, err
	}

	return &api.ChatRequest{
		Model:    c.modelFor(req),
		Messages: msgs,
		Stream:   &stream,
		Tools:    tools,
		Options:  options,
	}, nil
}

// buildTools converts tool specs to the Ollama tool format. The typed
// parameter schema is deeply nested, so the conversion goes through the wire
// format.
func buildTools(specs []llm.ToolSpec) (api.Tools, error) {
	if len(specs) == 0 {
		return nil, nil
	}

	raw := make([]map[string]any, len(specs))
	for i, spec := range specs {
		raw[i] = map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        spec.Name,
				"description": spec.Description,
				"parameters":  spec.Schema,
			},
		}
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("marshal tool declarations: %w", err)
	}

	var tools api.Tools
	if err := json.Unmarshal(data, &tools); err != nil {
		return nil, fmt.Errorf("unmarshal tool declarations: %w", err)
	}

	return tools, nil
}

// convertError maps API failures to the llm error taxonomy, preserving the
// HTTP status when the API exposes one.
func (c *Client) convertError(model string, elapsed time.Duration, err error) error {
	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		return &llm.RequestError{Provider: "ollama", Model: model, StatusCode: statusErr.StatusCode, Err: err}
	}

	return llm.ConvertError("ollama", model, elapsed, err)
}
