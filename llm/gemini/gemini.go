// Package gemini provides an llm.Client for the Google Generative AI API.
// The API key is taken from the options or the GOOGLE_API_KEY /
// GEMINI_API_KEY environment variables.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/hupe1980/agentgym/llm"
)

// Options configures the Gemini client adapter.
type Options struct {
	// Model is the Gemini model id, e.g. "gemini-1.5-flash".
	Model string
	// APIKey overrides the environment lookup.
	APIKey string
	// Temperature passed through to the generation config.
	Temperature float32
	// MaxTokens caps the generated output length when positive.
	MaxTokens int32
}

// Client wraps the Google Generative AI SDK behind the generic llm.Client
// interface.
type Client struct {
	client *genai.Client
	opts   Options
}

// New creates a new Gemini client. The ctx is used for the underlying
// transport setup.
func New(ctx context.Context, optFns ...func(o *Options)) (*Client, error) {
	opts := Options{
		Model:       "gemini-1.5-flash",
		Temperature: 0.7,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	apiKey := opts.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.New("missing GOOGLE_API_KEY or GEMINI_API_KEY")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini init: %w", err)
	}

	return &Client{client: client, opts: opts}, nil
}

// Close releases the underlying SDK connection.
func (c *Client) Close() error { return c.client.Close() }

// Complete implements llm.Client.
func (c *Client) Complete(ctx context.Context, prompt string, optFns ...func(o *llm.RequestOptions)) (*llm.Result, error) {
	return c.Chat(ctx, []llm.Message{llm.UserMessage(prompt)}, optFns...)
}

// Chat implements llm.Client.
func (c *Client) Chat(ctx context.Context, messages []llm.Message, optFns ...func(o *llm.RequestOptions)) (*llm.Result, error) {
	req := llm.NewRequest(messages, optFns...)

	model, session, last := c.prepare(req)

	start := time.Now()

	resp, err := session.SendMessage(ctx, genai.Text(last))
	if err != nil {
		return nil, c.convertError(model, time.Since(start), err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, &llm.RequestError{Provider: "gemini", Model: model, Err: errors.New("empty response")}
	}

	result := &llm.Result{Raw: resp}

	if usage := resp.UsageMetadata; usage != nil {
		result.Usage = llm.Usage{
			InputTokens:  int(usage.PromptTokenCount),
			OutputTokens: int(usage.CandidatesTokenCount),
			TotalTokens:  int(usage.TotalTokenCount),
		}
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		switch p := part.(type) {
		case genai.Text:
			result.Text += string(p)
		case genai.FunctionCall:
			args := ""
			if p.Args != nil {
				if argsBytes, err := json.Marshal(p.Args); err == nil {
					args = string(argsBytes)
				}
			}

			result.ToolCalls = append(result.ToolCalls, llm.ToolCall{
				Name:      p.Name,
				Arguments: args,
			})
		}
	}

	return result, nil
}

// Stream implements llm.Client; forwards streamed candidate text parts.
func (c *Client) Stream(ctx context.Context, messages []llm.Message, optFns ...func(o *llm.RequestOptions)) (<-chan llm.StreamChunk, <-chan error) {
	out := make(chan llm.StreamChunk, 32)
	errCh := make(chan error, 1)

	req := llm.NewRequest(messages, optFns...)

	go func() {
		defer close(out)
		defer close(errCh)

		model, session, last := c.prepare(req)

		start := time.Now()

		iter := session.SendMessageStream(ctx, genai.Text(last))
		for {
			resp, err := iter.Next()
			if err == iterator.Done {
				return
			}
			if err != nil {
				errCh <- c.convertError(model, time.Since(start), err)
				return
			}

			for _, cand := range resp.Candidates {
				if cand.Content == nil {
					continue
				}
				for _, part := range cand.Content.Parts {
					text, ok := part.(genai.Text)
					if !ok || text == "" {
						continue
					}

					select {
					case <-ctx.Done():
						errCh <- c.convertError(model, time.Since(start), ctx.Err())
						return
					case out <- llm.StreamChunk{TextDelta: string(text), Raw: resp}:
					}
				}
			}
		}
	}()

	return out, errCh
}

// Info returns metadata describing this Gemini client implementation.
func (c *Client) Info() llm.Info {
	return llm.Info{Provider: "gemini", Model: c.opts.Model}
}

// prepare configures a generative model and chat session from the request,
// returning the model id, the session preloaded with history, and the text
// of the final message to send.
func (c *Client) prepare(req llm.Request) (string, *genai.ChatSession, string) {
	modelID := c.opts.Model
	if req.Model != "" {
		modelID = req.Model
	}

	model := c.client.GenerativeModel(modelID)

	temperature := c.opts.Temperature
	if req.Temperature != nil {
		temperature = float32(*req.Temperature)
	}
	model.SetTemperature(temperature)

	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	} else if c.opts.MaxTokens > 0 {
		model.SetMaxOutputTokens(c.opts.MaxTokens)
	}

	if system := buildSystem(req); system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	if len(req.Tools) > 0 {
		model.Tools = buildTools(req.Tools)
	}

	session := model.StartChat()

	history, last := splitHistory(req.Messages)
	session.History = history

	return modelID, session, last
}

// buildSystem folds the request system field and system role messages into
// one instruction.
func buildSystem(req llm.Request) string {
	system := req.System

	for _, m := range req.Messages {
		if m.Role != llm.RoleSystem || m.Content == "" {
			continue
		}
		if system != "" {
			system += "\n"
		}
		system += m.Content
	}

	return system
}

// splitHistory converts all but the last non-system message into Gemini chat
// history and returns the final message text to send. Gemini knows the
// "user" and "model" roles; tool results are framed as user text.
func splitHistory(messages []llm.Message) ([]*genai.Content, string) {
	var convo []llm.Message
	for _, m := range messages {
		if m.Role == llm.RoleSystem {
			continue
		}
		convo = append(convo, m)
	}

	if len(convo) == 0 {
		return nil, ""
	}

	last := convo[len(convo)-1]
	history := make([]*genai.Content, 0, len(convo)-1)

	for _, m := range convo[:len(convo)-1] {
		role := "user"
		text := m.Content

		switch m.Role {
		case llm.RoleAssistant:
			role = "model"
		case llm.RoleTool:
			text = "Tool result: " + text
		}

		history = append(history, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(text)},
		})
	}

	text := last.Content
	if last.Role == llm.RoleTool {
		text = "Tool result: " + text
	}

	return history, text
}

// buildTools converts tool specs to Gemini function declarations.
func buildTools(specs []llm.ToolSpec) []*genai.Tool {
	decls := make([]*genai.FunctionDeclaration, len(specs))

	for i, spec := range specs {
		decls[i] = &genai.FunctionDeclaration{
			Name:        spec.Name,
			Description: spec.Description,
			Parameters:  toSchema(spec.Schema),
		}
	}

	return []*genai.Tool{{FunctionDeclarations: decls}}
}

// toSchema recursively converts a structural JSON schema map to the SDK's
// typed schema.
func toSchema(schema map[string]any) *genai.Schema {
	if schema == nil {
		return &genai.Schema{Type: genai.TypeObject}
	}

	s := &genai.Schema{Type: genai.TypeObject}

	if t, ok := schema["type"].(string); ok {
		s.Type = schemaType(t)
	}

	if desc, ok := schema["description"].(string); ok {
		s.Description = desc
	}

	if props, ok := schema["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for name, prop := range props {
			if propMap, ok := prop.(map[string]any); ok {
				s.Properties[name] = toSchema(propMap)
			}
		}
	}

	if items, ok := schema["items"].(map[string]any); ok {
		s.Items = toSchema(items)
	}

	switch required := schema["required"].(type) {
	case []string:
		s.Required = required
	case []any:
		for _, r := range required {
			if name, ok := r.(string); ok {
				s.Required = append(s.Required, name)
			}
		}
	}

	return s
}

func schemaType(t string) genai.Type {
	switch t {
	case "string":
		return genai.TypeString
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeUnspecified
	}
}

// convertError maps SDK failures to the llm error taxonomy, preserving the
// HTTP status when the transport exposes one.
func (c *Client) convertError(model string, elapsed time.Duration, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &llm.RequestError{Provider: "gemini", Model: model, StatusCode: gerr.Code, Err: err}
	}

	return llm.ConvertError("gemini", model, elapsed, err)
}
