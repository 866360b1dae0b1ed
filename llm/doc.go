// Package llm defines the provider-agnostic abstractions and concrete
// helpers for interacting with language models inside AgentGym.
//
// Core goals:
//   - Unify streaming + non-streaming generation behind a single interface
//   - Normalize tool declarations and tool call representation (ToolSpec, ToolCall)
//   - Keep request/response shapes minimal and transport independent
//   - Facilitate lightweight mocking for tests (MockClient)
//
// Providers (OpenAI, Anthropic, Ollama, Gemini) implement the Client
// interface from this package so agents remain decoupled from vendor SDKs.
package llm
