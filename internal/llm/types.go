package llm

import (
	"context"
	"encoding/json"
)

// Message represents a chat message for LLM communication.
type Message struct {
	Role             string     `json:"role"`                        // "user", "assistant", "system", "tool"
	Content          string     `json:"content"`                     // The message text
	ReasoningContent string     `json:"reasoning_content,omitempty"` // Native thinking output (e.g. DeepSeek-R1)
	Name             string     `json:"name,omitempty"`              // Tool name, set on RoleTool messages
	ToolCallID       string     `json:"tool_call_id,omitempty"`      // Correlates a RoleTool result with the call that produced it
	ToolCalls        []ToolCall `json:"tool_calls,omitempty"`        // Set on RoleAssistant messages that invoked tools
	Usage            Usage      `json:"usage,omitempty"`             // Token accounting for the call that produced this message
}

// ToolCall is one function-call the model asked to invoke.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolDefinition describes a callable tool for Function Calling requests.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// StreamCallback is invoked for each chunk of streamed text.
// Implementations should be lightweight; heavy work should be deferred.
type StreamCallback func(chunk string)

// Usage reports token accounting for a single LLM call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

// LLMProvider defines the interface for all LLM implementations.
// Any OpenAI-compatible endpoint (litellm, Ollama, Azure, vLLM, etc.)
// can be used by implementing this interface.
type LLMProvider interface {
	// CallLLM sends messages to the LLM and returns the complete response.
	CallLLM(ctx context.Context, messages []Message) (Message, error)

	// CallLLMStream sends messages and streams the response token-by-token.
	// Each chunk of text triggers the onChunk callback.
	// Returns the full assembled message once streaming finishes.
	// If the provider does not support streaming, it may fall back to CallLLM.
	CallLLMStream(ctx context.Context, messages []Message, onChunk StreamCallback) (Message, error)

	// CallLLMWithTools sends messages plus tool definitions for Function Calling.
	// Used by PLAN (strategy + tool selection) and the Parameter Extractor's
	// structured-output pass.
	CallLLMWithTools(ctx context.Context, messages []Message, tools []ToolDefinition) (Message, error)

	// IsToolCallingEnabled reports whether this provider/model combination
	// should use native function calling rather than a textual fallback.
	IsToolCallingEnabled() bool

	// GetName returns the provider name/identifier.
	GetName() string
}

// Role constants.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)
