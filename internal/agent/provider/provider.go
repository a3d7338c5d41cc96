// Package provider abstracts the LLM backends the diagnosis agents run
// against. The commander and its specialists speak one wire shape
// (Message, ToolUseBlock, ToolResultBlock) no matter which backend is
// configured: the Anthropic API, an Azure AI Foundry deployment, or the
// scenario mock used by demos and tests.
package provider

import (
	"context"
	"encoding/json"
)

// Role identifies the message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of an agent conversation. Content carries plain
// text; ToolUse and ToolResult carry the two halves of a tool call. Both
// are slices because a single assistant turn may request several tools
// in parallel.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`

	ToolUse []ToolUseBlock `json:"tool_use,omitempty"`

	ToolResult []ToolResultBlock `json:"tool_result,omitempty"`
}

// ToolUseBlock is a tool invocation requested by the model. Input holds
// the raw JSON arguments; the tool registry decodes them.
type ToolUseBlock struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// ToolResultBlock carries one tool's output back to the model.
type ToolResultBlock struct {
	ToolUseID string `json:"tool_use_id"`
	Content   string `json:"content"`
	IsError   bool   `json:"is_error,omitempty"`
}

// ToolDefinition describes a callable tool in the JSON-schema form the
// Anthropic-compatible APIs expect.
type ToolDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

// StopReason says why the model stopped generating.
type StopReason string

const (
	StopReasonEndTurn   StopReason = "end_turn"
	StopReasonToolUse   StopReason = "tool_use"
	StopReasonMaxTokens StopReason = "max_tokens"
	StopReasonError     StopReason = "error"
)

// Usage is the token accounting for one Chat call.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Response is the model's reply. Content may be empty when the model
// answered with tool calls only.
type Response struct {
	Content    string
	ToolCalls  []ToolUseBlock
	StopReason StopReason
	Usage      Usage
}

// Provider is a synchronous chat backend. Implementations must tolerate
// concurrent Chat calls.
type Provider interface {
	Chat(ctx context.Context, systemPrompt string, messages []Message, tools []ToolDefinition) (*Response, error)

	// Name identifies the backend in logs and audit events.
	Name() string

	// Model returns the model identifier in use.
	Model() string
}

// Config carries the settings shared by every backend.
type Config struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

// DefaultConfig returns the settings the diagnosis agents use when
// nothing is configured. Temperature stays at zero so repeated runs over
// the same incident produce the same verdict.
func DefaultConfig() Config {
	return Config{
		Model:       "claude-sonnet-4-5-20250929",
		MaxTokens:   4096,
		Temperature: 0.0,
	}
}

// withDefaults fills zero-valued fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Model == "" {
		c.Model = d.Model
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = d.MaxTokens
	}
	return c
}

// contextWindows maps model identifiers to their input context size in
// tokens.
var contextWindows = map[string]int{
	"claude-sonnet-4-5-20250929": 200000,
	"claude-3-5-sonnet-20241022": 200000,
	"claude-3-5-haiku-20241022":  200000,
	"claude-3-opus-20240229":     200000,
}

const defaultContextWindow = 200000

// GetContextWindowSize returns the context window for a model. Unknown
// identifiers fall back to 200k, which every current Claude model meets.
func GetContextWindowSize(model string) int {
	if size, ok := contextWindows[model]; ok {
		return size
	}
	return defaultContextWindow
}
