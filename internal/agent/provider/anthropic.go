package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicProvider talks to the Anthropic Messages API directly.
type AnthropicProvider struct {
	client anthropic.Client
	cfg    Config
}

// NewAnthropicProvider builds a provider authenticated from the
// ANTHROPIC_API_KEY environment variable.
func NewAnthropicProvider(cfg Config) (*AnthropicProvider, error) {
	return &AnthropicProvider{
		client: anthropic.NewClient(),
		cfg:    cfg.withDefaults(),
	}, nil
}

// NewAnthropicProviderWithKey builds a provider with an explicit API
// key, for configurations that keep the key in a file rather than the
// environment.
func NewAnthropicProviderWithKey(apiKey string, cfg Config) (*AnthropicProvider, error) {
	return &AnthropicProvider{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		cfg:    cfg.withDefaults(),
	}, nil
}

func (p *AnthropicProvider) Name() string  { return "anthropic" }
func (p *AnthropicProvider) Model() string { return p.cfg.Model }

// Chat sends the conversation to the Messages API and decodes the reply.
func (p *AnthropicProvider) Chat(ctx context.Context, systemPrompt string, messages []Message, tools []ToolDefinition) (*Response, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.cfg.Model),
		MaxTokens: int64(p.cfg.MaxTokens),
		Messages:  make([]anthropic.MessageParam, 0, len(messages)),
	}
	for _, msg := range messages {
		params.Messages = append(params.Messages, encodeMessage(msg))
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}
	if p.cfg.Temperature > 0 {
		params.Temperature = anthropic.Float(p.cfg.Temperature)
	}
	for _, tool := range tools {
		params.Tools = append(params.Tools, encodeTool(tool))
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic API call failed: %w", err)
	}
	return decodeResponse(resp), nil
}

// encodeMessage renders one conversation turn as SDK content blocks.
// Tool results travel alone in a user turn, so text is attached only
// when no results are present; tool-use echoes close assistant turns.
func encodeMessage(msg Message) anthropic.MessageParam {
	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.ToolResult)+len(msg.ToolUse)+1)

	for _, res := range msg.ToolResult {
		blocks = append(blocks, anthropic.NewToolResultBlock(res.ToolUseID, res.Content, res.IsError))
	}
	if msg.Content != "" && len(msg.ToolResult) == 0 {
		blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
	}
	for _, use := range msg.ToolUse {
		blocks = append(blocks, anthropic.NewToolUseBlock(use.ID, use.Input, use.Name))
	}

	if msg.Role == RoleAssistant {
		return anthropic.NewAssistantMessage(blocks...)
	}
	return anthropic.NewUserMessage(blocks...)
}

// encodeTool renders a ToolDefinition as the SDK tool parameter. The
// registry emits schemas with top-level "properties" and "required"
// keys, which ToolInputSchemaParam wants split out.
func encodeTool(tool ToolDefinition) anthropic.ToolUnionParam {
	required, _ := tool.InputSchema["required"].([]string)
	return anthropic.ToolUnionParam{
		OfTool: &anthropic.ToolParam{
			Name:        tool.Name,
			Description: anthropic.String(tool.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: tool.InputSchema["properties"],
				Required:   required,
			},
		},
	}
}

// decodeResponse flattens the SDK reply into a Response. Text blocks
// concatenate in order; tool_use blocks become ToolCalls.
func decodeResponse(resp *anthropic.Message) *Response {
	out := &Response{
		Usage: Usage{
			InputTokens:  int(resp.Usage.InputTokens),
			OutputTokens: int(resp.Usage.OutputTokens),
		},
	}

	var text strings.Builder
	for i := range resp.Content {
		block := &resp.Content[i]
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "tool_use":
			out.ToolCalls = append(out.ToolCalls, ToolUseBlock{
				ID:    block.ID,
				Name:  block.Name,
				Input: block.Input,
			})
		}
	}
	out.Content = text.String()

	switch resp.StopReason {
	case anthropic.StopReasonToolUse:
		out.StopReason = StopReasonToolUse
	case anthropic.StopReasonMaxTokens:
		out.StopReason = StopReasonMaxTokens
	default:
		// end_turn, stop_sequence, pause_turn and refusal all finish
		// the turn from the runner's point of view.
		out.StopReason = StopReasonEndTurn
	}

	return out
}
