package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// AzureFoundryProvider reaches Claude models deployed behind Azure AI
// Foundry. Foundry passes the Anthropic Messages API through unchanged
// under https://{resource}.services.ai.azure.com/anthropic/ and accepts
// the same x-api-key header, so the provider speaks raw HTTP instead of
// pulling in an Azure SDK.
type AzureFoundryProvider struct {
	httpc   *http.Client
	cfg     AzureFoundryConfig
	baseURL string
}

// AzureFoundryConfig configures the Foundry endpoint and model.
type AzureFoundryConfig struct {
	// Endpoint is the resource URL, https://{resource}.services.ai.azure.com.
	// A trailing /anthropic segment is accepted and normalized.
	Endpoint string

	// APIKey authenticates against the Foundry deployment.
	APIKey string

	Model       string
	MaxTokens   int
	Temperature float64

	// Timeout bounds each HTTP request. Defaults to 120s; commander
	// turns carrying large fixture payloads can run long.
	Timeout time.Duration
}

// DefaultAzureFoundryConfig mirrors DefaultConfig with the HTTP timeout
// added.
func DefaultAzureFoundryConfig() AzureFoundryConfig {
	base := DefaultConfig()
	return AzureFoundryConfig{
		Model:       base.Model,
		MaxTokens:   base.MaxTokens,
		Temperature: base.Temperature,
		Timeout:     120 * time.Second,
	}
}

// NewAzureFoundryProvider validates the config and normalizes the
// endpoint.
func NewAzureFoundryProvider(cfg AzureFoundryConfig) (*AzureFoundryProvider, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("Azure AI Foundry endpoint is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Azure AI Foundry API key is required")
	}

	def := DefaultAzureFoundryConfig()
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}

	baseURL := strings.TrimSuffix(cfg.Endpoint, "/")
	if !strings.HasSuffix(baseURL, "/anthropic") {
		baseURL += "/anthropic"
	}

	return &AzureFoundryProvider{
		httpc:   &http.Client{Timeout: cfg.Timeout},
		cfg:     cfg,
		baseURL: baseURL,
	}, nil
}

func (p *AzureFoundryProvider) Name() string  { return "azure-foundry" }
func (p *AzureFoundryProvider) Model() string { return p.cfg.Model }

// Chat posts one Messages API request and decodes the reply.
func (p *AzureFoundryProvider) Chat(ctx context.Context, systemPrompt string, messages []Message, tools []ToolDefinition) (*Response, error) {
	payload, err := json.Marshal(p.buildRequest(systemPrompt, messages, tools))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.cfg.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := p.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, decodeFoundryError(resp.StatusCode, body)
	}
	return decodeFoundryResponse(body)
}

// Wire types. The shapes are fixed by the Anthropic Messages API that
// Foundry passes through.

type foundryRequest struct {
	Model       string           `json:"model"`
	MaxTokens   int              `json:"max_tokens"`
	Messages    []foundryMessage `json:"messages"`
	System      []foundryText    `json:"system,omitempty"`
	Tools       []foundryTool    `json:"tools,omitempty"`
	Temperature float64          `json:"temperature,omitempty"`
}

type foundryMessage struct {
	Role    string        `json:"role"`
	Content []foundryPart `json:"content"`
}

// foundryPart is one content block. Exactly one field group is
// populated, keyed by Type: text, tool_use, or tool_result.
type foundryPart struct {
	Type string `json:"type"`

	Text string `json:"text,omitempty"`

	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`
}

type foundryText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type foundryTool struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	InputSchema foundrySchema `json:"input_schema"`
}

type foundrySchema struct {
	Type       string      `json:"type"`
	Properties interface{} `json:"properties,omitempty"`
	Required   []string    `json:"required,omitempty"`
}

type foundryResponse struct {
	ID           string         `json:"id"`
	Type         string         `json:"type"`
	Role         string         `json:"role"`
	Content      []foundryBlock `json:"content"`
	Model        string         `json:"model"`
	StopReason   string         `json:"stop_reason"`
	StopSequence *string        `json:"stop_sequence"`
	Usage        foundryUsage   `json:"usage"`
}

type foundryBlock struct {
	Type  string          `json:"type"`
	Text  string          `json:"text,omitempty"`
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

type foundryUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type foundryAPIError struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (p *AzureFoundryProvider) buildRequest(systemPrompt string, messages []Message, tools []ToolDefinition) foundryRequest {
	req := foundryRequest{
		Model:     p.cfg.Model,
		MaxTokens: p.cfg.MaxTokens,
	}
	if p.cfg.Temperature > 0 {
		req.Temperature = p.cfg.Temperature
	}
	if systemPrompt != "" {
		req.System = []foundryText{{Type: "text", Text: systemPrompt}}
	}
	for _, msg := range messages {
		req.Messages = append(req.Messages, encodeFoundryMessage(msg))
	}
	for _, tool := range tools {
		required, _ := tool.InputSchema["required"].([]string)
		req.Tools = append(req.Tools, foundryTool{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: foundrySchema{
				Type:       "object",
				Properties: tool.InputSchema["properties"],
				Required:   required,
			},
		})
	}
	return req
}

// encodeFoundryMessage renders one turn as content blocks in the same
// order the Anthropic SDK provider uses: tool results first, text only
// when no results are present, then tool-use echoes.
func encodeFoundryMessage(msg Message) foundryMessage {
	out := foundryMessage{Role: string(msg.Role)}

	for _, res := range msg.ToolResult {
		out.Content = append(out.Content, foundryPart{
			Type:      "tool_result",
			ToolUseID: res.ToolUseID,
			Content:   res.Content,
			IsError:   res.IsError,
		})
	}
	if msg.Content != "" && len(msg.ToolResult) == 0 {
		out.Content = append(out.Content, foundryPart{Type: "text", Text: msg.Content})
	}
	for _, use := range msg.ToolUse {
		out.Content = append(out.Content, foundryPart{
			Type:  "tool_use",
			ID:    use.ID,
			Name:  use.Name,
			Input: use.Input,
		})
	}

	return out
}

func decodeFoundryResponse(body []byte) (*Response, error) {
	var fr foundryResponse
	if err := json.Unmarshal(body, &fr); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	out := &Response{
		Usage: Usage{
			InputTokens:  fr.Usage.InputTokens,
			OutputTokens: fr.Usage.OutputTokens,
		},
	}

	var text strings.Builder
	for _, block := range fr.Content {
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

	switch fr.StopReason {
	case "tool_use":
		out.StopReason = StopReasonToolUse
	case "max_tokens":
		out.StopReason = StopReasonMaxTokens
	default:
		out.StopReason = StopReasonEndTurn
	}

	return out, nil
}

// decodeFoundryError surfaces the structured API error when the body
// parses, the raw body otherwise.
func decodeFoundryError(statusCode int, body []byte) error {
	var apiErr foundryAPIError
	if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Error.Message == "" {
		return fmt.Errorf("Azure AI Foundry API error (status %d): %s", statusCode, string(body))
	}
	return fmt.Errorf("Azure AI Foundry API error (status %d, type: %s): %s",
		statusCode, apiErr.Error.Type, apiErr.Error.Message)
}
