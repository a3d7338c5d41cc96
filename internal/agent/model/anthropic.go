package model

import (
	"fmt"

	"google.golang.org/adk/model"

	"github.com/incidentlab/responder/internal/agent/provider"
)

// AnthropicLLM adapts the direct Anthropic API provider to the ADK
// model.LLM interface.
type AnthropicLLM struct {
	chatLLM
}

// NewAnthropicLLM builds an adapter authenticated from the
// ANTHROPIC_API_KEY environment variable. A nil cfg selects the
// provider defaults.
func NewAnthropicLLM(cfg *provider.Config) (*AnthropicLLM, error) {
	p, err := provider.NewAnthropicProvider(derefConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create anthropic provider: %w", err)
	}
	return &AnthropicLLM{chatLLM{backend: p}}, nil
}

// NewAnthropicLLMWithKey builds an adapter with an explicit API key.
func NewAnthropicLLMWithKey(apiKey string, cfg *provider.Config) (*AnthropicLLM, error) {
	p, err := provider.NewAnthropicProviderWithKey(apiKey, derefConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create anthropic provider: %w", err)
	}
	return &AnthropicLLM{chatLLM{backend: p}}, nil
}

func derefConfig(cfg *provider.Config) provider.Config {
	if cfg == nil {
		return provider.DefaultConfig()
	}
	return *cfg
}

var _ model.LLM = (*AnthropicLLM)(nil)
