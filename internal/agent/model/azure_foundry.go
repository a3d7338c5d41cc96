package model

import (
	"fmt"

	"google.golang.org/adk/model"

	"github.com/incidentlab/responder/internal/agent/provider"
)

// AzureFoundryLLM adapts the Azure AI Foundry provider to the ADK
// model.LLM interface.
type AzureFoundryLLM struct {
	chatLLM
}

// NewAzureFoundryLLM builds an adapter for a Foundry deployment.
func NewAzureFoundryLLM(cfg provider.AzureFoundryConfig) (*AzureFoundryLLM, error) {
	p, err := provider.NewAzureFoundryProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create azure foundry provider: %w", err)
	}
	return &AzureFoundryLLM{chatLLM{backend: p}}, nil
}

var _ model.LLM = (*AzureFoundryLLM)(nil)
