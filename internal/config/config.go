// Package config holds runtime configuration shared by the responder
// commands: fixture location, model backend selection, audit and MCP
// server settings.
package config

import "strings"

// Model backend selectors. A mock selector may carry a scenario script:
// "mock:path/to/scenario.yaml".
const (
	ModelMock         = "mock"
	ModelAnthropic    = "anthropic"
	ModelAzureFoundry = "azure-foundry"

	mockScenarioPrefix = "mock:"
)

// Config holds all configuration for the application
type Config struct {
	// DataDir is the fixture tree root holding recorded incident data
	DataDir string `yaml:"data_dir"`

	// Model selects the LLM backend for hosted diagnosis runs:
	// mock, mock:<scenario.yaml>, anthropic, or azure-foundry
	Model string `yaml:"model"`

	// AuditLog overrides the session audit trail path (JSONL). Empty
	// uses the per-session default under ~/.responder/sessions
	AuditLog string `yaml:"audit_log"`

	// LogLevel is the logging level (debug, info, warn, error, fatal)
	LogLevel string `yaml:"log_level"`

	// MCPAddr is the HTTP listen address for the MCP server
	MCPAddr string `yaml:"mcp_addr"`

	// MCPEndpoint is the HTTP endpoint path for MCP requests
	MCPEndpoint string `yaml:"mcp_endpoint"`

	// TracingEnabled indicates whether OpenTelemetry tracing is enabled
	TracingEnabled bool `yaml:"tracing_enabled"`

	// TracingEndpoint is the OTLP gRPC endpoint for trace export
	TracingEndpoint string `yaml:"tracing_endpoint"`

	// TracingTLSCAPath is the path to the CA certificate for TLS verification
	TracingTLSCAPath string `yaml:"tracing_tls_ca_path"`

	// TracingTLSInsecure disables TLS for trace export (local collectors)
	TracingTLSInsecure bool `yaml:"tracing_tls_insecure"`
}

// Default returns the built-in configuration defaults.
func Default() *Config {
	return &Config{
		DataDir:     "mock-data",
		Model:       ModelMock,
		LogLevel:    "info",
		MCPAddr:     ":8082",
		MCPEndpoint: "/mcp",
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return NewConfigError("DataDir must not be empty")
	}

	if !ValidModel(c.Model) {
		return NewConfigError("Model must be mock, mock:<scenario.yaml>, anthropic, or azure-foundry")
	}

	if c.MCPAddr == "" {
		return NewConfigError("MCPAddr must not be empty")
	}

	if c.MCPEndpoint == "" || c.MCPEndpoint[0] != '/' {
		return NewConfigError("MCPEndpoint must start with /")
	}

	if c.TracingEnabled && c.TracingEndpoint == "" {
		return NewConfigError("TracingEndpoint must be set when tracing is enabled")
	}

	return nil
}

// ValidModel reports whether the model selector names a known backend.
func ValidModel(model string) bool {
	switch model {
	case ModelMock, ModelAnthropic, ModelAzureFoundry:
		return true
	}
	return strings.HasPrefix(model, mockScenarioPrefix) && len(model) > len(mockScenarioPrefix)
}

// ConfigError represents a configuration error
type ConfigError struct {
	message string
}

// NewConfigError creates a new configuration error
func NewConfigError(message string) *ConfigError {
	return &ConfigError{message: message}
}

// Error returns the error message
func (e *ConfigError) Error() string {
	return e.message
}
