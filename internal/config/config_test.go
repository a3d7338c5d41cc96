package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "empty data dir",
			mutate:  func(c *Config) { c.DataDir = "" },
			wantErr: "DataDir",
		},
		{
			name:    "unknown model backend",
			mutate:  func(c *Config) { c.Model = "gpt-oss" },
			wantErr: "Model must be",
		},
		{
			name:    "bare mock scenario prefix",
			mutate:  func(c *Config) { c.Model = "mock:" },
			wantErr: "Model must be",
		},
		{
			name:    "empty mcp addr",
			mutate:  func(c *Config) { c.MCPAddr = "" },
			wantErr: "MCPAddr",
		},
		{
			name:    "endpoint without leading slash",
			mutate:  func(c *Config) { c.MCPEndpoint = "mcp" },
			wantErr: "MCPEndpoint must start with /",
		},
		{
			name:    "tracing enabled without endpoint",
			mutate:  func(c *Config) { c.TracingEnabled = true },
			wantErr: "TracingEndpoint must be set",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidModel(t *testing.T) {
	assert.True(t, ValidModel("mock"))
	assert.True(t, ValidModel("mock:scenarios/demo.yaml"))
	assert.True(t, ValidModel("anthropic"))
	assert.True(t, ValidModel("azure-foundry"))

	assert.False(t, ValidModel(""))
	assert.False(t, ValidModel("mock:"))
	assert.False(t, ValidModel("openai"))
}

func TestLoadFile_Valid(t *testing.T) {
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "responder.yaml")

	content := `data_dir: /var/lib/responder/fixtures
model: mock:scenarios/demo.yaml
audit_log: /var/log/responder/audit.jsonl
log_level: debug
mcp_addr: ":9090"
tracing_enabled: true
tracing_endpoint: "otel-collector:4317"
tracing_tls_insecure: true
`
	err := os.WriteFile(tmpFile, []byte(content), 0644)
	require.NoError(t, err)

	cfg, err := LoadFile(tmpFile)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "/var/lib/responder/fixtures", cfg.DataDir)
	assert.Equal(t, "mock:scenarios/demo.yaml", cfg.Model)
	assert.Equal(t, "/var/log/responder/audit.jsonl", cfg.AuditLog)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, ":9090", cfg.MCPAddr)
	assert.True(t, cfg.TracingEnabled)
	assert.Equal(t, "otel-collector:4317", cfg.TracingEndpoint)
	assert.True(t, cfg.TracingTLSInsecure)

	// Keys absent from the file keep their defaults
	assert.Equal(t, "/mcp", cfg.MCPEndpoint)
}

func TestLoadFile_PartialKeepsDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "responder.yaml")

	err := os.WriteFile(tmpFile, []byte("log_level: warn\n"), 0644)
	require.NoError(t, err)

	cfg, err := LoadFile(tmpFile)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "mock-data", cfg.DataDir)
	assert.Equal(t, ModelMock, cfg.Model)
	assert.Equal(t, ":8082", cfg.MCPAddr)
}

func TestLoadFile_MissingFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestLoadFile_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "broken.yaml")

	err := os.WriteFile(tmpFile, []byte("data_dir: [unclosed\n"), 0644)
	require.NoError(t, err)

	_, err = LoadFile(tmpFile)
	require.Error(t, err)
}

func TestLoadFile_InvalidModel(t *testing.T) {
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "responder.yaml")

	err := os.WriteFile(tmpFile, []byte("model: watsonx\n"), 0644)
	require.NoError(t, err)

	_, err = LoadFile(tmpFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}
