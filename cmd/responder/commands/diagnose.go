package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/incidentlab/responder/internal/agent/runner"
	"github.com/incidentlab/responder/internal/config"
	"github.com/incidentlab/responder/internal/incident"
	"github.com/incidentlab/responder/internal/mockdata"
	"github.com/spf13/cobra"
)

// defaultClaudeModel is the concrete model used when the configuration
// selects a hosted backend without naming a model.
const defaultClaudeModel = "claude-sonnet-4-5-20250929"

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Run a multi-agent diagnosis for an incident",
	Long: `Run the commander agent against a recorded incident. The commander
routes symptoms to the log and metric specialists, waits for their findings,
and synthesizes a verdict with a root cause and tiered remediation.

The model backend defaults to the built-in scripted mock, which replays the
full delegation flow offline. Hosted runs need an Anthropic API key or Azure
AI Foundry credentials.

Examples:
  # Diagnose the demo incident with the scripted mock model
  responder diagnose --incident inc-db-5001

  # Replay a custom scenario script
  responder diagnose --model mock:scenarios/db-outage.yaml

  # Use the Anthropic API
  responder diagnose --model claude-sonnet-4-5-20250929 --anthropic-key sk-...

  # Use Azure AI Foundry instead of Anthropic
  responder diagnose --azure-foundry-endpoint https://your-resource.services.ai.azure.com --azure-foundry-key your-api-key

  # Re-run the diagnosis whenever the fixture tree changes
  responder diagnose --watch
`,
	RunE: runDiagnose,
}

var (
	diagnoseIncident             string
	diagnoseDataDir              string
	diagnoseModel                string
	diagnoseAnthropicKey         string
	diagnoseAzureFoundryEndpoint string
	diagnoseAzureFoundryKey      string
	diagnoseAuditLog             string
	diagnoseMockTools            bool
	diagnoseOutput               string
	diagnoseWatch                bool
)

func init() {
	diagnoseCmd.Flags().StringVar(&diagnoseIncident, "incident", mockdata.DemoIncidentID,
		"Incident identifier matching a scenario fixture")
	diagnoseCmd.Flags().StringVar(&diagnoseDataDir, "data-dir", "",
		"Fixture tree root (defaults to the configured data_dir)")
	diagnoseCmd.Flags().StringVar(&diagnoseModel, "model", "",
		"Model backend: mock, mock:<scenario.yaml>, or a Claude model name")
	diagnoseCmd.Flags().StringVar(&diagnoseAnthropicKey, "anthropic-key", "",
		"Anthropic API key (defaults to ANTHROPIC_API_KEY env var)")
	diagnoseCmd.Flags().StringVar(&diagnoseAzureFoundryEndpoint, "azure-foundry-endpoint", "",
		"Azure AI Foundry endpoint URL")
	diagnoseCmd.Flags().StringVar(&diagnoseAzureFoundryKey, "azure-foundry-key", "",
		"Azure AI Foundry API key")
	diagnoseCmd.Flags().StringVar(&diagnoseAuditLog, "audit-log", "",
		"Path to write the session audit log (JSONL). Defaults to ~/.responder/sessions/")
	diagnoseCmd.Flags().BoolVar(&diagnoseMockTools, "mock-tools", false,
		"Use mock tool responses (canned data instead of fixture analysis)")
	diagnoseCmd.Flags().StringVar(&diagnoseOutput, "output", "text",
		"Output format: text or json")
	diagnoseCmd.Flags().BoolVar(&diagnoseWatch, "watch", false,
		"Watch the fixture tree and re-run the diagnosis on changes")
}

func runDiagnose(cmd *cobra.Command, args []string) error {
	if err := setupLogging(logLevelFlags); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}

	if diagnoseOutput != "text" && diagnoseOutput != "json" {
		return fmt.Errorf("invalid output format: %s (must be 'text' or 'json')", diagnoseOutput)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("data-dir") {
		cfg.DataDir = diagnoseDataDir
	}
	if cmd.Flags().Changed("audit-log") {
		cfg.AuditLog = diagnoseAuditLog
	}

	// The config selects a backend; the flag may name a concrete model
	// or scenario and passes through to the runner untouched.
	modelSpec := resolveModelSpec(cfg.Model)
	if cmd.Flags().Changed("model") {
		modelSpec = diagnoseModel
	}

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nShutting down...")
		cancel()
	}()

	// Get API key
	apiKey := diagnoseAnthropicKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}

	// Handle Azure AI Foundry environment variables
	azureEndpoint := diagnoseAzureFoundryEndpoint
	if azureEndpoint == "" {
		if resource := os.Getenv("ANTHROPIC_FOUNDRY_RESOURCE"); resource != "" {
			azureEndpoint = "https://" + resource + ".services.ai.azure.com"
		}
	}
	azureKey := diagnoseAzureFoundryKey
	if azureKey == "" {
		azureKey = os.Getenv("ANTHROPIC_FOUNDRY_API_KEY")
	}

	// Check for API key - either Anthropic or Azure AI Foundry (skip for mock models)
	isMockModel := strings.HasPrefix(modelSpec, "mock")
	if !isMockModel {
		if azureEndpoint != "" {
			if azureKey == "" {
				return fmt.Errorf("Azure AI Foundry API key required. Set ANTHROPIC_FOUNDRY_API_KEY environment variable or use --azure-foundry-key flag")
			}
		} else {
			if apiKey == "" {
				return fmt.Errorf("Anthropic API key required. Set ANTHROPIC_API_KEY environment variable or use --anthropic-key flag")
			}
		}
	}

	runCfg := runner.Config{
		DataDir:              cfg.DataDir,
		Model:                modelSpec,
		AnthropicAPIKey:      apiKey,
		AzureFoundryEndpoint: azureEndpoint,
		AzureFoundryAPIKey:   azureKey,
		AuditLogPath:         cfg.AuditLog,
		MockTools:            diagnoseMockTools,
	}

	runOnce := func() error {
		return diagnoseOnce(ctx, runCfg, diagnoseIncident, diagnoseOutput)
	}

	if !diagnoseWatch {
		return runOnce()
	}

	// Watch mode: run once, then re-run on every debounced fixture change
	// until interrupted.
	watcher, err := mockdata.NewWatcher(mockdata.WatcherConfig{Dir: cfg.DataDir}, runOnce)
	if err != nil {
		return fmt.Errorf("failed to create fixture watcher: %w", err)
	}
	if err := watcher.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	return watcher.Stop()
}

// diagnoseOnce runs a single diagnosis session and prints the result.
// Each run gets a fresh session so scripted scenarios replay cleanly.
func diagnoseOnce(ctx context.Context, runCfg runner.Config, incidentID, output string) error {
	if output == "text" {
		runCfg.Reporter = runner.NewConsoleReporter(os.Stdout)
	}

	r, err := runner.New(runCfg)
	if err != nil {
		return fmt.Errorf("failed to create diagnosis runner: %w", err)
	}
	defer r.Close()

	result, err := r.Diagnose(ctx, incidentID)
	if err != nil {
		return err
	}

	return printDiagnosis(result, output)
}

// resolveModelSpec maps a configured backend selector to the model spec
// the runner understands.
func resolveModelSpec(selector string) string {
	switch selector {
	case config.ModelAnthropic, config.ModelAzureFoundry:
		return defaultClaudeModel
	}
	// mock or mock:<scenario.yaml>
	return selector
}

// diagnosisOutput is the JSON shape printed by --output json.
type diagnosisOutput struct {
	IncidentID   string                    `json:"incident_id"`
	SessionID    string                    `json:"session_id"`
	Verdict      incident.Verdict          `json:"verdict"`
	Records      []incident.FindingsRecord `json:"findings_records"`
	FinalText    string                    `json:"final_text,omitempty"`
	DurationMs   int64                     `json:"duration_ms"`
	LLMRequests  int                       `json:"llm_requests"`
	InputTokens  int                       `json:"input_tokens"`
	OutputTokens int                       `json:"output_tokens"`
}

func printDiagnosis(result *runner.DiagnosisResult, output string) error {
	if output == "json" {
		data, err := json.MarshalIndent(diagnosisOutput{
			IncidentID:   result.IncidentID,
			SessionID:    result.SessionID,
			Verdict:      result.Verdict,
			Records:      result.Records,
			FinalText:    result.FinalText,
			DurationMs:   result.Duration.Milliseconds(),
			LLMRequests:  result.LLMRequests,
			InputTokens:  result.InputTokens,
			OutputTokens: result.OutputTokens,
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode diagnosis result: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	// The console reporter already streamed the run; close with the verdict.
	fmt.Println(runner.RenderMarkdown(runner.FormatVerdict(result.Verdict)))
	if result.LLMRequests > 0 {
		fmt.Printf("%d model requests, %d input / %d output tokens in %s\n",
			result.LLMRequests, result.InputTokens, result.OutputTokens,
			result.Duration.Round(time.Millisecond))
	}
	return nil
}
