// Package runner drives one diagnosis session end to end. It wires the
// commander agent tree, the diagnosis tool registry and the fixture
// store into an ADK runner, feeds the commander its incident briefing
// and consumes the event stream until the verdict is in.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"google.golang.org/adk/agent"
	adkmodel "google.golang.org/adk/model"
	"google.golang.org/adk/runner"
	adksession "google.golang.org/adk/session"

	"github.com/incidentlab/responder/internal/agent/audit"
	"github.com/incidentlab/responder/internal/agent/commander"
	"github.com/incidentlab/responder/internal/agent/model"
	"github.com/incidentlab/responder/internal/agent/provider"
	"github.com/incidentlab/responder/internal/agent/tools"
	"github.com/incidentlab/responder/internal/incident"
	"github.com/incidentlab/responder/internal/mockdata"
)

const (
	// AppName is the ADK application name for diagnosis sessions.
	AppName = "responder"

	// DefaultUserID is used when no user ID is specified.
	DefaultUserID = "default"

	// transferToolName is the delegation tool ADK generates for agents
	// with sub-agents. Transfers show up in the event stream as calls
	// to this tool.
	transferToolName = "transfer_to_agent"
)

// Config contains the runner configuration.
type Config struct {
	// DataDir is the fixture directory holding topology, scenario and
	// observability files.
	DataDir string

	// Model is the model name to use (e.g., "claude-sonnet-4-5-20250929").
	// A "mock" prefix selects a scripted scenario instead of a real
	// provider: "mock", "mock:<scenario-name>" or
	// "mock:/path/to/scenario.yaml".
	Model string

	// AnthropicAPIKey is the Anthropic API key.
	AnthropicAPIKey string

	// AzureFoundryEndpoint routes hosted model calls through Azure AI
	// Foundry instead of the Anthropic API when set.
	AzureFoundryEndpoint string

	// AzureFoundryAPIKey authenticates against AzureFoundryEndpoint.
	AzureFoundryAPIKey string

	// SessionID pins the session ID (optional). A fresh UUID is used
	// when empty.
	SessionID string

	// AuditLogPath is the path to write the audit log (JSONL format).
	// If empty, a per-session file under ~/.responder/sessions is used.
	AuditLogPath string

	// MockTools replaces the live diagnosis tools with canned
	// responses. Only meaningful together with a mock model.
	MockTools bool

	// Reporter receives progress callbacks while a diagnosis runs.
	// If nil, progress is discarded.
	Reporter Reporter
}

// Runner owns one diagnosis session over the commander agent tree.
type Runner struct {
	config Config

	adkRunner      *runner.Runner
	sessionService adksession.Service
	sessionID      string
	userID         string

	store    *mockdata.Store
	registry *tools.Registry
	reporter Reporter

	auditLogger *audit.Logger

	// Token usage accumulated across the session.
	totalLLMRequests  int
	totalInputTokens  int
	totalOutputTokens int
}

// DiagnosisResult captures everything one diagnosis run produced.
type DiagnosisResult struct {
	IncidentID string
	SessionID  string

	// Verdict is the synthesis recorded by the synthesize_verdict tool.
	Verdict incident.Verdict

	// Records are the per-agent findings collected during the run.
	Records []incident.FindingsRecord

	// FinalText is the commander's closing report.
	FinalText string

	Duration time.Duration

	// LLM usage accumulated across the run.
	LLMRequests  int
	InputTokens  int
	OutputTokens int
}

// New creates a diagnosis Runner.
func New(cfg Config) (*Runner, error) {
	r := &Runner{
		config:         cfg,
		userID:         DefaultUserID,
		sessionService: adksession.InMemoryService(),
		reporter:       cfg.Reporter,
	}
	if r.reporter == nil {
		r.reporter = nopReporter{}
	}

	// The session ID seeds the default audit log path, so it is fixed
	// before anything else.
	sessionID := cfg.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	r.sessionID = sessionID

	store, err := mockdata.NewStore(mockdata.StoreConfig{Dir: cfg.DataDir})
	if err != nil {
		return nil, fmt.Errorf("failed to open fixture store: %w", err)
	}
	r.store = store

	r.registry = tools.NewRegistry(tools.Dependencies{
		Data:   store,
		Logger: slog.New(slog.NewTextHandler(os.Stderr, nil)),
	})

	var llm adkmodel.LLM
	if strings.HasPrefix(cfg.Model, "mock") {
		llm, err = createMockLLM(cfg.Model)
		if err != nil {
			return nil, fmt.Errorf("failed to create mock LLM: %w", err)
		}

		// Even in mock mode the default is the live diagnosis tools
		// over fixture data; canned tools are opt-in.
		if cfg.MockTools {
			r.registry = tools.NewMockRegistry()
		}

		// Scenario files may pin individual tool responses on top of
		// whichever registry is active.
		if mockLLM, ok := llm.(*model.MockLLM); ok {
			r.applyScenarioToolOverrides(mockLLM.Scenario())
		}
	} else if llm, err = hostedLLM(cfg); err != nil {
		return nil, err
	}

	commanderAgent, err := commander.New(llm, r.registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create commander agent: %w", err)
	}

	r.adkRunner, err = runner.New(runner.Config{
		AppName:        AppName,
		Agent:          commanderAgent,
		SessionService: r.sessionService,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ADK runner: %w", err)
	}

	auditLogPath := cfg.AuditLogPath
	if auditLogPath == "" {
		auditLogPath = defaultAuditLogPath(sessionID)
	}
	if auditLogPath != "" {
		r.auditLogger, err = audit.NewLogger(auditLogPath, r.sessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to create audit logger: %w", err)
		}
	}

	return r, nil
}

// hostedLLM selects the hosted backend: Azure AI Foundry when an
// endpoint is configured, the Anthropic API otherwise.
func hostedLLM(cfg Config) (adkmodel.LLM, error) {
	if cfg.AzureFoundryEndpoint != "" {
		llm, err := model.NewAzureFoundryLLM(provider.AzureFoundryConfig{
			Endpoint: cfg.AzureFoundryEndpoint,
			APIKey:   cfg.AzureFoundryAPIKey,
			Model:    cfg.Model,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure Foundry LLM: %w", err)
		}
		return llm, nil
	}

	llm, err := model.NewAnthropicLLMWithKey(cfg.AnthropicAPIKey, &provider.Config{Model: cfg.Model})
	if err != nil {
		return nil, fmt.Errorf("failed to create Anthropic LLM: %w", err)
	}
	return llm, nil
}

// defaultAuditLogPath places per-session audit logs under
// ~/.responder/sessions. Returns "" when the home directory is not
// usable; the session then runs without an audit trail.
func defaultAuditLogPath(sessionID string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	dir := filepath.Join(home, ".responder", "sessions")
	if err := os.MkdirAll(dir, 0750); err != nil {
		return ""
	}
	return filepath.Join(dir, sessionID+".audit.log")
}

// Diagnose runs one full investigation for an incident and returns the
// synthesized verdict. The incident, its scenario and its observability
// context must all exist in the fixture store.
func (r *Runner) Diagnose(ctx context.Context, incidentID string) (*DiagnosisResult, error) {
	inc, err := r.store.LoadIncident(incidentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load incident: %w", err)
	}

	if _, err := r.sessionService.Create(ctx, &adksession.CreateRequest{
		AppName:   AppName,
		UserID:    r.userID,
		SessionID: r.sessionID,
	}); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	if r.auditLogger != nil {
		_ = r.auditLogger.LogSessionStart(r.config.Model, incidentID)
	}
	r.reporter.SessionStarted(r.sessionID, r.config.Model, incidentID)

	briefing, err := buildBriefing(r.store, inc)
	if err != nil {
		return nil, err
	}
	if r.auditLogger != nil {
		_ = r.auditLogger.LogUserMessage(briefing)
	}

	userContent := &genai.Content{
		Role: "user",
		Parts: []*genai.Part{
			{Text: briefing},
		},
	}

	runConfig := agent.RunConfig{
		StreamingMode: agent.StreamingModeNone,
	}

	var currentAgent string
	var lastTextResponse string
	toolStartTimes := make(map[string]time.Time)
	eventCount := 0
	loopReason := "stream_end"
	start := time.Now()
	contextMax := provider.GetContextWindowSize(r.config.Model)

	for event, err := range r.adkRunner.Run(ctx, r.userID, r.sessionID, userContent, runConfig) {
		if err != nil {
			if r.auditLogger != nil {
				_ = r.auditLogger.LogError(currentAgent, err)
			}
			return nil, fmt.Errorf("agent error: %w", err)
		}

		if event == nil {
			continue
		}
		eventCount++

		// Track LLM usage from event metadata. Prompt tokens double as
		// the context fill level.
		if event.UsageMetadata != nil && event.UsageMetadata.PromptTokenCount > 0 {
			inputTokens := int(event.UsageMetadata.PromptTokenCount)
			outputTokens := int(event.UsageMetadata.CandidatesTokenCount)

			r.totalLLMRequests++
			r.totalInputTokens += inputTokens
			r.totalOutputTokens += outputTokens
			r.reporter.ContextUpdate(inputTokens, contextMax)

			providerName := "anthropic"
			if strings.HasPrefix(r.config.Model, "mock") {
				providerName = "mock"
			} else if r.config.AzureFoundryEndpoint != "" {
				providerName = "azure_foundry"
			}

			stopReason := "end_turn"
			if event.Content != nil {
				for _, part := range event.Content.Parts {
					if part.FunctionCall != nil {
						stopReason = "tool_use"
						break
					}
				}
			}

			if r.auditLogger != nil {
				_ = r.auditLogger.LogLLMRequest(providerName, r.config.Model, inputTokens, outputTokens, stopReason)
			}
		}

		// Agent change shows up as a new event author
		if event.Author != "" && event.Author != currentAgent {
			currentAgent = event.Author
			r.reporter.AgentActivated(currentAgent)

			if r.auditLogger != nil {
				_ = r.auditLogger.LogAgentActivated(currentAgent)
			}
		}

		// Events without content are pure bookkeeping (state writes,
		// escalations) and would be invisible in the trail otherwise.
		if event.Content == nil && r.auditLogger != nil {
			_ = r.auditLogger.LogEventReceived(fmt.Sprintf("event-%d", eventCount), event.Author, map[string]any{
				"has_state_delta": len(event.Actions.StateDelta) > 0,
				"escalate":        event.Actions.Escalate,
			})
		}

		if event.Content != nil {
			for _, part := range event.Content.Parts {
				if part.FunctionCall != nil {
					toolName := part.FunctionCall.Name
					toolStartTimes[callKey(part.FunctionCall.ID, toolName)] = time.Now()

					r.reporter.ToolStarted(currentAgent, toolName)

					if r.auditLogger != nil {
						_ = r.auditLogger.LogToolStart(currentAgent, toolName, part.FunctionCall.Args)
						if toolName == transferToolName {
							if target, ok := part.FunctionCall.Args["agent_name"].(string); ok {
								_ = r.auditLogger.LogAgentTransfer(currentAgent, target)
							}
						}
					}
				}

				if part.FunctionResponse != nil {
					toolName := part.FunctionResponse.Name
					key := callKey(part.FunctionResponse.ID, toolName)

					var duration time.Duration
					if startTime, ok := toolStartTimes[key]; ok {
						duration = time.Since(startTime)
						delete(toolStartTimes, key)
					}

					// Simple success heuristic: tools report failure
					// through an "error" key in the response map.
					success := true
					if errMsg, exists := part.FunctionResponse.Response["error"]; exists && errMsg != nil {
						success = false
					}

					r.reporter.ToolCompleted(currentAgent, toolName, success, duration)

					if r.auditLogger != nil {
						_ = r.auditLogger.LogToolComplete(currentAgent, toolName, success, duration, part.FunctionResponse.Response)
					}
				}

				if part.Text != "" && !part.Thought {
					lastTextResponse = part.Text
					r.reporter.AgentText(currentAgent, part.Text)

					if r.auditLogger != nil {
						_ = r.auditLogger.LogAgentText(currentAgent, part.Text, false)
					}
				}
			}
		}

		if len(event.Actions.StateDelta) > 0 && r.auditLogger != nil {
			keys := make([]string, 0, len(event.Actions.StateDelta))
			values := make(map[string]string, len(event.Actions.StateDelta))
			for key, value := range event.Actions.StateDelta {
				keys = append(keys, key)
				values[key] = fmt.Sprintf("%v", value)
			}
			_ = r.auditLogger.LogStateDelta(currentAgent, keys, values)
		}

		if event.Actions.Escalate && r.auditLogger != nil {
			_ = r.auditLogger.LogEscalation(currentAgent, "escalate flag set by agent")
		}

		if event.IsFinalResponse() {
			loopReason = "final_response"

			if r.auditLogger != nil {
				if lastTextResponse != "" {
					_ = r.auditLogger.LogAgentText(currentAgent, lastTextResponse, true)
				}
				_ = r.auditLogger.LogFinalResponseCheck(currentAgent, true, map[string]interface{}{
					"event_count": eventCount,
					"has_text":    lastTextResponse != "",
				})
			}
		}
	}

	duration := time.Since(start)

	if r.auditLogger != nil {
		_ = r.auditLogger.LogEventLoopComplete(loopReason, eventCount)
	}

	// The verdict is recorded by the synthesize_verdict tool, not parsed
	// from model text. No recorded verdict means the commander never
	// finished the investigation.
	verdict, ok := r.registry.Collector().Verdict()
	if !ok {
		err := fmt.Errorf("diagnosis ended without a verdict: synthesize_verdict was never called")
		if r.auditLogger != nil {
			_ = r.auditLogger.LogError(currentAgent, err)
		}
		return nil, err
	}

	if r.auditLogger != nil {
		_ = r.auditLogger.LogVerdict(verdict.IncidentID, verdict.RootCause, verdict.Confidence)
		_ = r.auditLogger.LogDiagnosisComplete(duration)
	}
	r.reporter.Completed(duration)

	return &DiagnosisResult{
		IncidentID:   incidentID,
		SessionID:    r.sessionID,
		Verdict:      verdict,
		Records:      r.registry.Collector().Records(),
		FinalText:    lastTextResponse,
		Duration:     duration,
		LLMRequests:  r.totalLLMRequests,
		InputTokens:  r.totalInputTokens,
		OutputTokens: r.totalOutputTokens,
	}, nil
}

// Close flushes session metrics and closes the audit log. Call once
// after the last diagnosis on this runner.
func (r *Runner) Close() error {
	if r.auditLogger == nil {
		return nil
	}
	_ = r.auditLogger.LogSessionMetrics(r.totalLLMRequests, r.totalInputTokens, r.totalOutputTokens)
	_ = r.auditLogger.LogSessionEnd()
	return r.auditLogger.Close()
}

// SessionID returns the current session ID.
func (r *Runner) SessionID() string {
	return r.sessionID
}

// Registry returns the tool registry backing this runner.
func (r *Runner) Registry() *tools.Registry {
	return r.registry
}

// callKey pairs a tool start with its response event. Call IDs are
// optional in the protocol, so the tool name is the fallback.
func callKey(id, name string) string {
	if id == "" {
		return name
	}
	return id
}

// createMockLLM creates a mock LLM from a model spec. Format: "mock",
// "mock:scenario-name" or "mock:/path/to/scenario.yaml".
func createMockLLM(modelSpec string) (adkmodel.LLM, error) {
	parts := strings.SplitN(modelSpec, ":", 2)

	if len(parts) == 1 {
		// Bare "mock" replays the recorded demo investigation.
		return model.NewMockLLMFromScenario(model.DemoScenario(mockdata.DemoIncidentID))
	}

	spec := parts[1]

	// File paths load directly; anything else is a scenario name under
	// ~/.responder/scenarios/
	if strings.HasSuffix(spec, ".yaml") || strings.HasSuffix(spec, ".yml") || strings.Contains(spec, "/") {
		return model.NewMockLLM(spec)
	}
	return model.NewMockLLMFromName(spec)
}

// applyScenarioToolOverrides re-registers every tool the scenario pins
// with its canned response. The live tool's description and schema are
// kept so the agents see an unchanged contract.
func (r *Runner) applyScenarioToolOverrides(scenario *model.Scenario) {
	if scenario == nil {
		return
	}
	for name, resp := range scenario.ToolResponses {
		var desc string
		var schema map[string]interface{}
		if existing, ok := r.registry.Get(name); ok {
			desc = existing.Description()
			schema = existing.InputSchema()
		}
		r.registry.Register(tools.NewMockTool(name, desc, schema, &tools.Result{
			Success: resp.Success,
			Summary: resp.Summary,
			Data:    resp.Data,
			Error:   resp.Error,
		}, time.Duration(resp.DelayMs)*time.Millisecond))
	}
}
