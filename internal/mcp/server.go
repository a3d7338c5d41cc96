// Package mcp exposes the diagnosis toolchain over the Model Context
// Protocol so external assistants can drive an investigation with the
// same tools the commander agent uses.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/incidentlab/responder/internal/agent/tools"
	"github.com/incidentlab/responder/internal/diagnosis"
	"github.com/incidentlab/responder/internal/logging"
	"github.com/incidentlab/responder/internal/mockdata"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ResponderServer wraps the mcp-go server around the diagnosis tool
// registry and the fixture store.
type ResponderServer struct {
	mcpServer    *server.MCPServer
	store        *mockdata.Store
	registry     *tools.Registry
	pipeline     *diagnosis.Pipeline
	metrics      *Metrics
	promRegistry *prometheus.Registry
	tracer       trace.Tracer
	version      string
}

// ServerOptions configures an MCP server beyond what the plain
// constructor covers.
type ServerOptions struct {
	DataDir string
	Version string
	// Tracer wraps tool execution in spans. Defaults to the global
	// tracer provider, which is a no-op unless tracing is configured.
	Tracer trace.Tracer
}

// NewResponderServer creates an MCP server over the fixture store at dataDir.
func NewResponderServer(dataDir, version string) (*ResponderServer, error) {
	return NewResponderServerWithOptions(ServerOptions{
		DataDir: dataDir,
		Version: version,
	})
}

// NewResponderServerWithOptions creates a new Responder MCP server with explicit wiring
func NewResponderServerWithOptions(opts ServerOptions) (*ResponderServer, error) {
	store, err := mockdata.NewStore(mockdata.StoreConfig{Dir: opts.DataDir})
	if err != nil {
		return nil, fmt.Errorf("failed to open fixture store: %w", err)
	}

	registry := tools.NewRegistry(tools.Dependencies{
		Data:   store,
		Logger: slog.New(slog.NewTextHandler(os.Stderr, nil)),
	})

	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer("responder-mcp")
	}

	// Tool list is static, so no listChanged notifications.
	mcpServer := server.NewMCPServer(
		"Responder MCP Server",
		opts.Version,
		server.WithToolCapabilities(false),
		server.WithLogging(),
	)

	promRegistry := prometheus.NewRegistry()

	s := &ResponderServer{
		mcpServer:    mcpServer,
		store:        store,
		registry:     registry,
		pipeline:     diagnosis.NewPipeline(),
		metrics:      NewMetrics(promRegistry),
		promRegistry: promRegistry,
		tracer:       tracer,
		version:      opts.Version,
	}

	if err := s.registerTools(); err != nil {
		return nil, err
	}
	s.registerPrompts()

	logger := logging.GetLogger("mcp")
	logger.Info("MCP server initialized with %d tools", len(registry.List())+1)

	return s, nil
}

// registerTools exposes every diagnosis registry tool plus the one-shot
// diagnose tool that runs the whole pipeline in a single call.
func (s *ResponderServer) registerTools() error {
	registered := s.registry.List()
	sort.Slice(registered, func(i, j int) bool { return registered[i].Name() < registered[j].Name() })

	for _, tool := range registered {
		schemaJSON, err := json.Marshal(tool.InputSchema())
		if err != nil {
			return fmt.Errorf("failed to marshal schema for tool %s: %w", tool.Name(), err)
		}

		mcpTool := mcp.NewToolWithRawSchema(tool.Name(), tool.Description(), schemaJSON)
		s.mcpServer.AddTool(mcpTool, s.createToolHandler(tool.Name()))
	}

	return s.registerDiagnoseTool()
}

func (s *ResponderServer) createToolHandler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx, span := s.tracer.Start(ctx, "mcp.tool."+name,
			trace.WithAttributes(attribute.String("responder.tool", name)),
		)
		defer span.End()

		// The registry takes raw JSON arguments.
		args, err := json.Marshal(request.Params.Arguments)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err)), nil
		}

		start := time.Now()
		result := s.registry.Execute(ctx, name, args)
		s.metrics.ObserveToolCall(name, result.Success, time.Since(start))

		if !result.Success {
			span.SetStatus(codes.Error, result.Error)
			return mcp.NewToolResultError(result.Error), nil
		}

		resultJSON, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to format result: %v", err)), nil
		}

		return mcp.NewToolResultText(string(resultJSON)), nil
	}
}

func (s *ResponderServer) registerDiagnoseTool() error {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"incident_id": map[string]interface{}{
				"type":        "string",
				"description": "Incident identifier matching a scenario fixture, e.g. inc-db-5001",
			},
		},
		"required": []string{"incident_id"},
	}
	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("failed to marshal diagnose schema: %w", err)
	}

	mcpTool := mcp.NewToolWithRawSchema(
		"diagnose",
		"Run the full diagnosis pipeline for an incident and return the verdict with per-agent findings",
		schemaJSON,
	)

	s.mcpServer.AddTool(mcpTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx, span := s.tracer.Start(ctx, "mcp.tool.diagnose")
		defer span.End()

		args, err := json.Marshal(request.Params.Arguments)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err)), nil
		}

		var input struct {
			IncidentID string `json:"incident_id"`
		}
		if err := json.Unmarshal(args, &input); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err)), nil
		}
		if input.IncidentID == "" {
			return mcp.NewToolResultError("incident_id is required"), nil
		}
		span.SetAttributes(attribute.String("responder.incident_id", input.IncidentID))

		start := time.Now()
		report, err := s.runDiagnosis(ctx, input.IncidentID)
		s.metrics.ObserveToolCall("diagnose", err == nil, time.Since(start))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "diagnosis failed")
			return mcp.NewToolResultError(fmt.Sprintf("Diagnosis failed: %v", err)), nil
		}

		resultJSON, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to format result: %v", err)), nil
		}

		return mcp.NewToolResultText(string(resultJSON)), nil
	})

	return nil
}

// runDiagnosis loads the incident fixtures and runs the rule pipeline
// directly, without going through an LLM.
func (s *ResponderServer) runDiagnosis(ctx context.Context, incidentID string) (*diagnosis.Report, error) {
	inc, err := s.store.LoadIncident(incidentID)
	if err != nil {
		return nil, err
	}
	obs, err := s.store.LoadContext(incidentID)
	if err != nil {
		return nil, err
	}
	return s.pipeline.Run(ctx, *inc, *obs)
}

func (s *ResponderServer) registerPrompts() {
	diagnosePrompt := mcp.Prompt{
		Name:        "diagnose_incident",
		Description: "Run a commander-style multi-agent diagnosis for an incident",
		Arguments: []mcp.PromptArgument{
			{Name: "incident_id", Description: "Incident identifier, e.g. inc-db-5001", Required: true},
			{Name: "focus", Description: "Optional area to weight, e.g. database or autoscaling", Required: false},
		},
	}

	s.mcpServer.AddPrompt(diagnosePrompt, func(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		incidentID := request.Params.Arguments["incident_id"]
		focus := request.Params.Arguments["focus"]
		if incidentID == "" {
			return nil, fmt.Errorf("incident_id is required")
		}

		messages := []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: buildDiagnosisPromptText(incidentID, focus),
				},
			},
		}

		return &mcp.GetPromptResult{
			Description: "Multi-agent incident diagnosis workflow",
			Messages:    messages,
		}, nil
	})

	postMortemPrompt := mcp.Prompt{
		Name:        "incident_postmortem",
		Description: "Produce a post-mortem write-up from a completed diagnosis",
		Arguments: []mcp.PromptArgument{
			{Name: "incident_id", Description: "Incident identifier, e.g. inc-db-5001", Required: true},
			{Name: "audience", Description: "Optional audience, e.g. executives or engineering", Required: false},
		},
	}

	s.mcpServer.AddPrompt(postMortemPrompt, func(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		incidentID := request.Params.Arguments["incident_id"]
		audience := request.Params.Arguments["audience"]
		if incidentID == "" {
			return nil, fmt.Errorf("incident_id is required")
		}

		messages := []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: buildPostmortemPromptText(incidentID, audience),
				},
			},
		}

		return &mcp.GetPromptResult{
			Description: "Incident post-mortem workflow",
			Messages:    messages,
		}, nil
	})
}

func buildDiagnosisPromptText(incidentID, focus string) string {
	text := fmt.Sprintf("Diagnose incident %s. Call route_symptoms first to select specialist agents, "+
		"then analyze_logs and analyze_metrics for the selected roles, and finish with synthesize_verdict. "+
		"Use get_observability_context only to give agents context, never to analyze raw data yourself. "+
		"Report the root cause, the failure chain and the recommended actions.", incidentID)
	if focus != "" {
		text += fmt.Sprintf(" Weight the investigation towards: %s.", focus)
	}
	return text
}

func buildPostmortemPromptText(incidentID, audience string) string {
	text := fmt.Sprintf("Run the diagnose tool for incident %s, then write a post-mortem with sections for "+
		"impact, root cause, contributing factors, and remediation split into immediate, short-term and "+
		"long-term actions.", incidentID)
	if audience != "" {
		text += fmt.Sprintf(" Write it for %s.", audience)
	}
	return text
}

// GetMCPServer exposes the wrapped mcp-go server so transports can
// mount it.
func (s *ResponderServer) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

// MetricsHandler serves the server's Prometheus registry, mounted at
// /metrics by the HTTP transport.
func (s *ResponderServer) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(s.promRegistry, promhttp.HandlerOpts{})
}
