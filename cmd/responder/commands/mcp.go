package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/incidentlab/responder/internal/lifecycle"
	"github.com/incidentlab/responder/internal/logging"
	"github.com/incidentlab/responder/internal/mcp"
	"github.com/incidentlab/responder/internal/tracing"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

var (
	mcpDataDir            string
	mcpHTTPAddr           string
	mcpTransportType      string
	mcpEndpointPath       string
	mcpTracingEnabled     bool
	mcpTracingEndpoint    string
	mcpTracingTLSCAPath   string
	mcpTracingTLSInsecure bool
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol (MCP) server that exposes the
diagnosis tools for AI assistants: the five registry tools plus a one-shot
diagnose tool that runs the whole pipeline.

Transports:
  http    streamable HTTP endpoint plus /health and /metrics (default)
  stdio   for clients that spawn the server as a subprocess

HTTP mode supports optional OTLP trace export.`,
	Run: runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&mcpDataDir, "data-dir", envOr("RESPONDER_DATA_DIR", ""),
		"Fixture tree root (defaults to the configured data_dir)")
	mcpCmd.Flags().StringVar(&mcpHTTPAddr, "http-addr", envOr("MCP_HTTP_ADDR", ""),
		"HTTP server address (host:port, defaults to the configured mcp_addr)")
	mcpCmd.Flags().StringVar(&mcpTransportType, "transport", "http", "Transport type: http or stdio")
	mcpCmd.Flags().StringVar(&mcpEndpointPath, "mcp-endpoint", envOr("MCP_ENDPOINT", ""),
		"HTTP endpoint path for MCP requests (defaults to the configured mcp_endpoint)")
	mcpCmd.Flags().BoolVar(&mcpTracingEnabled, "tracing-enabled", false, "Enable OpenTelemetry tracing (default: false)")
	mcpCmd.Flags().StringVar(&mcpTracingEndpoint, "tracing-endpoint", "", "OTLP gRPC endpoint for traces (e.g., otel-collector:4317)")
	mcpCmd.Flags().StringVar(&mcpTracingTLSCAPath, "tracing-tls-ca", "", "Path to CA certificate for TLS verification (optional)")
	mcpCmd.Flags().BoolVar(&mcpTracingTLSInsecure, "tracing-tls-insecure", false, "Skip TLS certificate verification (insecure, use only for testing)")
}

func runMCP(cmd *cobra.Command, args []string) {
	if err := setupLogging(logLevelFlags); err != nil {
		HandleError(err, "Failed to setup logging")
	}
	logger := logging.GetLogger("mcp")
	logger.Info("Starting Responder MCP Server (transport: %s)", mcpTransportType)

	cfg, err := loadConfig()
	if err != nil {
		HandleError(err, "Failed to load configuration")
	}

	// Flags (with env-var defaults) override the config file
	if mcpDataDir != "" {
		cfg.DataDir = mcpDataDir
	}
	if mcpHTTPAddr != "" {
		cfg.MCPAddr = mcpHTTPAddr
	}
	if mcpEndpointPath != "" {
		cfg.MCPEndpoint = mcpEndpointPath
	}
	if cmd.Flags().Changed("tracing-enabled") {
		cfg.TracingEnabled = mcpTracingEnabled
	}
	if mcpTracingEndpoint != "" {
		cfg.TracingEndpoint = mcpTracingEndpoint
	}
	if mcpTracingTLSCAPath != "" {
		cfg.TracingTLSCAPath = mcpTracingTLSCAPath
	}
	if cmd.Flags().Changed("tracing-tls-insecure") {
		cfg.TracingTLSInsecure = mcpTracingTLSInsecure
	}

	if err := cfg.Validate(); err != nil {
		HandleError(err, "Invalid configuration")
	}

	manager := lifecycle.NewManager()

	// A broken tracing setup downgrades to no tracing rather than
	// refusing to serve.
	tracingProvider, err := tracing.NewTracingProvider(tracing.Config{
		Enabled:     cfg.TracingEnabled,
		Endpoint:    cfg.TracingEndpoint,
		TLSCAPath:   cfg.TracingTLSCAPath,
		TLSInsecure: cfg.TracingTLSInsecure,
	})
	if err != nil {
		logger.Warn("Failed to initialize tracing (continuing without tracing): %v", err)
		tracingProvider = nil
	}

	serverOpts := mcp.ServerOptions{
		DataDir: cfg.DataDir,
		Version: Version,
	}

	// Managed by the lifecycle so shutdown flushes pending spans.
	if tracingProvider != nil {
		if err := manager.Register(tracingProvider); err != nil {
			HandleError(err, "Tracing registration error")
		}
		serverOpts.Tracer = tracingProvider.GetTracer("mcp")
	}

	responderServer, err := mcp.NewResponderServerWithOptions(serverOpts)
	if err != nil {
		logger.Fatal("Failed to create MCP server: %v", err)
	}
	mcpServer := responderServer.GetMCPServer()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("Received %v, shutting down", sig)
		cancel()
	}()

	// Lifecycle components come up before the transport accepts work.
	if err := manager.Start(ctx); err != nil {
		HandleError(err, "Startup error")
	}

	switch mcpTransportType {
	case "http":
		endpointPath := cfg.MCPEndpoint
		logger.Info("Starting HTTP server on %s (endpoint: %s)", cfg.MCPAddr, endpointPath)

		mux := serviceMux(responderServer.MetricsHandler())

		httpSrv := &http.Server{
			Addr:              cfg.MCPAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second, // Slowloris guard
		}

		// Stateless session management keeps clients that never send
		// an initialize/close pair working.
		streamable := server.NewStreamableHTTPServer(
			mcpServer,
			server.WithEndpointPath(endpointPath),
			server.WithStateLess(true),
			server.WithStreamableHTTPServer(httpSrv),
		)
		mux.Handle(endpointPath, streamable)

		errCh := make(chan error, 1)
		go func() {
			if err := streamable.Start(cfg.MCPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		select {
		case <-ctx.Done():
			logger.Info("Stopping HTTP server")
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()

			if err := streamable.Shutdown(shutdownCtx); err != nil {
				logger.Error("HTTP shutdown: %v", err)
			}
			if err := manager.Stop(shutdownCtx); err != nil {
				logger.Error("Error stopping components: %v", err)
			}
		case err := <-errCh:
			logger.Error("HTTP server failed: %v", err)
			os.Exit(1)
		}

	case "stdio":
		logger.Info("Serving MCP over stdio")
		if err := server.ServeStdio(mcpServer); err != nil {
			logger.Error("stdio transport: %v", err)
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := manager.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping components: %v", err)
		}

	default:
		logger.Fatal("Invalid transport type: %s (must be 'http' or 'stdio')", mcpTransportType)
	}

	logger.Info("MCP server stopped")
}

// serviceMux builds the HTTP mux with the operational endpoints served
// next to the MCP endpoint itself. The MCP handler is mounted by the
// caller once the streamable server exists.
func serviceMux(metrics http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", handleHealth)
	mux.Handle("/metrics", metrics)
	return mux
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
