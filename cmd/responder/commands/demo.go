package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/incidentlab/responder/internal/agent/runner"
	"github.com/incidentlab/responder/internal/mockdata"
	"github.com/spf13/cobra"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run the built-in database incident demo",
	Long: `Run the complete diagnosis flow against the built-in demo incident
(inc-db-5001, a SEV-1 database connection pool exhaustion in production).

Fixtures are written to a temporary directory and the scripted mock model
replays the commander's delegation flow, so the demo runs offline without
credentials.`,
	RunE: runDemo,
}

func runDemo(cmd *cobra.Command, args []string) error {
	if err := setupLogging(logLevelFlags); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}

	dir, err := os.MkdirTemp("", "responder-demo-*")
	if err != nil {
		return fmt.Errorf("failed to create demo fixture directory: %w", err)
	}
	defer os.RemoveAll(dir)

	if err := mockdata.WriteDemoData(dir); err != nil {
		return fmt.Errorf("failed to write demo fixtures: %w", err)
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

	r, err := runner.New(runner.Config{
		DataDir:  dir,
		Model:    "mock",
		Reporter: runner.NewConsoleReporter(os.Stdout),
	})
	if err != nil {
		return fmt.Errorf("failed to create diagnosis runner: %w", err)
	}
	defer r.Close()

	result, err := r.Diagnose(ctx, mockdata.DemoIncidentID)
	if err != nil {
		return err
	}

	fmt.Println(runner.RenderMarkdown(runner.FormatVerdict(result.Verdict)))
	return nil
}
