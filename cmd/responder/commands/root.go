package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/incidentlab/responder/internal/config"
	"github.com/incidentlab/responder/internal/logging"
	"github.com/spf13/cobra"
)

const Version = "0.1.0"

var (
	logLevelFlags []string // repeatable --log-level flag
	configPath    string
)

var rootCmd = &cobra.Command{
	Use:   "responder",
	Short: "Responder - Autonomous incident first responder",
	Long: `Responder is an autonomous incident first responder. A commander agent
delegates symptom analysis to log and metric specialists, aggregates their
findings, and synthesizes a verdict with a root cause and tiered remediation.`,
	Version: Version,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&logLevelFlags, "log-level",
		[]string{"info"},
		"Log level for packages. Use 'default=level' for default, or 'package.name=level' for per-package.\n"+
			"Examples: --log-level debug (all), --log-level agent.runner=debug --log-level mcp=warn")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to a responder configuration file (YAML). Defaults apply when omitted.")

	rootCmd.AddCommand(demoCmd)
	rootCmd.AddCommand(diagnoseCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(gendataCmd)
}

// HandleError reports a fatal error on stderr and exits. A nil error
// is a no-op so call sites stay unconditional.
func HandleError(err error, msg string) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
		os.Exit(1)
	}
}

// loadConfig returns the configuration from --config when set, built-in
// defaults otherwise.
func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.LoadFile(configPath)
}

// setupLogging initializes the logging system from --log-level flags
// and LOG_LEVEL_* environment variables.
func setupLogging(flags []string) error {
	defaultLevel, packageLevels, err := parseLogLevels(flags)
	if err != nil {
		return err
	}
	return logging.Initialize(defaultLevel, packageLevels)
}

// parseLogLevels resolves the default log level and any per-package
// levels. Flags win over the environment; a flag without '=' sets the
// default level, "pkg.name=level" pins one package.
func parseLogLevels(flags []string) (string, map[string]string, error) {
	levels := logLevelsFromEnv()

	for _, flag := range flags {
		key, level, found := strings.Cut(flag, "=")
		if !found {
			levels["default"] = flag
			continue
		}
		levels[key] = level
	}

	defaultLevel := "info"
	if level, ok := levels["default"]; ok {
		defaultLevel = level
		delete(levels, "default")
	}

	if err := checkLogLevel(defaultLevel); err != nil {
		return "", nil, err
	}
	for pkg, level := range levels {
		if err := checkLogLevel(level); err != nil {
			return "", nil, fmt.Errorf("invalid log level for package %q: %v", pkg, err)
		}
	}
	return defaultLevel, levels, nil
}

// logLevelsFromEnv reads LOG_LEVEL_AGENT_RUNNER=debug style variables
// into {"agent.runner": "debug"}.
func logLevelsFromEnv() map[string]string {
	levels := make(map[string]string)
	for _, kv := range os.Environ() {
		key, value, found := strings.Cut(kv, "=")
		if !found || !strings.HasPrefix(key, "LOG_LEVEL_") {
			continue
		}
		levels[envKeyToPackage(key)] = value
	}
	return levels
}

// envKeyToPackage converts LOG_LEVEL_AGENT_RUNNER to agent.runner.
func envKeyToPackage(envKey string) string {
	name := strings.TrimPrefix(envKey, "LOG_LEVEL_")
	return strings.ToLower(strings.ReplaceAll(name, "_", "."))
}

func checkLogLevel(level string) error {
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "error", "fatal":
		return nil
	}
	return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error, fatal)", level)
}

// envOr returns the environment variable value, or fallback when unset.
func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
