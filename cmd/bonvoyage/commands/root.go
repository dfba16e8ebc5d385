package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/moolen/bonvoyage/internal/config"
	"github.com/moolen/bonvoyage/internal/logging"
	"github.com/spf13/cobra"
)

const Version = "0.1.0"

var (
	logLevelFlags []string // Supports multiple --log-level flags
	configPath    string
	modelFlag     string
)

var rootCmd = &cobra.Command{
	Use:   "bonvoyage",
	Short: "BonVoyage - AI travel itinerary planner",
	Long: `BonVoyage plans a trip with three AI agents: a logistics researcher and a
local guide that can search the web, and a planner that turns both reports
into a day-by-day itinerary.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLog(logLevelFlags)
	},
}

// Execute runs the root command and prints the error, if any.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

func init() {
	// Supports per-package log levels: --log-level debug --log-level agent.model=debug
	rootCmd.PersistentFlags().StringSliceVar(&logLevelFlags, "log-level",
		[]string{"info"},
		"Log level for packages. Use 'default=level' for default, or 'package.name=level' for per-package.\n"+
			"Examples: --log-level debug (all), --log-level pipeline=debug --log-level search=warn")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Path to a YAML config file (BONVOYAGE_* environment variables override it)")
	rootCmd.PersistentFlags().StringVar(&modelFlag, "model", "",
		"Model to plan with, e.g. gemini-2.5-flash, claude-sonnet-4-5-20250929 or mock (overrides llm.model)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(planCmd)
}

// loadConfig reads the config file and applies command-line overrides.
func loadConfig() (*config.Config, error) {
	if modelFlag != "" {
		// Set through the environment so the provider's API key is resolved for
		// the overridden model, not the configured one.
		if err := os.Setenv(config.EnvPrefix+"LLM_MODEL", modelFlag); err != nil {
			return nil, err
		}
	}
	return config.Load(configPath)
}

// setupLog initializes the logging system with parsed log level flags.
// Priority: CLI flags > LOG_LEVEL_* environment variables > info
func setupLog(flags []string) error {
	defaultLevel, packageLevels, err := parseLogLevelFlags(flags, os.Environ())
	if err != nil {
		return err
	}
	return logging.Initialize(defaultLevel, packageLevels)
}

// parseLogLevelFlags merges LOG_LEVEL_* variables and --log-level flags.
//
// CLI format: ["debug"], ["default=info", "agent.model=debug"]
// Env vars: LOG_LEVEL_AGENT_MODEL=debug (package name uppercased, dots to underscores)
func parseLogLevelFlags(flags, environ []string) (string, map[string]string, error) {
	levels := make(map[string]string)

	for _, pair := range environ {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || !strings.HasPrefix(key, "LOG_LEVEL_") {
			continue
		}
		levels[convertEnvKeyToPackageName(key)] = value
	}

	for _, flag := range flags {
		pkg, level, ok := strings.Cut(flag, "=")
		if !ok {
			levels["default"] = flag
			continue
		}
		levels[pkg] = level
	}

	defaultLevel := "info"
	if level, exists := levels["default"]; exists {
		defaultLevel = level
		delete(levels, "default")
	}
	if _, err := logging.ParseLevel(defaultLevel); err != nil {
		return "", nil, err
	}
	for pkg, level := range levels {
		if _, err := logging.ParseLevel(level); err != nil {
			return "", nil, fmt.Errorf("invalid log level for package %q: %w", pkg, err)
		}
	}
	return defaultLevel, levels, nil
}

// convertEnvKeyToPackageName converts LOG_LEVEL_AGENT_MODEL -> agent.model
func convertEnvKeyToPackageName(envKey string) string {
	name := strings.TrimPrefix(envKey, "LOG_LEVEL_")
	return strings.ToLower(strings.ReplaceAll(name, "_", "."))
}
