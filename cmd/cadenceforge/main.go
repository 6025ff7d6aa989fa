// Package main provides the cadenceforge binary entry point.
// CadenceForge turns unreliable AI contract generation into a pipeline
// that always produces deployable Cadence code: progressive prompt
// escalation, shallow validation, quality scoring, auto-correction, and
// a deterministic template fallback.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mosaicworks/cadenceforge/config"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "cadenceforge"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	// Optional .env for API keys; absence is not an error.
	_ = godotenv.Load()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Quality-assured Cadence contract generation",
		Long: `CadenceForge generates Flow Cadence smart contracts from natural
language prompts and guarantees usable output.

Every generation session runs through:
- progressive prompt enhancement across retry attempts
- shallow validation (brackets, placeholders, legacy syntax, structure)
- multi-dimensional quality scoring
- automatic correction of fixable issues
- a deterministic template fallback when all retries miss the bar`,
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		newGenerateCmd(&configPath, &logLevel),
		newValidateCmd(&logLevel),
		newScoreCmd(&logLevel),
		newClassifyCmd(),
		newFallbackCmd(),
		newSessionsCmd(&configPath, &logLevel),
		newServeCmd(&configPath, &logLevel),
		newConfigCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
			},
		},
	)

	return cmd
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration files",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the default user config file if it does not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.NewLoader(nil).EnsureUserConfig()
		},
	})

	return cmd
}

// setupLogger configures the default slog logger. The flag overrides
// the configured level.
func setupLogger(configuredLevel, configuredFormat, flagLevel string) *slog.Logger {
	levelName := configuredLevel
	if flagLevel != "" {
		levelName = flagLevel
	}

	level := slog.LevelInfo
	switch strings.ToLower(levelName) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if configuredFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
