// Package cmd contains the esgpilot command line interface.
package cmd

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/greenloop/esgpilot/internal/log"
)

var (
	logLevel string
	logJSON  bool
)

var rootCmd = &cobra.Command{
	Use:   "esgpilot",
	Short: "esgpilot - conversational ESG reporting assistant",
	Long: `esgpilot is a conversational assistant for ESG data exploration
and report generation. It classifies what you ask for, pulls the
entity's recorded metrics from PostgreSQL, and either answers
directly or assembles a full AI-enriched ESG report.

Run "esgpilot serve" to start the HTTP API, or "esgpilot ask" for a
one-shot question from the terminal.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		slog.SetDefault(initLogger())
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Log in JSON format")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// initLogger builds the process logger from the persistent flags.
// The DEBUG environment variable forces debug level regardless of the
// flag. Output goes to stderr, keeping stdout clean for command output.
func initLogger() log.Logger {
	level := parseLogLevel(logLevel)
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	return log.New(log.Config{Level: level, JSON: logJSON})
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
