// Package main is the asha CLI: it serves the career-advisor API, ingests
// the PDF knowledge base and offers one-shot and interactive chat.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"asha/internal/config"
	"asha/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	configPath string
	verbose    bool
	timeout    time.Duration

	cfg    *config.Config
	logger *zap.Logger = zap.NewNop()

	// version is set at build time with -ldflags "-X main.version=...".
	version = "dev"
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "asha",
	Short: "Asha - career guidance assistant",
	Long: `Asha answers career questions using a PDF knowledge base, live web
search and HerKey job and event listings, then filters every reply for bias,
non-inclusive language and sensitive topics.

Run "asha serve" to start the HTTP API or "asha chat" for the terminal UI.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(); err != nil {
			return err
		}
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}

		// The TUI owns the terminal; keep the no-op logger there.
		if cmd.Name() == "chat" {
			return nil
		}

		logCfg := cfg.Logging
		if verbose {
			logCfg.Level = "debug"
		}
		logger, err = logging.Initialize(logCfg)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "asha.yaml", "Config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "Operation timeout")

	rootCmd.Version = version

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(safetyCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(mcpCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// commandContext returns the command's context, or Background when run
// outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
