package main

import (
	"context"

	"faq-assistant/app"
	"faq-assistant/config"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "dev"

var (
	faqFiles []string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "faq-cli",
	Short: "Ask the FAQ assistant from the command line",
	Long: `faq-cli loads the configured FAQ sources, builds the embedding corpus
and answers questions with the exact, semantic and LLM stages.
Configuration is read from config.yaml and the environment.`,
	SilenceUsage: true,
}

// openApp builds the application for a command. Tests replace it.
var openApp = func(ctx context.Context) (*app.App, error) {
	logger, err := config.InitLogger(logLevel)
	if err != nil {
		return nil, err
	}
	cfg := config.Load(logger)
	if len(faqFiles) > 0 {
		cfg.FAQFiles = faqFiles
	}
	logger.Debug("Configuration loaded", zap.Strings("faq_files", cfg.FAQFiles))
	return app.Build(ctx, cfg, logger)
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&faqFiles, "faq", nil, "FAQ source files (overrides FAQ_FILES)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level written to stderr")
}
