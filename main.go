package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"faq-assistant/app"
	"faq-assistant/config"
	"faq-assistant/web"

	"go.uber.org/zap"
)

func main() {
	// Initialize logger with default level to load config
	tempLogger, err := config.InitLogger("info")
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	// Load config (which includes log level setting)
	cfg := config.Load(tempLogger)

	// Re-initialize logger with configured level
	logger, err := config.InitLogger(cfg.LogLevel)
	if err != nil {
		fmt.Printf("Failed to re-initialize logger with configured level: %v\n", err)
		os.Exit(1)
	}
	defer config.Cleanup()

	// Create context that listens for interrupt signals
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	assistant, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize FAQ assistant", zap.Error(err))
	}
	defer assistant.Close()

	webServer := web.NewServer(assistant.Resolver, assistant.Store, assistant.Corpus.Len(), logger, cfg)

	port := fmt.Sprintf(":%d", cfg.WebPort)
	logger.Info("Starting FAQ assistant web server", zap.String("port", port))
	if err := webServer.Start(ctx, port); err != nil {
		logger.Error("Web server error", zap.Error(err))
		os.Exit(1)
	}
}
