package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	mcpadapter "github.com/levan-petrosiani/civil-code-rag-agent/internal/adapters/mcp"
	"github.com/levan-petrosiani/civil-code-rag-agent/internal/bootstrap"
	"github.com/levan-petrosiani/civil-code-rag-agent/internal/config"
	"github.com/levan-petrosiani/civil-code-rag-agent/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLoggerTo(os.Stderr, "mcp", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger, nil)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if err := app.IndexOnStartup(ctx); err != nil {
		logger.Error("startup_indexing_failed", "mode", cfg.IngestMode, "error", err)
		os.Exit(1)
	}

	logger.Info("mcp_serving_stdio")
	if err := mcpadapter.NewServer(app.Retriever, logger).ServeStdio(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		logger.Error("mcp_server_failed", "error", err)
		os.Exit(1)
	}
}
