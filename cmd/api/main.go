package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/net/netutil"

	httpadapter "github.com/levan-petrosiani/civil-code-rag-agent/internal/adapters/http"
	"github.com/levan-petrosiani/civil-code-rag-agent/internal/bootstrap"
	"github.com/levan-petrosiani/civil-code-rag-agent/internal/config"
	"github.com/levan-petrosiani/civil-code-rag-agent/internal/observability/logging"
	"github.com/levan-petrosiani/civil-code-rag-agent/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("api", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	apiMetrics := metrics.New("api")
	app, err := bootstrap.New(ctx, cfg, logger, apiMetrics)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if err := app.IndexOnStartup(ctx); err != nil {
		logger.Error("startup_indexing_failed", "mode", cfg.IngestMode, "error", err)
		os.Exit(1)
	}

	var indexer httpadapter.IndexRequester
	if app.Queue != nil {
		indexer = app.Indexer
	}
	router := httpadapter.NewRouter(cfg, app.Retriever, app.Answerer, indexer, apiMetrics).Handler()
	server := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      time.Duration(cfg.RetrieveTimeoutSeconds+30) * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	listener, err := net.Listen("tcp", ":"+cfg.APIPort)
	if err != nil {
		logger.Error("api_listen_failed", "port", cfg.APIPort, "error", err)
		os.Exit(1)
	}
	if cfg.APIMaxConnections > 0 {
		listener = netutil.LimitListener(listener, cfg.APIMaxConnections)
	}

	go func() {
		logger.Info("api_listening", "port", cfg.APIPort, "max_connections", cfg.APIMaxConnections)
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api_server_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api_shutdown_failed", "error", err)
	}
}
