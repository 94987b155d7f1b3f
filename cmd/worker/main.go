package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/levan-petrosiani/civil-code-rag-agent/internal/bootstrap"
	"github.com/levan-petrosiani/civil-code-rag-agent/internal/config"
	"github.com/levan-petrosiani/civil-code-rag-agent/internal/observability/logging"
	"github.com/levan-petrosiani/civil-code-rag-agent/internal/observability/metrics"
)

const ingestRequestTimeout = 30 * time.Minute

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("worker", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.VectorBackend != config.VectorBackendQdrant {
		logger.Error("worker_requires_shared_vector_store", "vector_backend", cfg.VectorBackend, "hint", "set VECTOR_BACKEND=qdrant")
		os.Exit(1)
	}

	workerMetrics := metrics.New("worker")
	requests := metrics.NewWorkerMetrics(workerMetrics)

	app, err := bootstrap.New(ctx, cfg, logger, workerMetrics)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if app.Queue == nil {
		logger.Error("worker_requires_queue", "hint", "set NATS_URL")
		os.Exit(1)
	}

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker_metrics_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker_subscribed", "subject", cfg.NATSSubject, "collection", cfg.VectorCollection)
	err = app.Queue.SubscribeIngestRequests(ctx, func(handlerCtx context.Context, collection string) error {
		requestCtx, cancel := context.WithTimeout(handlerCtx, ingestRequestTimeout)
		defer cancel()

		startedAt := time.Now()
		requests.StartRequest()
		err := app.HandleIngestRequest(requestCtx, collection)
		requests.FinishRequest(time.Since(startedAt), err)
		return err
	})
	if err != nil {
		logger.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}
