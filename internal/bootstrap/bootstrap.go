package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/levan-petrosiani/civil-code-rag-agent/internal/config"
	"github.com/levan-petrosiani/civil-code-rag-agent/internal/core/domain"
	"github.com/levan-petrosiani/civil-code-rag-agent/internal/core/ports"
	"github.com/levan-petrosiani/civil-code-rag-agent/internal/core/usecase"
	"github.com/levan-petrosiani/civil-code-rag-agent/internal/infrastructure/corpus"
	"github.com/levan-petrosiani/civil-code-rag-agent/internal/infrastructure/guard/memory"
	"github.com/levan-petrosiani/civil-code-rag-agent/internal/infrastructure/lexical/bm25"
	"github.com/levan-petrosiani/civil-code-rag-agent/internal/infrastructure/llm/ollama"
	"github.com/levan-petrosiani/civil-code-rag-agent/internal/infrastructure/queue/nats"
	"github.com/levan-petrosiani/civil-code-rag-agent/internal/infrastructure/repository/postgres"
	"github.com/levan-petrosiani/civil-code-rag-agent/internal/infrastructure/resilience"
	"github.com/levan-petrosiani/civil-code-rag-agent/internal/infrastructure/storage/localfs"
	"github.com/levan-petrosiani/civil-code-rag-agent/internal/infrastructure/vector/chromem"
	"github.com/levan-petrosiani/civil-code-rag-agent/internal/infrastructure/vector/qdrant"
	"github.com/levan-petrosiani/civil-code-rag-agent/internal/observability/metrics"
)

// App is built once per process and handed to the adapters.
type App struct {
	Config  config.Config
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Corpus  *domain.Corpus

	Retriever *usecase.RetrieveUseCase
	Answerer  *usecase.AnswerUseCase
	Indexer   *usecase.IndexCorpusUseCase

	// Queue is nil when NATS_URL is unset.
	Queue *nats.Queue

	closers []func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger, m *metrics.Metrics) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := validateTopology(cfg); err != nil {
		return nil, err
	}
	app := &App{Config: cfg, Logger: logger, Metrics: m}
	if err := app.build(ctx); err != nil {
		return nil, err
	}
	return app, nil
}

// build releases whatever it opened when a later step fails.
func (app *App) build(ctx context.Context) (err error) {
	cfg, logger, m := app.Config, app.Logger, app.Metrics
	defer func() {
		if err != nil {
			app.Close()
		}
	}()

	var observer ports.RetrievalObserver
	var executor *resilience.Executor
	if cfg.ResilienceEnabled {
		policy := resilience.DefaultConfig()
		policy.RetryMaxAttempts = cfg.ResilienceAttempts
		executor = resilience.NewExecutor(policy).WithLogger(logger)
	}
	if m != nil {
		observer = m
		if executor != nil {
			executor.OnStateChange(m.ObserveBreakerTransition)
		}
	}

	ollamaClient := ollama.NewWithOptions(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, ollama.Options{
		Timeout:            time.Duration(cfg.OllamaTimeoutSecs) * time.Second,
		ResilienceExecutor: executor,
	})
	embedder := ollama.NewEmbedder(ollamaClient, cfg.EmbedBatchSize, cfg.EmbedRateLimitRPS)
	generator := ollama.NewGenerator(ollamaClient)

	vectors, err := newVectorIndex(cfg, embedder)
	if err != nil {
		return err
	}

	storage, err := localfs.New(cfg.CorpusStoragePath)
	if err != nil {
		return fmt.Errorf("init corpus storage: %w", err)
	}
	app.Corpus, err = corpus.NewLoader(storage, cfg.CorpusChunksFile, cfg.CorpusSourceFile, logger).Load(ctx)
	if err != nil {
		return fmt.Errorf("load corpus: %w", err)
	}

	guard, err := app.newIngestionGuard(ctx, cfg)
	if err != nil {
		return err
	}

	var queue ports.IngestQueue
	if cfg.NATSURL != "" {
		app.Queue, err = nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			ResilienceExecutor: executor,
			Logger:             logger,
		})
		if err != nil {
			return fmt.Errorf("init ingest queue: %w", err)
		}
		app.closers = append(app.closers, app.Queue.Close)
		queue = app.Queue
	}

	app.Retriever = usecase.NewRetrieveUseCase(
		embedder,
		bm25.New(app.Corpus.Texts()),
		vectors,
		app.Corpus,
		cfg.RAGTopKDense,
		cfg.RAGTopKSparse,
		observer,
		logger,
	)
	app.Answerer = usecase.NewAnswerUseCase(app.Retriever, generator)
	app.Indexer = usecase.NewIndexCorpusUseCase(cfg.VectorCollection, embedder, vectors, guard, queue, observer, logger)

	logger.Info("bootstrap_completed",
		"vector_backend", cfg.VectorBackend,
		"collection", cfg.VectorCollection,
		"passages", app.Corpus.Len(),
		"ledger", cfg.PostgresDSN != "",
		"queue", app.Queue != nil,
	)
	return nil
}

// ErrEmbeddedVectorStoreShared reports a multi-process setup on top of the
// embedded store. chromem loads its collection once per process, so an index
// written by another process stays invisible until restart.
var ErrEmbeddedVectorStoreShared = errors.New("embedded chromem store cannot be shared between processes, use VECTOR_BACKEND=qdrant")

func validateTopology(cfg config.Config) error {
	if cfg.VectorBackend != config.VectorBackendChromem && cfg.VectorBackend != "" {
		return nil
	}
	switch {
	case cfg.IngestMode == config.IngestModeQueue:
		return fmt.Errorf("INGEST_MODE=queue: %w", ErrEmbeddedVectorStoreShared)
	case cfg.NATSURL != "":
		return fmt.Errorf("NATS_URL is set: %w", ErrEmbeddedVectorStoreShared)
	case cfg.PostgresDSN != "":
		return fmt.Errorf("POSTGRES_DSN is set: %w", ErrEmbeddedVectorStoreShared)
	}
	return nil
}

func newVectorIndex(cfg config.Config, embedder ports.Embedder) (ports.VectorIndex, error) {
	switch cfg.VectorBackend {
	case config.VectorBackendQdrant:
		return qdrant.New(cfg.QdrantURL, cfg.VectorCollection), nil
	case config.VectorBackendChromem, "":
		db, err := chromem.Open(cfg.ChromemPath, cfg.ChromemCompress)
		if err != nil {
			return nil, fmt.Errorf("open chromem: %w", err)
		}
		store, err := chromem.New(db, cfg.VectorCollection, embedder)
		if err != nil {
			return nil, fmt.Errorf("init chromem collection: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported VECTOR_BACKEND %q", cfg.VectorBackend)
	}
}

func (a *App) newIngestionGuard(ctx context.Context, cfg config.Config) (ports.IngestionGuard, error) {
	if cfg.PostgresDSN == "" {
		return memory.New(), nil
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	a.closers = append(a.closers, func() { closeDB(db) })

	repo := postgres.NewIngestionRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure ingestion schema: %w", err)
	}
	return repo, nil
}

func closeDB(db *sql.DB) {
	_ = db.Close()
}

// IndexOnStartup applies INGEST_MODE.
func (a *App) IndexOnStartup(ctx context.Context) error {
	switch a.Config.IngestMode {
	case config.IngestModeSkip:
		return nil
	case config.IngestModeQueue:
		return a.Indexer.Enqueue(ctx)
	case config.IngestModeInline, "":
		_, err := a.Indexer.Index(ctx, a.Corpus)
		return err
	default:
		return fmt.Errorf("unsupported INGEST_MODE %q", a.Config.IngestMode)
	}
}

func (a *App) HandleIngestRequest(ctx context.Context, collection string) error {
	return a.Indexer.HandleRequest(ctx, a.Corpus, collection)
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
