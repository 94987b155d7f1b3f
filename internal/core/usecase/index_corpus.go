package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/levan-petrosiani/civil-code-rag-agent/internal/core/domain"
	"github.com/levan-petrosiani/civil-code-rag-agent/internal/core/ports"
)

// IndexCorpusUseCase embeds the corpus into the vector index once per
// collection. A populated collection is never re-embedded.
type IndexCorpusUseCase struct {
	collection string
	embedder   ports.Embedder
	vectors    ports.VectorIndex
	guard      ports.IngestionGuard
	queue      ports.IngestQueue
	observer   ports.RetrievalObserver
	logger     *slog.Logger
}

func NewIndexCorpusUseCase(
	collection string,
	embedder ports.Embedder,
	vectors ports.VectorIndex,
	guard ports.IngestionGuard,
	queue ports.IngestQueue,
	observer ports.RetrievalObserver,
	logger *slog.Logger,
) *IndexCorpusUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &IndexCorpusUseCase{
		collection: collection,
		embedder:   embedder,
		vectors:    vectors,
		guard:      guard,
		queue:      queue,
		observer:   observer,
		logger:     logger,
	}
}

func (uc *IndexCorpusUseCase) Index(ctx context.Context, corpus *domain.Corpus) (domain.IndexReport, error) {
	startedAt := time.Now()
	report := domain.IndexReport{Collection: uc.collection}

	var existing int
	skipped, err := uc.guard.RunOnce(ctx, uc.collection, func(ctx context.Context) (int, error) {
		count, err := uc.vectors.Count(ctx)
		if err != nil {
			return 0, domain.WrapError(domain.ErrVectorStore, "count collection", err)
		}
		if count > 0 {
			existing = count
			return count, nil
		}
		return uc.embedAndUpsert(ctx, corpus)
	})
	switch {
	case err != nil:
	case skipped:
		report.Skipped = true
		report.Count = uc.countIndexed(ctx)
	case existing > 0:
		report.Skipped = true
		report.Count = existing
	default:
		report.Count = corpus.Len()
	}

	if uc.observer != nil {
		uc.observer.ObserveIngestion(report, time.Since(startedAt), err)
	}
	if err != nil {
		uc.logger.Error("corpus_index_failed", "collection", uc.collection, "error", err)
		return report, err
	}
	uc.logger.Info("corpus_index_completed",
		"collection", uc.collection,
		"skipped", report.Skipped,
		"count", report.Count,
		"duration_ms", time.Since(startedAt).Milliseconds(),
	)
	return report, nil
}

// countIndexed reports the stored passage count after the guard skipped.
// A failed count leaves the report at zero and is only logged.
func (uc *IndexCorpusUseCase) countIndexed(ctx context.Context) int {
	count, err := uc.vectors.Count(ctx)
	if err != nil {
		uc.logger.Warn("corpus_count_failed", "collection", uc.collection, "error", err)
		return 0
	}
	return count
}

// Enqueue asks a worker to run Index for this collection.
func (uc *IndexCorpusUseCase) Enqueue(ctx context.Context) error {
	if uc.queue == nil {
		return fmt.Errorf("enqueue index request: queue is not configured")
	}
	if err := uc.queue.PublishIngestRequest(ctx, uc.collection); err != nil {
		return fmt.Errorf("publish ingest request: %w", err)
	}
	return nil
}

// HandleRequest is the queue subscription handler.
func (uc *IndexCorpusUseCase) HandleRequest(ctx context.Context, corpus *domain.Corpus, collection string) error {
	if strings.TrimSpace(collection) != uc.collection {
		return domain.WrapError(domain.ErrInvalidInput, "handle ingest request",
			fmt.Errorf("unknown collection %q", collection))
	}
	_, err := uc.Index(ctx, corpus)
	return err
}

func (uc *IndexCorpusUseCase) embedAndUpsert(ctx context.Context, corpus *domain.Corpus) (int, error) {
	passages := corpus.Passages()
	if len(passages) == 0 {
		return 0, nil
	}

	vectors, err := uc.embedder.Embed(ctx, corpus.Texts())
	if err != nil {
		return 0, domain.WrapError(domain.ErrEmbedding, "embed corpus", err)
	}
	if len(vectors) != len(passages) {
		return 0, domain.WrapError(domain.ErrEmbedding, "embed corpus",
			fmt.Errorf("expected %d vectors, got %d", len(passages), len(vectors)))
	}

	if err := uc.vectors.Upsert(ctx, passages, vectors); err != nil {
		return 0, domain.WrapError(domain.ErrVectorStore, "upsert corpus", err)
	}
	return len(passages), nil
}
