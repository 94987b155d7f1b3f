package ports

import (
	"context"
	"io"
	"time"

	"github.com/levan-petrosiani/civil-code-rag-agent/internal/core/domain"
)

// Embedder maps texts to vectors, one per input, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// LexicalIndex ranks corpus passages by term overlap. Implementations are
// immutable after construction and never fail.
type LexicalIndex interface {
	Search(query string, topK int) []string
}

// VectorIndex is the persistent nearest-neighbour store over passage embeddings.
type VectorIndex interface {
	Count(ctx context.Context) (int, error)
	Upsert(ctx context.Context, passages []domain.Passage, vectors [][]float32) error
	Query(ctx context.Context, queryVector []float32, nResults int) (domain.DenseResult, error)
}

// IngestionGuard runs fn at most once per collection across all callers
// sharing the guard's backing store. It reports whether fn was skipped.
type IngestionGuard interface {
	RunOnce(ctx context.Context, collection string, fn func(context.Context) (int, error)) (skipped bool, err error)
}

// AnswerGenerator creates the final user-facing answer from joined context.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, question, contextText string) (string, error)
}

// ObjectStorage stores corpus artifacts (source text, chunk cache).
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// IngestQueue publishes/consumes corpus ingestion requests.
type IngestQueue interface {
	PublishIngestRequest(ctx context.Context, collection string) error
	SubscribeIngestRequests(ctx context.Context, handler func(context.Context, string) error) error
}

// RetrievalObserver receives per-call retrieval and ingestion outcomes.
type RetrievalObserver interface {
	ObserveRetrieval(stats domain.CandidateStats, duration time.Duration, err error)
	ObserveIngestion(report domain.IndexReport, duration time.Duration, err error)
}
