package ports

import (
	"context"

	"github.com/levan-petrosiani/civil-code-rag-agent/internal/core/domain"
)

// PassageRetriever is the inbound contract of the hybrid retrieval engine.
type PassageRetriever interface {
	Retrieve(ctx context.Context, query string) ([]string, error)
	RetrieveRanked(ctx context.Context, query string) ([]domain.RankedPassage, error)
}

// QuestionAnswerer retrieves context and synthesizes an answer.
type QuestionAnswerer interface {
	Answer(ctx context.Context, question string) (*domain.Answer, error)
}

// CorpusIndexer populates the vector index exactly once per collection.
type CorpusIndexer interface {
	Index(ctx context.Context, corpus *domain.Corpus) (domain.IndexReport, error)
}
