package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/levan-petrosiani/civil-code-rag-agent/internal/core/domain"
	"github.com/levan-petrosiani/civil-code-rag-agent/internal/core/ports"
)

const (
	retrieveLimit     = 5
	defaultTopKDense  = 10
	defaultTopKSparse = 10
)

// RetrieveUseCase is the hybrid retrieval engine: dense and lexical candidate
// generation followed by a cosine rerank against the query embedding.
type RetrieveUseCase struct {
	embedder   ports.Embedder
	lexical    ports.LexicalIndex
	vectors    ports.VectorIndex
	corpus     *domain.Corpus
	topKDense  int
	topKSparse int
	observer   ports.RetrievalObserver
	logger     *slog.Logger
}

func NewRetrieveUseCase(
	embedder ports.Embedder,
	lexical ports.LexicalIndex,
	vectors ports.VectorIndex,
	corpus *domain.Corpus,
	topKDense int,
	topKSparse int,
	observer ports.RetrievalObserver,
	logger *slog.Logger,
) *RetrieveUseCase {
	if topKDense <= 0 {
		topKDense = defaultTopKDense
	}
	if topKSparse <= 0 {
		topKSparse = defaultTopKSparse
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RetrieveUseCase{
		embedder:   embedder,
		lexical:    lexical,
		vectors:    vectors,
		corpus:     corpus,
		topKDense:  topKDense,
		topKSparse: topKSparse,
		observer:   observer,
		logger:     logger,
	}
}

// Retrieve returns at most five passage texts, best first.
func (uc *RetrieveUseCase) Retrieve(ctx context.Context, query string) ([]string, error) {
	ranked, err := uc.RetrieveRanked(ctx, query)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(ranked))
	for _, item := range ranked {
		out = append(out, item.Text)
	}
	return out, nil
}

func (uc *RetrieveUseCase) RetrieveRanked(ctx context.Context, query string) ([]domain.RankedPassage, error) {
	startedAt := time.Now()
	var stats domain.CandidateStats

	ranked, err := uc.retrieve(ctx, query, &stats)
	if uc.observer != nil {
		uc.observer.ObserveRetrieval(stats, time.Since(startedAt), err)
	}
	if err != nil {
		uc.logger.Error("retrieve_failed", "error", err)
		return nil, err
	}

	uc.logger.Debug("retrieve_completed",
		"dense", stats.Dense,
		"sparse", stats.Sparse,
		"merged", stats.Merged,
		"returned", stats.Returned,
		"dense_fallback", stats.DenseFallback,
		"duration_ms", time.Since(startedAt).Milliseconds(),
	)
	return ranked, nil
}

func (uc *RetrieveUseCase) retrieve(ctx context.Context, query string, stats *domain.CandidateStats) ([]domain.RankedPassage, error) {
	queryVectors, err := uc.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, domain.WrapError(domain.ErrEmbedding, "embed query", err)
	}
	if len(queryVectors) != 1 {
		return nil, domain.WrapError(domain.ErrEmbedding, "embed query", fmt.Errorf("expected 1 vector, got %d", len(queryVectors)))
	}
	if len(queryVectors[0]) == 0 {
		return nil, domain.WrapError(domain.ErrEmbedding, "embed query", fmt.Errorf("empty query embedding"))
	}
	queryVector := queryVectors[0]

	var (
		dense  domain.DenseResult
		sparse []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		result, queryErr := uc.vectors.Query(gctx, queryVector, uc.topKDense)
		if queryErr != nil {
			return domain.WrapError(domain.ErrVectorStore, "dense query", queryErr)
		}
		dense = result
		return nil
	})
	g.Go(func() error {
		sparse = uc.lexical.Search(query, uc.topKSparse)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats.Dense = len(dense.Texts)
	stats.Sparse = len(sparse)

	candidates := mergeCandidates(dense.Texts, sparse)
	stats.Merged = len(candidates)
	if len(candidates) == 0 {
		return []domain.RankedPassage{}, nil
	}

	denseVectors := dense.Embeddings
	if len(dense.Texts) > 0 && !validDenseShape(dense, len(queryVector)) {
		stats.DenseFallback = true
		uc.logger.Warn("dense_embeddings_malformed",
			"texts", len(dense.Texts),
			"embeddings", len(dense.Embeddings),
		)
		denseVectors, err = uc.embedder.Embed(ctx, dense.Texts)
		if err != nil {
			return nil, domain.WrapError(domain.ErrEmbedding, "re-embed dense results", err)
		}
		if len(denseVectors) != len(dense.Texts) {
			return nil, domain.WrapError(domain.ErrEmbedding, "re-embed dense results",
				fmt.Errorf("expected %d vectors, got %d", len(dense.Texts), len(denseVectors)))
		}
	}

	lookup := buildEmbeddingLookup(dense.Texts, denseVectors)
	missing := make([]string, 0, len(candidates))
	for _, text := range candidates {
		if _, ok := lookup[text]; !ok {
			missing = append(missing, text)
		}
	}
	if len(missing) > 0 {
		vectors, err := uc.embedder.Embed(ctx, missing)
		if err != nil {
			return nil, domain.WrapError(domain.ErrEmbedding, "embed sparse candidates", err)
		}
		if len(vectors) != len(missing) {
			return nil, domain.WrapError(domain.ErrEmbedding, "embed sparse candidates",
				fmt.Errorf("expected %d vectors, got %d", len(missing), len(vectors)))
		}
		for i, text := range missing {
			lookup[text] = vectors[i]
		}
	}

	ranked, err := rerankByCosine(queryVector, candidates, lookup, uc.corpus)
	if err != nil {
		return nil, err
	}
	ranked = trimRanked(ranked, retrieveLimit)
	stats.Returned = len(ranked)
	return ranked, nil
}

func validDenseShape(dense domain.DenseResult, dim int) bool {
	if len(dense.Embeddings) != len(dense.Texts) {
		return false
	}
	for _, vector := range dense.Embeddings {
		if vector == nil || len(vector) != dim {
			return false
		}
	}
	return true
}
