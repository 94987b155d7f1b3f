package usecase

import (
	"fmt"
	"math"
	"sort"

	"github.com/levan-petrosiani/civil-code-rag-agent/internal/core/domain"
)

// cosineSimilarity returns 0 when either vector has zero norm.
func cosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("cosine similarity: dimension mismatch %d != %d", len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		x := float64(a[i])
		y := float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// rerankByCosine scores every candidate against the query vector and orders
// them by descending score. Equal scores keep candidate order.
func rerankByCosine(
	queryVector []float32,
	candidates []string,
	embeddings map[string][]float32,
	corpus *domain.Corpus,
) ([]domain.RankedPassage, error) {
	ranked := make([]domain.RankedPassage, 0, len(candidates))
	for _, text := range candidates {
		vector, ok := embeddings[text]
		if !ok {
			return nil, fmt.Errorf("rerank: missing embedding for candidate")
		}
		score, err := cosineSimilarity(queryVector, vector)
		if err != nil {
			return nil, fmt.Errorf("rerank: %w", err)
		}

		item := domain.RankedPassage{Text: text, Score: score}
		if passage, found := corpus.Lookup(text); found {
			item.Metadata = passage.Metadata
		}
		ranked = append(ranked, item)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked, nil
}
