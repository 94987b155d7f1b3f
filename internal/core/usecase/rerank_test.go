package usecase

import (
	"math"
	"testing"

	"github.com/levan-petrosiani/civil-code-rag-agent/internal/core/domain"
)

func TestCosineSimilarityZeroVectorIsZero(t *testing.T) {
	score, err := cosineSimilarity([]float32{0, 0, 0}, []float32{1, 2, 3})
	if err != nil {
		t.Fatalf("cosineSimilarity() error = %v", err)
	}
	if score != 0 || math.IsNaN(score) {
		t.Fatalf("expected 0 for zero vector, got %v", score)
	}
}

func TestCosineSimilarityDimensionMismatch(t *testing.T) {
	if _, err := cosineSimilarity([]float32{1, 0}, []float32{1, 0, 0}); err == nil {
		t.Fatalf("expected dimension mismatch error")
	}
}

func TestCosineSimilarityParallelVectors(t *testing.T) {
	score, err := cosineSimilarity([]float32{1, 2}, []float32{2, 4})
	if err != nil {
		t.Fatalf("cosineSimilarity() error = %v", err)
	}
	if math.Abs(score-1) > 1e-9 {
		t.Fatalf("expected 1, got %v", score)
	}
}

func TestRerankByCosineOrdersDescendingWithStableTies(t *testing.T) {
	candidates := []string{"tie-a", "best", "tie-b", "worst"}
	embeddings := map[string][]float32{
		"tie-a": {1, 1},
		"best":  {1, 0},
		"tie-b": {1, 1},
		"worst": {-1, 0},
	}
	corpus := domain.NewCorpus([]domain.Passage{
		{ID: "chunk_1", Text: "best", Metadata: domain.PassageMetadata{ArticleNumber: "7"}},
	})

	ranked, err := rerankByCosine([]float32{1, 0}, candidates, embeddings, corpus)
	if err != nil {
		t.Fatalf("rerankByCosine() error = %v", err)
	}

	order := []string{"best", "tie-a", "tie-b", "worst"}
	for i, want := range order {
		if ranked[i].Text != want {
			t.Fatalf("position %d: expected %q, got %q", i, want, ranked[i].Text)
		}
	}
	for i := 1; i < len(ranked); i++ {
		if ranked[i-1].Score < ranked[i].Score {
			t.Fatalf("scores not descending at %d: %v < %v", i, ranked[i-1].Score, ranked[i].Score)
		}
	}
	if ranked[0].Metadata.ArticleNumber != "7" {
		t.Fatalf("expected metadata from corpus, got %+v", ranked[0].Metadata)
	}
}

func TestRerankByCosineMissingEmbedding(t *testing.T) {
	_, err := rerankByCosine([]float32{1}, []string{"x"}, map[string][]float32{}, nil)
	if err == nil {
		t.Fatalf("expected missing embedding error")
	}
}
