package chromem

import (
	"context"
	"fmt"
	"runtime"
	"strconv"

	"github.com/philippgille/chromem-go"

	"github.com/levan-petrosiani/civil-code-rag-agent/internal/core/domain"
	"github.com/levan-petrosiani/civil-code-rag-agent/internal/core/ports"
)

// Store is an embedded, file-persisted VectorIndex over one collection.
type Store struct {
	collection *chromem.Collection
}

// Open loads (or creates) a persistent database at path. An empty path
// yields an in-memory database.
func Open(path string, compress bool) (*chromem.DB, error) {
	if path == "" {
		return chromem.NewDB(), nil
	}
	db, err := chromem.NewPersistentDB(path, compress)
	if err != nil {
		return nil, fmt.Errorf("open chromem db %s: %w", path, err)
	}
	return db, nil
}

// New binds a collection. Vectors are always supplied explicitly; embedder only
// backs chromem's text-query path.
func New(db *chromem.DB, name string, embedder ports.Embedder) (*Store, error) {
	collection, err := db.GetOrCreateCollection(name, map[string]string{"distance": "cosine"}, embeddingFunc(embedder))
	if err != nil {
		return nil, fmt.Errorf("get or create collection %s: %w", name, err)
	}
	return &Store{collection: collection}, nil
}

func embeddingFunc(embedder ports.Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		if embedder == nil {
			return nil, fmt.Errorf("chromem: no embedder configured")
		}
		vectors, err := embedder.Embed(ctx, []string{text})
		if err != nil {
			return nil, err
		}
		if len(vectors) != 1 {
			return nil, fmt.Errorf("chromem: expected 1 vector, got %d", len(vectors))
		}
		return vectors[0], nil
	}
}

func (s *Store) Count(context.Context) (int, error) {
	return s.collection.Count(), nil
}

func (s *Store) Upsert(ctx context.Context, passages []domain.Passage, vectors [][]float32) error {
	if len(passages) == 0 {
		return nil
	}
	if len(passages) != len(vectors) {
		return fmt.Errorf("passages/vectors mismatch: %d != %d", len(passages), len(vectors))
	}

	docs := make([]chromem.Document, 0, len(passages))
	for i, p := range passages {
		id := p.ID
		if id == "" {
			id = fmt.Sprintf("chunk_%d", i+1)
		}
		docs = append(docs, chromem.Document{
			ID:        id,
			Metadata:  metadataToStrings(p.Metadata),
			Embedding: vectors[i],
			Content:   p.Text,
		})
	}

	if err := s.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("chromem add documents: %w", err)
	}
	return nil
}

func (s *Store) Query(ctx context.Context, queryVector []float32, nResults int) (domain.DenseResult, error) {
	count := s.collection.Count()
	if count == 0 || nResults <= 0 {
		return domain.DenseResult{}, nil
	}
	if nResults > count {
		nResults = count
	}

	results, err := s.collection.QueryEmbedding(ctx, queryVector, nResults, nil, nil)
	if err != nil {
		return domain.DenseResult{}, fmt.Errorf("chromem query: %w", err)
	}

	out := domain.DenseResult{
		Texts:      make([]string, 0, len(results)),
		Embeddings: make([][]float32, 0, len(results)),
	}
	for _, r := range results {
		out.Texts = append(out.Texts, r.Content)
		out.Embeddings = append(out.Embeddings, r.Embedding)
	}
	return out, nil
}

func metadataToStrings(m domain.PassageMetadata) map[string]string {
	out := map[string]string{
		"source":         m.Source,
		"book":           m.Book,
		"chapter":        m.Chapter,
		"article_number": m.ArticleNumber,
		"article_title":  m.ArticleTitle,
	}
	if m.SubChunkSeq > 0 {
		out["sub_chunk_seq"] = strconv.Itoa(m.SubChunkSeq)
	}
	return out
}
