package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/levan-petrosiani/civil-code-rag-agent/internal/core/domain"
)

func testPassages() []domain.Passage {
	return []domain.Passage{
		{ID: "chunk_1", Text: "მუხლი 1. a", Metadata: domain.PassageMetadata{ArticleNumber: "1"}},
		{ID: "chunk_2", Text: "მუხლი 2. b", Metadata: domain.PassageMetadata{ArticleNumber: "2", SubChunkSeq: 1}},
	}
}

func TestUpsertEnsuresCollectionOncePerVectorSize(t *testing.T) {
	var (
		ensureCalls int32
		mu          sync.Mutex
		upserted    []point
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/collections/civil":
			atomic.AddInt32(&ensureCalls, 1)
			w.WriteHeader(http.StatusCreated)
		case r.Method == http.MethodPut && r.URL.Path == "/collections/civil/points":
			var body struct {
				Points []point `json:"points"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decode upsert: %v", err)
			}
			mu.Lock()
			upserted = append(upserted, body.Points...)
			mu.Unlock()
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := New(server.URL, "civil")
	vectors := [][]float32{{0.1, 0.2}, {0.3, 0.4}}

	if err := client.Upsert(context.Background(), testPassages(), vectors); err != nil {
		t.Fatalf("first Upsert() error = %v", err)
	}
	if err := client.Upsert(context.Background(), testPassages(), vectors); err != nil {
		t.Fatalf("second Upsert() error = %v", err)
	}
	if got := atomic.LoadInt32(&ensureCalls); got != 1 {
		t.Fatalf("expected ensure collection called once, got %d", got)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(upserted) != 4 {
		t.Fatalf("expected 4 upserted points, got %d", len(upserted))
	}
	if upserted[0].ID != upserted[2].ID {
		t.Fatalf("expected deterministic point ids, got %s and %s", upserted[0].ID, upserted[2].ID)
	}
	if upserted[0].Payload["text"] != "მუხლი 1. a" || upserted[0].Payload["article_number"] != "1" {
		t.Fatalf("unexpected payload: %v", upserted[0].Payload)
	}
}

func TestEnsureCollectionIncludesResponseBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut && r.URL.Path == "/collections/civil" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := New(server.URL, "civil")
	err := client.Upsert(context.Background(), testPassages()[:1], [][]float32{{0.1, 0.2}})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected error to include body, got %v", err)
	}
}

func TestEnsureCollectionToleratesConflict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/collections/civil" {
			w.WriteHeader(http.StatusConflict)
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	client := New(server.URL, "civil")
	if err := client.Upsert(context.Background(), testPassages()[:1], [][]float32{{1, 0}}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
}

func TestCountReturnsZeroForMissingCollection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	count, err := New(server.URL, "civil").Count(context.Background())
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0, got %d", count)
	}
}

func TestCountReadsExactCount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/civil/points/count" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"result":{"count":1234},"status":"ok"}`))
	}))
	defer server.Close()

	count, err := New(server.URL, "civil").Count(context.Background())
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 1234 {
		t.Fatalf("expected 1234, got %d", count)
	}
}

func TestQueryReturnsAlignedEmbeddings(t *testing.T) {
	var withVector bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		withVector, _ = body["with_vector"].(bool)
		_, _ = w.Write([]byte(`{"result":[
			{"score":0.9,"payload":{"text":"first"},"vector":[0.1,0.2]},
			{"score":0.8,"payload":{"text":"second"},"vector":{"named":[0.3,0.4]}},
			{"score":0.7,"payload":{"text":"third"}}
		]}`))
	}))
	defer server.Close()

	result, err := New(server.URL, "civil").Query(context.Background(), []float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if !withVector {
		t.Fatalf("expected with_vector=true in request")
	}
	if len(result.Texts) != 3 || len(result.Embeddings) != 3 {
		t.Fatalf("expected aligned results, got %+v", result)
	}
	if result.Texts[0] != "first" || len(result.Embeddings[0]) != 2 {
		t.Fatalf("unexpected first hit: %q %v", result.Texts[0], result.Embeddings[0])
	}
	if result.Embeddings[1] != nil || result.Embeddings[2] != nil {
		t.Fatalf("expected nil embeddings for degenerate shapes, got %v", result.Embeddings)
	}
}

func TestQueryMissingCollectionIsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	result, err := New(server.URL, "civil").Query(context.Background(), []float32{1}, 10)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(result.Texts) != 0 {
		t.Fatalf("expected empty result, got %+v", result)
	}
}
