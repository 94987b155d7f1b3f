package bootstrap

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/levan-petrosiani/civil-code-rag-agent/internal/config"
	"github.com/levan-petrosiani/civil-code-rag-agent/internal/observability/metrics"
)

const testChunks = `[
  {"id": "chunk_1", "text": "მუხლი 1. სამოქალაქო კანონმდებლობა", "metadata": {"article_number": "1"}},
  {"id": "chunk_2", "text": "მუხლი 2. ნორმატიული აქტები", "metadata": {"article_number": "2"}}
]`

// fakeOllama embeds texts mentioning "1." along the x axis and the rest
// along the y axis.
func fakeOllama(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		embeddings := make([][]float32, 0, len(req.Input))
		for _, text := range req.Input {
			if strings.Contains(text, "1.") || strings.Contains(text, "კანონმდებლობა") {
				embeddings = append(embeddings, []float32{1, 0})
			} else {
				embeddings = append(embeddings, []float32{0, 1})
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": embeddings})
	}))
	t.Cleanup(server.Close)
	return server
}

func testConfig(t *testing.T, ollamaURL string) config.Config {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "chunks.json"), []byte(testChunks), 0o644); err != nil {
		t.Fatalf("write chunks: %v", err)
	}
	return config.Config{
		OllamaURL:         ollamaURL,
		OllamaEmbedModel:  "embed",
		OllamaGenModel:    "gen",
		EmbedBatchSize:    10,
		VectorBackend:     config.VectorBackendChromem,
		VectorCollection:  "test_collection",
		CorpusStoragePath: dir,
		CorpusChunksFile:  "chunks.json",
		CorpusSourceFile:  "document.txt",
		IngestMode:        config.IngestModeInline,
	}
}

func TestNewIndexesAndRetrievesEndToEnd(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, fakeOllama(t).URL)

	app, err := New(ctx, cfg, nil, metrics.New("test"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer app.Close()

	if app.Corpus.Len() != 2 {
		t.Fatalf("expected 2 passages, got %d", app.Corpus.Len())
	}
	if app.Queue != nil {
		t.Fatalf("expected no queue without NATS_URL")
	}
	if err := app.IndexOnStartup(ctx); err != nil {
		t.Fatalf("IndexOnStartup() error = %v", err)
	}

	report, err := app.Indexer.Index(ctx, app.Corpus)
	if err != nil {
		t.Fatalf("second Index() error = %v", err)
	}
	if !report.Skipped {
		t.Fatalf("expected second index run to be skipped")
	}

	texts, err := app.Retriever.Retrieve(ctx, "კანონმდებლობა")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(texts) != 2 || texts[0] != "მუხლი 1. სამოქალაქო კანონმდებლობა" {
		t.Fatalf("unexpected ranking: %v", texts)
	}
}

func TestNewRejectsUnknownVectorBackend(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:0")
	cfg.VectorBackend = "pinecone"

	if _, err := New(context.Background(), cfg, nil, nil); err == nil {
		t.Fatalf("expected unsupported backend error")
	}
}

func TestNewFailsWithoutCorpus(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:0")
	cfg.CorpusStoragePath = t.TempDir()

	if _, err := New(context.Background(), cfg, nil, nil); err == nil {
		t.Fatalf("expected missing corpus error")
	}
}

func TestIndexOnStartupModes(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, "http://127.0.0.1:0")
	cfg.IngestMode = config.IngestModeSkip

	app, err := New(ctx, cfg, nil, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer app.Close()

	if err := app.IndexOnStartup(ctx); err != nil {
		t.Fatalf("skip mode should not index: %v", err)
	}

	app.Config.IngestMode = config.IngestModeQueue
	if err := app.IndexOnStartup(ctx); err == nil {
		t.Fatalf("queue mode without NATS should fail")
	}

	app.Config.IngestMode = "eventually"
	if err := app.IndexOnStartup(ctx); err == nil {
		t.Fatalf("expected unsupported mode error")
	}
}

func TestNewRejectsEmbeddedStoreAcrossProcesses(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"queue ingestion", func(c *config.Config) { c.IngestMode = config.IngestModeQueue }},
		{"nats queue", func(c *config.Config) { c.NATSURL = "nats://127.0.0.1:4222" }},
		{"postgres ledger", func(c *config.Config) { c.PostgresDSN = "postgres://127.0.0.1:5432/civil" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig(t, "http://127.0.0.1:0")
			tc.mutate(&cfg)

			app, err := New(context.Background(), cfg, nil, nil)
			if !errors.Is(err, ErrEmbeddedVectorStoreShared) {
				t.Fatalf("expected shared embedded store rejection, got app=%v err=%v", app, err)
			}
		})
	}
}

func TestValidateTopologyAllowsQdrantAcrossProcesses(t *testing.T) {
	cfg := config.Config{
		VectorBackend: config.VectorBackendQdrant,
		IngestMode:    config.IngestModeQueue,
		NATSURL:       "nats://127.0.0.1:4222",
		PostgresDSN:   "postgres://127.0.0.1:5432/civil",
	}
	if err := validateTopology(cfg); err != nil {
		t.Fatalf("expected qdrant topology to be accepted, got %v", err)
	}
}
