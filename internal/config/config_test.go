package config

import "testing"

func TestLoadRetrievalDefaults(t *testing.T) {
	t.Setenv("RAG_TOP_K_DENSE", "")
	t.Setenv("RAG_TOP_K_SPARSE", "")
	t.Setenv("VECTOR_BACKEND", "")
	t.Setenv("VECTOR_COLLECTION", "")
	t.Setenv("INGEST_MODE", "")
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("NATS_URL", "")

	cfg := Load()
	if cfg.RAGTopKDense != 10 || cfg.RAGTopKSparse != 10 {
		t.Fatalf("expected top-k defaults 10/10, got %d/%d", cfg.RAGTopKDense, cfg.RAGTopKSparse)
	}
	if cfg.VectorBackend != VectorBackendChromem {
		t.Fatalf("expected default backend chromem, got %q", cfg.VectorBackend)
	}
	if cfg.VectorCollection != "georgian_civil_code" {
		t.Fatalf("unexpected default collection %q", cfg.VectorCollection)
	}
	if cfg.IngestMode != IngestModeInline {
		t.Fatalf("expected inline ingestion by default, got %q", cfg.IngestMode)
	}
	if cfg.PostgresDSN != "" || cfg.NATSURL != "" {
		t.Fatalf("expected optional infrastructure to be disabled by default")
	}
	if cfg.EmbedRateLimitRPS != 0 {
		t.Fatalf("expected unlimited embedding rate, got %v", cfg.EmbedRateLimitRPS)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("RAG_TOP_K_DENSE", "20")
	t.Setenv("RAG_TOP_K_SPARSE", "15")
	t.Setenv("VECTOR_BACKEND", "Qdrant")
	t.Setenv("API_RATE_LIMIT_RPS", "2.5")
	t.Setenv("CHROMEM_COMPRESS", "true")
	t.Setenv("INGEST_MODE", "QUEUE")

	cfg := Load()
	if cfg.RAGTopKDense != 20 || cfg.RAGTopKSparse != 15 {
		t.Fatalf("expected top-k overrides, got %d/%d", cfg.RAGTopKDense, cfg.RAGTopKSparse)
	}
	if cfg.VectorBackend != VectorBackendQdrant {
		t.Fatalf("expected backend qdrant, got %q", cfg.VectorBackend)
	}
	if cfg.APIRateLimitRPS != 2.5 {
		t.Fatalf("expected rate limit 2.5, got %v", cfg.APIRateLimitRPS)
	}
	if !cfg.ChromemCompress {
		t.Fatalf("expected chromem compression enabled")
	}
	if cfg.IngestMode != IngestModeQueue {
		t.Fatalf("expected queue ingestion, got %q", cfg.IngestMode)
	}
}

func TestLoadFallsBackOnMalformedNumbers(t *testing.T) {
	t.Setenv("EMBED_BATCH_SIZE", "many")
	t.Setenv("EMBED_RATE_LIMIT_RPS", "fast")
	t.Setenv("RESILIENCE_ENABLED", "maybe")

	cfg := Load()
	if cfg.EmbedBatchSize != 100 {
		t.Fatalf("expected batch size fallback 100, got %d", cfg.EmbedBatchSize)
	}
	if cfg.EmbedRateLimitRPS != 0 {
		t.Fatalf("expected rate fallback 0, got %v", cfg.EmbedRateLimitRPS)
	}
	if !cfg.ResilienceEnabled {
		t.Fatalf("expected resilience fallback true")
	}
}
