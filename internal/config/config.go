package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	APIPort           string
	LogLevel          string
	APIMaxConnections int
	APIRateLimitRPS   float64
	APIRateLimitBurst int
	APIMaxInFlight    int

	RetrieveTimeoutSeconds int

	OllamaURL          string
	OllamaGenModel     string
	OllamaEmbedModel   string
	EmbedBatchSize     int
	EmbedRateLimitRPS  float64
	OllamaTimeoutSecs  int
	ResilienceEnabled  bool
	ResilienceAttempts int

	VectorBackend    string
	ChromemPath      string
	ChromemCompress  bool
	QdrantURL        string
	VectorCollection string

	CorpusStoragePath string
	CorpusChunksFile  string
	CorpusSourceFile  string

	RAGTopKDense  int
	RAGTopKSparse int

	PostgresDSN string

	NATSURL     string
	NATSSubject string

	IngestMode        string
	WorkerMetricsPort string
}

const (
	VectorBackendChromem = "chromem"
	VectorBackendQdrant  = "qdrant"

	IngestModeInline = "inline"
	IngestModeQueue  = "queue"
	IngestModeSkip   = "skip"
)

func Load() Config {
	return Config{
		APIPort:           mustEnv("API_PORT", "8080"),
		LogLevel:          mustEnv("LOG_LEVEL", "info"),
		APIMaxConnections: mustEnvInt("API_MAX_CONNECTIONS", 256),
		APIRateLimitRPS:   mustEnvFloat("API_RATE_LIMIT_RPS", 20),
		APIRateLimitBurst: mustEnvInt("API_RATE_LIMIT_BURST", 40),
		APIMaxInFlight:    mustEnvInt("API_MAX_IN_FLIGHT", 64),

		RetrieveTimeoutSeconds: mustEnvInt("RETRIEVE_TIMEOUT_SECONDS", 30),

		OllamaURL:          mustEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaGenModel:     mustEnv("OLLAMA_GEN_MODEL", "llama3.1:8b"),
		OllamaEmbedModel:   mustEnv("OLLAMA_EMBED_MODEL", "nomic-embed-text"),
		EmbedBatchSize:     mustEnvInt("EMBED_BATCH_SIZE", 100),
		EmbedRateLimitRPS:  mustEnvFloat("EMBED_RATE_LIMIT_RPS", 0),
		OllamaTimeoutSecs:  mustEnvInt("OLLAMA_TIMEOUT_SECONDS", 120),
		ResilienceEnabled:  mustEnvBool("RESILIENCE_ENABLED", true),
		ResilienceAttempts: mustEnvInt("RESILIENCE_MAX_ATTEMPTS", 3),

		VectorBackend:    strings.ToLower(mustEnv("VECTOR_BACKEND", VectorBackendChromem)),
		ChromemPath:      mustEnv("CHROMEM_PATH", "./data/chroma_db"),
		ChromemCompress:  mustEnvBool("CHROMEM_COMPRESS", false),
		QdrantURL:        mustEnv("QDRANT_URL", "http://localhost:6333"),
		VectorCollection: mustEnv("VECTOR_COLLECTION", "georgian_civil_code"),

		CorpusStoragePath: mustEnv("CORPUS_STORAGE_PATH", "./data"),
		CorpusChunksFile:  mustEnv("CORPUS_CHUNKS_FILE", "chunks.json"),
		CorpusSourceFile:  mustEnv("CORPUS_SOURCE_FILE", "document.txt"),

		RAGTopKDense:  mustEnvInt("RAG_TOP_K_DENSE", 10),
		RAGTopKSparse: mustEnvInt("RAG_TOP_K_SPARSE", 10),

		PostgresDSN: mustEnv("POSTGRES_DSN", ""),

		NATSURL:     mustEnv("NATS_URL", ""),
		NATSSubject: mustEnv("NATS_SUBJECT", "corpus.ingest"),

		IngestMode:        strings.ToLower(mustEnv("INGEST_MODE", IngestModeInline)),
		WorkerMetricsPort: mustEnv("WORKER_METRICS_PORT", "9090"),
	}
}

func mustEnv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}
