package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/levan-petrosiani/civil-code-rag-agent/internal/config"
	"github.com/levan-petrosiani/civil-code-rag-agent/internal/core/domain"
	"github.com/levan-petrosiani/civil-code-rag-agent/internal/core/ports"
)

const maxRequestBodyBytes = 64 << 10

// IndexRequester hands a corpus indexing run to the background worker.
type IndexRequester interface {
	Enqueue(ctx context.Context) error
}

// Instrumentation wraps the mux with request metrics and exposes them.
type Instrumentation interface {
	Middleware(next http.Handler) http.Handler
	Handler() http.Handler
}

type Router struct {
	retriever ports.PassageRetriever
	answerer  ports.QuestionAnswerer
	indexer   IndexRequester
	metrics   Instrumentation

	rateLimitRPS    float64
	rateLimitBurst  int
	maxInFlight     int
	requestTimeout  time.Duration
	backpressureTTL time.Duration
}

// NewRouter wires the HTTP surface. indexer and metrics may be nil.
func NewRouter(
	cfg config.Config,
	retriever ports.PassageRetriever,
	answerer ports.QuestionAnswerer,
	indexer IndexRequester,
	metrics Instrumentation,
) *Router {
	timeout := time.Duration(cfg.RetrieveTimeoutSeconds) * time.Second
	return &Router{
		retriever:       retriever,
		answerer:        answerer,
		indexer:         indexer,
		metrics:         metrics,
		rateLimitRPS:    cfg.APIRateLimitRPS,
		rateLimitBurst:  cfg.APIRateLimitBurst,
		maxInFlight:     cfg.APIMaxInFlight,
		requestTimeout:  timeout,
		backpressureTTL: 250 * time.Millisecond,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("POST /v1/retrieve", rt.retrieve)
	mux.HandleFunc("POST /v1/answer", rt.answer)
	mux.HandleFunc("POST /v1/index", rt.requestIndex)

	// Metrics wraps the mux directly so it sees the matched pattern.
	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(handler)
	}
	handler = timeoutMiddleware(handler, rt.requestTimeout)
	handler = backpressureMiddleware(handler, rt.maxInFlight, rt.backpressureTTL)
	handler = rateLimitMiddleware(handler, rt.rateLimitRPS, rt.rateLimitBurst)
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)

	if rt.metrics == nil {
		return handler
	}
	root := http.NewServeMux()
	root.Handle("GET /metrics", rt.metrics.Handler())
	root.Handle("/", handler)
	return root
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type retrieveRequest struct {
	Query string `json:"query"`
}

type retrieveResponse struct {
	Passages []domain.RankedPassage `json:"passages"`
}

func (rt *Router) retrieve(w http.ResponseWriter, r *http.Request) {
	var req retrieveRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query is required"})
		return
	}

	passages, err := rt.retriever.RetrieveRanked(r.Context(), req.Query)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if passages == nil {
		passages = []domain.RankedPassage{}
	}
	writeJSON(w, http.StatusOK, retrieveResponse{Passages: passages})
}

type answerRequest struct {
	Question string `json:"question"`
}

func (rt *Router) answer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	answer, err := rt.answerer.Answer(r.Context(), req.Question)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

func (rt *Router) requestIndex(w http.ResponseWriter, r *http.Request) {
	if rt.indexer == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "index queue is not configured"})
		return
	}
	if err := rt.indexer.Enqueue(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "request body too large"})
			return false
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("request_failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
		message = "internal error"
	}
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
