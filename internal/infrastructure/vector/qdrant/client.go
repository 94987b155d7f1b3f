package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/levan-petrosiani/civil-code-rag-agent/internal/core/domain"
)

const upsertBatchSize = 256

var errCollectionNotFound = errors.New("qdrant collection not found")

// Client is a VectorIndex over one Qdrant collection using the REST API.
type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client

	ensureMu          sync.Mutex
	ensuredCollection bool
	ensuredVectorSize int
}

func New(baseURL, collection string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

func (c *Client) Count(ctx context.Context) (int, error) {
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	err := c.doJSON(ctx, http.MethodPost, c.collectionURL("/points/count"), map[string]any{"exact": true}, &resp, "count")
	if errors.Is(err, errCollectionNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}

func (c *Client) Upsert(ctx context.Context, passages []domain.Passage, vectors [][]float32) error {
	if len(passages) == 0 {
		return nil
	}
	if len(passages) != len(vectors) {
		return fmt.Errorf("passages/vectors mismatch: %d != %d", len(passages), len(vectors))
	}
	if err := c.ensureCollection(ctx, len(vectors[0])); err != nil {
		return err
	}

	for start := 0; start < len(passages); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(passages) {
			end = len(passages)
		}

		points := make([]point, 0, end-start)
		for i := start; i < end; i++ {
			payload := passages[i].Metadata.Map()
			payload["text"] = passages[i].Text
			payload["passage_id"] = passages[i].ID
			points = append(points, point{
				ID:      c.pointID(passages[i], i),
				Vector:  vectors[i],
				Payload: payload,
			})
		}

		if err := c.doJSON(ctx, http.MethodPut, c.collectionURL("/points?wait=true"), map[string]any{"points": points}, nil, "upsert"); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) Query(ctx context.Context, queryVector []float32, nResults int) (domain.DenseResult, error) {
	if nResults <= 0 {
		return domain.DenseResult{}, nil
	}

	reqBody := map[string]any{
		"vector":       queryVector,
		"limit":        nResults,
		"with_payload": true,
		"with_vector":  true,
	}
	var searchResp struct {
		Result []struct {
			Score   float64         `json:"score"`
			Payload map[string]any  `json:"payload"`
			Vector  json.RawMessage `json:"vector"`
		} `json:"result"`
	}
	err := c.doJSON(ctx, http.MethodPost, c.collectionURL("/points/search"), reqBody, &searchResp, "search")
	if errors.Is(err, errCollectionNotFound) {
		return domain.DenseResult{}, nil
	}
	if err != nil {
		return domain.DenseResult{}, err
	}

	out := domain.DenseResult{
		Texts:      make([]string, 0, len(searchResp.Result)),
		Embeddings: make([][]float32, 0, len(searchResp.Result)),
	}
	for _, r := range searchResp.Result {
		out.Texts = append(out.Texts, getStringPayload(r.Payload, "text"))
		out.Embeddings = append(out.Embeddings, decodeVector(r.Vector))
	}
	return out, nil
}

// decodeVector returns nil for missing or named/sparse vector shapes.
func decodeVector(raw json.RawMessage) []float32 {
	if len(raw) == 0 {
		return nil
	}
	var vector []float32
	if err := json.Unmarshal(raw, &vector); err != nil || len(vector) == 0 {
		return nil
	}
	return vector
}

// pointID derives a stable UUID so re-upserting the corpus overwrites points.
func (c *Client) pointID(p domain.Passage, index int) string {
	key := p.ID
	if key == "" {
		key = fmt.Sprintf("chunk_%d", index+1)
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(c.collection+"/"+key)).String()
}

func (c *Client) ensureCollection(ctx context.Context, vectorSize int) error {
	c.ensureMu.Lock()
	defer c.ensureMu.Unlock()
	if c.ensuredCollection && c.ensuredVectorSize == vectorSize {
		return nil
	}

	reqBody := map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	}
	err := c.doJSON(ctx, http.MethodPut, c.collectionURL(""), reqBody, nil, "ensure collection")
	var statusErr *statusError
	if errors.As(err, &statusErr) && statusErr.code == http.StatusConflict {
		err = nil
	}
	if err != nil {
		return err
	}
	c.ensuredCollection = true
	c.ensuredVectorSize = vectorSize
	return nil
}

func (c *Client) collectionURL(suffix string) string {
	return fmt.Sprintf("%s/collections/%s%s", c.baseURL, c.collection, suffix)
}

type statusError struct {
	operation string
	code      int
	status    string
	body      string
}

func (e *statusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("qdrant %s status: %s", e.operation, e.status)
	}
	return fmt.Sprintf("qdrant %s status: %s: %s", e.operation, e.status, e.body)
}

func (c *Client) doJSON(ctx context.Context, method, url string, payload any, out any, operation string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s body: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound && operation != "ensure collection" {
		return fmt.Errorf("qdrant %s: %w", operation, errCollectionNotFound)
	}
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &statusError{
			operation: operation,
			code:      resp.StatusCode,
			status:    resp.Status,
			body:      strings.TrimSpace(string(raw)),
		}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
