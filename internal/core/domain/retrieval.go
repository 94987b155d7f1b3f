package domain

// DenseResult holds vector-store hits with embeddings aligned by position.
// Embeddings may be shorter than Texts or hold nil entries when the store
// returns a degenerate shape; callers must validate before use.
type DenseResult struct {
	Texts      []string
	Embeddings [][]float32
}

type RankedPassage struct {
	Text     string          `json:"text"`
	Score    float64         `json:"score"`
	Metadata PassageMetadata `json:"metadata"`
}

type Answer struct {
	Text    string          `json:"text"`
	Sources []RankedPassage `json:"sources"`
}

type IndexReport struct {
	Collection string `json:"collection"`
	Skipped    bool   `json:"skipped"`
	Count      int    `json:"count"`
}

// CandidateStats describes one retrieval call for observers.
type CandidateStats struct {
	Dense         int
	Sparse        int
	Merged        int
	Returned      int
	DenseFallback bool
}
