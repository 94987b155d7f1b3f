package bm25

import (
	"math"
	"sort"
	"strings"
)

const (
	defaultK1      = 1.5
	defaultB       = 0.75
	defaultEpsilon = 0.25
)

// Index is an Okapi BM25 ranking over a fixed passage list. It is immutable
// after construction and safe for concurrent Search calls.
type Index struct {
	texts     []string
	termFreq  []map[string]int
	docLen    []int
	avgDocLen float64
	idf       map[string]float64
	k1        float64
	b         float64
}

func New(texts []string) *Index {
	idx := &Index{
		texts:    append([]string(nil), texts...),
		termFreq: make([]map[string]int, 0, len(texts)),
		docLen:   make([]int, 0, len(texts)),
		idf:      make(map[string]float64),
		k1:       defaultK1,
		b:        defaultB,
	}

	docFreq := make(map[string]int)
	totalLen := 0
	for _, text := range idx.texts {
		tokens := tokenize(text)
		freq := make(map[string]int, len(tokens))
		for _, token := range tokens {
			freq[token]++
		}
		for token := range freq {
			docFreq[token]++
		}
		idx.termFreq = append(idx.termFreq, freq)
		idx.docLen = append(idx.docLen, len(tokens))
		totalLen += len(tokens)
	}
	if len(idx.texts) > 0 {
		idx.avgDocLen = float64(totalLen) / float64(len(idx.texts))
	}

	idx.buildIDF(docFreq, defaultEpsilon)
	return idx
}

// buildIDF floors negative weights (terms in more than half the corpus) at
// epsilon times the mean idf.
func (idx *Index) buildIDF(docFreq map[string]int, epsilon float64) {
	n := float64(len(idx.texts))
	sum := 0.0
	negative := make([]string, 0)
	// Sorted so the floating-point sum, and the floor, match across builds.
	tokens := make([]string, 0, len(docFreq))
	for token := range docFreq {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)
	for _, token := range tokens {
		freq := docFreq[token]
		weight := math.Log(n-float64(freq)+0.5) - math.Log(float64(freq)+0.5)
		idx.idf[token] = weight
		sum += weight
		if weight < 0 {
			negative = append(negative, token)
		}
	}
	if len(idx.idf) == 0 {
		return
	}
	floor := epsilon * sum / float64(len(idx.idf))
	for _, token := range negative {
		idx.idf[token] = floor
	}
}

func (idx *Index) Len() int {
	return len(idx.texts)
}

// Scores returns one BM25 score per passage, in corpus order.
func (idx *Index) Scores(query string) []float64 {
	scores := make([]float64, len(idx.texts))
	if idx.avgDocLen == 0 {
		return scores
	}
	for _, token := range tokenize(query) {
		weight, ok := idx.idf[token]
		if !ok {
			continue
		}
		for i, freq := range idx.termFreq {
			tf := float64(freq[token])
			if tf == 0 {
				continue
			}
			norm := idx.k1 * (1 - idx.b + idx.b*float64(idx.docLen[i])/idx.avgDocLen)
			scores[i] += weight * (tf * (idx.k1 + 1) / (tf + norm))
		}
	}
	return scores
}

// Search returns up to topK passage texts, best first. Equal scores keep
// corpus order, so an empty query yields the first topK passages.
func (idx *Index) Search(query string, topK int) []string {
	if topK <= 0 || len(idx.texts) == 0 {
		return []string{}
	}

	scores := idx.Scores(query)
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return scores[order[i]] > scores[order[j]]
	})

	if topK > len(order) {
		topK = len(order)
	}
	out := make([]string, 0, topK)
	for _, i := range order[:topK] {
		out = append(out, idx.texts[i])
	}
	return out
}

func tokenize(text string) []string {
	return strings.Fields(text)
}
