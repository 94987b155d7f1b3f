package usecase

// mergeCandidates unions dense and sparse texts, dense first, keeping the
// first occurrence of every text.
func mergeCandidates(dense, sparse []string) []string {
	seen := make(map[string]struct{}, len(dense)+len(sparse))
	out := make([]string, 0, len(dense)+len(sparse))
	addList := func(texts []string) {
		for _, text := range texts {
			if _, ok := seen[text]; ok {
				continue
			}
			seen[text] = struct{}{}
			out = append(out, text)
		}
	}

	addList(dense)
	addList(sparse)
	return out
}

// buildEmbeddingLookup keys dense embeddings by passage text. The first
// occurrence wins when the store returns the same text twice.
func buildEmbeddingLookup(dense []string, vectors [][]float32) map[string][]float32 {
	lookup := make(map[string][]float32, len(dense))
	for i, text := range dense {
		if i >= len(vectors) {
			break
		}
		if _, ok := lookup[text]; ok {
			continue
		}
		lookup[text] = vectors[i]
	}
	return lookup
}

func trimRanked[T any](items []T, limit int) []T {
	if limit <= 0 || len(items) <= limit {
		return items
	}
	return items[:limit]
}
