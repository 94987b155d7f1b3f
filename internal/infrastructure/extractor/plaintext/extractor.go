package plaintext

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/levan-petrosiani/civil-code-rag-agent/internal/core/ports"
)

// Extractor reads a UTF-8 source document from object storage as paragraphs.
type Extractor struct {
	storage ports.ObjectStorage
}

func NewExtractor(storage ports.ObjectStorage) *Extractor {
	return &Extractor{storage: storage}
}

// Paragraphs returns one entry per line, line endings normalized.
func (e *Extractor) Paragraphs(ctx context.Context, key string) ([]string, error) {
	reader, err := e.storage.Open(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("open source document: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read source document: %w", err)
	}
	if !utf8.Valid(raw) {
		return nil, fmt.Errorf("source document %s is not valid UTF-8 text", key)
	}

	text := strings.TrimPrefix(string(raw), "\ufeff")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	return strings.Split(text, "\n"), nil
}
