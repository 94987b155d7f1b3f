package corpus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/levan-petrosiani/civil-code-rag-agent/internal/core/domain"
	"github.com/levan-petrosiani/civil-code-rag-agent/internal/core/ports"
	"github.com/levan-petrosiani/civil-code-rag-agent/internal/infrastructure/chunking"
	"github.com/levan-petrosiani/civil-code-rag-agent/internal/infrastructure/extractor/plaintext"
)

// Loader produces the passage corpus, preferring a cached chunk file and
// building it from the source text when the cache is absent.
type Loader struct {
	storage   ports.ObjectStorage
	extractor *plaintext.Extractor
	splitter  *chunking.ArticleSplitter
	chunksKey string
	sourceKey string
	logger    *slog.Logger
}

func NewLoader(storage ports.ObjectStorage, chunksKey, sourceKey string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		storage:   storage,
		extractor: plaintext.NewExtractor(storage),
		splitter:  chunking.NewArticleSplitter(chunking.DefaultMaxChunkRunes),
		chunksKey: chunksKey,
		sourceKey: sourceKey,
		logger:    logger,
	}
}

func (l *Loader) Load(ctx context.Context) (*domain.Corpus, error) {
	cached, err := l.storage.Exists(ctx, l.chunksKey)
	if err != nil {
		return nil, fmt.Errorf("check chunk cache: %w", err)
	}
	if cached {
		passages, err := l.readChunks(ctx)
		if err != nil {
			return nil, err
		}
		l.logger.Info("corpus_loaded", "source", l.chunksKey, "passages", len(passages))
		return domain.NewCorpus(passages), nil
	}

	passages, err := l.build(ctx)
	if err != nil {
		return nil, err
	}
	if err := l.writeChunks(ctx, passages); err != nil {
		return nil, err
	}
	l.logger.Info("corpus_built", "source", l.sourceKey, "cache", l.chunksKey, "passages", len(passages))
	return domain.NewCorpus(passages), nil
}

func (l *Loader) build(ctx context.Context) ([]domain.Passage, error) {
	exists, err := l.storage.Exists(ctx, l.sourceKey)
	if err != nil {
		return nil, fmt.Errorf("check source document: %w", err)
	}
	if !exists {
		return nil, domain.WrapError(domain.ErrCorpusNotFound, "build corpus",
			fmt.Errorf("neither %s nor %s found", l.chunksKey, l.sourceKey))
	}

	paragraphs, err := l.extractor.Paragraphs(ctx, l.sourceKey)
	if err != nil {
		return nil, fmt.Errorf("extract source: %w", err)
	}
	text := strings.Join(chunking.CleanParagraphs(paragraphs), "\n")
	return l.splitter.Split(text), nil
}

func (l *Loader) readChunks(ctx context.Context) ([]domain.Passage, error) {
	reader, err := l.storage.Open(ctx, l.chunksKey)
	if err != nil {
		return nil, fmt.Errorf("open chunk cache: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read chunk cache: %w", err)
	}

	var passages []domain.Passage
	if isYAML(l.chunksKey) {
		err = yaml.Unmarshal(raw, &passages)
	} else {
		err = json.Unmarshal(raw, &passages)
	}
	if err != nil {
		return nil, fmt.Errorf("decode chunk cache %s: %w", l.chunksKey, err)
	}

	for i := range passages {
		if passages[i].ID == "" {
			passages[i].ID = fmt.Sprintf("chunk_%d", i+1)
		}
	}
	return passages, nil
}

func (l *Loader) writeChunks(ctx context.Context, passages []domain.Passage) error {
	var buf bytes.Buffer
	if isYAML(l.chunksKey) {
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(passages); err != nil {
			return fmt.Errorf("encode chunk cache: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("encode chunk cache: %w", err)
		}
	} else {
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(passages); err != nil {
			return fmt.Errorf("encode chunk cache: %w", err)
		}
	}

	if err := l.storage.Save(ctx, l.chunksKey, &buf); err != nil {
		return fmt.Errorf("save chunk cache: %w", err)
	}
	return nil
}

func isYAML(key string) bool {
	switch strings.ToLower(path.Ext(key)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}
