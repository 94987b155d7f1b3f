package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/levan-petrosiani/civil-code-rag-agent/internal/core/domain"
	"github.com/levan-petrosiani/civil-code-rag-agent/internal/core/ports"
)

type AnswerUseCase struct {
	retriever ports.PassageRetriever
	generator ports.AnswerGenerator
}

func NewAnswerUseCase(retriever ports.PassageRetriever, generator ports.AnswerGenerator) *AnswerUseCase {
	return &AnswerUseCase{
		retriever: retriever,
		generator: generator,
	}
}

func (uc *AnswerUseCase) Answer(ctx context.Context, question string) (*domain.Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "answer", fmt.Errorf("question is required"))
	}

	sources, err := uc.retriever.RetrieveRanked(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("retrieve passages: %w", err)
	}

	texts := make([]string, 0, len(sources))
	for _, source := range sources {
		texts = append(texts, source.Text)
	}

	answerText, err := uc.generator.GenerateAnswer(ctx, question, strings.Join(texts, "\n\n"))
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	return &domain.Answer{
		Text:    answerText,
		Sources: sources,
	}, nil
}
