package httpadapter

import (
	"context"
	"errors"
	"net/http"

	"github.com/levan-petrosiani/civil-code-rag-agent/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrCorpusNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrTemporary), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrEmbedding), domain.IsKind(err, domain.ErrVectorStore):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
