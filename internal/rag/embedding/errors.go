package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/akolanti/knowledgecore/internal/domain/knowledgeModel"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ClassifyStatus maps an HTTP status from a provider onto the error taxonomy.
func ClassifyStatus(provider string, code int, err error) error {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &knowledgeModel.ProviderAuthError{Provider: provider, Err: err}
	case http.StatusTooManyRequests:
		return &knowledgeModel.ProviderRateLimitError{Provider: provider, Err: err}
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge, http.StatusUnprocessableEntity:
		return fmt.Errorf("%s: %w: %v", provider, knowledgeModel.ErrMalformedInput, err)
	}
	return err
}

// ClassifyGRPC maps gRPC status codes. Errors without a status are returned as is.
func ClassifyGRPC(provider string, err error) error {
	s, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch s.Code() {
	case codes.ResourceExhausted:
		return &knowledgeModel.ProviderRateLimitError{Provider: provider, Err: err}
	case codes.Unauthenticated, codes.PermissionDenied:
		return &knowledgeModel.ProviderAuthError{Provider: provider, Err: err}
	case codes.InvalidArgument:
		return fmt.Errorf("%s: %w: %v", provider, knowledgeModel.ErrMalformedInput, err)
	}
	return err
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	return knowledgeModel.IsRateLimitError(err)
}
