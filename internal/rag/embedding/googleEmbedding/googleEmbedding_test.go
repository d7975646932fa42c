package googleEmbedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/akolanti/knowledgecore/internal/config"
	"github.com/akolanti/knowledgecore/internal/domain/knowledgeModel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		auth      bool
		rateLimit bool
		malformed bool
	}{
		{"api 401", genai.APIError{Code: http.StatusUnauthorized, Message: "bad key"}, true, false, false},
		{"api 429", genai.APIError{Code: http.StatusTooManyRequests}, false, true, false},
		{"api 400", genai.APIError{Code: http.StatusBadRequest}, false, false, true},
		{"wrapped api 403", fmt.Errorf("call: %w", genai.APIError{Code: http.StatusForbidden}), true, false, false},
		{"grpc exhausted", status.Error(codes.ResourceExhausted, "quota"), false, true, false},
		{"grpc unauthenticated", status.Error(codes.Unauthenticated, "no"), true, false, false},
		{"plain", errors.New("boom"), false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			assert.Equal(t, tt.auth, knowledgeModel.IsAuthError(got))
			assert.Equal(t, tt.rateLimit, knowledgeModel.IsRateLimitError(got))
			assert.Equal(t, tt.malformed, errors.Is(got, knowledgeModel.ErrMalformedInput))
		})
	}
}

func TestNewGoogleEmbedder_MissingKey(t *testing.T) {
	_, err := NewGoogleEmbedder(context.Background(), config.EmbeddingSettings{Provider: "google"})
	require.Error(t, err)
	assert.True(t, knowledgeModel.IsAuthError(err))
}

func TestGetContent(t *testing.T) {
	contents := getContent([]string{"a", "b"})
	require.Len(t, contents, 2)
	assert.Equal(t, "b", contents[1].Parts[0].Text)
}
