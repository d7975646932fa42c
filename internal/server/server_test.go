package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/akolanti/knowledgecore/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestRoutes(t *testing.T) {
	prev := config.Current()
	s := config.Defaults()
	s.NoAuth = true
	config.Use(s)
	t.Cleanup(func() { config.Use(prev) })

	mcpCalled := false
	mcp := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mcpCalled = true
		w.WriteHeader(http.StatusOK)
	})
	h := Routes(mcp)

	tests := []struct {
		name   string
		method string
		path   string
		code   int
	}{
		{name: "Health", method: http.MethodGet, path: "/health", code: http.StatusOK},
		{name: "Metrics", method: http.MethodGet, path: "/metrics", code: http.StatusOK},
		{name: "SwaggerDoc", method: http.MethodGet, path: "/swagger/doc.json", code: http.StatusOK},
		{name: "QueryBeforeInit", method: http.MethodPost, path: "/ingest/query", code: http.StatusServiceUnavailable},
		{name: "UploadBeforeInit", method: http.MethodPost, path: "/ingest/files", code: http.StatusServiceUnavailable},
		{name: "StatusBeforeInit", method: http.MethodGet, path: "/status/abc", code: http.StatusServiceUnavailable},
		{name: "WrongMethod", method: http.MethodGet, path: "/ingest", code: http.StatusMethodNotAllowed},
		{name: "Unknown", method: http.MethodGet, path: "/nope", code: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.code, w.Code)
		})
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/mcp", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mcpCalled)
}
