// Package app wires the configured backends into a rag service. It is shared
// by the API server and the CLI.
package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/akolanti/knowledgecore/internal/config"
	"github.com/akolanti/knowledgecore/internal/data/store"
	"github.com/akolanti/knowledgecore/internal/domain/jobModel"
	"github.com/akolanti/knowledgecore/internal/domain/knowledgeModel"
	"github.com/akolanti/knowledgecore/internal/rag"
	"github.com/akolanti/knowledgecore/internal/rag/embedding"
	"github.com/akolanti/knowledgecore/internal/rag/embedding/googleEmbedding"
	"github.com/akolanti/knowledgecore/internal/rag/embedding/localEmbedding"
	"github.com/akolanti/knowledgecore/internal/rag/embedding/openaiEmbedding"
	"github.com/akolanti/knowledgecore/internal/rag/vectorDB"
	"github.com/akolanti/knowledgecore/internal/rag/vectorDB/memoryDB"
	"github.com/akolanti/knowledgecore/internal/rag/vectorDB/qdrantDB"
	"github.com/akolanti/knowledgecore/internal/rag/vectorDB/sqliteDB"
	"github.com/akolanti/knowledgecore/pkg/logger_i"
)

// Deps is everything a rag service needs. Close releases the vector store.
type Deps struct {
	Vectors   vectorDB.Store
	Providers *embedding.Registry
	DocMaps   knowledgeModel.DocMapStore
}

func (d Deps) Close() error {
	if d.Vectors == nil {
		return nil
	}
	return d.Vectors.Close()
}

// Build opens the vector backend, the embedding providers and the DocMap
// store named by settings.
func Build(ctx context.Context, settings config.Settings) (Deps, error) {
	vectors, err := OpenVectorStore(ctx, settings.Vector)
	if err != nil {
		return Deps{}, err
	}
	providers, err := Providers(ctx, settings.Embeddings)
	if err != nil {
		_ = vectors.Close()
		return Deps{}, err
	}
	return Deps{
		Vectors:   vectors,
		Providers: providers,
		DocMaps:   DocMapStore(ctx, settings.Redis),
	}, nil
}

func NewService(deps Deps, settings config.Settings) rag.Service {
	return rag.NewService(deps.Vectors, deps.Providers, deps.DocMaps, settings.Ingest)
}

func OpenVectorStore(ctx context.Context, settings config.VectorSettings) (vectorDB.Store, error) {
	logger := logger_i.NewLogger("bootstrap")
	switch strings.ToLower(settings.Backend) {
	case "", "qdrant":
		client, err := qdrantDB.GetQuadrantClient(ctx, settings)
		if err != nil {
			return nil, fmt.Errorf("connect qdrant: %w", err)
		}
		return client, nil
	case "sqlite":
		s, err := sqliteDB.Open(ctx, settings.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %q: %w", settings.SQLitePath, err)
		}
		return s, nil
	case "memory":
		logger.Warn("Using the in-memory vector store, collections are lost on exit")
		return memoryDB.New(), nil
	}
	return nil, knowledgeModel.NewConfigError("VECTOR_BACKEND", fmt.Sprintf("unknown backend %q", settings.Backend))
}

// Providers builds the registry. The configured provider is the default used
// for ingest. The other providers whose credentials are present are
// registered too so collections indexed with them stay queryable.
func Providers(ctx context.Context, settings config.EmbeddingSettings) (*embedding.Registry, error) {
	logger := logger_i.NewLogger("bootstrap")

	primary, err := provider(ctx, strings.ToLower(settings.Provider), settings)
	if err != nil {
		return nil, err
	}

	var others []embedding.Provider
	fallback := config.EmbeddingSettings{
		GoogleAPIKey:  settings.GoogleAPIKey,
		OpenAIAPIKey:  settings.OpenAIAPIKey,
		OpenAIBaseURL: settings.OpenAIBaseURL,
	}
	for _, name := range []string{"google", "openai", "local"} {
		if name == strings.ToLower(settings.Provider) {
			continue
		}
		p, err := provider(ctx, name, fallback)
		if err != nil {
			logger.Debug("Secondary embedding provider unavailable", "provider", name, "error", err)
			continue
		}
		others = append(others, p)
	}

	registry := embedding.NewRegistry(primary, others...)
	logger.Info("Embedding providers ready", "default", primary.ID(), "available", registry.IDs())
	return registry, nil
}

func provider(ctx context.Context, name string, settings config.EmbeddingSettings) (embedding.Provider, error) {
	switch name {
	case "", "google":
		return googleEmbedding.NewGoogleEmbedder(ctx, settings)
	case "openai":
		return openaiEmbedding.NewOpenAIEmbedder(settings)
	case "local":
		dim := settings.Dimension
		if dim <= 0 || dim == int(config.EmbeddingOutputDimensionality) {
			dim = config.LocalEmbeddingDimension
		}
		return localEmbedding.New(dim), nil
	}
	return nil, knowledgeModel.NewConfigError("EMBEDDINGS_PROVIDER", fmt.Sprintf("unknown provider %q", name))
}

// DocMapStore returns the Redis history store, or the in-memory one when
// Redis is offline.
func DocMapStore(ctx context.Context, settings config.RedisSettings) knowledgeModel.DocMapStore {
	if s := store.GetRedisDocMapStore(ctx, settings); s != nil {
		return s
	}
	logger_i.NewLogger("bootstrap").Warn("Redis offline, DocMaps are kept in memory")
	return store.InitInMemoryDocMapStore()
}

func JobStore(ctx context.Context, settings config.RedisSettings) jobModel.JobStore {
	if s := store.GetRedisJobStore(ctx, settings); s != nil {
		return s
	}
	logger_i.NewLogger("bootstrap").Warn("Redis offline, jobs are kept in memory")
	return store.InitInMemoryJobStore()
}
