package rag_test

import (
	"context"

	"github.com/akolanti/knowledgecore/internal/domain/knowledgeModel"
	"github.com/akolanti/knowledgecore/internal/rag/embedding"
	"github.com/akolanti/knowledgecore/internal/rag/vectorDB"
)

// MockStore implements vectorDB.Store on top of a real store, overriding only
// the calls a test sets a hook for.
type MockStore struct {
	vectorDB.Store

	OnGetCollection func(ctx context.Context, name string) (knowledgeModel.Collection, bool, error)
	OnQuery         func(ctx context.Context, collection string, vector []float32, k int, threshold float64) ([]knowledgeModel.QueryResult, error)
	OnDrop          func(ctx context.Context, collection string) (bool, error)
}

func (m *MockStore) GetCollection(ctx context.Context, name string) (knowledgeModel.Collection, bool, error) {
	if m.OnGetCollection != nil {
		return m.OnGetCollection(ctx, name)
	}
	return m.Store.GetCollection(ctx, name)
}

func (m *MockStore) Query(ctx context.Context, collection string, vector []float32, k int, threshold float64) ([]knowledgeModel.QueryResult, error) {
	if m.OnQuery != nil {
		return m.OnQuery(ctx, collection, vector, k, threshold)
	}
	return m.Store.Query(ctx, collection, vector, k, threshold)
}

func (m *MockStore) Drop(ctx context.Context, collection string) (bool, error) {
	if m.OnDrop != nil {
		return m.OnDrop(ctx, collection)
	}
	return m.Store.Drop(ctx, collection)
}

// MockProvider implements embedding.Provider. Without OnEmbed it delegates to
// the wrapped provider.
type MockProvider struct {
	embedding.Provider
	OnEmbed func(ctx context.Context, texts []string) ([][]float32, error)
}

func (m *MockProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if m.OnEmbed != nil {
		return m.OnEmbed(ctx, texts)
	}
	return m.Provider.Embed(ctx, texts)
}
