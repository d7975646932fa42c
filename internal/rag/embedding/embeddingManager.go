package embedding

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/akolanti/knowledgecore/internal/domain/knowledgeModel"
)

// Provider turns texts into fixed-dimension vectors. Results are returned in
// input order.
type Provider interface {
	ID() string
	Dimension() int
	// MaxBatch is the largest number of texts per call, 0 for no limit.
	MaxBatch() int
	// MaxInputChars is the longest single text the model accepts, 0 for no limit.
	MaxInputChars() int
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// QueryEmbedder is implemented by providers that embed questions differently
// from documents.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Registry holds every provider this process can reach, keyed by provider id.
type Registry struct {
	mu          sync.RWMutex
	providers   map[string]Provider
	defaultName string
}

func NewRegistry(defaultProvider Provider, others ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider)}
	if defaultProvider != nil {
		r.providers[defaultProvider.ID()] = defaultProvider
		r.defaultName = defaultProvider.ID()
	}
	for _, p := range others {
		if p != nil {
			r.providers[p.ID()] = p
		}
	}
	return r
}

func (r *Registry) Default() (Provider, error) {
	return r.Get(r.defaultName)
}

func (r *Registry) Get(id string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", knowledgeModel.ErrUnknownProvider, id)
	}
	return p, nil
}

func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
