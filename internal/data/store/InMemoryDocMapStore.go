package store

import (
	"context"
	"sync"

	"github.com/akolanti/knowledgecore/internal/config"
	"github.com/akolanti/knowledgecore/internal/domain/knowledgeModel"
)

type InMemoryDocMapStore struct {
	lock    *sync.RWMutex
	history map[string][]knowledgeModel.DocMap
}

func InitInMemoryDocMapStore() *InMemoryDocMapStore {
	return &InMemoryDocMapStore{
		lock:    new(sync.RWMutex),
		history: make(map[string][]knowledgeModel.DocMap),
	}
}

func (store *InMemoryDocMapStore) SaveDocMap(ctx context.Context, docMap knowledgeModel.DocMap) error {
	store.lock.Lock()
	defer store.lock.Unlock()
	h := append(store.history[docMap.Root], docMap)
	if len(h) > config.RedisDocMapHistory {
		h = h[len(h)-config.RedisDocMapHistory:]
	}
	store.history[docMap.Root] = h
	return nil
}

func (store *InMemoryDocMapStore) LatestDocMap(ctx context.Context, root string) (knowledgeModel.DocMap, bool) {
	store.lock.RLock()
	defer store.lock.RUnlock()
	h := store.history[root]
	if len(h) == 0 {
		return knowledgeModel.DocMap{}, false
	}
	return h[len(h)-1], true
}
