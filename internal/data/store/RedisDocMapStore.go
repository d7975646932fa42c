package store

import (
	"context"
	"encoding/json"

	"github.com/akolanti/knowledgecore/internal/config"
	"github.com/akolanti/knowledgecore/internal/data/redisStore"
	"github.com/akolanti/knowledgecore/internal/domain/knowledgeModel"
	"github.com/akolanti/knowledgecore/pkg/logger_i"
)

const docMapKeyPrefix = "docmap:"

// RedisDocMapStore keeps a capped history of DocMaps per source root.
type RedisDocMapStore struct {
	store  *redisStore.Store
	logger *logger_i.Logger
}

func GetRedisDocMapStore(ctx context.Context, settings config.RedisSettings) *RedisDocMapStore {
	s := redisStore.GetRedisStore(ctx, settings, config.RedisDocMapStore)
	if s == nil {
		return nil
	}
	return NewRedisDocMapStore(s)
}

func NewRedisDocMapStore(s *redisStore.Store) *RedisDocMapStore {
	return &RedisDocMapStore{
		store:  s,
		logger: logger_i.NewLogger("DocMapStore"),
	}
}

func (s *RedisDocMapStore) SaveDocMap(ctx context.Context, docMap knowledgeModel.DocMap) error {
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "root", docMap.Root)
	data, err := json.Marshal(docMap)
	if err != nil {
		return err
	}
	err = s.store.ListPushCapped(ctx, docMapKeyPrefix+docMap.Root, data, config.RedisDocMapHistory, config.RedisDocMapStoreTTL)
	if err != nil {
		log.Error("error saving docmap", "error", err)
		return err
	}
	log.Debug("Saved docmap", "files", len(docMap.Files))
	return nil
}

func (s *RedisDocMapStore) LatestDocMap(ctx context.Context, root string) (knowledgeModel.DocMap, bool) {
	var docMap knowledgeModel.DocMap
	val, err := s.store.ListLast(ctx, docMapKeyPrefix+root)
	if s.store.IsNil(err) {
		return docMap, false
	} else if err != nil {
		s.logger.Error("Error reading docmap", "root", root, "error", err)
		return docMap, false
	}
	if err = json.Unmarshal([]byte(val), &docMap); err != nil {
		s.logger.Error("Error unmarshalling docmap", "root", root, "error", err)
		return docMap, false
	}
	return docMap, true
}

func (s *RedisDocMapStore) History(ctx context.Context, root string) ([]knowledgeModel.DocMap, error) {
	raw, err := s.store.ListGetAll(ctx, docMapKeyPrefix+root)
	if err != nil {
		return nil, err
	}
	out := make([]knowledgeModel.DocMap, 0, len(raw))
	for _, r := range raw {
		var dm knowledgeModel.DocMap
		if err := json.Unmarshal([]byte(r), &dm); err != nil {
			return nil, err
		}
		out = append(out, dm)
	}
	return out, nil
}
