package store_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/akolanti/knowledgecore/internal/config"
	"github.com/akolanti/knowledgecore/internal/data/redisStore"
	"github.com/akolanti/knowledgecore/internal/data/store"
	"github.com/akolanti/knowledgecore/internal/domain/jobModel"
	"github.com/akolanti/knowledgecore/internal/domain/knowledgeModel"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redisStore.Store) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, redisStore.NewStoreFromClient(client)
}

func TestRedisJobStore_Lifecycle(t *testing.T) {
	mr, internalStore := newRedis(t)
	jobStore := store.NewRedisJobStore(internalStore)

	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "test-trace")
	jobID := "job_abc_123"

	testJob := jobModel.Job{
		Id:      jobID,
		Status:  jobModel.JobStatusRunning,
		JobType: jobModel.JobTypeIngest,
		JobPayload: jobModel.JobPayload{
			Request: knowledgeModel.IngestRequest{Source: knowledgeModel.KindInline, Collection: "docs"},
		},
	}

	t.Run("Save and Get Roundtrip", func(t *testing.T) {
		require.NoError(t, jobStore.SaveJob(ctx, testJob))

		retrieved, found := jobStore.GetJob(ctx, jobID)
		require.True(t, found)
		assert.Equal(t, testJob.JobPayload.Request.Collection, retrieved.JobPayload.Request.Collection)
		assert.Equal(t, knowledgeModel.KindInline, retrieved.JobPayload.Request.Source)
		assert.True(t, mr.Exists("job:"+jobID))
	})

	t.Run("Get Non-Existent Job", func(t *testing.T) {
		_, found := jobStore.GetJob(ctx, "ghost-id")
		assert.False(t, found)
	})

	t.Run("Delete Job", func(t *testing.T) {
		jobStore.DeleteJob(ctx, jobID)
		assert.False(t, mr.Exists("job:"+jobID))
	})
}

func TestRedisJobStore_ConcurrentSaves(t *testing.T) {
	_, internalStore := newRedis(t)
	jobStore := store.NewRedisJobStore(internalStore)
	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "race-trace")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = jobStore.SaveJob(ctx, jobModel.Job{Id: "race-job"})
			_, _ = jobStore.GetJob(ctx, "race-job")
		}()
	}
	wg.Wait()

	_, found := jobStore.GetJob(ctx, "race-job")
	assert.True(t, found)
}

func TestInMemoryJobStore(t *testing.T) {
	s := store.InitInMemoryJobStore()
	ctx := context.Background()

	require.NoError(t, s.SaveJob(ctx, jobModel.Job{Id: "a", Status: jobModel.JobStatusQueued}))
	got, found := s.GetJob(ctx, "a")
	require.True(t, found)
	assert.Equal(t, jobModel.JobStatusQueued, got.Status)

	s.DeleteJob(ctx, "a")
	_, found = s.GetJob(ctx, "a")
	assert.False(t, found)
}

func TestDocMapStores(t *testing.T) {
	_, internalStore := newRedis(t)
	stores := map[string]knowledgeModel.DocMapStore{
		"redis":     store.NewRedisDocMapStore(internalStore),
		"in-memory": store.InitInMemoryDocMapStore(),
	}

	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			root := "https://github.com/acme/" + name

			_, found := s.LatestDocMap(ctx, root)
			assert.False(t, found)

			for i := 0; i < config.RedisDocMapHistory+5; i++ {
				dm := knowledgeModel.DocMap{
					Root:   root,
					Commit: fmt.Sprintf("c%d", i),
					Files:  []knowledgeModel.FileManifestEntry{{Path: "README.md", Size: int64(i), ContentHash: "ab"}},
				}
				require.NoError(t, s.SaveDocMap(ctx, dm))
			}

			latest, found := s.LatestDocMap(ctx, root)
			require.True(t, found)
			assert.Equal(t, fmt.Sprintf("c%d", config.RedisDocMapHistory+4), latest.Commit)
			assert.Equal(t, "README.md", latest.Files[0].Path)
		})
	}
}

func TestRedisDocMapStore_HistoryIsCapped(t *testing.T) {
	_, internalStore := newRedis(t)
	s := store.NewRedisDocMapStore(internalStore)
	ctx := context.Background()

	for i := 0; i < config.RedisDocMapHistory+3; i++ {
		require.NoError(t, s.SaveDocMap(ctx, knowledgeModel.DocMap{Root: "r", Commit: fmt.Sprint(i)}))
	}

	h, err := s.History(ctx, "r")
	require.NoError(t, err)
	require.Len(t, h, config.RedisDocMapHistory)
	assert.Equal(t, "3", h[0].Commit)
}
