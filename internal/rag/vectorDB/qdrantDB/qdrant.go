package qdrantDB

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/akolanti/knowledgecore/internal/config"
	"github.com/akolanti/knowledgecore/internal/domain/knowledgeModel"
	"github.com/akolanti/knowledgecore/internal/metrics"
	"github.com/akolanti/knowledgecore/internal/rag/vectorDB"
	"github.com/akolanti/knowledgecore/pkg/logger_i"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var logger *logger_i.Logger
var quadrantInstance *qdrant.Client
var once sync.Once
var initErr error

type ClientHolder struct {
	QObj *qdrant.Client
	// serialises collection creation and registry writes
	mu sync.Mutex
}

// GetQuadrantClient returns the process-wide Qdrant client, nil with an error
// when the server cannot be reached. The client is closed when ctx ends.
func GetQuadrantClient(ctx context.Context, settings config.VectorSettings) (*ClientHolder, error) {
	once.Do(func() {
		logger = logger_i.NewLogger("Qdrant")
		res, err := newClient(ctx, settings)
		if err != nil {
			initErr = err
			return
		}
		quadrantInstance = res
		go closeQdrant(ctx, quadrantInstance)
	})

	if quadrantInstance == nil {
		return nil, initErr
	}
	return &ClientHolder{QObj: quadrantInstance}, nil
}

func newClient(ctx context.Context, settings config.VectorSettings) (*qdrant.Client, error) {
	host, port := settings.QdrantHost, settings.QdrantPort
	if host == "" || port <= 0 {
		host = config.QdrantHost
		port = config.QdrantGrpcPort
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:     host,
		Port:     port,
		APIKey:   settings.QdrantAPIKey,
		UseTLS:   settings.QdrantUseTLS || config.QdrantUseTLS,
		PoolSize: uint(config.QdrantPoolSize),
	})
	if err != nil {
		logger.Error("could not instantiate: ", "error:", err)
		return nil, err
	}

	if err := initRegistry(ctx, client); err != nil {
		logger.Error("could not create collection registry", "error:", err)
		_ = client.Close()
		return nil, classify(err)
	}
	logger.Info("Connected to Qdrant", "host", host, "port", port)
	return client, nil
}

func closeQdrant(ctx context.Context, qi *qdrant.Client) {
	<-ctx.Done()
	logger.Info("Shutting down Qdrant")
	err := qi.Close()
	if err != nil {
		logger.Error("could not close Qdrant: ", "error:", err)
	}
	logger.Info("Closed Qdrant")
}

func (db *ClientHolder) EnsureCollection(ctx context.Context, c knowledgeModel.Collection) (knowledgeModel.Collection, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	existing, found, err := db.GetCollection(ctx, c.Name)
	if err != nil {
		return c, err
	}
	if found {
		return existing, vectorDB.CheckDimension(existing, c)
	}

	if err := createCollection(ctx, db.QObj, c.Name, uint64(c.EmbeddingDim)); err != nil {
		return c, classify(err)
	}
	if err := db.register(ctx, c); err != nil {
		return c, classify(err)
	}
	logger_i.FromContext(ctx, "Qdrant").Info("Created collection", "collection", c.Name, "dim", c.EmbeddingDim, "provider", c.ProviderID)
	return c, nil
}

// GetCollection reads the registry record, falling back to the live vector
// config for collections created outside this service.
func (db *ClientHolder) GetCollection(ctx context.Context, name string) (knowledgeModel.Collection, bool, error) {
	exists, err := db.QObj.CollectionExists(ctx, name)
	if err != nil {
		return knowledgeModel.Collection{Name: name}, false, classify(err)
	}
	if !exists {
		return knowledgeModel.Collection{Name: name}, false, nil
	}
	if c, ok, err := db.lookup(ctx, name); err != nil || ok {
		return c, ok, err
	}

	info, err := db.QObj.GetCollectionInfo(ctx, name)
	if err != nil {
		return knowledgeModel.Collection{Name: name}, false, classify(err)
	}
	dim := info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()
	return knowledgeModel.Collection{Name: name, EmbeddingDim: int(dim)}, true, nil
}

func (db *ClientHolder) Upsert(ctx context.Context, collectionName string, chunks []knowledgeModel.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("qdrant_upsert", time.Since(start)) }()

	qdrantPoints := make([]*qdrant.PointStruct, len(chunks))
	for i, chunk := range chunks {
		payload := vectorDB.ChunkMetadata(collectionName, chunk)
		payload[knowledgeModel.MetaText] = chunk.Text
		qdrantPoints[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(chunk.ChunkID),
			Vectors: qdrant.NewVectors(chunk.Embedding...),
			Payload: qdrant.NewValueMap(payload),
		}
	}

	_, err := db.QObj.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collectionName,
		Points:         qdrantPoints,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert failed: %w", classify(err))
	}
	return nil
}

func (db *ClientHolder) Query(ctx context.Context, collectionName string, vectorFloat []float32, k int, threshold float64) ([]knowledgeModel.QueryResult, error) {
	if err := vectorDB.ValidateQuery(k); err != nil {
		return nil, err
	}
	loggr := logger_i.FromContext(ctx, "Qdrant")

	exists, err := db.QObj.CollectionExists(ctx, collectionName)
	if err != nil {
		return nil, classify(err)
	}
	if !exists {
		return nil, nil
	}

	start := time.Now()
	result, err := db.QObj.Query(ctx, queryPoints(collectionName, vectorFloat, k, threshold))
	metrics.CaptureExecutionMetrics("qdrant_query", time.Since(start))
	if err != nil {
		loggr.Error("Error querying Qdrant: ", "error:", err)
		return nil, classify(err)
	}

	hits := make([]vectorDB.Scored, 0, len(result))
	for _, hit := range result {
		meta := payloadToMetadata(hit.Payload)
		hits = append(hits, vectorDB.Scored{
			Result: knowledgeModel.QueryResult{
				Text:     hit.Payload[knowledgeModel.MetaText].GetStringValue(),
				Score:    vectorDB.ClampScore(float64(hit.Score)),
				Metadata: meta,
			},
			UpsertedAt: hit.Payload[knowledgeModel.MetaUpsertedAt].GetIntegerValue(),
		})
	}
	matches := vectorDB.Rank(hits, k, threshold)
	loggr.Debug("Found matches", "count", len(matches))
	return matches, nil
}

// queryPoints over-fetches so equal scores past the k-th hit can still be
// re-ordered by recency. The threshold is only pushed down when positive:
// Qdrant compares it to the raw cosine, and a zero threshold must keep
// negative hits that clamp to 0.
func queryPoints(collectionName string, vector []float32, k int, threshold float64) *qdrant.QueryPoints {
	q := &qdrant.QueryPoints{
		CollectionName: collectionName,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(k + config.QdrantTieSlack)),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if threshold > 0 {
		q.ScoreThreshold = qdrant.PtrOf(float32(threshold))
	}
	return q
}

func (db *ClientHolder) ChunkHashes(ctx context.Context, collectionName, sourceKey string) (map[int]string, error) {
	out := make(map[int]string)
	exists, err := db.QObj.CollectionExists(ctx, collectionName)
	if err != nil || !exists {
		return out, classify(err)
	}

	var offset *qdrant.PointId
	for {
		points, next, err := db.QObj.ScrollAndOffset(ctx, &qdrant.ScrollPoints{
			CollectionName: collectionName,
			Filter:         sourceFilter(sourceKey),
			Offset:         offset,
			Limit:          qdrant.PtrOf(uint32(config.QdrantScrollPage)),
			WithPayload:    qdrant.NewWithPayloadInclude(knowledgeModel.MetaOrdinal, knowledgeModel.MetaContentHash),
		})
		if err != nil {
			return nil, classify(err)
		}
		for _, p := range points {
			out[int(p.Payload[knowledgeModel.MetaOrdinal].GetIntegerValue())] = p.Payload[knowledgeModel.MetaContentHash].GetStringValue()
		}
		if next == nil || len(points) == 0 {
			return out, nil
		}
		offset = next
	}
}

func (db *ClientHolder) Prune(ctx context.Context, collectionName, sourceKey string, fromOrdinal int) (int, error) {
	filter := sourceFilter(sourceKey)
	filter.Must = append(filter.Must, qdrant.NewRange(knowledgeModel.MetaOrdinal, &qdrant.Range{
		Gte: qdrant.PtrOf(float64(fromOrdinal)),
	}))

	n, err := db.QObj.Count(ctx, &qdrant.CountPoints{
		CollectionName: collectionName,
		Filter:         filter,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, classify(err)
	}
	if n == 0 {
		return 0, nil
	}

	_, err = db.QObj.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collectionName,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelectorFilter(filter),
	})
	if err != nil {
		return 0, classify(err)
	}
	return int(n), nil
}

func (db *ClientHolder) Stats(ctx context.Context, collectionName string) (knowledgeModel.CollectionStats, error) {
	stats := knowledgeModel.CollectionStats{Collection: collectionName}
	c, found, err := db.GetCollection(ctx, collectionName)
	if err != nil || !found {
		return stats, err
	}
	info, err := db.QObj.GetCollectionInfo(ctx, collectionName)
	if err != nil {
		return stats, classify(err)
	}
	stats.Exists = true
	stats.PointsCount = info.GetPointsCount()
	stats.EmbeddingDim = c.EmbeddingDim
	stats.ProviderID = c.ProviderID
	return stats, nil
}

func (db *ClientHolder) Drop(ctx context.Context, collectionName string) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	exists, err := db.QObj.CollectionExists(ctx, collectionName)
	if err != nil {
		return false, classify(err)
	}
	if err := db.unregister(ctx, collectionName); err != nil {
		return false, classify(err)
	}
	if !exists {
		return false, nil
	}
	if err := db.QObj.DeleteCollection(ctx, collectionName); err != nil {
		return false, classify(err)
	}
	return true, nil
}

// Close is a no-op; the shared client is closed when the root context ends.
func (db *ClientHolder) Close() error { return nil }

func createCollection(ctx context.Context, client *qdrant.Client, collectionName string, dimension uint64) error {
	if collectionName == "" {
		return errors.New("empty collection name")
	}

	exists, err := client.CollectionExists(ctx, collectionName)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	err = client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     dimension,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return err
	}

	// dedup lookups and prunes filter on these
	for field, kind := range map[string]qdrant.FieldType{
		knowledgeModel.MetaSourceKey: qdrant.FieldType_FieldTypeKeyword,
		knowledgeModel.MetaOrdinal:   qdrant.FieldType_FieldTypeInteger,
	} {
		if _, err := client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: collectionName,
			FieldName:      field,
			FieldType:      kind.Enum(),
			Wait:           qdrant.PtrOf(true),
		}); err != nil {
			return err
		}
	}
	return nil
}

func sourceFilter(sourceKey string) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{qdrant.NewMatchKeyword(knowledgeModel.MetaSourceKey, sourceKey)},
	}
}

func payloadToMetadata(payload map[string]*qdrant.Value) map[string]any {
	meta := make(map[string]any, len(payload))
	for key, v := range payload {
		if key == knowledgeModel.MetaText {
			continue
		}
		switch kind := v.GetKind().(type) {
		case *qdrant.Value_StringValue:
			meta[key] = kind.StringValue
		case *qdrant.Value_IntegerValue:
			meta[key] = kind.IntegerValue
		case *qdrant.Value_DoubleValue:
			meta[key] = kind.DoubleValue
		case *qdrant.Value_BoolValue:
			meta[key] = kind.BoolValue
		}
	}
	return meta
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	if s, ok := status.FromError(err); ok {
		switch s.Code() {
		case codes.Unauthenticated, codes.PermissionDenied:
			return &knowledgeModel.ProviderAuthError{Provider: "qdrant", Err: err}
		case codes.ResourceExhausted:
			return &knowledgeModel.ProviderRateLimitError{Provider: "qdrant", Err: err}
		}
	}
	return err
}
