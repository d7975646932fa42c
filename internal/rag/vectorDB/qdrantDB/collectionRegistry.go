package qdrantDB

import (
	"context"

	"github.com/akolanti/knowledgecore/internal/config"
	"github.com/akolanti/knowledgecore/internal/domain/knowledgeModel"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// The registry is a one-dimensional collection whose points record which
// provider and dimension each knowledge collection was created with.

var registryNamespace = uuid.MustParse("8f0e6a53-3b1c-4f43-9a3e-5b0d2f7c6a10")

const (
	registryName     = "name"
	registryDim      = "embedding_dim"
	registryProvider = "provider"
)

func initRegistry(ctx context.Context, client *qdrant.Client) error {
	exists, err := client.CollectionExists(ctx, config.CollectionRegistryName)
	if err != nil || exists {
		return err
	}
	return client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: config.CollectionRegistryName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     1,
			Distance: qdrant.Distance_Dot,
		}),
	})
}

func registryID(name string) *qdrant.PointId {
	return qdrant.NewID(uuid.NewSHA1(registryNamespace, []byte(name)).String())
}

func (db *ClientHolder) register(ctx context.Context, c knowledgeModel.Collection) error {
	_, err := db.QObj.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: config.CollectionRegistryName,
		Wait:           qdrant.PtrOf(true),
		Points: []*qdrant.PointStruct{{
			Id:      registryID(c.Name),
			Vectors: qdrant.NewVectors(1),
			Payload: qdrant.NewValueMap(map[string]any{
				registryName:     c.Name,
				registryDim:      c.EmbeddingDim,
				registryProvider: c.ProviderID,
			}),
		}},
	})
	return err
}

func (db *ClientHolder) lookup(ctx context.Context, name string) (knowledgeModel.Collection, bool, error) {
	points, err := db.QObj.Get(ctx, &qdrant.GetPoints{
		CollectionName: config.CollectionRegistryName,
		Ids:            []*qdrant.PointId{registryID(name)},
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return knowledgeModel.Collection{Name: name}, false, classify(err)
	}
	if len(points) == 0 {
		return knowledgeModel.Collection{Name: name}, false, nil
	}
	p := points[0].Payload
	return knowledgeModel.Collection{
		Name:         name,
		EmbeddingDim: int(p[registryDim].GetIntegerValue()),
		ProviderID:   p[registryProvider].GetStringValue(),
	}, true, nil
}

func (db *ClientHolder) unregister(ctx context.Context, name string) error {
	_, err := db.QObj.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: config.CollectionRegistryName,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelector(registryID(name)),
	})
	return err
}
