package openaiEmbedding

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/akolanti/knowledgecore/internal/config"
	"github.com/akolanti/knowledgecore/internal/customHttpClient"
	"github.com/akolanti/knowledgecore/internal/domain/knowledgeModel"
	"github.com/akolanti/knowledgecore/internal/rag/embedding"
	"github.com/akolanti/knowledgecore/pkg/logger_i"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const providerName = "openai"

var nativeDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

type client struct {
	api       openai.Client
	model     string
	dimension int
	// only the text-embedding-3 family accepts a dimensions parameter
	sendDimension bool
	logger        *logger_i.Logger
}

// NewOpenAIEmbedder builds a provider for the OpenAI embeddings endpoint or any
// server speaking the same protocol via OpenAIBaseURL.
func NewOpenAIEmbedder(settings config.EmbeddingSettings) (embedding.Provider, error) {
	if settings.OpenAIAPIKey == "" {
		return nil, &knowledgeModel.ProviderAuthError{Provider: providerName, Err: errors.New("OPENAI_API_KEY is not set")}
	}
	model := settings.Model
	if model == "" || model == config.GoogleEmbeddingModel {
		model = config.OpenAIEmbeddingModel
	}

	native, known := nativeDimensions[model]
	dim := settings.Dimension
	switch {
	case dim <= 0 && known:
		dim = native
	case dim <= 0:
		return nil, knowledgeModel.NewConfigError("EMBEDDINGS_DIM", fmt.Sprintf("required for unknown model %q", model))
	case known && model == "text-embedding-ada-002" && dim != native:
		return nil, knowledgeModel.NewConfigError("EMBEDDINGS_DIM", "text-embedding-ada-002 only produces 1536 dimensions")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(settings.OpenAIAPIKey),
		option.WithHTTPClient(customHttpClient.GetPooledClient()),
		// retries are owned by the batcher
		option.WithMaxRetries(0),
	}
	if settings.OpenAIBaseURL != "" {
		opts = append(opts, option.WithBaseURL(settings.OpenAIBaseURL))
	}

	c := &client{
		api:           openai.NewClient(opts...),
		model:         model,
		dimension:     dim,
		sendDimension: model != "text-embedding-ada-002" && (!known || dim != native),
		logger:        logger_i.NewLogger("openai_embedding"),
	}
	c.logger.Info("OpenAI Embedding client created", "model", model, "dimension", dim)
	return c, nil
}

func (c *client) ID() string         { return fmt.Sprintf("%s:%s:%d", providerName, c.model, c.dimension) }
func (c *client) Dimension() int     { return c.dimension }
func (c *client) MaxBatch() int      { return config.OpenAIMaxBatch }
func (c *client) MaxInputChars() int { return config.OpenAIMaxInputChars }

func (c *client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openai.EmbeddingModel(c.model),
	}
	if c.sendDimension {
		params.Dimensions = openai.Int(int64(c.dimension))
	}

	resp, err := c.api.Embeddings.New(ctx, params)
	if err != nil {
		logger_i.FromContext(ctx, "openai_embedding").Error("Error getting Embeddings from OpenAI", "error", err, "batch", len(texts))
		return nil, classify(err)
	}

	data := resp.Data
	sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	out := make([][]float32, len(data))
	for i, d := range data {
		out[i] = toFloat32(d.Embedding)
	}
	return out, nil
}

func toFloat32(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}

func classify(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return embedding.ClassifyStatus(providerName, apiErr.StatusCode, err)
	}
	return err
}
