package googleEmbedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/akolanti/knowledgecore/internal/config"
	"github.com/akolanti/knowledgecore/internal/customHttpClient"
	"github.com/akolanti/knowledgecore/internal/domain/knowledgeModel"
	"github.com/akolanti/knowledgecore/internal/rag/embedding"
	"github.com/akolanti/knowledgecore/pkg/logger_i"
	"google.golang.org/genai"
)

const providerName = "google"

type client struct {
	genAi     *genai.Client
	model     string
	dimension int32
	logger    *logger_i.Logger
}

// NewGoogleEmbedder connects to the Gemini API. The client is released when
// ctx is cancelled.
func NewGoogleEmbedder(ctx context.Context, settings config.EmbeddingSettings) (embedding.Provider, error) {
	logger := logger_i.NewLogger("google_embedding")
	if settings.GoogleAPIKey == "" {
		return nil, &knowledgeModel.ProviderAuthError{Provider: providerName, Err: errors.New("GOOGLE_API_KEY is not set")}
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     settings.GoogleAPIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: customHttpClient.GetPooledClient(),
	})
	if err != nil {
		logger.Error("Error creating Google Embedding client", "error", err)
		return nil, err
	}

	model := settings.Model
	if model == "" {
		model = config.GoogleEmbeddingModel
	}
	dim := int32(settings.Dimension)
	if dim <= 0 {
		dim = config.EmbeddingOutputDimensionality
	}

	embeddingClient := &client{genAi: c, model: model, dimension: dim, logger: logger}
	logger.Info("Google Embedding client created", "model", model, "dimension", dim)
	go closeClient(ctx, embeddingClient)
	return embeddingClient, nil
}

func closeClient(ctx context.Context, embeddingClient *client) {
	<-ctx.Done()
	embeddingClient.logger.Info("Closing Google Embedding client")
}

func (c *client) ID() string         { return fmt.Sprintf("%s:%s:%d", providerName, c.model, c.dimension) }
func (c *client) Dimension() int     { return int(c.dimension) }
func (c *client) MaxBatch() int      { return config.GoogleMaxBatch }
func (c *client) MaxInputChars() int { return config.GoogleMaxInputChars }

func (c *client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	result, err := c.doCall(ctx, getContent(texts), "RETRIEVAL_DOCUMENT")
	if err != nil {
		return nil, err
	}
	out := make([][]float32, 0, len(result.Embeddings))
	for _, r := range result.Embeddings {
		if r == nil {
			out = append(out, nil)
			continue
		}
		out = append(out, r.Values)
	}
	return out, nil
}

func (c *client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	result, err := c.doCall(ctx, genai.Text(text), "RETRIEVAL_QUERY")
	if err != nil {
		return nil, err
	}
	if len(result.Embeddings) == 0 || result.Embeddings[0] == nil {
		return nil, fmt.Errorf("%s: %w: empty embedding response", providerName, knowledgeModel.ErrMalformedInput)
	}
	return result.Embeddings[0].Values, nil
}

func (c *client) doCall(ctx context.Context, content []*genai.Content, taskType string) (*genai.EmbedContentResponse, error) {
	log := logger_i.FromContext(ctx, "google_embedding")
	result, err := c.genAi.Models.EmbedContent(ctx, c.model, content, &genai.EmbedContentConfig{
		OutputDimensionality: &c.dimension,
		TaskType:             taskType,
	})
	if err != nil {
		log.Error("Error getting Embeddings from Google", "error", err, "batch", len(content))
		return nil, classify(err)
	}
	return result, nil
}

func getContent(chunks []string) []*genai.Content {
	contentsToSend := make([]*genai.Content, 0, len(chunks))
	for _, chunk := range chunks {
		contentsToSend = append(contentsToSend, &genai.Content{
			Parts: []*genai.Part{{Text: chunk}},
		})
	}
	return contentsToSend
}

func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return embedding.ClassifyStatus(providerName, apiErr.Code, err)
	}
	return embedding.ClassifyGRPC(providerName, err)
}
