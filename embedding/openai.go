package embedding

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// Known embedding model dimensions.
const (
	dimAda002 = 1536
	dimSmall3 = 1536
	dimLarge3 = 3072
)

// OpenAI embeds text through the OpenAI embeddings API.
type OpenAI struct {
	client *openai.Client
	model  openai.EmbeddingModel
	dim    int
}

var _ Embedder = (*OpenAI)(nil)

// OpenAIOption customizes an OpenAI embedder.
type OpenAIOption func(*OpenAI)

// WithModel selects the embedding model. Defaults to text-embedding-3-small.
func WithModel(model openai.EmbeddingModel) OpenAIOption {
	return func(o *OpenAI) { o.model = model }
}

// WithClient substitutes a pre-configured client, e.g. one pointing at an
// API-compatible endpoint.
func WithClient(client *openai.Client) OpenAIOption {
	return func(o *OpenAI) { o.client = client }
}

// NewOpenAI creates an embedder authenticated with apiKey.
func NewOpenAI(apiKey string, optFns ...OpenAIOption) *OpenAI {
	o := &OpenAI{
		client: openai.NewClient(apiKey),
		model:  openai.SmallEmbedding3,
	}

	for _, fn := range optFns {
		fn(o)
	}

	switch o.model {
	case openai.AdaEmbeddingV2:
		o.dim = dimAda002
	case openai.LargeEmbedding3:
		o.dim = dimLarge3
	default:
		o.dim = dimSmall3
	}

	return o
}

// Embed returns the embedding of text.
func (o *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: o.model,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding: openai request: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedding: openai returned no data for model %s", o.model)
	}

	return resp.Data[0].Embedding, nil
}

// Dimension returns the dimensionality of the selected model.
func (o *OpenAI) Dimension() int { return o.dim }
