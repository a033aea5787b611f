package similarity

import (
	"context"
	"fmt"
	"math"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Encoder turns free text into a sentence-level vector. Implementations
// must be safe for concurrent use; the production encoder is, because
// it holds only an HTTP client. Tests inject a fixed-vector double.
type Encoder interface {
	Encode(ctx context.Context, text string) ([]float32, error)
}

// OpenAIEncoder produces embeddings through an OpenAI-compatible API.
type OpenAIEncoder struct {
	client *openai.Client
	model  openai.EmbeddingModel
	logger *zap.Logger
}

// NewOpenAIEncoder creates an encoder against the given endpoint. An
// empty baseURL uses the default OpenAI endpoint.
func NewOpenAIEncoder(apiKey, baseURL, model string, logger *zap.Logger) *OpenAIEncoder {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIEncoder{
		client: openai.NewClientWithConfig(cfg),
		model:  openai.EmbeddingModel(model),
		logger: logger,
	}
}

// Encode requests a single embedding for the given text.
func (e *OpenAIEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: e.model,
	})
	if err != nil {
		e.logger.Error("Embedding request failed", zap.Error(err))
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("empty embedding response")
	}
	return resp.Data[0].Embedding, nil
}

// Cosine returns the cosine similarity of two vectors. Mismatched
// lengths or a zero-magnitude side score 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// AddressSimilarity scores two free-text addresses by embedding both
// sides and taking the cosine. Embeddings tolerate paraphrase and
// abbreviation ("Whitefield" vs "Gate 1, Forum Mall, Whitefield") that
// plain string matching would reject.
//
// An empty string on either side is "no signal", not a failure: it
// scores 0.0 without error.
func AddressSimilarity(ctx context.Context, enc Encoder, a, b string) (float64, error) {
	if a == "" || b == "" {
		return 0, nil
	}
	va, err := enc.Encode(ctx, a)
	if err != nil {
		return 0, err
	}
	vb, err := enc.Encode(ctx, b)
	if err != nil {
		return 0, err
	}
	return Cosine(va, vb), nil
}
