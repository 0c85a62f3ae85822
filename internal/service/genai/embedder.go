package genai

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"

	"google.golang.org/genai"

	drepo "RWAPrice/internal/domain/repository"
)

// EmbedderConfig selects and configures the embedding provider.
type EmbedderConfig struct {
	Provider   string // "genai" or "local"
	APIKey     string
	Model      string
	Dimensions int
}

// NewEmbedder creates an embedder for the configured provider.
func NewEmbedder(ctx context.Context, cfg EmbedderConfig) (drepo.Embedder, error) {
	switch cfg.Provider {
	case "genai":
		return newGenAIEmbedder(ctx, cfg)
	case "local", "":
		return NewLocalEmbedder(cfg.Dimensions), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s (use 'genai' or 'local')", cfg.Provider)
	}
}

// genAIEmbedder generates embeddings with the Gemini embedding models.
type genAIEmbedder struct {
	client *genai.Client
	model  string
	dims   int
}

func newGenAIEmbedder(ctx context.Context, cfg EmbedderConfig) (*genAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("embedding API key is required")
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-embedding-001"
	}
	dims := cfg.Dimensions
	if dims <= 0 {
		dims = 768
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}
	return &genAIEmbedder{client: client, model: model, dims: dims}, nil
}

func (e *genAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(text, genai.RoleUser),
	}
	result, err := e.client.Models.EmbedContent(ctx, e.model, contents,
		&genai.EmbedContentConfig{TaskType: "SEMANTIC_SIMILARITY"},
	)
	if err != nil {
		return nil, fmt.Errorf("embed content: %w", err)
	}
	if len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}
	return result.Embeddings[0].Values, nil
}

func (e *genAIEmbedder) Dimensions() int { return e.dims }

func (e *genAIEmbedder) Name() string { return "genai:" + e.model }

// LocalEmbedder is a deterministic hashed bag-of-words embedder for
// development and tests: no network, fixed dimension, stable output for a
// given text.
type LocalEmbedder struct {
	dims int
}

func NewLocalEmbedder(dims int) *LocalEmbedder {
	if dims <= 0 {
		dims = 128
	}
	return &LocalEmbedder{dims: dims}
}

func (e *LocalEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dims)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(w))
		vec[h.Sum32()%uint32(e.dims)]++
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		n := float32(math.Sqrt(norm))
		for i := range vec {
			vec[i] /= n
		}
	}
	return vec, nil
}

func (e *LocalEmbedder) Dimensions() int { return e.dims }

func (e *LocalEmbedder) Name() string { return "local:hashed-bow" }
