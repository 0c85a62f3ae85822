// Package genai wraps the Google GenAI SDK behind the domain Generator and
// Embedder interfaces. The pipeline treats both as black boxes: prompt in,
// text out; text in, vector out.
package genai

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	drepo "RWAPrice/internal/domain/repository"
)

const systemPrompt = "You are an AI pricing specialist for tokenized real-world assets."

// Generator produces one free-form completion per prompt via the Gemini API.
type Generator struct {
	client      *genai.Client
	model       string
	temperature float32
}

// NewGenerator creates the generation client.
func NewGenerator(ctx context.Context, apiKey, model string, temperature float64) (*Generator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("generation API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}
	return &Generator{client: client, model: model, temperature: float32(temperature)}, nil
}

// Generate runs a single request/response completion. Any failure here means
// the pricing request has no candidate answer at all.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx,
		g.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			Temperature:       genai.Ptr(g.temperature),
			SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		},
	)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty generation response")
	}
	return text, nil
}

var _ drepo.Generator = (*Generator)(nil)
