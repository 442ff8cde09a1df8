// Package providers holds the concrete capability providers the core
// depends on through its narrow interfaces: generative text, embeddings and
// OCR. Any conforming provider can replace these without touching pipeline
// logic.
package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const (
	defaultGenModel   = "gemini-1.5-flash-latest"
	defaultEmbedModel = "embedding-001"
)

// Gemini provides both the generate and embed capabilities through the
// Google generative language API.
type Gemini struct {
	client     *genai.Client
	model      string
	embedModel string
}

func NewGemini(ctx context.Context, apiKey, model, embedModel string) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	if model == "" {
		model = defaultGenModel
	}
	if embedModel == "" {
		embedModel = defaultEmbedModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Gemini{client: client, model: model, embedModel: embedModel}, nil
}

// Generate issues one synchronous generation call and returns the text of
// the first candidate.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(0.3)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generation: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("gemini returned no candidates")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}

	return sb.String(), nil
}

// Embed returns one embedding vector per input text, in input order.
func (g *Gemini) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	model := g.client.EmbeddingModel(g.embedModel)

	batch := model.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(t))
	}

	resp, err := model.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("gemini embeddings: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini returned %d embeddings for %d texts", len(resp.Embeddings), len(texts))
	}

	out := make([][]float32, 0, len(resp.Embeddings))
	for _, e := range resp.Embeddings {
		out = append(out, e.Values)
	}
	return out, nil
}

func (g *Gemini) Close() error {
	return g.client.Close()
}
