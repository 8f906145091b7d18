package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.0-flash"

// ErrEmptyResponse marks a model reply without any text part.
var ErrEmptyResponse = errors.New("model returned no text")

// Gemini generates email copy with the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
	brand  string
}

// NewGemini creates a Gemini-backed generator.
// PRE: apiKey is a Gemini API key; brand names the product the copy promotes
// POST: Returns a ready-to-use generator or the client construction error
func NewGemini(ctx context.Context, apiKey, model, brand string) (*Gemini, error) {
	if model == "" {
		model = DefaultGeminiModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Gemini{client: client, model: model, brand: brand}, nil
}

// Generate asks the model for a JSON email for one lead.
// PRE: fields holds the lead's column values
// POST: Returns the raw reply text; transport failures and empty replies are errors
func (g *Gemini) Generate(ctx context.Context, fields map[string]string) (string, error) {
	temperature := float32(0.9)
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(BuildPrompt(g.brand, fields)), &genai.GenerateContentConfig{
		Temperature:      &temperature,
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		slog.Error("gemini_generate_failed", "error", err, "model", g.model)
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", ErrEmptyResponse
	}
	slog.Info("gemini_generated", "model", g.model, "chars", len(text))
	return text, nil
}
