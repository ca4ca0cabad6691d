package report

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"llm-stock-screener/internal/logger"
)

// GeminiGenerator produces the report via the Google Gemini API.
type GeminiGenerator struct {
	client      *genai.Client
	model       string
	temperature float32
}

// NewGeminiGenerator creates a Gemini-backed generator.
func NewGeminiGenerator(ctx context.Context, apiKey, model string, temperature float32) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiGenerator{
		client:      client,
		model:       model,
		temperature: temperature,
	}, nil
}

// Generate builds the prompt and requests the report.
func (g *GeminiGenerator) Generate(ctx context.Context, req Request) (string, error) {
	prompt, err := buildPrompt(req)
	if err != nil {
		return "", err
	}

	logger.Info(ctx, "Requesting report from Gemini", "model", g.model)

	config := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(g.temperature),
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
	}
	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("failed to generate report: %w", err)
	}

	return extractText(result)
}

func extractText(result *genai.GenerateContentResponse) (string, error) {
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("response did not contain text output")
	}

	text := ""
	for _, part := range result.Candidates[0].Content.Parts {
		if part.Text != "" {
			text += part.Text
		}
	}
	if text == "" {
		return "", fmt.Errorf("response did not contain text output")
	}
	return text, nil
}
