package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"llm-stock-screener/internal/logger"
	"llm-stock-screener/internal/store"
	"llm-stock-screener/internal/trace"
)

// OpenAIGenerator produces the report via the OpenAI chat-completions API.
type OpenAIGenerator struct {
	cfg *store.Config
}

// NewOpenAIGenerator creates an OpenAI-backed generator.
func NewOpenAIGenerator(cfg *store.Config) *OpenAIGenerator {
	return &OpenAIGenerator{cfg: cfg}
}

// Generate builds the prompt and requests the report.
func (g *OpenAIGenerator) Generate(ctx context.Context, req Request) (string, error) {
	ctx, span := trace.StartSpan(ctx, "openai-api-call")
	defer span.End()

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return "", errors.New("OPENAI_API_KEY missing")
	}

	prompt, err := buildPrompt(req)
	if err != nil {
		return "", err
	}

	logger.Info(ctx, "Requesting report from OpenAI", "model", g.cfg.LLM.Model)

	body := map[string]any{
		"model": g.cfg.LLM.Model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": prompt},
		},
		"temperature": g.cfg.LLM.Temperature,
		"max_tokens":  g.cfg.LLM.MaxTokens,
	}
	bb, _ := json.Marshal(body)

	httpReq, err := http.NewRequestWithContext(ctx, "POST", "https://api.openai.com/v1/chat/completions", bytes.NewReader(bb))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("openai http %d", resp.StatusCode)
	}

	var r struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return "", err
	}

	if len(r.Choices) == 0 {
		return "", errors.New("no choices")
	}

	out := strings.TrimSpace(r.Choices[0].Message.Content)
	if out == "" {
		return "", errors.New("response did not contain text output")
	}
	return out, nil
}
