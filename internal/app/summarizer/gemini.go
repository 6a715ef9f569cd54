package summarizer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/genai"
)

const (
	DefaultGeminiModel = "gemini-2.0-flash"
	geminiMaxRetries   = 2
	geminiRetryDelay   = 2 * time.Second
)

// GeminiCompleter calls the Gemini API in JSON response mode.
type GeminiCompleter struct {
	client *genai.Client
	model  string
	log    waLog.Logger
}

func NewGeminiCompleter(ctx context.Context, apiKey, model string, log waLog.Logger) (*GeminiCompleter, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini api key is required")
	}
	if model = strings.TrimSpace(model); model == "" {
		model = DefaultGeminiModel
	}
	if log == nil {
		log = waLog.Noop
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  strings.TrimSpace(apiKey),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiCompleter{client: client, model: model, log: log}, nil
}

func (c *GeminiCompleter) Provider() string { return "gemini" }

func (c *GeminiCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	temperature := float32(0.3)
	cfg := &genai.GenerateContentConfig{
		Temperature:       &temperature,
		ResponseMIMEType:  "application/json",
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: system}}},
	}
	contents := []*genai.Content{genai.NewContentFromText(user, genai.RoleUser)}

	var lastErr error
	for attempt := 0; attempt <= geminiMaxRetries; attempt++ {
		resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
		if err == nil {
			return strings.TrimSpace(resp.Text()), nil
		}
		lastErr = err
		var apiErr *genai.APIError
		if !errors.As(err, &apiErr) || (apiErr.Code != 500 && apiErr.Code != 503) || attempt == geminiMaxRetries {
			break
		}
		c.log.Warnf("gemini call failed with %d, retrying (attempt %d)", apiErr.Code, attempt+1)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(geminiRetryDelay):
		}
	}
	return "", fmt.Errorf("gemini generate content: %w", lastErr)
}
