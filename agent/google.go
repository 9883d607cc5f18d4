package agent

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// googleClient implements completionClient using the official Gemini SDK.
type googleClient struct {
	client *genai.Client
	model  *genai.GenerativeModel
	name   string
	retry  RetryConfig
}

// newGoogleClient creates a Gemini completion client.
func newGoogleClient(cfg Config) (*googleClient, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create google client: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	maxTokens := int32(cfg.MaxTokens)
	model.MaxOutputTokens = &maxTokens

	return &googleClient{
		client: client,
		model:  model,
		name:   cfg.Model,
		retry:  cfg.Retry,
	}, nil
}

// Complete implements completionClient.
func (c *googleClient) Complete(ctx context.Context, prompt string) (string, error) {
	return withRetry(ctx, c.retry, "google", func() (string, error) {
		resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			return "", err
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			return "", fmt.Errorf("empty response from model %s", c.name)
		}
		var text string
		for _, part := range resp.Candidates[0].Content.Parts {
			if t, ok := part.(genai.Text); ok {
				text += string(t)
			}
		}
		if text == "" {
			return "", fmt.Errorf("no text in response from model %s", c.name)
		}
		return text, nil
	})
}

// Close implements completionClient.
func (c *googleClient) Close() error {
	return c.client.Close()
}
