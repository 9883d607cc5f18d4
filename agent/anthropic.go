package agent

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// anthropicClient implements completionClient using the official Anthropic SDK.
type anthropicClient struct {
	client    *anthropic.Client
	model     string
	maxTokens int
	retry     RetryConfig
}

// newAnthropicClient creates an Anthropic completion client.
func newAnthropicClient(cfg Config) (*anthropicClient, error) {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	client := anthropic.NewClient(opts...)

	return &anthropicClient{
		client:    &client,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		retry:     cfg.Retry,
	}, nil
}

// Complete implements completionClient.
func (c *anthropicClient) Complete(ctx context.Context, prompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(c.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}

	return withRetry(ctx, c.retry, "anthropic", func() (string, error) {
		resp, err := c.client.Messages.New(ctx, params)
		if err != nil {
			return "", err
		}
		var text string
		for _, block := range resp.Content {
			if block.Type == "text" {
				text += block.Text
			}
		}
		if text == "" {
			return "", fmt.Errorf("empty response from model %s", c.model)
		}
		return text, nil
	})
}

// Close implements completionClient.
func (c *anthropicClient) Close() error {
	return nil
}
