package agent

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// openaiClient implements completionClient using the official OpenAI SDK.
type openaiClient struct {
	client    *openai.Client
	model     string
	maxTokens int
	retry     RetryConfig
}

// newOpenAIClient creates an OpenAI completion client.
func newOpenAIClient(cfg Config) (*openaiClient, error) {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	client := openai.NewClient(opts...)

	return &openaiClient{
		client:    &client,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		retry:     cfg.Retry,
	}, nil
}

// Complete implements completionClient.
func (c *openaiClient) Complete(ctx context.Context, prompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		MaxTokens: openai.Int(int64(c.maxTokens)),
	}

	return withRetry(ctx, c.retry, "openai", func() (string, error) {
		resp, err := c.client.Chat.Completions.New(ctx, params)
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("empty response from model %s", c.model)
		}
		return resp.Choices[0].Message.Content, nil
	})
}

// Close implements completionClient.
func (c *openaiClient) Close() error {
	return nil
}
