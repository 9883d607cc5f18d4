// Package agent executes webpage-summary work through an LLM backend.
//
// A Backend takes a URL and an output language and produces a single summary
// string. The bundled implementation fetches the page through an SSRF-guarded
// HTTP client and asks a configured LLM provider to summarize the content.
// The consumer's only obligation here is ordering: a Backend is never invoked
// with a URL that failed the safety check.
package agent

import (
	"context"
	"fmt"
	"strings"

	oraclerr "github.com/vinayprograms/oraclekit/errors"
	"github.com/vinayprograms/oraclekit/logging"
	"github.com/vinayprograms/oraclekit/safety"
)

// Request is one summary job.
type Request struct {
	// URL is the page to summarize. Already validated by the caller.
	URL string

	// Language is the output language code, e.g. "en", "zh".
	Language string
}

// Backend produces a summary for a request, or an error. One call is one
// attempt; retries against the provider happen inside, never across calls.
type Backend interface {
	Summarize(ctx context.Context, req Request) (string, error)
}

// languageNames maps supported language codes to their English names.
var languageNames = map[string]string{
	"en": "English",
	"zh": "Chinese",
	"ja": "Japanese",
	"ko": "Korean",
	"es": "Spanish",
	"fr": "French",
	"de": "German",
}

// LanguageName resolves a language code to a name for the prompt.
// Unknown codes fall back to English.
func LanguageName(code string) string {
	if name, ok := languageNames[code]; ok {
		return name
	}
	return "English"
}

// summaryPrompt builds the instruction sent to the provider alongside the
// fetched page content.
func summaryPrompt(url, language, content string) string {
	return fmt.Sprintf(`Web page content of %s:
---
%s
---

Provide a comprehensive summary in %s with the following structure:
1. Title and URL
2. Key Points
3. Main Arguments
4. Important Details
5. AI Agent's related information
6. Give a score for the content quality in 1-100 scale

Format the output in markdown.`, url, content, language)
}

// completionClient is the minimal surface the backend needs from a provider.
type completionClient interface {
	// Complete sends a single-turn prompt and returns the text response.
	Complete(ctx context.Context, prompt string) (string, error)

	// Close releases provider resources.
	Close() error
}

// Config configures the LLM-backed summarizer.
type Config struct {
	// Provider selects the LLM client: "openai", "anthropic", or "google".
	Provider string

	// Model is the provider model name.
	Model string

	// APIKey authenticates with the provider.
	APIKey string

	// MaxTokens bounds the summary length. Default: 2048.
	MaxTokens int

	// BaseURL optionally points at a custom API endpoint (openai only).
	BaseURL string

	// Retry tunes the provider retry loop.
	Retry RetryConfig

	// Fetch tunes the page fetcher.
	Fetch FetchConfig

	// Checker guards redirects during the fetch. Required.
	Checker *safety.Checker

	// Logger for fetch/provider diagnostics.
	Logger *logging.Logger
}

// LLMBackend implements Backend: fetch the page, summarize with an LLM.
type LLMBackend struct {
	fetcher *Fetcher
	client  completionClient
	log     *logging.Logger
}

// New creates a Backend for the configured provider.
func New(cfg Config) (*LLMBackend, error) {
	if cfg.Checker == nil {
		return nil, oraclerr.New(oraclerr.ErrCodeStartup, "safety checker is required")
	}
	if cfg.APIKey == "" {
		return nil, oraclerr.Newf(oraclerr.ErrCodeStartup, "api key is required for %s", cfg.Provider)
	}
	if cfg.Model == "" {
		return nil, oraclerr.Newf(oraclerr.ErrCodeStartup, "model is required for %s", cfg.Provider)
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 2048
	}

	log := cfg.Logger
	if log == nil {
		log = logging.New()
	}

	var client completionClient
	var err error
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		client, err = newOpenAIClient(cfg)
	case "anthropic":
		client, err = newAnthropicClient(cfg)
	case "google":
		client, err = newGoogleClient(cfg)
	default:
		return nil, oraclerr.Newf(oraclerr.ErrCodeStartup, "unknown provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	return &LLMBackend{
		fetcher: NewFetcher(cfg.Checker, cfg.Fetch),
		client:  client,
		log:     log.WithComponent("agent"),
	}, nil
}

// Summarize implements Backend.
func (b *LLMBackend) Summarize(ctx context.Context, req Request) (string, error) {
	content, err := b.fetcher.Fetch(ctx, req.URL)
	if err != nil {
		return "", oraclerr.Wrap(oraclerr.ErrCodeFetchFailed, "fetch "+req.URL, err)
	}

	prompt := summaryPrompt(req.URL, LanguageName(req.Language), content)
	summary, err := b.client.Complete(ctx, prompt)
	if err != nil {
		return "", oraclerr.Wrap(oraclerr.ErrCodeBackendFailed, "summarize "+req.URL, err)
	}
	return summary, nil
}

// Close releases the provider client.
func (b *LLMBackend) Close() error {
	return b.client.Close()
}
