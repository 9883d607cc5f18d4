package agent

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestLanguageName(t *testing.T) {
	cases := []struct {
		code string
		want string
	}{
		{"en", "English"},
		{"zh", "Chinese"},
		{"ja", "Japanese"},
		{"ko", "Korean"},
		{"es", "Spanish"},
		{"fr", "French"},
		{"de", "German"},
		{"xx", "English"},
		{"", "English"},
	}

	for _, tc := range cases {
		if got := LanguageName(tc.code); got != tc.want {
			t.Errorf("LanguageName(%q) = %q, want %q", tc.code, got, tc.want)
		}
	}
}

func TestSummaryPrompt(t *testing.T) {
	prompt := summaryPrompt("https://example.com", "Chinese", "<html>page</html>")

	for _, want := range []string{
		"https://example.com",
		"<html>page</html>",
		"comprehensive summary in Chinese",
		"Key Points",
		"1-100 scale",
		"markdown",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestWithRetrySucceedsAfterTransientErrors(t *testing.T) {
	attempts := 0
	retry := RetryConfig{MaxRetries: 3, InitBackoff: time.Millisecond, MaxBackoff: time.Millisecond}

	result, err := withRetry(context.Background(), retry, "test", func() (string, error) {
		attempts++
		if attempts < 3 {
			return "", errors.New("503 service unavailable")
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if result != "ok" || attempts != 3 {
		t.Errorf("result %q after %d attempts", result, attempts)
	}
}

func TestWithRetryNonRetryable(t *testing.T) {
	attempts := 0
	retry := RetryConfig{MaxRetries: 5, InitBackoff: time.Millisecond}

	_, err := withRetry(context.Background(), retry, "test", func() (string, error) {
		attempts++
		return "", errors.New("invalid request")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Errorf("non-retryable error retried %d times", attempts)
	}
}

func TestWithRetryBillingFatal(t *testing.T) {
	attempts := 0
	retry := RetryConfig{MaxRetries: 5, InitBackoff: time.Millisecond}

	_, err := withRetry(context.Background(), retry, "test", func() (string, error) {
		attempts++
		return "", errors.New("429 quota exceeded for billing period")
	})
	if err == nil || !strings.Contains(err.Error(), "billing") {
		t.Fatalf("expected billing error, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("billing error retried %d times", attempts)
	}
}

func TestWithRetryExhausted(t *testing.T) {
	attempts := 0
	retry := RetryConfig{MaxRetries: 2, InitBackoff: time.Millisecond, MaxBackoff: time.Millisecond}

	_, err := withRetry(context.Background(), retry, "test", func() (string, error) {
		attempts++
		return "", errors.New("502 bad gateway")
	})
	if err == nil || !strings.Contains(err.Error(), "after 2 retries") {
		t.Fatalf("expected exhaustion error, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestWithRetryCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	retry := RetryConfig{MaxRetries: 5, InitBackoff: time.Hour}
	_, err := withRetry(ctx, retry, "test", func() (string, error) {
		return "", errors.New("503 service unavailable")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestMockBackend(t *testing.T) {
	mock := NewMockBackend()
	mock.SetResponse("summary")

	got, err := mock.Summarize(context.Background(), Request{URL: "https://example.com", Language: "en"})
	if err != nil || got != "summary" {
		t.Fatalf("got %q, %v", got, err)
	}
	if mock.CallCount() != 1 {
		t.Errorf("expected 1 call, got %d", mock.CallCount())
	}
	if mock.LastRequest().URL != "https://example.com" {
		t.Errorf("unexpected request %+v", mock.LastRequest())
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	if _, err := New(Config{Provider: "openai", Model: "gpt-4o-mini", APIKey: "k"}); err == nil {
		t.Error("expected error without checker")
	}
	if _, err := New(Config{Provider: "nope"}); err == nil {
		t.Error("expected error for unknown provider")
	}
}
