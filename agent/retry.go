package agent

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// RetryConfig holds retry settings for provider calls.
type RetryConfig struct {
	// MaxRetries is the max retry attempts. Default: 5.
	MaxRetries int

	// InitBackoff is the initial backoff. Default: 1s.
	InitBackoff time.Duration

	// MaxBackoff caps the backoff. Default: 60s.
	MaxBackoff time.Duration
}

const (
	defaultMaxRetries  = 5
	defaultInitBackoff = 1 * time.Second
	defaultMaxBackoff  = 60 * time.Second
	backoffFactor      = 2.0
)

// withDefaults fills in unset retry settings.
func (r RetryConfig) withDefaults() RetryConfig {
	if r.MaxRetries <= 0 {
		r.MaxRetries = defaultMaxRetries
	}
	if r.InitBackoff <= 0 {
		r.InitBackoff = defaultInitBackoff
	}
	if r.MaxBackoff <= 0 {
		r.MaxBackoff = defaultMaxBackoff
	}
	return r
}

// withRetry runs a provider call with exponential backoff on retryable
// errors. Billing errors abort immediately; they never resolve on retry.
func withRetry(ctx context.Context, retry RetryConfig, provider string, call func() (string, error)) (string, error) {
	retry = retry.withDefaults()
	backoff := retry.InitBackoff

	var result string
	var err error
	for attempt := 0; attempt <= retry.MaxRetries; attempt++ {
		result, err = call()
		if err == nil {
			return result, nil
		}

		if isBillingError(err) {
			return "", fmt.Errorf("billing/payment error (fatal): %w", err)
		}
		if !isRetryableError(err) {
			return "", fmt.Errorf("%s request failed: %w", provider, err)
		}
		if attempt == retry.MaxRetries {
			return "", fmt.Errorf("%s request failed after %d retries: %w", provider, retry.MaxRetries, err)
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}

		backoff = time.Duration(float64(backoff) * backoffFactor)
		if backoff > retry.MaxBackoff {
			backoff = retry.MaxBackoff
		}
	}
	return "", err
}

// isRateLimitError checks if the error is a rate limit error.
func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests") ||
		strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "overloaded") ||
		strings.Contains(errStr, "capacity")
}

// isServerError checks if the error is a transient server error (5xx).
func isServerError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504") ||
		strings.Contains(errStr, "internal server error") ||
		strings.Contains(errStr, "bad gateway") ||
		strings.Contains(errStr, "service unavailable") ||
		strings.Contains(errStr, "gateway timeout") ||
		strings.Contains(errStr, "temporarily unavailable")
}

// isRetryableError checks if the error is retryable (rate limit or server error).
func isRetryableError(err error) bool {
	return isRateLimitError(err) || isServerError(err)
}

// isBillingError checks if the error is a billing/payment/quota error (fatal, no retry).
func isBillingError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "billing") ||
		strings.Contains(errStr, "payment") ||
		strings.Contains(errStr, "credits") ||
		strings.Contains(errStr, "quota exceeded") ||
		strings.Contains(errStr, "insufficient") ||
		strings.Contains(errStr, "402") ||
		strings.Contains(errStr, "subscription") ||
		strings.Contains(errStr, "expired")
}
