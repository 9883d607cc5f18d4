package agent

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vinayprograms/oraclekit/safety"
)

// FetchConfig tunes the page fetcher.
type FetchConfig struct {
	// Timeout bounds the whole fetch. Default: 30 seconds.
	Timeout time.Duration

	// MaxBodyBytes caps how much of the page is read. Default: 512 KiB.
	MaxBodyBytes int64

	// UserAgent is sent with each request.
	UserAgent string
}

const (
	defaultFetchTimeout = 30 * time.Second
	defaultMaxBody      = 512 << 10
	defaultUserAgent    = "oraclekit/1.0"
	maxRedirects        = 10
)

// Fetcher retrieves page content with the SSRF policy enforced on the entry
// URL and on every redirect hop. The entry URL has normally been validated
// already by the task handler; re-checking here keeps the fetcher safe to
// call on its own, and the redirect check closes the hop the handler cannot
// see.
type Fetcher struct {
	client  *http.Client
	checker *safety.Checker
	maxBody int64
	agent   string
}

// NewFetcher creates a fetcher bound to a safety checker.
func NewFetcher(checker *safety.Checker, cfg FetchConfig) *Fetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBody
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	client := &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			// Each hop is attacker influenced; validate it like the entry URL.
			v := checker.Check(req.Context(), req.URL.String())
			if !v.Safe {
				return fmt.Errorf("redirect blocked: %s", v.Reason)
			}
			return nil
		},
	}

	return &Fetcher{
		client:  client,
		checker: checker,
		maxBody: maxBody,
		agent:   userAgent,
	}
}

// Fetch retrieves up to MaxBodyBytes of the page body.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	if v := f.checker.Check(ctx, url); !v.Safe {
		return "", fmt.Errorf("fetch blocked: %s", v.Reason)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", f.agent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody))
	if err != nil {
		return "", err
	}
	return string(body), nil
}
