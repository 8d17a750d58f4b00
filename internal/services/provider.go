package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	msgNoResponse = "(no response)"

	// providerAttempts counts the first call plus retries on transient statuses.
	providerAttempts = 3
)

// retryBackoff is the wait before the nth retry, multiplied by n.
var retryBackoff = 500 * time.Millisecond

// ErrTruncatedReply means the provider stopped at its token limit, leaving
// the narrator JSON unterminated.
var ErrTruncatedReply = errors.New("narrator reply was truncated")

// ProviderError is a non-200 reply from an LLM provider.
type ProviderError struct {
	Provider string
	Status   int
	Body     string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s request failed with status %d: %s", e.Provider, e.Status, e.Body)
}

// Transient reports whether the same request may succeed later.
func (e *ProviderError) Transient() bool {
	switch {
	case e.Status == http.StatusTooManyRequests:
		return true
	case e.Status >= 500:
		return true // includes Anthropic's 529 overloaded
	}
	return false
}

// postJSON posts payload to url and decodes a 200 reply into out.
// Transient provider errors are retried until ctx is done.
func postJSON(ctx context.Context, client *http.Client, provider, url string, header http.Header, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := range providerAttempts {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w (last error: %v)", ctx.Err(), lastErr)
			case <-time.After(time.Duration(attempt) * retryBackoff):
			}
		}

		lastErr = postOnce(ctx, client, provider, url, header, body, out)
		var perr *ProviderError
		if lastErr == nil || !errors.As(lastErr, &perr) || !perr.Transient() {
			return lastErr
		}
	}
	return lastErr
}

func postOnce(ctx context.Context, client *http.Client, provider, url string, header http.Header, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach %s: %w", provider, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return &ProviderError{Provider: provider, Status: resp.StatusCode, Body: string(data)}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
