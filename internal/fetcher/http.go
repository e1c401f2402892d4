// Package fetcher downloads raw document bytes from remote locators.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"docqa/internal/domain"
)

// HTTP fetches documents over HTTP(S) with a bounded per-request timeout.
type HTTP struct {
	client *http.Client
}

// NewHTTP creates a fetcher. A zero timeout defaults to 10s.
func NewHTTP(timeout time.Duration) *HTTP {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &HTTP{client: &http.Client{Timeout: timeout}}
}

// Fetch returns the body bytes of url. Transport failures and non-2xx
// statuses wrap domain.ErrFetch.
func (f *HTTP) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrFetch, url, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrFetch, url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s: %s", domain.ErrFetch, url, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrFetch, url, err)
	}
	return data, nil
}
