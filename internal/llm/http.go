package llm

import (
	"fmt"
	"io"
	"net/http"
	"time"
)

// newHTTPClient returns an HTTP client that waits at most timeout for response
// headers. Bodies are not bounded so long streams are not cut off; whole-response
// calls add their own context deadline.
func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			MaxIdleConns:          20,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			ResponseHeaderTimeout: timeout,
		},
	}
}

// statusError converts a non-200 response into a typed error: 429 becomes a
// *RateLimitError, anything else is wrapped with kind.
func statusError(resp *http.Response, kind error) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	err := fmt.Errorf("bad status %d: %s", resp.StatusCode, string(raw))
	if resp.StatusCode == http.StatusTooManyRequests {
		return &RateLimitError{
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
			Err:        err,
		}
	}
	return fmt.Errorf("%w: %w", kind, err)
}
