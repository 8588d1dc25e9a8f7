package functions

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/dmyersturnbull/tyranno-sandbox/pkg/errors"
	"github.com/dmyersturnbull/tyranno-sandbox/pkg/logging"
)

// Client fetches JSON documents for the network-backed functions.
// Successful responses are cached for the lifetime of the Client, so one run
// never downloads the same document twice.
type Client struct {
	http      *http.Client
	userAgent string

	mu    sync.Mutex
	cache map[string][]byte
}

// NewClient creates a client with a request timeout and User-Agent header.
func NewClient(timeout time.Duration, userAgent string) *Client {
	return &Client{
		http:      &http.Client{Timeout: timeout},
		userAgent: userAgent,
		cache:     map[string][]byte{},
	}
}

// GetJSON returns the body of a GET request. Any status outside 2xx is an HTTP error.
func (c *Client) GetJSON(ctx context.Context, url string) ([]byte, error) {
	logger := logging.GetLogger("functions.http")

	c.mu.Lock()
	body, ok := c.cache[url]
	c.mu.Unlock()
	if ok {
		logger.Trace().Str("url", url).Msg("Using cached response")
		return body, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrHTTP, "failed to create request").WithDetail("url", url)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	logger.Debug().Str("url", url).Msg("Fetching")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrHTTP, "failed to execute request").WithDetail("url", url)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrHTTP, "failed to read response body").WithDetail("url", url)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.New(errors.ErrHTTP, fmt.Sprintf("GET %s returned %s", url, resp.Status)).
			WithDetail("url", url).
			WithDetail("status", resp.StatusCode)
	}
	logger.Debug().Str("url", url).Int("status", resp.StatusCode).Int("bytes", len(body)).Msg("Fetched")

	c.mu.Lock()
	c.cache[url] = body
	c.mu.Unlock()
	return body, nil
}
