package httptransport

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolagent/mcp/transport"
)

// DefaultClientTimeout is the HTTP client timeout
const DefaultClientTimeout = 10 * time.Second

// Doer is an interface for HTTP client
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client posts requests to the tool server URL
type Client struct {
	url  string
	doer Doer
}

var _ transport.RoundTripper = (*Client)(nil)

// ClientOption configures the Client
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client
func WithHTTPClient(doer Doer) ClientOption {
	return func(c *Client) {
		c.doer = doer
	}
}

// NewClient returns a round-tripper for the server URL
func NewClient(url string, opts ...ClientOption) *Client {
	c := &Client{
		url: url,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.doer == nil {
		c.doer = &http.Client{Timeout: DefaultClientTimeout}
	}
	return c
}

// RoundTrip posts the body and returns the response body.
// A non-2xx status is returned as an error.
func (c *Client) RoundTrip(ctx context.Context, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.doer.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to call %s", c.url)
	}
	defer resp.Body.Close()

	resBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.Newf("unexpected status %d from %s: %s", resp.StatusCode, c.url, bytes.TrimSpace(resBody))
	}
	return resBody, nil
}
