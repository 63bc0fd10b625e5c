package fuzzsplit

import (
	"context"
	"crypto/tls"
	"net/http"
)

// Client is the net/http Client used to talk to the token endpoint.
type Client struct {
	*http.Client
}

// NewClient returns a Client using Go's default timeouts.
// skipVerify disables TLS certificate verification, which is common against staging targets.
func NewClient(skipVerify bool) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if skipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &Client{Client: &http.Client{Transport: transport}}
}

// Get sends a GET request to url with the given headers set.
func (c *Client) Get(ctx context.Context, url string, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	for name, value := range headers {
		req.Header.Set(name, value)
	}

	return c.Client.Do(req)
}
