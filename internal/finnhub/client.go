// Package finnhub is the client for the Finnhub REST API. All upstream
// quote traffic goes through it; rate limiting and caching live above, in
// the quote orchestrator.
package finnhub

import (
	"errors"
	"net/http"
	"net/url"
)

const baseURL = "https://api.finnhub.io"

// ErrRateLimited is returned when Finnhub answers HTTP 429. The caller
// must not retry the attempt.
var ErrRateLimited = errors.New("rate limited")

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=finnhub_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a client for the Finnhub API.
type Client struct {
	// baseURL is the base URL for the API.
	baseURL string
	// httpClient performs the requests.
	httpClient HTTPClient
	// header contains additional headers to be sent with each request.
	header http.Header
	// query contains additional query parameters to be sent with each request.
	query url.Values
}

// Option is a configuration option for the Finnhub client.
type Option func(*Client)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(httpClient HTTPClient) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithHeader sets additional headers to be sent with each request.
func WithHeader(header http.Header) Option {
	return func(c *Client) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// New creates a new Finnhub API client. The key is sent as the token query
// parameter on every request, per the Finnhub auth scheme.
func New(key string, options ...Option) (*Client, error) {
	var client = &Client{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
		header:     http.Header{},
		query:      url.Values{},
	}
	if key != "" {
		client.query.Add("token", key)
	}
	for _, option := range options {
		option(client)
	}
	return client, nil
}

// Name identifies this upstream in results and logs.
func (c *Client) Name() string { return "finnhub" }
