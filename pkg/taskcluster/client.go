package taskcluster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultRootURL is the deployment used when no root URL is configured.
const DefaultRootURL = "https://firefox-ci-tc.services.mozilla.com"

// userAgent is sent with every request.
const userAgent = "tcutil"

// Client provides read-only access to the index and queue services of
// one deployment. It is safe for use from multiple goroutines.
type Client struct {
	rootURL    string
	httpClient *http.Client
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for every request.
// The client's transport decides whether gzip responses are decoded
// transparently; see ArtifactStream.Uncompressed. A nil client is ignored.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithTimeout sets an overall timeout on every request, including the
// time spent reading an artifact body. Zero means no timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a client for the deployment at rootURL.
//
// The default transport has transparent compression disabled so that
// Content-Encoding reaches the caller untouched and decoding stays a
// caller decision.
//
// Returns an error if rootURL is empty or not an absolute http(s) URL.
func NewClient(rootURL string, opts ...Option) (*Client, error) {
	if rootURL == "" {
		return nil, fmt.Errorf("root URL cannot be empty")
	}

	parsed, err := url.Parse(rootURL)
	if err != nil {
		return nil, fmt.Errorf("invalid root URL %q: %w", rootURL, err)
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, fmt.Errorf("invalid root URL %q: must be an absolute http(s) URL", rootURL)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DisableCompression = true

	c := &Client{
		rootURL:    trimRoot(rootURL),
		httpClient: &http.Client{Transport: transport},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// RootURL returns the deployment root URL without a trailing slash.
func (c *Client) RootURL() string {
	return c.rootURL
}

// getJSON issues a GET request and decodes a JSON response body into out.
// Non-2xx responses are returned as *APIError.
func (c *Client) getJSON(ctx context.Context, service, operation, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", operation, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s.%s request failed: %w", service, operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(service, operation, rawURL, resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s.%s response: %w", service, operation, err)
	}
	return nil
}

// APIError is returned when a service answers with a non-2xx status.
type APIError struct {
	Service    string // "index" or "queue"
	Operation  string // e.g. "findTask"
	URL        string // Request URL, never signed
	StatusCode int
	Code       string // Service error code, e.g. "ResourceNotFound"
	Message    string
}

func (e *APIError) Error() string {
	detail := e.Message
	if detail == "" {
		detail = http.StatusText(e.StatusCode)
	}
	if e.Code != "" {
		return fmt.Sprintf("%s.%s failed with status %d (%s): %s", e.Service, e.Operation, e.StatusCode, e.Code, detail)
	}
	return fmt.Sprintf("%s.%s failed with status %d: %s", e.Service, e.Operation, e.StatusCode, detail)
}

// newAPIError builds an APIError from a failed response, reading at most
// a small prefix of the body for the error message.
func newAPIError(service, operation, rawURL string, resp *http.Response) *APIError {
	apiErr := &APIError{
		Service:    service,
		Operation:  operation,
		URL:        rawURL,
		StatusCode: resp.StatusCode,
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	var parsed errorResponse
	if err := json.Unmarshal(body, &parsed); err == nil {
		apiErr.Code = parsed.Code
		apiErr.Message = parsed.Message
	} else if len(body) > 0 && len(body) <= 512 {
		apiErr.Message = string(body)
	}
	return apiErr
}

// IsNotFound returns true if err is an APIError with status 404.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// IsAuthError returns true if err is an APIError with status 401 or 403.
func IsAuthError(err error) bool {
	code := StatusCode(err)
	return code == http.StatusUnauthorized || code == http.StatusForbidden
}

// StatusCode returns the HTTP status carried by an APIError in err's
// chain, or 0 if there is none.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
