package taskcluster

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// ArtifactStream is an open artifact response body plus the headers needed
// to consume it. The caller must Close it.
type ArtifactStream struct {
	Body            io.ReadCloser
	ContentLength   int64  // Declared length in bytes, -1 if unknown
	ContentEncoding string // Content-Encoding as received, empty if none
	ContentType     string
	// Uncompressed reports that the transport already decoded the body.
	// ContentEncoding is empty and ContentLength is -1 in that case.
	Uncompressed bool
}

// Close closes the underlying response body.
func (s *ArtifactStream) Close() error {
	return s.Body.Close()
}

// ListLatestArtifacts returns the artifacts of the latest run of a task.
// This is a single call; the queue returns the whole latest-run listing.
// taskID is passed through as given; callers holding user input validate
// it with ValidateTaskID first.
func (c *Client) ListLatestArtifacts(ctx context.Context, taskID string) (*ListArtifactsResponse, error) {
	if taskID == "" {
		return nil, fmt.Errorf("task ID cannot be empty")
	}

	var resp ListArtifactsResponse
	if err := c.getJSON(ctx, "queue", "listLatestArtifacts", ListLatestArtifactsURL(c.rootURL, taskID), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LatestArtifactURL returns the public URL of the latest artifact of a task.
func (c *Client) LatestArtifactURL(taskID, name string) string {
	return LatestArtifactURL(c.rootURL, taskID, name)
}

// GetLatestArtifact opens the public latest-artifact URL of a task.
func (c *Client) GetLatestArtifact(ctx context.Context, taskID, name string) (*ArtifactStream, error) {
	return c.OpenArtifact(ctx, c.LatestArtifactURL(taskID, name))
}

// OpenArtifact issues a GET for an artifact location (public or signed) and
// returns the open body. Redirects to the storage backend are followed.
// Non-2xx responses are returned as *APIError with the body closed.
func (c *Client) OpenArtifact(ctx context.Context, location string) (*ArtifactStream, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build getLatestArtifact request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("queue.getLatestArtifact request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		// Signed URLs carry credentials in the query; keep them out of errors.
		return nil, newAPIError("queue", "getLatestArtifact", redactQuery(location), resp)
	}

	return &ArtifactStream{
		Body:            resp.Body,
		ContentLength:   resp.ContentLength,
		ContentEncoding: resp.Header.Get("Content-Encoding"),
		ContentType:     resp.Header.Get("Content-Type"),
		Uncompressed:    resp.Uncompressed,
	}, nil
}
