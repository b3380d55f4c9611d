// Package imagetag asks an external image classification service for the
// labels of an image.
package imagetag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const maxResponseSize = 1 << 20

// Client calls a tagging endpoint that accepts {"url": ...} and answers
// {"tags": [...]}.
type Client struct {
	endpoint string
	apiKey   string
	client   *http.Client
	logger   *slog.Logger
}

type tagRequest struct {
	URL string `json:"url"`
}

type tagResponse struct {
	Tags []string `json:"tags"`
}

// NewClient creates a client. It returns nil when endpoint is empty, which
// callers treat as tagging disabled.
func NewClient(endpoint, apiKey string, timeout time.Duration) *Client {
	if endpoint == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
		logger:   slog.Default(),
	}
}

// TagsFor returns the lowercased tags of imageURL. Any failure yields nil.
func (c *Client) TagsFor(ctx context.Context, imageURL string) []string {
	if c == nil {
		return nil
	}
	tags, err := c.fetch(ctx, imageURL)
	if err != nil {
		c.logger.Debug("Image tagging failed", "image", imageURL, "error", err)
		return nil
	}
	return tags
}

func (c *Client) fetch(ctx context.Context, imageURL string) ([]string, error) {
	payload, err := json.Marshal(tagRequest{URL: imageURL})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var body tagResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	tags := make([]string, 0, len(body.Tags))
	for _, tag := range body.Tags {
		if tag = strings.ToLower(strings.TrimSpace(tag)); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags, nil
}
