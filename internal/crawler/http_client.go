package crawler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/http/httptrace"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
)

// DefaultMaxBodySize caps the bytes read from a single response.
const DefaultMaxBodySize = 5 << 20

// HTTPClient downloads pages and robots.txt files. Failures are reported
// as ("", false) and logged at debug level.
type HTTPClient struct {
	client        *http.Client
	userAgent     string
	username      string // Basic auth username
	password      string // Basic auth password
	customHeaders map[string]string
	limiter       *RateLimiter
	maxBodySize   int64
	logger        *slog.Logger
}

// NewHTTPClient creates a new HTTP client
func NewHTTPClient(userAgent string, timeout time.Duration) *HTTPClient {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}

	return &HTTPClient{
		client:        client,
		userAgent:     userAgent,
		customHeaders: make(map[string]string),
		maxBodySize:   DefaultMaxBodySize,
		logger:        slog.Default(),
	}
}

// SetBasicAuth configures basic authentication for HTTP requests
func (h *HTTPClient) SetBasicAuth(username, password string) {
	h.username = username
	h.password = password
}

// SetCustomHeaders sets custom HTTP headers
func (h *HTTPClient) SetCustomHeaders(headers map[string]string) {
	for k, v := range headers {
		h.customHeaders[k] = v
	}
}

// SetRateLimiter makes page fetches wait for the per-domain limiter.
func (h *HTTPClient) SetRateLimiter(limiter *RateLimiter) {
	h.limiter = limiter
}

// SetMaxBodySize caps the bytes read per response.
func (h *HTTPClient) SetMaxBodySize(n int64) {
	if n > 0 {
		h.maxBodySize = n
	}
}

// SetLogger sets the logger.
func (h *HTTPClient) SetLogger(l *slog.Logger) {
	h.logger = l
}

// FetchPage downloads link and returns its body decoded to UTF-8. Only 2xx
// responses with an HTML content type are accepted.
func (h *HTTPClient) FetchPage(ctx context.Context, link string) (string, bool) {
	if h.limiter != nil {
		if err := h.limiter.Wait(ctx, link); err != nil {
			h.logger.Debug("Rate limiter wait aborted", "url", link, "error", err)
			return "", false
		}
	}

	body, err := h.get(ctx, link, "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5", true)
	if err != nil {
		h.logger.Debug("Page fetch failed", "url", link, "error", err)
		return "", false
	}
	return body, true
}

// FetchRobotsText downloads http://<domain>/robots.txt.
func (h *HTTPClient) FetchRobotsText(ctx context.Context, domain string) (string, bool) {
	link := "http://" + domain + "/robots.txt"
	body, err := h.get(ctx, link, "text/plain,*/*;q=0.5", false)
	if err != nil {
		h.logger.Debug("Robots fetch failed", "domain", domain, "error", err)
		return "", false
	}
	return body, true
}

func (h *HTTPClient) get(ctx context.Context, link, accept string, requireHTML bool) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", h.userAgent)
	req.Header.Set("Accept", accept)
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	if h.username != "" && h.password != "" {
		req.SetBasicAuth(h.username, h.password)
	}
	for name, value := range h.customHeaders {
		req.Header.Set(name, value)
	}

	var firstByte time.Time
	trace := &httptrace.ClientTrace{
		GotFirstResponseByte: func() { firstByte = time.Now() },
	}
	req = req.WithContext(httptrace.WithClientTrace(req.Context(), trace))

	start := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if requireHTML && !isHTML(contentType) {
		return "", fmt.Errorf("unsupported content type %q", contentType)
	}

	reader, err := charset.NewReader(io.LimitReader(resp.Body, h.maxBodySize), contentType)
	if err != nil {
		return "", fmt.Errorf("failed to decode body: %w", err)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	var ttfb time.Duration
	if !firstByte.IsZero() {
		ttfb = firstByte.Sub(start)
	}
	h.logger.Debug("Fetched", "url", link, "status", resp.StatusCode, "bytes", len(body),
		"ttfb", ttfb, "duration", time.Since(start))

	return string(body), nil
}

// isHTML accepts HTML media types. A missing content type is accepted.
func isHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

// ParseHeaders converts "Key: Value" lines into a header map. Malformed
// lines are skipped with a warning.
func ParseHeaders(lines []string) map[string]string {
	headers := make(map[string]string)
	for _, line := range lines {
		colonIndex := strings.Index(line, ":")
		if colonIndex <= 0 {
			slog.Warn("Skipping invalid header format", "header", line)
			continue
		}

		key := strings.TrimSpace(line[:colonIndex])
		value := strings.TrimSpace(line[colonIndex+1:])
		if key == "" || value == "" {
			slog.Warn("Skipping header with empty key or value", "header", line)
			continue
		}
		headers[key] = value
	}
	return headers
}

// Close closes idle connections.
func (h *HTTPClient) Close() {
	h.client.CloseIdleConnections()
}
