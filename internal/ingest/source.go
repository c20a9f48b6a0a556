// Package ingest pulls document metadata and binary content from the
// parliamentary OData gateway into the local corpus.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/ragmart/ragmart/internal/log"
)

const (
	// maxResourceRetries bounds how often a throttled resource download
	// is retried before the document is given up on.
	maxResourceRetries = 3

	// defaultRetryDelay is used when a 429 response carries no
	// Retry-After header.
	defaultRetryDelay = 5 * time.Second

	// maxResourceSize caps a single resource download at 64 MiB.
	maxResourceSize = 64 << 20
)

// DocumentMeta is one entry of the gateway's Document entity set.
// Field names follow the upstream Dutch schema.
type DocumentMeta struct {
	ID          string `json:"Id"`
	Title       string `json:"Titel"`
	Subject     string `json:"Onderwerp"`
	ContentType string `json:"ContentType"`
}

type documentPage struct {
	Value []DocumentMeta `json:"value"`
}

// Client talks to an OData v4 gateway exposing a Document entity set.
// All requests pass through a shared rate limiter.
type Client struct {
	baseURL    string
	pageSize   int
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     log.Logger
}

// ClientConfig configures a gateway client.
type ClientConfig struct {
	// BaseURL is the OData service root, without a trailing slash.
	BaseURL string
	// PageSize is the $top value for metadata pages.
	PageSize int
	// RequestsPerSecond throttles outgoing requests. Zero means a
	// conservative one request per second.
	RequestsPerSecond float64
	// Timeout bounds a single HTTP request.
	Timeout time.Duration
}

// NewClient creates a gateway client.
func NewClient(cfg ClientConfig, logger log.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("source base URL is required")
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 250
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = log.NewNop()
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		pageSize:   cfg.PageSize,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		logger:     logger,
	}, nil
}

// PageSize reports the configured $top value.
func (c *Client) PageSize() int { return c.pageSize }

// FetchPage retrieves one page of document metadata starting at the
// given skip offset. An empty slice means the entity set is exhausted.
func (c *Client) FetchPage(ctx context.Context, skip int) ([]DocumentMeta, error) {
	url := fmt.Sprintf("%s/Document?$top=%d&$skip=%d", c.baseURL, c.pageSize, skip)

	body, err := c.get(ctx, url, "application/json")
	if err != nil {
		return nil, fmt.Errorf("fetch metadata page at skip %d: %w", skip, err)
	}

	var page documentPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("decode metadata page at skip %d: %w", skip, err)
	}

	return page.Value, nil
}

// Resource downloads the binary content of a single document.
// Throttling responses are retried with the server's suggested delay.
func (c *Client) Resource(ctx context.Context, id string) ([]byte, error) {
	url := c.ResourceURL(id)

	var lastErr error
	for attempt := 0; attempt <= maxResourceRetries; attempt++ {
		body, delay, err := c.getWithRetryHint(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if !errors.Is(err, errThrottled) {
			return nil, fmt.Errorf("download resource %s: %w", id, err)
		}

		c.logger.Warn("resource download throttled",
			"document_id", id,
			"retry_after", delay,
			"attempt", attempt+1)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, fmt.Errorf("download resource %s: retries exhausted: %w", id, lastErr)
}

// ResourceURL returns the public address of a document's binary
// content. It doubles as the citation link for query responses.
func (c *Client) ResourceURL(id string) string {
	return fmt.Sprintf("%s/Document(%s)/resource", c.baseURL, id)
}

func (c *Client) get(ctx context.Context, url, accept string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResourceSize))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	return body, nil
}

// getWithRetryHint performs a GET and, when the gateway throttles the
// request, reports how long to wait before trying again.
func (c *Client) getWithRetryHint(ctx context.Context, url string) ([]byte, time.Duration, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, retryAfter(resp), errThrottled
	}
	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResourceSize))
	if err != nil {
		return nil, 0, fmt.Errorf("read response body: %w", err)
	}

	return body, 0, nil
}

// errThrottled marks a 429 response, the one failure worth retrying.
var errThrottled = errors.New("gateway throttled the request")

func retryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultRetryDelay
}
