// Package sink delivers processed payloads to the downstream storage API.
//
// Each content category has its own endpoint. Every delivery carries the
// shared API key and uses the artifact id as idempotency key, so duplicate
// delivery of the same artifact is deduplicated by the sink, not here.
package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/DanielBerns/news-weaver/internal/extract"
	"github.com/DanielBerns/news-weaver/internal/ledger"
)

// RejectedError is returned when the sink refuses a payload
type RejectedError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("sink rejected %s: HTTP %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// Sink accepts processed payloads
type Sink interface {
	// Deliver sends the payload for one artifact to the category-appropriate
	// endpoint. Duplicate deliveries of the same artifact succeed silently.
	Deliver(ctx context.Context, artifact *ledger.Artifact, sourceURL string, payload *extract.Payload) error
}

// Client is an HTTP implementation of Sink
type Client struct {
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	maxAttempts int
}

var _ Sink = (*Client)(nil)

// NewClient creates a sink client. maxAttempts bounds delivery retries for
// transient failures; rejections other than duplicates are not retried.
func NewClient(baseURL, apiKey string, timeout time.Duration, maxAttempts int) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, fmt.Errorf("invalid sink base URL %q", baseURL)
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		httpClient:  &http.Client{Timeout: timeout},
		maxAttempts: maxAttempts,
	}, nil
}

// endpointFor maps a content category to its sink endpoint
func endpointFor(category extract.Category) (string, error) {
	switch category {
	case extract.CategoryArticle:
		return "articles", nil
	case extract.CategoryDocument:
		return "documents", nil
	case extract.CategorySpreadsheet:
		return "spreadsheets", nil
	case extract.CategoryImage:
		return "images", nil
	default:
		return "", fmt.Errorf("unknown content category %q", category)
	}
}

// Deliver sends one payload, retrying transient failures with exponential
// backoff. A 409 from the sink means the artifact was already accepted by an
// earlier delivery and is treated as success.
func (c *Client) Deliver(ctx context.Context, artifact *ledger.Artifact, sourceURL string, payload *extract.Payload) error {
	endpoint, err := endpointFor(payload.Category)
	if err != nil {
		return err
	}

	body, err := json.Marshal(c.buildBody(artifact, sourceURL, payload))
	if err != nil {
		return fmt.Errorf("failed to encode sink payload: %w", err)
	}

	operation := func() (struct{}, error) {
		return struct{}{}, c.post(ctx, endpoint, body)
	}

	_, err = backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(uint(c.maxAttempts)),
	)
	return err
}

// buildBody assembles the category-specific request body
func (c *Client) buildBody(artifact *ledger.Artifact, sourceURL string, payload *extract.Payload) map[string]any {
	body := map[string]any{
		"source_file_id": artifact.ID.String(),
		"url":            sourceURL,
		"mimetype":       artifact.Mimetype,
	}

	switch payload.Category {
	case extract.CategoryArticle:
		body["title"] = payload.Title
		body["content"] = payload.Text
		body["language"] = "en"
	case extract.CategoryDocument:
		body["filename"] = artifact.Filename
		body["content"] = payload.Text
	case extract.CategorySpreadsheet:
		body["filename"] = artifact.Filename
		body["data_json"] = payload.Rows
	case extract.CategoryImage:
		body["extracted_text"] = payload.Text
		body["detected_objects"] = payload.DetectedObjects
		body["metadata"] = payload.Metadata
	}

	return body
}

func (c *Client) post(ctx context.Context, endpoint string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/"+endpoint, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Network errors are retryable.
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		return nil
	case resp.StatusCode == http.StatusConflict:
		// The sink already holds this artifact: idempotent success.
		return nil
	case resp.StatusCode >= 500:
		// Server-side trouble is worth retrying.
		return &RejectedError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: readBody(resp.Body)}
	default:
		return backoff.Permanent(&RejectedError{
			Endpoint: endpoint, StatusCode: resp.StatusCode, Body: readBody(resp.Body),
		})
	}
}

func readBody(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 1024))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
