package fetch

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/DanielBerns/news-weaver/internal/registry"
)

const (
	defaultUserAgent = "news-weaver/1.0"
	fallbackFilename = "index.html"
	fallbackMimetype = "application/octet-stream"

	// maxBodySize caps how much of a response is read, so one misbehaving
	// source cannot exhaust worker memory.
	maxBodySize = 64 << 20
)

// httpFetcher retrieves content over HTTP(S) for WEB and RSS sources
type httpFetcher struct {
	client    *http.Client
	userAgent string
}

var _ Fetcher = (*httpFetcher)(nil)

// NewHTTPFetcher creates a fetcher for WEB and RSS sources. A zero timeout
// uses the default. Redirects are followed.
func NewHTTPFetcher(timeout time.Duration, userAgent string) Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &httpFetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// Fetch retrieves the source URI and returns a single result
func (f *httpFetcher) Fetch(ctx context.Context, src *registry.Source) ([]Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URI, nil)
	if err != nil {
		return nil, &Error{URI: src.URI, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &Error{URI: src.URI, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, &Error{URI: src.URI, StatusCode: resp.StatusCode,
			Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	content, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &Error{URI: src.URI, Err: fmt.Errorf("failed to read body: %w", err)}
	}

	return []Result{{
		Content:  content,
		Filename: filenameFromResponse(resp, src.URI),
		Mimetype: mimetypeFromResponse(resp),
	}}, nil
}

// filenameFromResponse derives a filename from the Content-Disposition
// header, then the URL path, then a fallback.
func filenameFromResponse(resp *http.Response, rawURL string) string {
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			if name := params["filename"]; name != "" {
				return path.Base(name)
			}
		}
	}

	if parsed, err := url.Parse(rawURL); err == nil {
		if name := path.Base(parsed.Path); name != "" && name != "/" && name != "." {
			return name
		}
	}

	return fallbackFilename
}

func mimetypeFromResponse(resp *http.Response) string {
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		return fallbackMimetype
	}
	// Strip parameters such as "; charset=utf-8".
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		return mediaType
	}
	return strings.TrimSpace(strings.Split(contentType, ";")[0])
}
