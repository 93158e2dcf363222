// Package extract converts raw artifacts into structured payloads.
//
// Dispatch is keyed by mimetype: each extractor declares which mimetypes it
// answers, and new content types register a new implementation of the same
// contract. The processing worker is agnostic to which concrete extractor
// answers a given mimetype.
package extract

import (
	"context"
	"fmt"
	"strings"
)

// Category is the content category a payload belongs to, which determines
// the sink endpoint that receives it.
type Category string

const (
	// CategoryArticle is extracted web/feed content
	CategoryArticle Category = "article"

	// CategoryDocument is extracted document text
	CategoryDocument Category = "document"

	// CategorySpreadsheet is tabular data
	CategorySpreadsheet Category = "spreadsheet"

	// CategoryImage is image-derived content
	CategoryImage Category = "image"
)

// Payload is the structured result of extracting one artifact
type Payload struct {
	// Category selects the sink endpoint
	Category Category

	// Title is set for articles
	Title string

	// Text is the extracted textual content
	Text string

	// Rows holds tabular data for spreadsheets, one map per data row keyed
	// by header
	Rows []map[string]string

	// DetectedObjects lists object labels for images
	DetectedObjects []string

	// Metadata holds technical metadata such as image dimensions
	Metadata map[string]string
}

// Error is an extraction failure for one artifact
type Error struct {
	Mimetype string
	Path     string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("extract %s (%s): %v", e.Path, e.Mimetype, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Extractor converts one raw file into a structured payload
type Extractor interface {
	// Extract reads the file at path and produces a payload
	Extract(ctx context.Context, path string) (*Payload, error)
}

// Registry maps mimetypes to extractors
type Registry struct {
	exact    map[string]Extractor
	prefixes []prefixRule
}

type prefixRule struct {
	prefix    string
	extractor Extractor
}

// NewRegistry creates a registry with the default extractors registered:
// HTML articles, plain-text documents, CSV spreadsheets, and images.
func NewRegistry() *Registry {
	r := &Registry{exact: make(map[string]Extractor)}

	r.Register("text/html", NewHTMLExtractor())
	r.Register("application/xhtml+xml", NewHTMLExtractor())
	r.Register("text/csv", NewCSVExtractor())
	r.RegisterPrefix("image/", NewImageExtractor())
	// Feeds and any other textual content fall through to the plain-text
	// document extractor.
	r.Register("application/rss+xml", NewTextExtractor())
	r.Register("application/atom+xml", NewTextExtractor())
	r.Register("application/xml", NewTextExtractor())
	r.RegisterPrefix("text/", NewTextExtractor())

	return r
}

// Register binds an extractor to an exact mimetype
func (r *Registry) Register(mimetype string, e Extractor) {
	r.exact[strings.ToLower(mimetype)] = e
}

// RegisterPrefix binds an extractor to all mimetypes sharing a prefix.
// Exact registrations take precedence; prefix rules apply in registration order.
func (r *Registry) RegisterPrefix(prefix string, e Extractor) {
	r.prefixes = append(r.prefixes, prefixRule{prefix: strings.ToLower(prefix), extractor: e})
}

// Lookup returns the extractor answering the given mimetype
func (r *Registry) Lookup(mimetype string) (Extractor, error) {
	mt := strings.ToLower(strings.TrimSpace(mimetype))

	if e, ok := r.exact[mt]; ok {
		return e, nil
	}
	for _, rule := range r.prefixes {
		if strings.HasPrefix(mt, rule.prefix) {
			return rule.extractor, nil
		}
	}
	return nil, fmt.Errorf("no extractor registered for mimetype %q", mimetype)
}
