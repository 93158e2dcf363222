// Package fetch retrieves raw source content and classifies fetch failures.
package fetch

import (
	"context"
	"fmt"

	"github.com/DanielBerns/news-weaver/internal/registry"
)

// Result is one raw item retrieved from a source. HTTP sources yield exactly
// one result; local directory sources may yield several, one per file.
type Result struct {
	// Content is the raw payload
	Content []byte

	// Filename is the original name derived from the response or file entry
	Filename string

	// Mimetype is the detected content type
	Mimetype string

	// Note carries optional provenance detail recorded on the ledger row,
	// such as the size/mtime signature of an imported local file
	Note string
}

// Fetcher retrieves content for one source type
type Fetcher interface {
	// Fetch retrieves the current content of the source. A nil error with an
	// empty slice means the source had nothing new to offer.
	Fetch(ctx context.Context, src *registry.Source) ([]Result, error)
}

// Error is a fetch failure carrying enough detail to classify it
type Error struct {
	// URI is the source location that failed
	URI string

	// StatusCode is the HTTP status, or zero for non-HTTP failures
	StatusCode int

	// Err is the underlying cause
	Err error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d", e.URI, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URI, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
