package extract

import (
	"context"
	"os"
	"unicode/utf8"
)

// textExtractor handles plain-text and feed documents verbatim
type textExtractor struct{}

var _ Extractor = (*textExtractor)(nil)

// NewTextExtractor creates the document extractor for textual content
func NewTextExtractor() Extractor {
	return &textExtractor{}
}

// Extract reads the file as UTF-8 text
func (e *textExtractor) Extract(_ context.Context, path string) (*Payload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Mimetype: "text/plain", Path: path, Err: err}
	}

	text := string(data)
	if !utf8.ValidString(text) {
		text = string([]rune(text)) // replace invalid sequences
	}

	return &Payload{
		Category: CategoryDocument,
		Text:     text,
	}, nil
}
