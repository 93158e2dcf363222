package extract

import (
	"context"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// htmlExtractor extracts article title and readable text from HTML pages
type htmlExtractor struct{}

var _ Extractor = (*htmlExtractor)(nil)

// NewHTMLExtractor creates the article extractor for HTML content
func NewHTMLExtractor() Extractor {
	return &htmlExtractor{}
}

// Extract parses the HTML file, strips non-content elements, and returns the
// page title plus whitespace-normalized body text.
func (e *htmlExtractor) Extract(_ context.Context, path string) (*Payload, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &Error{Mimetype: "text/html", Path: path, Err: err}
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return nil, &Error{Mimetype: "text/html", Path: path, Err: err}
	}

	// Drop scripting and boilerplate before extracting text.
	doc.Find("script, style, nav, footer").Remove()

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = "No Title"
	}

	return &Payload{
		Category: CategoryArticle,
		Title:    title,
		Text:     normalizeWhitespace(doc.Find("body").Text()),
	}, nil
}

// normalizeWhitespace collapses runs of blank space and drops empty lines
func normalizeWhitespace(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
