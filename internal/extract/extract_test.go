package extract

import (
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRegistryLookup(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		mimetype string
		wantErr  bool
	}{
		{name: "html", mimetype: "text/html"},
		{name: "html_uppercase", mimetype: "Text/HTML"},
		{name: "xhtml", mimetype: "application/xhtml+xml"},
		{name: "csv", mimetype: "text/csv"},
		{name: "png", mimetype: "image/png"},
		{name: "jpeg", mimetype: "image/jpeg"},
		{name: "rss", mimetype: "application/rss+xml"},
		{name: "plain_text", mimetype: "text/plain"},
		{name: "markdown_falls_through_to_text", mimetype: "text/markdown"},
		{name: "binary_unregistered", mimetype: "application/octet-stream", wantErr: true},
		{name: "pdf_unregistered", mimetype: "application/pdf", wantErr: true},
	}

	registry := NewRegistry()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := registry.Lookup(tt.mimetype)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestRegistryExactBeatsPrefix(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	fromCSV, err := registry.Lookup("text/csv")
	require.NoError(t, err)
	assert.IsType(t, &csvExtractor{}, fromCSV)

	fromPlain, err := registry.Lookup("text/plain")
	require.NoError(t, err)
	assert.IsType(t, &textExtractor{}, fromPlain)
}

func TestHTMLExtractor(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		html      string
		wantTitle string
		wantText  string
	}{
		{
			name:      "title_and_body",
			html:      "<html><head><title>Breaking News</title></head><body><p>Something happened.</p></body></html>",
			wantTitle: "Breaking News",
			wantText:  "Something happened.",
		},
		{
			name:      "missing_title",
			html:      "<html><body><p>No headline here.</p></body></html>",
			wantTitle: "No Title",
			wantText:  "No headline here.",
		},
		{
			name:      "script_and_style_stripped",
			html:      "<html><head><title>T</title><style>p{color:red}</style></head><body><script>alert(1)</script><p>visible</p></body></html>",
			wantTitle: "T",
			wantText:  "visible",
		},
		{
			name:      "nav_and_footer_stripped",
			html:      "<html><head><title>T</title></head><body><nav>menu</nav><p>content</p><footer>legal</footer></body></html>",
			wantTitle: "T",
			wantText:  "content",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := writeFile(t, "page.html", tt.html)
			payload, err := NewHTMLExtractor().Extract(context.Background(), path)
			require.NoError(t, err)
			assert.Equal(t, CategoryArticle, payload.Category)
			assert.Equal(t, tt.wantTitle, payload.Title)
			assert.Equal(t, tt.wantText, payload.Text)
		})
	}
}

func TestHTMLExtractorMissingFile(t *testing.T) {
	t.Parallel()

	_, err := NewHTMLExtractor().Extract(context.Background(), filepath.Join(t.TempDir(), "gone.html"))
	require.Error(t, err)

	var extractErr *Error
	require.ErrorAs(t, err, &extractErr)
	assert.Equal(t, "text/html", extractErr.Mimetype)
}

func TestTextExtractor(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "note.txt", "plain contents\n")
	payload, err := NewTextExtractor().Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, CategoryDocument, payload.Category)
	assert.Equal(t, "plain contents\n", payload.Text)
}

func TestCSVExtractor(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "data.csv", "name,age\nalice,30\nbob,41\n")
	payload, err := NewCSVExtractor().Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, CategorySpreadsheet, payload.Category)
	require.Len(t, payload.Rows, 2)
	assert.Equal(t, map[string]string{"name": "alice", "age": "30"}, payload.Rows[0])
	assert.Equal(t, map[string]string{"name": "bob", "age": "41"}, payload.Rows[1])
}

func TestCSVExtractorRaggedRows(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "data.csv", "a,b,c\n1,2\n")
	payload, err := NewCSVExtractor().Extract(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, payload.Rows, 1)
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, payload.Rows[0])
}

func TestCSVExtractorEmpty(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "data.csv", "")
	payload, err := NewCSVExtractor().Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Empty(t, payload.Rows)
}

func TestImageExtractor(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "pixel.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, 2, 3))))
	require.NoError(t, f.Close())

	payload, err := NewImageExtractor().Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, CategoryImage, payload.Category)
	assert.Equal(t, []string{"object_detection_model_not_loaded"}, payload.DetectedObjects)
	assert.Equal(t, "png", payload.Metadata["format"])
	assert.Equal(t, "2", payload.Metadata["width"])
	assert.Equal(t, "3", payload.Metadata["height"])
}

func TestImageExtractorNotAnImage(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "fake.png", "definitely not a png")
	_, err := NewImageExtractor().Extract(context.Background(), path)
	require.Error(t, err)
}
