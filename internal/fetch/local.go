package fetch

import (
	"context"
	"fmt"
	"mime"
	"net/url"
	"os"
	"path/filepath"

	"github.com/DanielBerns/news-weaver/internal/registry"
)

// localFetcher imports files from a local directory referenced by a file:// URI
type localFetcher struct{}

var _ Fetcher = (*localFetcher)(nil)

// NewLocalFetcher creates a fetcher for LOCAL sources
func NewLocalFetcher() Fetcher {
	return &localFetcher{}
}

// Fetch reads every regular file in the source directory. Deciding which of
// them are already in the pipeline is the ingestion worker's job.
func (f *localFetcher) Fetch(ctx context.Context, src *registry.Source) ([]Result, error) {
	parsed, err := url.Parse(src.URI)
	if err != nil || parsed.Scheme != "file" || parsed.Path == "" {
		return nil, &Error{URI: src.URI, Err: fmt.Errorf("invalid uri: expected file:///path, got %q", src.URI)}
	}
	dir := parsed.Path

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &Error{URI: src.URI, Err: fmt.Errorf("failed to read directory %s: %w", dir, err)}
	}

	var out []Result
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.Type().IsRegular() {
			continue
		}

		fullPath := filepath.Join(dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			return nil, &Error{URI: src.URI, Err: fmt.Errorf("failed to stat %s: %w", fullPath, err)}
		}
		content, err := os.ReadFile(fullPath)
		if err != nil {
			return nil, &Error{URI: src.URI, Err: fmt.Errorf("failed to read %s: %w", fullPath, err)}
		}

		out = append(out, Result{
			Content:  content,
			Filename: entry.Name(),
			Mimetype: mimetypeFromFilename(entry.Name()),
			Note:     fmt.Sprintf("size=%d_mtime=%d", info.Size(), info.ModTime().Unix()),
		})
	}

	return out, nil
}

func mimetypeFromFilename(name string) string {
	if mt := mime.TypeByExtension(filepath.Ext(name)); mt != "" {
		if mediaType, _, err := mime.ParseMediaType(mt); err == nil {
			return mediaType
		}
		return mt
	}
	return fallbackMimetype
}
