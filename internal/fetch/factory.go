package fetch

import (
	"fmt"
	"time"

	"github.com/DanielBerns/news-weaver/internal/registry"
)

// Factory creates fetchers by source type
//
// RSS feeds are fetched like web pages: the raw feed document is stored and
// mimetype-keyed extraction happens downstream.
type Factory interface {
	// CreateFetcher returns the fetcher handling the given source type
	CreateFetcher(sourceType registry.SourceType) (Fetcher, error)
}

// defaultFactory is the default implementation of Factory
type defaultFactory struct {
	timeout   time.Duration
	userAgent string
}

var _ Factory = (*defaultFactory)(nil)

// NewFactory creates a new fetcher factory
func NewFactory(timeout time.Duration, userAgent string) Factory {
	return &defaultFactory{timeout: timeout, userAgent: userAgent}
}

// CreateFetcher returns the fetcher for the given source type
func (f *defaultFactory) CreateFetcher(sourceType registry.SourceType) (Fetcher, error) {
	switch sourceType {
	case registry.SourceTypeWeb, registry.SourceTypeRSS:
		return NewHTTPFetcher(f.timeout, f.userAgent), nil
	case registry.SourceTypeLocal:
		return NewLocalFetcher(), nil
	default:
		return nil, fmt.Errorf("unsupported source type: %s", sourceType)
	}
}
