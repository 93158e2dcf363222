// Package registry provides the persistent registry of ingestion sources.
package registry

import (
	"fmt"
	"net/url"
	"time"

	"github.com/robfig/cron/v3"
)

// SourceType identifies how a source's content is fetched
type SourceType string

const (
	// SourceTypeRSS is an RSS or Atom feed fetched over HTTP
	SourceTypeRSS SourceType = "RSS"

	// SourceTypeWeb is a web page fetched over HTTP
	SourceTypeWeb SourceType = "WEB"

	// SourceTypeLocal is a local directory referenced by a file:// URI
	SourceTypeLocal SourceType = "LOCAL"
)

// Source is a configured ingestion origin with its own fetch schedule
type Source struct {
	// ID is the stable identifier, also used as the crontab ownership identity
	ID int64

	// URI is the unique location of the source (http, https or file scheme)
	URI string

	// Type determines which fetcher handles this source
	Type SourceType

	// Schedule is the cron expression driving ingestion for this source
	Schedule string

	// Active controls whether the source participates in schedule synchronization
	Active bool

	// LastError holds the most recent fatal fetch failure, for operator triage
	LastError string

	// LastScrapedAt is the time of the last successful fetch
	LastScrapedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks the source definition invariants
func (s *Source) Validate() error {
	parsed, err := url.Parse(s.URI)
	if err != nil {
		return fmt.Errorf("invalid source URI %q: %w", s.URI, err)
	}

	switch parsed.Scheme {
	case "http", "https":
		if s.Type == SourceTypeLocal {
			return fmt.Errorf("source type %s requires a file:// URI, got %q", s.Type, s.URI)
		}
	case "file":
		if s.Type != SourceTypeLocal {
			return fmt.Errorf("source type %s requires an http(s) URI, got %q", s.Type, s.URI)
		}
	default:
		return fmt.Errorf("unsupported URI scheme %q (must be http, https or file)", parsed.Scheme)
	}

	switch s.Type {
	case SourceTypeRSS, SourceTypeWeb, SourceTypeLocal:
	default:
		return fmt.Errorf("unsupported source type %q", s.Type)
	}

	if _, err := cron.ParseStandard(s.Schedule); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", s.Schedule, err)
	}

	return nil
}
