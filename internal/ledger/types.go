// Package ledger tracks every fetched artifact through its processing lifecycle.
//
// Status transitions are monotonic except the FAILED -> PROCESSING retry
// edge, which is bounded by a configured maximum retry count. All transitions
// are applied as atomic compare-and-set updates keyed on (id, expected
// status), so overlapping processing invocations can never double-process
// the same artifact.
package ledger

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle phase of an artifact
type Status string

const (
	// StatusScraped means the artifact was fetched and awaits processing
	StatusScraped Status = "SCRAPED"

	// StatusProcessing means a processing invocation has claimed the artifact
	StatusProcessing Status = "PROCESSING"

	// StatusProcessed means processing completed and the sink accepted the
	// payload. Terminal: processed rows are never mutated again.
	StatusProcessed Status = "PROCESSED"

	// StatusFailed means extraction or delivery failed. Retryable while
	// retry_count is below the configured maximum, terminal afterwards.
	StatusFailed Status = "FAILED"
)

// ErrClaimConflict is returned when a conditional transition finds the row in
// a different status than expected. Losing a claim race is an expected
// outcome, not a failure; callers skip the row silently.
var ErrClaimConflict = errors.New("artifact claim conflict")

// ErrArtifactNotFound is returned when an artifact can't be found.
var ErrArtifactNotFound = errors.New("artifact not found")

// Artifact is one fetched raw item tracked through its processing lifecycle
type Artifact struct {
	ID         uuid.UUID
	SourceID   int64
	LocalPath  string
	Filename   string
	Mimetype   string
	Status     Status
	RetryCount int
	Notes      string
	ScrapedAt  time.Time
}

// Claimable reports whether an artifact in the given status with the given
// retry count may be claimed for processing under the configured retry bound.
func Claimable(status Status, retryCount, maxRetries int) bool {
	switch status {
	case StatusScraped:
		return true
	case StatusFailed:
		return retryCount < maxRetries
	default:
		return false
	}
}
