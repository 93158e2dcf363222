// Package process implements the batch processing worker.
//
// Each invocation claims a bounded batch of ready artifacts, extracts their
// content, and delivers the results to the storage sink. Overlapping
// invocations are expected: the ledger's per-row compare-and-set makes a row
// already claimed elsewhere simply invisible to the late invocation.
package process

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DanielBerns/news-weaver/internal/extract"
	"github.com/DanielBerns/news-weaver/internal/ledger"
	"github.com/DanielBerns/news-weaver/internal/registry"
	"github.com/DanielBerns/news-weaver/internal/sink"
)

// Summary reports what one batch run accomplished
type Summary struct {
	// Selected is the number of candidate rows the batch query returned
	Selected int

	// Skipped counts rows lost to concurrent invocations (claim conflicts)
	Skipped int

	// Processed counts artifacts delivered and marked PROCESSED
	Processed int

	// Failed counts artifacts marked FAILED this run
	Failed int

	// Exhausted counts artifacts whose retry budget ran out this run
	Exhausted int
}

// Ledger is the slice of the artifact ledger the worker needs
type Ledger interface {
	SelectBatch(ctx context.Context, limit, maxRetries int) ([]ledger.Artifact, error)
	Claim(ctx context.Context, id uuid.UUID, expected ledger.Status) error
	MarkProcessed(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, note string) error
}

// SourceStore is the slice of the source registry the worker needs
type SourceStore interface {
	GetByID(ctx context.Context, id int64) (*registry.Source, error)
}

// Worker processes one batch of artifacts per invocation
type Worker struct {
	artifacts  Ledger
	sources    SourceStore
	extractors *extract.Registry
	sink       sink.Sink
	maxRetries int
	logger     *zap.SugaredLogger
}

// NewWorker creates a processing worker
func NewWorker(
	artifacts Ledger,
	sources SourceStore,
	extractors *extract.Registry,
	snk sink.Sink,
	maxRetries int,
	logger *zap.SugaredLogger,
) *Worker {
	return &Worker{
		artifacts:  artifacts,
		sources:    sources,
		extractors: extractors,
		sink:       snk,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// RunBatch claims and processes up to limit artifacts, oldest first. One
// artifact's failure never aborts the batch; the returned error covers only
// infrastructure failures in batch selection itself.
func (w *Worker) RunBatch(ctx context.Context, limit int) (*Summary, error) {
	candidates, err := w.artifacts.SelectBatch(ctx, limit, w.maxRetries)
	if err != nil {
		return nil, fmt.Errorf("failed to select batch: %w", err)
	}

	summary := &Summary{Selected: len(candidates)}
	if len(candidates) == 0 {
		w.logger.Debug("No artifacts ready for processing")
		return summary, nil
	}

	w.logger.Infow("Processing batch", "candidates", len(candidates), "limit", limit)

	for i := range candidates {
		artifact := &candidates[i]

		if !ledger.Claimable(artifact.Status, artifact.RetryCount, w.maxRetries) {
			summary.Skipped++
			continue
		}
		if err := w.artifacts.Claim(ctx, artifact.ID, artifact.Status); err != nil {
			if errors.Is(err, ledger.ErrClaimConflict) || errors.Is(err, ledger.ErrArtifactNotFound) {
				// Another invocation won the race; not our row anymore.
				summary.Skipped++
				continue
			}
			return summary, fmt.Errorf("failed to claim artifact %s: %w", artifact.ID, err)
		}

		w.processOne(ctx, artifact, summary)
	}

	w.logger.Infow("Batch complete",
		"processed", summary.Processed, "failed", summary.Failed,
		"skipped", summary.Skipped, "exhausted", summary.Exhausted)
	return summary, nil
}

// processOne runs extraction and delivery for a claimed artifact and records
// the outcome. Failures are contained to the row.
func (w *Worker) processOne(ctx context.Context, artifact *ledger.Artifact, summary *Summary) {
	if err := w.extractAndDeliver(ctx, artifact); err != nil {
		w.fail(ctx, artifact, err, summary)
		return
	}

	if err := w.artifacts.MarkProcessed(ctx, artifact.ID); err != nil {
		w.logger.Errorw("Failed to mark artifact processed",
			"artifact_id", artifact.ID, "error", err)
		summary.Failed++
		return
	}
	summary.Processed++
}

func (w *Worker) extractAndDeliver(ctx context.Context, artifact *ledger.Artifact) error {
	if _, err := os.Stat(artifact.LocalPath); err != nil {
		return fmt.Errorf("backing file missing: %w", err)
	}

	extractor, err := w.extractors.Lookup(artifact.Mimetype)
	if err != nil {
		return err
	}

	payload, err := extractor.Extract(ctx, artifact.LocalPath)
	if err != nil {
		return err
	}

	sourceURL := w.sourceURL(ctx, artifact.SourceID)
	if err := w.sink.Deliver(ctx, artifact, sourceURL, payload); err != nil {
		return fmt.Errorf("delivery failed: %w", err)
	}
	return nil
}

// sourceURL resolves the originating URI for the sink payload. A missing
// source is tolerated: the artifact is still deliverable.
func (w *Worker) sourceURL(ctx context.Context, sourceID int64) string {
	src, err := w.sources.GetByID(ctx, sourceID)
	if err != nil {
		w.logger.Warnw("Failed to resolve source for artifact payload",
			"source_id", sourceID, "error", err)
		return "unknown_source"
	}
	return src.URI
}

// fail transitions the artifact to FAILED with the error recorded in notes
func (w *Worker) fail(ctx context.Context, artifact *ledger.Artifact, cause error, summary *Summary) {
	note := failureNote(cause)

	w.logger.Warnw("Artifact processing failed",
		"artifact_id", artifact.ID, "source_id", artifact.SourceID, "error", cause)

	if err := w.artifacts.MarkFailed(ctx, artifact.ID, note); err != nil {
		w.logger.Errorw("Failed to record artifact failure",
			"artifact_id", artifact.ID, "error", err)
		summary.Failed++
		return
	}
	summary.Failed++

	// retry_count was just incremented by MarkFailed.
	if artifact.RetryCount+1 >= w.maxRetries {
		summary.Exhausted++
		w.logger.Warnw("Artifact retry budget exhausted, permanently failed",
			"artifact_id", artifact.ID, "retry_count", artifact.RetryCount+1, "max_retries", w.maxRetries)
	}
}

// failureNote prefixes the note with the error class so operators can triage
// from the ledger row alone.
func failureNote(cause error) string {
	var extractErr *extract.Error
	if errors.As(cause, &extractErr) {
		return fmt.Sprintf("extraction failed: %v", cause)
	}
	var rejectErr *sink.RejectedError
	if errors.As(cause, &rejectErr) {
		return fmt.Sprintf("sink rejected: %v", cause)
	}
	return cause.Error()
}
