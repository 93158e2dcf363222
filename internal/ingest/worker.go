// Package ingest implements the per-source ingestion worker.
//
// Each invocation is short-lived: it fetches one source, writes the raw
// payload to durable storage, records a SCRAPED ledger row, and exits. A
// transient fetch failure leaves no trace beyond a log line; the next
// scheduled trigger is the retry mechanism. A fatal failure is noted against
// the source for operator triage.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DanielBerns/news-weaver/internal/fetch"
	"github.com/DanielBerns/news-weaver/internal/ledger"
	"github.com/DanielBerns/news-weaver/internal/registry"
)

// Disposition summarizes how an ingestion run ended
type Disposition string

const (
	// DispositionCreated means at least one artifact row was recorded
	DispositionCreated Disposition = "created"

	// DispositionNothingNew means the fetch succeeded but produced nothing
	// to record (empty local directory, or every file already in flight)
	DispositionNothingNew Disposition = "nothing-new"

	// DispositionSkippedTransient means the fetch failed transiently; the
	// next scheduled trigger retries, so nothing was recorded
	DispositionSkippedTransient Disposition = "skipped-transient"

	// DispositionFailedFatal means the fetch failed in a way that requires
	// operator intervention; the failure was noted against the source
	DispositionFailedFatal Disposition = "failed-fatal"

	// DispositionInactive means the source is deactivated and was not fetched
	DispositionInactive Disposition = "inactive"
)

// Outcome is the result of one ingestion run
type Outcome struct {
	Disposition Disposition

	// ArtifactIDs are the ledger rows created by this run
	ArtifactIDs []uuid.UUID

	// Note carries the failure detail for fatal dispositions
	Note string
}

// SourceStore is the slice of the source registry the worker needs
type SourceStore interface {
	GetByID(ctx context.Context, id int64) (*registry.Source, error)
	TouchScraped(ctx context.Context, id int64, at time.Time) error
	RecordFetchFailure(ctx context.Context, id int64, note string) error
}

// Ledger is the slice of the artifact ledger the worker needs
type Ledger interface {
	Insert(ctx context.Context, a *ledger.Artifact) error
	HasInFlight(ctx context.Context, sourceID int64, filename string) (bool, error)
}

// Worker ingests one source per invocation
type Worker struct {
	sources   SourceStore
	artifacts Ledger
	fetchers  fetch.Factory
	dataDir   string
	logger    *zap.SugaredLogger

	// now is a hook for tests
	now func() time.Time
}

// NewWorker creates an ingestion worker writing raw payloads under dataDir
func NewWorker(
	sources SourceStore,
	artifacts Ledger,
	fetchers fetch.Factory,
	dataDir string,
	logger *zap.SugaredLogger,
) *Worker {
	return &Worker{
		sources:   sources,
		artifacts: artifacts,
		fetchers:  fetchers,
		dataDir:   dataDir,
		logger:    logger,
		now:       time.Now,
	}
}

// Run ingests the given source. Errors are returned only for infrastructure
// failures (database or filesystem); fetch failures are classified and folded
// into the outcome.
func (w *Worker) Run(ctx context.Context, sourceID int64) (*Outcome, error) {
	src, err := w.sources.GetByID(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load source %d: %w", sourceID, err)
	}

	if !src.Active {
		w.logger.Infow("Skipping inactive source", "source_id", src.ID)
		return &Outcome{Disposition: DispositionInactive}, nil
	}

	fetcher, err := w.fetchers.CreateFetcher(src.Type)
	if err != nil {
		return nil, err
	}

	w.logger.Infow("Fetching source", "source_id", src.ID, "type", src.Type, "uri", src.URI)

	results, err := fetcher.Fetch(ctx, src)
	if err != nil {
		return w.handleFetchFailure(ctx, src, err)
	}

	outcome := &Outcome{Disposition: DispositionNothingNew}
	for i := range results {
		id, created, err := w.record(ctx, src, &results[i])
		if err != nil {
			return nil, err
		}
		if created {
			outcome.ArtifactIDs = append(outcome.ArtifactIDs, id)
		}
	}
	if len(outcome.ArtifactIDs) > 0 {
		outcome.Disposition = DispositionCreated
	}

	if err := w.sources.TouchScraped(ctx, src.ID, w.now().UTC()); err != nil {
		return nil, fmt.Errorf("failed to update last_scraped_at: %w", err)
	}

	w.logger.Infow("Ingestion complete",
		"source_id", src.ID, "artifacts", len(outcome.ArtifactIDs), "disposition", outcome.Disposition)
	return outcome, nil
}

// handleFetchFailure classifies a fetch error. Transient failures are only
// logged: last_scraped_at stays untouched and no ledger row is created, so
// the scheduled re-trigger retries naturally. Fatal failures additionally
// record a note against the source.
func (w *Worker) handleFetchFailure(ctx context.Context, src *registry.Source, fetchErr error) (*Outcome, error) {
	class := fetch.Classify(fetchErr)
	if class == fetch.ClassTransient {
		w.logger.Warnw("Transient fetch failure, will retry on next trigger",
			"source_id", src.ID, "error", fetchErr)
		return &Outcome{Disposition: DispositionSkippedTransient, Note: fetchErr.Error()}, nil
	}

	note := fmt.Sprintf("fatal fetch failure: %v", fetchErr)
	w.logger.Errorw("Fatal fetch failure, operator intervention required",
		"source_id", src.ID, "error", fetchErr)
	if err := w.sources.RecordFetchFailure(ctx, src.ID, note); err != nil {
		return nil, fmt.Errorf("failed to record fetch failure: %w", err)
	}
	return &Outcome{Disposition: DispositionFailedFatal, Note: note}, nil
}

// record persists one fetched item: raw file first, ledger row second, so the
// ledger never references a payload that is not on disk.
func (w *Worker) record(ctx context.Context, src *registry.Source, res *fetch.Result) (uuid.UUID, bool, error) {
	if src.Type == registry.SourceTypeLocal {
		inFlight, err := w.artifacts.HasInFlight(ctx, src.ID, res.Filename)
		if err != nil {
			return uuid.Nil, false, err
		}
		if inFlight {
			w.logger.Debugw("Previous version still in pipeline, skipping",
				"source_id", src.ID, "filename", res.Filename)
			return uuid.Nil, false, nil
		}
	}

	scrapedAt := w.now().UTC()
	localPath, err := w.saveContent(src.ID, scrapedAt, res.Filename, res.Content)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("failed to save payload: %w", err)
	}

	artifact := &ledger.Artifact{
		ID:        uuid.New(),
		SourceID:  src.ID,
		LocalPath: localPath,
		Filename:  res.Filename,
		Mimetype:  res.Mimetype,
		Notes:     res.Note,
		ScrapedAt: scrapedAt,
	}
	if err := w.artifacts.Insert(ctx, artifact); err != nil {
		return uuid.Nil, false, err
	}

	w.logger.Infow("Recorded artifact",
		"source_id", src.ID, "artifact_id", artifact.ID, "path", localPath, "mimetype", res.Mimetype)
	return artifact.ID, true, nil
}

// saveContent writes the payload under a collision-resistant name and syncs
// it to durable storage before returning. Two overlapping ingest runs for the
// same source produce distinct files, never a torn one.
func (w *Worker) saveContent(sourceID int64, at time.Time, filename string, content []byte) (string, error) {
	if err := os.MkdirAll(w.dataDir, 0750); err != nil {
		return "", err
	}

	name := fmt.Sprintf("%d_%d_%s", sourceID, at.Unix(), sanitizeFilename(filename))
	fullPath := filepath.Join(w.dataDir, name)

	f, err := os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0640)
	if err != nil {
		if os.IsExist(err) {
			// Same source, same second, same name: disambiguate.
			fullPath = filepath.Join(w.dataDir,
				fmt.Sprintf("%d_%d_%s_%s", sourceID, at.Unix(), uuid.NewString()[:8], sanitizeFilename(filename)))
			f, err = os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0640)
		}
		if err != nil {
			return "", err
		}
	}

	if _, err := f.Write(content); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}

	abs, err := filepath.Abs(fullPath)
	if err != nil {
		return fullPath, nil
	}
	return abs, nil
}

// sanitizeFilename strips path separators and traversal sequences so a
// hostile Content-Disposition cannot escape the data directory.
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "payload"
	}
	return name
}
