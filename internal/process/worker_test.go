package process

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/DanielBerns/news-weaver/internal/extract"
	"github.com/DanielBerns/news-weaver/internal/ledger"
	"github.com/DanielBerns/news-weaver/internal/registry"
	"github.com/DanielBerns/news-weaver/internal/sink"
)

type fakeLedger struct {
	batch      []ledger.Artifact
	batchErr   error
	claimErrs  map[uuid.UUID]error
	processed  []uuid.UUID
	failed     map[uuid.UUID]string
	markFailed error
}

func newFakeLedger(batch ...ledger.Artifact) *fakeLedger {
	return &fakeLedger{
		batch:     batch,
		claimErrs: make(map[uuid.UUID]error),
		failed:    make(map[uuid.UUID]string),
	}
}

func (f *fakeLedger) SelectBatch(_ context.Context, limit, _ int) ([]ledger.Artifact, error) {
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	if len(f.batch) > limit {
		return f.batch[:limit], nil
	}
	return f.batch, nil
}

func (f *fakeLedger) Claim(_ context.Context, id uuid.UUID, _ ledger.Status) error {
	return f.claimErrs[id]
}

func (f *fakeLedger) MarkProcessed(_ context.Context, id uuid.UUID) error {
	f.processed = append(f.processed, id)
	return nil
}

func (f *fakeLedger) MarkFailed(_ context.Context, id uuid.UUID, note string) error {
	if f.markFailed != nil {
		return f.markFailed
	}
	f.failed[id] = note
	return nil
}

type fakeSources struct {
	uri string
	err error
}

func (f *fakeSources) GetByID(_ context.Context, id int64) (*registry.Source, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &registry.Source{ID: id, URI: f.uri}, nil
}

type fakeSink struct {
	delivered []string
	err       error
}

func (f *fakeSink) Deliver(_ context.Context, artifact *ledger.Artifact, _ string, _ *extract.Payload) error {
	if f.err != nil {
		return f.err
	}
	f.delivered = append(f.delivered, artifact.ID.String())
	return nil
}

func writeArtifactFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func htmlArtifact(t *testing.T, dir string) ledger.Artifact {
	t.Helper()
	return ledger.Artifact{
		ID:        uuid.New(),
		SourceID:  1,
		LocalPath: writeArtifactFile(t, dir, uuid.NewString()+".html", "<html><head><title>T</title></head><body><p>hello</p></body></html>"),
		Filename:  "index.html",
		Mimetype:  "text/html",
		Status:    ledger.StatusScraped,
	}
}

func newTestWorker(lg *fakeLedger, snk sink.Sink) *Worker {
	return NewWorker(lg, &fakeSources{uri: "https://example.org"}, extract.NewRegistry(), snk, 3, zap.NewNop().Sugar())
}

func TestRunBatchEmpty(t *testing.T) {
	t.Parallel()

	worker := newTestWorker(newFakeLedger(), &fakeSink{})

	summary, err := worker.RunBatch(context.Background(), 50)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Selected)
	assert.Equal(t, 0, summary.Processed)
}

func TestRunBatchProcessesArtifact(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	artifact := htmlArtifact(t, dir)
	lg := newFakeLedger(artifact)
	snk := &fakeSink{}
	worker := newTestWorker(lg, snk)

	summary, err := worker.RunBatch(context.Background(), 50)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, []uuid.UUID{artifact.ID}, lg.processed)
	assert.Equal(t, []string{artifact.ID.String()}, snk.delivered)
}

func TestRunBatchSkipsClaimConflicts(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	lost := htmlArtifact(t, dir)
	won := htmlArtifact(t, dir)
	lg := newFakeLedger(lost, won)
	lg.claimErrs[lost.ID] = ledger.ErrClaimConflict
	worker := newTestWorker(lg, &fakeSink{})

	summary, err := worker.RunBatch(context.Background(), 50)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, []uuid.UUID{won.ID}, lg.processed)
}

func TestRunBatchMissingFileFails(t *testing.T) {
	t.Parallel()

	artifact := ledger.Artifact{
		ID:        uuid.New(),
		SourceID:  1,
		LocalPath: filepath.Join(t.TempDir(), "gone.html"),
		Mimetype:  "text/html",
		Status:    ledger.StatusScraped,
	}
	lg := newFakeLedger(artifact)
	worker := newTestWorker(lg, &fakeSink{})

	summary, err := worker.RunBatch(context.Background(), 50)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Contains(t, lg.failed[artifact.ID], "backing file missing")
}

func TestRunBatchUnknownMimetypeFails(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	artifact := ledger.Artifact{
		ID:        uuid.New(),
		SourceID:  1,
		LocalPath: writeArtifactFile(t, dir, "blob.bin", "data"),
		Mimetype:  "application/octet-stream",
		Status:    ledger.StatusScraped,
	}
	lg := newFakeLedger(artifact)
	worker := newTestWorker(lg, &fakeSink{})

	summary, err := worker.RunBatch(context.Background(), 50)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Contains(t, lg.failed[artifact.ID], "no extractor registered")
}

func TestRunBatchSinkRejectionFails(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	artifact := htmlArtifact(t, dir)
	lg := newFakeLedger(artifact)
	snk := &fakeSink{err: &sink.RejectedError{Endpoint: "articles", StatusCode: 422}}
	worker := newTestWorker(lg, snk)

	summary, err := worker.RunBatch(context.Background(), 50)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Contains(t, lg.failed[artifact.ID], "sink rejected")
}

func TestRunBatchFailureIsolation(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	bad := ledger.Artifact{
		ID:        uuid.New(),
		SourceID:  1,
		LocalPath: filepath.Join(dir, "missing.html"),
		Mimetype:  "text/html",
		Status:    ledger.StatusScraped,
	}
	good := htmlArtifact(t, dir)
	lg := newFakeLedger(bad, good)
	worker := newTestWorker(lg, &fakeSink{})

	summary, err := worker.RunBatch(context.Background(), 50)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, []uuid.UUID{good.ID}, lg.processed)
}

func TestRunBatchRespectsLimit(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	lg := newFakeLedger(htmlArtifact(t, dir), htmlArtifact(t, dir), htmlArtifact(t, dir))
	worker := newTestWorker(lg, &fakeSink{})

	summary, err := worker.RunBatch(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Selected)
	assert.Equal(t, 2, summary.Processed)
}

func TestRunBatchExhaustsRetries(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	artifact := htmlArtifact(t, dir)
	artifact.Status = ledger.StatusFailed
	artifact.RetryCount = 2
	lg := newFakeLedger(artifact)
	snk := &fakeSink{err: errors.New("delivery broken")}
	worker := newTestWorker(lg, snk)

	summary, err := worker.RunBatch(context.Background(), 50)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Exhausted)
}

func TestRunBatchSelectError(t *testing.T) {
	t.Parallel()

	lg := newFakeLedger()
	lg.batchErr = errors.New("database down")
	worker := newTestWorker(lg, &fakeSink{})

	_, err := worker.RunBatch(context.Background(), 50)
	require.Error(t, err)
}
