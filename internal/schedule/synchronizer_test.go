package schedule

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/DanielBerns/news-weaver/internal/crontab"
	"github.com/DanielBerns/news-weaver/internal/registry"
)

type fakeLister struct {
	sources []registry.Source
	err     error
}

func (f *fakeLister) ListActive(_ context.Context) ([]registry.Source, error) {
	return f.sources, f.err
}

func newTestSynchronizer(t *testing.T, lister SourceLister) (*Synchronizer, crontab.System) {
	t.Helper()

	dir := t.TempDir()
	system := crontab.NewFileSystem(filepath.Join(dir, "crontab"))

	sync := NewSynchronizer(
		lister,
		system,
		filepath.Join(dir, "sync.lock"),
		"/usr/local/bin/news-weaver",
		"/etc/news-weaver/config.yaml",
		ProcessEntry{Schedule: "*/5 * * * *", Limit: 50},
		zap.NewNop().Sugar(),
	)
	return sync, system
}

func activeSource(id int64, schedule string) registry.Source {
	return registry.Source{
		ID:       id,
		URI:      "https://example.org/feed.xml",
		Type:     registry.SourceTypeRSS,
		Schedule: schedule,
		Active:   true,
	}
}

func TestSyncFreshInstall(t *testing.T) {
	t.Parallel()

	lister := &fakeLister{sources: []registry.Source{
		activeSource(2, "0 * * * *"),
		activeSource(1, "*/15 * * * *"),
	}}
	sync, system := newTestSynchronizer(t, lister)

	result, err := sync.Sync(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Applied)
	assert.Len(t, result.Added, 3)
	assert.Empty(t, result.Removed)
	assert.Equal(t, 3, result.Managed)

	lines, err := system.Read(context.Background())
	require.NoError(t, err)
	require.Len(t, lines, 3)

	// deterministic order: numeric ids ascending, processor last
	entry, ok := crontab.ParseManaged(lines[0])
	require.True(t, ok)
	assert.Equal(t, "1", entry.Owner)
	entry, ok = crontab.ParseManaged(lines[1])
	require.True(t, ok)
	assert.Equal(t, "2", entry.Owner)
	entry, ok = crontab.ParseManaged(lines[2])
	require.True(t, ok)
	assert.Equal(t, crontab.ProcessorOwner, entry.Owner)
	assert.Contains(t, entry.Command, "process --limit 50")
}

func TestSyncIdempotent(t *testing.T) {
	t.Parallel()

	lister := &fakeLister{sources: []registry.Source{activeSource(1, "0 * * * *")}}
	sync, _ := newTestSynchronizer(t, lister)

	first, err := sync.Sync(context.Background())
	require.NoError(t, err)
	assert.True(t, first.Applied)

	second, err := sync.Sync(context.Background())
	require.NoError(t, err)
	assert.False(t, second.Applied)
	assert.True(t, second.Unchanged())
}

func TestSyncPreservesForeignEntries(t *testing.T) {
	t.Parallel()

	lister := &fakeLister{sources: []registry.Source{activeSource(1, "0 * * * *")}}
	sync, system := newTestSynchronizer(t, lister)

	foreign := []string{
		"# nightly backups",
		"0 2 * * * /usr/bin/backup.sh",
	}
	require.NoError(t, system.Replace(context.Background(), foreign))

	result, err := sync.Sync(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Applied)

	lines, err := system.Read(context.Background())
	require.NoError(t, err)
	require.Len(t, lines, 4)
	assert.Equal(t, foreign[0], lines[0])
	assert.Equal(t, foreign[1], lines[1])
}

func TestSyncRemovesStaleEntries(t *testing.T) {
	t.Parallel()

	lister := &fakeLister{sources: []registry.Source{
		activeSource(1, "0 * * * *"),
		activeSource(2, "0 * * * *"),
	}}
	sync, system := newTestSynchronizer(t, lister)

	_, err := sync.Sync(context.Background())
	require.NoError(t, err)

	// source 2 deactivated
	lister.sources = []registry.Source{activeSource(1, "0 * * * *")}

	result, err := sync.Sync(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Applied)
	assert.Empty(t, result.Added)
	require.Len(t, result.Removed, 1)
	assert.Contains(t, result.Removed[0], "# NEWS-WEAVER:2")

	lines, err := system.Read(context.Background())
	require.NoError(t, err)
	assert.Len(t, lines, 2)
}

func TestSyncScheduleChangeRewritesEntry(t *testing.T) {
	t.Parallel()

	lister := &fakeLister{sources: []registry.Source{activeSource(1, "0 * * * *")}}
	sync, system := newTestSynchronizer(t, lister)

	_, err := sync.Sync(context.Background())
	require.NoError(t, err)

	lister.sources = []registry.Source{activeSource(1, "*/30 * * * *")}

	result, err := sync.Sync(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Applied)
	require.Len(t, result.Added, 1)
	require.Len(t, result.Removed, 1)
	assert.Contains(t, result.Added[0], "*/30 * * * *")

	lines, err := system.Read(context.Background())
	require.NoError(t, err)
	require.Len(t, lines, 2)
	entry, ok := crontab.ParseManaged(lines[0])
	require.True(t, ok)
	assert.Equal(t, "*/30 * * * *", entry.Schedule)
}

func TestSyncSkipsInvalidSchedule(t *testing.T) {
	t.Parallel()

	lister := &fakeLister{sources: []registry.Source{
		activeSource(1, "not a schedule"),
		activeSource(2, "0 * * * *"),
	}}
	sync, system := newTestSynchronizer(t, lister)

	result, err := sync.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Managed)

	lines, err := system.Read(context.Background())
	require.NoError(t, err)
	require.Len(t, lines, 2)
	entry, ok := crontab.ParseManaged(lines[0])
	require.True(t, ok)
	assert.Equal(t, "2", entry.Owner)
}

func TestSyncNoActiveSourcesKeepsProcessor(t *testing.T) {
	t.Parallel()

	sync, system := newTestSynchronizer(t, &fakeLister{})

	result, err := sync.Sync(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Applied)
	assert.Equal(t, 1, result.Managed)

	lines, err := system.Read(context.Background())
	require.NoError(t, err)
	require.Len(t, lines, 1)
	entry, ok := crontab.ParseManaged(lines[0])
	require.True(t, ok)
	assert.Equal(t, crontab.ProcessorOwner, entry.Owner)
}

func TestSyncListError(t *testing.T) {
	t.Parallel()

	sync, _ := newTestSynchronizer(t, &fakeLister{err: assert.AnError})

	_, err := sync.Sync(context.Background())
	require.Error(t, err)
}

func TestStatus(t *testing.T) {
	t.Parallel()

	lister := &fakeLister{sources: []registry.Source{activeSource(1, "0 * * * *")}}
	sync, system := newTestSynchronizer(t, lister)

	require.NoError(t, system.Replace(context.Background(), []string{"0 2 * * * /usr/bin/backup.sh"}))

	status, err := sync.Status(context.Background())
	require.NoError(t, err)
	assert.Empty(t, status.Managed)
	assert.Equal(t, 1, status.Foreign)
	assert.False(t, status.InSync)

	_, err = sync.Sync(context.Background())
	require.NoError(t, err)

	status, err = sync.Status(context.Background())
	require.NoError(t, err)
	assert.Len(t, status.Managed, 2)
	assert.Equal(t, 1, status.Foreign)
	assert.True(t, status.InSync)
}
