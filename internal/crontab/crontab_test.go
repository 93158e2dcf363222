package crontab

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSystemReadMissing(t *testing.T) {
	t.Parallel()

	fs := NewFileSystem(filepath.Join(t.TempDir(), "crontab"))
	lines, err := fs.Read(context.Background())
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestFileSystemRoundTrip(t *testing.T) {
	t.Parallel()

	fs := NewFileSystem(filepath.Join(t.TempDir(), "crontab"))
	want := []string{
		"0 0 * * * /usr/bin/backup.sh",
		"*/5 * * * * /usr/bin/nw process --limit 50 --config /etc/nw.yaml # NEWS-WEAVER:processor",
	}

	require.NoError(t, fs.Replace(context.Background(), want))

	got, err := fs.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFileSystemReplaceEmpty(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "crontab")
	fs := NewFileSystem(path)

	require.NoError(t, fs.Replace(context.Background(), []string{"* * * * * cmd"}))
	require.NoError(t, fs.Replace(context.Background(), nil))

	got, err := fs.Read(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)

	// the file itself stays in place
	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestFileSystemReplaceOverwrites(t *testing.T) {
	t.Parallel()

	fs := NewFileSystem(filepath.Join(t.TempDir(), "crontab"))

	require.NoError(t, fs.Replace(context.Background(), []string{"a", "b", "c"}))
	require.NoError(t, fs.Replace(context.Background(), []string{"d"}))

	got, err := fs.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"d"}, got)
}

func TestFileSystemReplaceCreatesDirectory(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "dir", "crontab")
	fs := NewFileSystem(path)

	require.NoError(t, fs.Replace(context.Background(), []string{"* * * * * cmd"}))

	got, err := fs.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"* * * * * cmd"}, got)
}

func TestFileSystemLeavesNoTempFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fs := NewFileSystem(filepath.Join(dir, "crontab"))
	require.NoError(t, fs.Replace(context.Background(), []string{"* * * * * cmd"}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "crontab", entries[0].Name())
}
