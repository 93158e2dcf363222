package crontab

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// System abstracts the host scheduler's entry list. The exec implementation
// talks to the real crontab binary; the file implementation backs tests and
// containerized deployments without a cron daemon.
type System interface {
	// Read returns the current entry list, one line per element, without
	// trailing newlines. An absent crontab reads as an empty list.
	Read(ctx context.Context) ([]string, error)

	// Replace atomically installs the given lines as the complete entry list
	Replace(ctx context.Context, lines []string) error
}

// ExecSystem drives the user crontab through the crontab(1) binary
type ExecSystem struct{}

// NewExecSystem returns a System backed by the crontab binary
func NewExecSystem() *ExecSystem {
	return &ExecSystem{}
}

// Read lists the current crontab via `crontab -l`
func (s *ExecSystem) Read(ctx context.Context) ([]string, error) {
	cmd := exec.CommandContext(ctx, "crontab", "-l")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		// crontab -l exits nonzero when the user has no crontab yet
		if strings.Contains(stderr.String(), "no crontab for") {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read crontab: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	return splitLines(stdout.String()), nil
}

// Replace installs lines as the full crontab via `crontab -`
func (s *ExecSystem) Replace(ctx context.Context, lines []string) error {
	cmd := exec.CommandContext(ctx, "crontab", "-")
	cmd.Stdin = strings.NewReader(joinLines(lines))
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to install crontab: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// FileSystem stores the entry list in a plain file. Writes go through a
// temporary file and rename so readers never observe a partial list.
type FileSystem struct {
	path string
}

// NewFileSystem returns a System backed by the file at path
func NewFileSystem(path string) *FileSystem {
	return &FileSystem{path: path}
}

// Read returns the file's lines, or an empty list if the file does not exist
func (s *FileSystem) Read(_ context.Context) ([]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read crontab file: %w", err)
	}
	return splitLines(string(data)), nil
}

// Replace writes the full entry list with a temp-file-and-rename
func (s *FileSystem) Replace(_ context.Context, lines []string) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create crontab directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp crontab file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(joinLines(lines)); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp crontab file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp crontab file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace crontab file: %w", err)
	}
	return nil
}

func splitLines(content string) []string {
	content = strings.TrimRight(content, "\n")
	if content == "" {
		return nil
	}
	return strings.Split(content, "\n")
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}
