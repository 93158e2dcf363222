// Package schedule keeps the host scheduler's entry list in sync with the
// active sources in the registry.
package schedule

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/gofrs/flock"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/DanielBerns/news-weaver/internal/crontab"
	"github.com/DanielBerns/news-weaver/internal/registry"
)

// SourceLister is the slice of the source registry the synchronizer needs
type SourceLister interface {
	ListActive(ctx context.Context) ([]registry.Source, error)
}

// Result summarizes one synchronization pass
type Result struct {
	// Applied is true when the entry list was rewritten
	Applied bool

	// Added and Removed list the rendered lines that changed. A source whose
	// schedule changed appears in both.
	Added   []string
	Removed []string

	// Managed is the number of managed entries after the pass
	Managed int
}

// Unchanged reports whether the pass found nothing to do
func (r *Result) Unchanged() bool {
	return len(r.Added) == 0 && len(r.Removed) == 0
}

// Synchronizer materializes active sources into managed scheduler entries
type Synchronizer struct {
	sources    SourceLister
	system     crontab.System
	lockPath   string
	binaryPath string
	configPath string
	processCfg ProcessEntry
	logger     *zap.SugaredLogger
}

// ProcessEntry describes the batch processing entry the synchronizer maintains
// alongside the per-source entries.
type ProcessEntry struct {
	Schedule string
	Limit    int
}

// NewSynchronizer creates a synchronizer. binaryPath and configPath are
// embedded in the generated commands so the scheduled invocations find the
// same binary and configuration the synchronizer ran with.
func NewSynchronizer(
	sources SourceLister,
	system crontab.System,
	lockPath string,
	binaryPath string,
	configPath string,
	processCfg ProcessEntry,
	logger *zap.SugaredLogger,
) *Synchronizer {
	return &Synchronizer{
		sources:    sources,
		system:     system,
		lockPath:   lockPath,
		binaryPath: binaryPath,
		configPath: configPath,
		processCfg: processCfg,
		logger:     logger,
	}
}

// Sync performs one read-diff-write pass under an advisory file lock, so
// concurrent invocations serialize instead of interleaving their rewrites.
func (s *Synchronizer) Sync(ctx context.Context) (*Result, error) {
	lock := flock.New(s.lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire schedule lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("schedule lock at %s is held by another process", s.lockPath)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			s.logger.Warnw("Failed to release schedule lock", "path", s.lockPath, "error", err)
		}
	}()

	return s.sync(ctx)
}

func (s *Synchronizer) sync(ctx context.Context) (*Result, error) {
	active, err := s.sources.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active sources: %w", err)
	}

	desired := s.desiredEntries(active)

	current, err := s.system.Read(ctx)
	if err != nil {
		return nil, err
	}

	var foreign []string
	existing := make(map[string]string, len(current))
	for _, line := range current {
		entry, ok := crontab.ParseManaged(line)
		if !ok {
			if crontab.IsManaged(line) {
				s.logger.Warnw("Unparseable managed entry, preserving as foreign", "line", line)
			}
			foreign = append(foreign, line)
			continue
		}
		if prev, dup := existing[entry.Owner]; dup {
			s.logger.Warnw("Duplicate managed entry, keeping last",
				"owner", entry.Owner, "discarded", prev)
		}
		existing[entry.Owner] = line
	}

	result := s.diff(existing, desired)
	if result.Unchanged() {
		s.logger.Infow("Schedule already in sync", "managed", result.Managed)
		return result, nil
	}

	lines := make([]string, 0, len(foreign)+len(desired))
	lines = append(lines, foreign...)
	for _, entry := range desired {
		lines = append(lines, entry.Render())
	}

	if err := s.system.Replace(ctx, lines); err != nil {
		return nil, err
	}
	result.Applied = true

	s.logger.Infow("Schedule synchronized",
		"added", len(result.Added), "removed", len(result.Removed), "managed", result.Managed)
	return result, nil
}

// desiredEntries builds the managed entry set for the active sources plus the
// processing entry, in a deterministic order. Sources with schedules the host
// scheduler cannot parse are skipped with a warning rather than poisoning the
// whole list.
func (s *Synchronizer) desiredEntries(active []registry.Source) []crontab.Entry {
	bySource := make(map[int64]registry.Source, len(active))
	for _, src := range active {
		if _, dup := bySource[src.ID]; dup {
			s.logger.Warnw("Duplicate source id in active list, keeping last", "source_id", src.ID)
		}
		bySource[src.ID] = src
	}

	ids := make([]int64, 0, len(bySource))
	for id := range bySource {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	entries := make([]crontab.Entry, 0, len(ids)+1)
	for _, id := range ids {
		src := bySource[id]
		if _, err := cron.ParseStandard(src.Schedule); err != nil {
			s.logger.Warnw("Skipping source with invalid schedule",
				"source_id", src.ID, "schedule", src.Schedule, "error", err)
			continue
		}
		entries = append(entries, crontab.Entry{
			Schedule: src.Schedule,
			Command: fmt.Sprintf("%s ingest --source-id %d --config %s",
				s.binaryPath, src.ID, s.configPath),
			Owner: strconv.FormatInt(src.ID, 10),
		})
	}

	entries = append(entries, crontab.Entry{
		Schedule: s.processCfg.Schedule,
		Command: fmt.Sprintf("%s process --limit %d --config %s",
			s.binaryPath, s.processCfg.Limit, s.configPath),
		Owner: crontab.ProcessorOwner,
	})

	return entries
}

// diff compares existing managed lines against the desired set by owner. A
// changed schedule or command renders differently and shows up as one removal
// plus one addition for the same owner.
func (s *Synchronizer) diff(existing map[string]string, desired []crontab.Entry) *Result {
	result := &Result{Managed: len(desired)}

	want := make(map[string]string, len(desired))
	for _, entry := range desired {
		want[entry.Owner] = entry.Render()
	}

	for _, entry := range desired {
		line := want[entry.Owner]
		if existing[entry.Owner] != line {
			result.Added = append(result.Added, line)
		}
	}
	for owner, line := range existing {
		if want[owner] != line {
			result.Removed = append(result.Removed, line)
		}
	}
	sort.Strings(result.Removed)

	return result
}
