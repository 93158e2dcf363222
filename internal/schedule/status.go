package schedule

import (
	"context"

	"github.com/DanielBerns/news-weaver/internal/crontab"
)

// EntryStatus describes one managed entry found in the host scheduler
type EntryStatus struct {
	Owner    string
	Schedule string
	Command  string
}

// Status is a read-only view of the scheduler state
type Status struct {
	Managed []EntryStatus
	Foreign int
	InSync  bool
}

// Status reports the current managed entries and whether they match the
// desired set, without taking the lock or writing anything.
func (s *Synchronizer) Status(ctx context.Context) (*Status, error) {
	active, err := s.sources.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	desired := s.desiredEntries(active)

	current, err := s.system.Read(ctx)
	if err != nil {
		return nil, err
	}

	status := &Status{}
	existing := make(map[string]string)
	for _, line := range current {
		entry, ok := crontab.ParseManaged(line)
		if !ok {
			status.Foreign++
			continue
		}
		existing[entry.Owner] = line
		status.Managed = append(status.Managed, EntryStatus{
			Owner:    entry.Owner,
			Schedule: entry.Schedule,
			Command:  entry.Command,
		})
	}

	status.InSync = s.diff(existing, desired).Unchanged()
	return status, nil
}
