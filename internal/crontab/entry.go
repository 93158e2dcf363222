// Package crontab models the host scheduler's entry list and the subset of it
// this application owns. Ownership is tracked with a trailing marker comment
// so that entries written by other tools or by hand survive a full rewrite
// untouched.
package crontab

import (
	"fmt"
	"strings"
)

// Marker is the comment tag identifying lines managed by this application
const Marker = "# NEWS-WEAVER:"

// ProcessorOwner is the owner identity of the batch processing entry. Source
// entries use the numeric source id instead.
const ProcessorOwner = "processor"

// Entry is one managed line: a schedule expression, a command, and the owner
// identity embedded in the marker.
type Entry struct {
	Schedule string
	Command  string
	Owner    string
}

// Render produces the crontab line for the entry
func (e Entry) Render() string {
	return fmt.Sprintf("%s %s %s%s", e.Schedule, e.Command, Marker, e.Owner)
}

// IsManaged reports whether a crontab line carries the ownership marker
func IsManaged(line string) bool {
	return strings.Contains(line, Marker)
}

// ParseManaged splits a managed line into its entry. Lines without the marker
// return ok=false and must be preserved verbatim by callers.
func ParseManaged(line string) (Entry, bool) {
	idx := strings.Index(line, Marker)
	if idx < 0 {
		return Entry{}, false
	}

	owner := strings.TrimSpace(line[idx+len(Marker):])
	body := strings.TrimSpace(line[:idx])

	// A standard schedule expression is the first five fields.
	fields := strings.Fields(body)
	if len(fields) < 6 {
		return Entry{}, false
	}
	schedule := strings.Join(fields[:5], " ")
	command := strings.Join(fields[5:], " ")

	return Entry{Schedule: schedule, Command: command, Owner: owner}, true
}
