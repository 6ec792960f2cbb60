package model

import "time"

// Snapshot identifies a committed repository-tree state that can be
// restored independently of the current head.
type Snapshot struct {
	// Hash is the abbreviated commit hash.
	Hash string

	// Time is the committer timestamp.
	Time time.Time

	// Subject is the commit subject line.
	Subject string
}

// FormatTime renders the snapshot timestamp the way it is presented to the
// user, e.g. "January 02, 2026 at 03:04 PM".
func (s Snapshot) FormatTime() string {
	if s.Time.IsZero() {
		return "(unknown time)"
	}
	return s.Time.Format("January 02, 2006 at 03:04 PM")
}
