package model

import "path/filepath"

// ChangeKind distinguishes the two mirror operations.
type ChangeKind int

const (
	// ChangeUpsert copies Source over Dest (create or update).
	ChangeUpsert ChangeKind = iota
	// ChangeDelete removes Dest; Source is empty.
	ChangeDelete
)

// String returns a human-readable string for ChangeKind.
func (k ChangeKind) String() string {
	switch k {
	case ChangeUpsert:
		return "upsert"
	case ChangeDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Change is one pending mirror operation between a local profile file and
// its repository counterpart. Exactly one Change exists per Dest within a
// change-set; detection is idempotent per path.
type Change struct {
	Kind   ChangeKind
	Source string // absolute source path; empty for ChangeDelete
	Dest   string // absolute destination path
}

// Upsert constructs a create-or-update change.
func Upsert(source, dest string) Change {
	return Change{Kind: ChangeUpsert, Source: source, Dest: dest}
}

// Delete constructs a tombstone change for dest.
func Delete(dest string) Change {
	return Change{Kind: ChangeDelete, Dest: dest}
}

// Name returns the base filename of the destination.
func (c Change) Name() string {
	return filepath.Base(c.Dest)
}

// SyncDirection identifies which way a change-set flows.
type SyncDirection int

const (
	// DirectionPush mirrors local profile directories into the repository.
	DirectionPush SyncDirection = iota
	// DirectionPull copies repository profiles into local directories.
	DirectionPull
)
