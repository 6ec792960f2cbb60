package model

// Profile describes one profile file present in the repository tree,
// annotated with its relationship to the local copy. Used by the pull
// selection screen to pre-select new and changed entries.
type Profile struct {
	// SetKey is the owning profile-set key.
	SetKey string

	// Type is the first path segment under the set root (filament, process,
	// printer, ...), title-cased for display.
	Type string

	// Filename is the base name of the profile file.
	Filename string

	// RepoPath is the absolute path inside the repository tree.
	RepoPath string

	// LocalPath is the absolute path in the profile set's import directory.
	LocalPath string

	// LocalExists reports whether a file is present at LocalPath.
	LocalExists bool

	// MatchesLocal reports whether the repository content is byte-identical
	// to the local copy. Always false when LocalExists is false.
	MatchesLocal bool
}
