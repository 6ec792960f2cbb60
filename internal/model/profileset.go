// Package model defines the core domain types for profilesync.
package model

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// RepoProfilesDir is the top-level directory inside the sync repository
// under which all profile trees live: profiles/<set key>/<type>/<file>.
const RepoProfilesDir = "profiles"

// ProfileSet is one registered slicer application: a stable key, a display
// name, and the ordered list of directories scanned for profile files.
// The first directory is the import target; all directories are export
// sources. A ProfileSet is immutable during a sync session.
type ProfileSet struct {
	// Key is the stable identifier used in config and the repository layout
	// (e.g. "orcaslicer").
	Key string

	// Display is the human-readable application name (e.g. "Orca Slicer").
	Display string

	// ProfileDirs is the ordered list of local directories holding profile
	// JSON files for this application.
	ProfileDirs []string
}

// ImportDir returns the directory profiles are restored into, or empty if
// no directories are configured.
func (ps ProfileSet) ImportDir() string {
	if len(ps.ProfileDirs) == 0 {
		return ""
	}
	return ps.ProfileDirs[0]
}

// displayNames maps built-in profile-set keys to display names.
var displayNames = map[string]string{
	"orcaslicer":    "Orca Slicer",
	"bambustudio":   "Bambu Studio",
	"snapmakerorca": "Snapmaker Orca",
	"crealityprint": "Creality Print",
	"elegooslicer":  "Elegoo Slicer",
}

var titleCaser = cases.Title(language.English)

// DisplayName returns the display name for a profile-set key, falling back
// to a title-cased key for custom registrations.
func DisplayName(key string) string {
	if name, ok := displayNames[key]; ok {
		return name
	}
	return titleCaser.String(key)
}
