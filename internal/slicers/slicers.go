// Package slicers knows where supported slicer applications keep their
// profile files on each platform, and lets users register additional
// applications through a TOML overrides file.
package slicers

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/klauern/profilesync/internal/model"
	"github.com/klauern/profilesync/internal/util"
)

// Defaults returns the built-in profile sets for the current platform with
// auto-detected profile directories, merged with any custom registrations
// from the overrides file.
func Defaults() []model.ProfileSet {
	return DefaultsFor(runtime.GOOS)
}

// DefaultsFor returns the built-in profile sets for the named GOOS value.
func DefaultsFor(goos string) []model.ProfileSet {
	var base string
	switch goos {
	case "darwin":
		base = filepath.Join(util.HomeDir(), "Library", "Application Support")
	case "windows":
		base = os.Getenv("APPDATA")
		if base == "" {
			base = filepath.Join(util.HomeDir(), "AppData", "Roaming")
		}
	default:
		// Linux and other Unix-likes keep slicer data under XDG config.
		base = os.Getenv("XDG_CONFIG_HOME")
		if base == "" {
			base = filepath.Join(util.HomeDir(), ".config")
		}
	}

	sets := []model.ProfileSet{
		userDirSet("orcaslicer", filepath.Join(base, "OrcaSlicer")),
		userDirSet("bambustudio", filepath.Join(base, "BambuStudio")),
		userDirSet("snapmakerorca", filepath.Join(base, "SnapmakerOrcaSlicer")),
		crealitySet(base),
		userDirSet("elegooslicer", filepath.Join(base, "ElegooSlicer")),
	}

	custom, err := LoadCustom(customFilePath())
	if err == nil {
		sets = append(sets, custom...)
	}
	return sets
}

// userDirSet builds a profile set whose application keeps per-account
// profiles in numeric subdirectories under <root>/user/.
func userDirSet(key, root string) model.ProfileSet {
	dirs := detectUserDirs(root)
	if len(dirs) == 0 {
		dirs = []string{filepath.Join(root, "user", "default")}
	}
	return model.ProfileSet{
		Key:         key,
		Display:     model.DisplayName(key),
		ProfileDirs: dirs,
	}
}

// detectUserDirs finds numeric account subdirectories under root/user/,
// e.g. .../OrcaSlicer/user/12345/. Results are sorted by name.
func detectUserDirs(root string) []string {
	entries, err := os.ReadDir(filepath.Join(root, "user"))
	if err != nil {
		return nil
	}

	var found []string
	for _, entry := range entries {
		if entry.IsDir() && isNumeric(entry.Name()) {
			found = append(found, filepath.Join(root, "user", entry.Name()))
		}
	}
	sort.Strings(found)
	return found
}

// crealitySet probes versioned Creality Print install directories, newest
// known version first.
func crealitySet(base string) model.ProfileSet {
	root := filepath.Join(base, "Creality", "Creality Print")

	dirs := []string{filepath.Join(root, "7.0")}
	for _, version := range []string{"7.0", "6.0"} {
		dir := filepath.Join(root, version)
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			dirs = []string{dir}
			break
		}
	}

	return model.ProfileSet{
		Key:         "crealityprint",
		Display:     model.DisplayName("crealityprint"),
		ProfileDirs: dirs,
	}
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
