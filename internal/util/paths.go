// Package util provides filesystem path helpers shared across profilesync.
package util

import (
	"os"
	"path/filepath"
	"strings"
)

// HomeDir returns the user's home directory.
func HomeDir() string {
	home, _ := os.UserHomeDir()
	return home
}

// ConfigDir returns the profilesync configuration directory.
func ConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "profilesync")
	}
	return filepath.Join(HomeDir(), ".profilesync")
}

// DataDir returns the designated portable data directory. Repository clones
// placed under it are exempt from the development-checkout guard.
func DataDir() string {
	return filepath.Join(ConfigDir(), "data")
}

// ExpandPath expands a leading ~ to the home directory and resolves the
// result to an absolute path. Returns "" for empty input.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if path == "~" {
		return HomeDir()
	}
	if strings.HasPrefix(path, "~/") || strings.HasPrefix(path, `~\`) {
		path = filepath.Join(HomeDir(), path[2:])
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

// ExpandPaths applies ExpandPath to each entry, dropping empties.
func ExpandPaths(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if expanded := ExpandPath(p); expanded != "" {
			out = append(out, expanded)
		}
	}
	return out
}

// IsInside reports whether child is equal to or nested under parent.
func IsInside(child, parent string) bool {
	childAbs, err := filepath.Abs(child)
	if err != nil {
		return false
	}
	parentAbs, err := filepath.Abs(parent)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(parentAbs, childAbs)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// FindVCSRoot walks parent directories from start looking for a .git entry
// and returns the containing directory, or "" if none is found. The walk is
// bounded to avoid pathological filesystem loops.
func FindVCSRoot(start string) string {
	cur, err := filepath.Abs(start)
	if err != nil {
		return ""
	}
	for range 50 {
		if _, err := os.Lstat(filepath.Join(cur, ".git")); err == nil {
			return cur
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return ""
		}
		cur = parent
	}
	return ""
}

// FileExists reports whether path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
