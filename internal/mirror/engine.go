// Package mirror keeps profile trees and the sync repository in step. It
// detects changes by content hash, never by timestamp, and produces
// explicit change lists that callers can apply in full or in part.
package mirror

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/klauern/profilesync/internal/logging"
	"github.com/klauern/profilesync/internal/model"
)

// Engine mirrors profile files between the configured slicer directories
// and the repository's profiles tree.
type Engine struct {
	repoDir string
	sets    []model.ProfileSet
	log     *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// New creates an engine for the repository at repoDir covering the given
// profile sets.
func New(repoDir string, sets []model.ProfileSet, opts ...Option) *Engine {
	e := &Engine{repoDir: repoDir, sets: sets}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logging.Default()
	}
	return e
}

// setRoot returns the repository subtree holding one profile set.
func (e *Engine) setRoot(key string) string {
	return filepath.Join(e.repoDir, model.RepoProfilesDir, key)
}

// ScanLocalToRepo compares local profile directories against the
// repository tree and returns the changes a push would mirror: an upsert
// for every local file that is new or differs by content, and a delete
// tombstone for every repository file whose local counterpart is gone.
// When a set has several source directories the first one providing a
// relative path wins.
func (e *Engine) ScanLocalToRepo() ([]model.Change, error) {
	var changes []model.Change

	for _, set := range e.sets {
		sources := make(map[string]string)
		rootPresent := false
		for _, root := range set.ProfileDirs {
			if dirExists(root) {
				rootPresent = true
			}
			files, err := listJSON(root)
			if err != nil {
				return nil, err
			}
			for rel, path := range files {
				if _, ok := sources[rel]; !ok {
					sources[rel] = path
				}
			}
		}

		root := e.setRoot(set.Key)
		for _, rel := range sortedKeys(sources) {
			dest := filepath.Join(root, rel)
			same, err := sameContent(sources[rel], dest)
			if err != nil {
				return nil, err
			}
			if !same {
				changes = append(changes, model.Upsert(sources[rel], dest))
			}
		}

		// Tombstones are only trustworthy when a source directory was
		// actually there. An unmounted drive or a reinstalled app must not
		// turn the whole mirrored set into deletions.
		if !rootPresent {
			e.log.Warn("no profile directory present, keeping mirrored files",
				logging.Slicer(set.Key))
			continue
		}

		mirrored, err := listJSON(root)
		if err != nil {
			return nil, err
		}
		for _, rel := range sortedKeys(mirrored) {
			if _, ok := sources[rel]; !ok {
				changes = append(changes, model.Delete(mirrored[rel]))
			}
		}
	}

	e.log.Debug("scanned local profiles", logging.Count(len(changes)))
	return changes, nil
}

// ScanRepoToLocal compares the repository tree against each set's import
// directory and returns the upserts a pull would apply. Pull never deletes
// local files.
func (e *Engine) ScanRepoToLocal() ([]model.Change, error) {
	var changes []model.Change

	for _, set := range e.sets {
		importDir := set.ImportDir()
		if importDir == "" {
			continue
		}

		mirrored, err := listJSON(e.setRoot(set.Key))
		if err != nil {
			return nil, err
		}
		for _, rel := range sortedKeys(mirrored) {
			dest := filepath.Join(importDir, rel)
			same, err := sameContent(mirrored[rel], dest)
			if err != nil {
				return nil, err
			}
			if !same {
				changes = append(changes, model.Upsert(mirrored[rel], dest))
			}
		}
	}

	e.log.Debug("scanned repository profiles", logging.Count(len(changes)))
	return changes, nil
}

// Apply executes a change list. It is safe on any subset of a scan result:
// each change touches exactly its own destination path.
func (e *Engine) Apply(changes []model.Change) error {
	for _, change := range changes {
		switch change.Kind {
		case model.ChangeDelete:
			if err := os.Remove(change.Dest); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("removing %s: %w", change.Dest, err)
			}
		case model.ChangeUpsert:
			same, err := sameContent(change.Source, change.Dest)
			if err != nil {
				return err
			}
			if same {
				continue
			}
			if err := copyFile(change.Source, change.Dest); err != nil {
				return fmt.Errorf("copying %s: %w", change.Source, err)
			}
		}
	}
	return nil
}

// RebuildFromStatus reconstructs a push change list from porcelain status
// of the repository, recovering visibility over changes mirrored by an
// earlier run that never got committed. A changed repository path whose
// local source still exists becomes an upsert; one whose source is gone
// becomes a delete.
func (e *Engine) RebuildFromStatus(status string) []model.Change {
	var changes []model.Change
	prefix := model.RepoProfilesDir + "/"

	for _, line := range strings.Split(status, "\n") {
		if len(line) < 4 {
			continue
		}
		rel := unquoteStatusPath(strings.TrimSpace(line[3:]))
		rel = filepath.ToSlash(rel)
		if !strings.HasPrefix(rel, prefix) {
			continue
		}

		parts := strings.SplitN(strings.TrimPrefix(rel, prefix), "/", 2)
		if len(parts) != 2 {
			continue
		}
		key, sub := parts[0], filepath.FromSlash(parts[1])

		set, ok := e.findSet(key)
		if !ok {
			continue
		}
		dest := filepath.Join(e.setRoot(key), sub)

		if source, ok := findSource(set, sub); ok {
			changes = append(changes, model.Upsert(source, dest))
		} else {
			changes = append(changes, model.Delete(dest))
		}
	}
	return changes
}

// CollectRemoteProfiles walks the repository tree into profile records,
// marking for each one whether the file in the set's import directory
// already has identical content.
func (e *Engine) CollectRemoteProfiles() ([]model.Profile, error) {
	var profiles []model.Profile

	for _, set := range e.sets {
		mirrored, err := listJSON(e.setRoot(set.Key))
		if err != nil {
			return nil, err
		}
		for _, rel := range sortedKeys(mirrored) {
			localPath := ""
			if dir := set.ImportDir(); dir != "" {
				localPath = filepath.Join(dir, rel)
			}

			localExists := localPath != "" && fileExists(localPath)
			matches := false
			if localExists {
				matches, err = identicalContent(mirrored[rel], localPath)
				if err != nil {
					return nil, err
				}
			}

			profiles = append(profiles, model.Profile{
				SetKey:       set.Key,
				Type:         typeSegment(rel),
				Filename:     filepath.Base(rel),
				RepoPath:     mirrored[rel],
				LocalPath:    localPath,
				LocalExists:  localExists,
				MatchesLocal: matches,
			})
		}
	}
	return profiles, nil
}

// GroupChanges arranges changes by profile-set key and profile type for
// display. The repository-side path carries the grouping information: the
// destination when pushing, the source when pulling.
func (e *Engine) GroupChanges(changes []model.Change, direction model.SyncDirection) map[string]map[string][]model.Change {
	grouped := make(map[string]map[string][]model.Change)

	for _, change := range changes {
		repoPath := change.Dest
		if direction == model.DirectionPull {
			repoPath = change.Source
		}
		key, rel, ok := e.splitRepoPath(repoPath)
		if !ok {
			continue
		}

		typ := typeSegment(rel)
		if grouped[key] == nil {
			grouped[key] = make(map[string][]model.Change)
		}
		grouped[key][typ] = append(grouped[key][typ], change)
	}
	return grouped
}

// HashFile returns the hex sha256 of a file's content.
func HashFile(path string) (string, error) {
	// #nosec G304 - paths come from configured profile directories
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (e *Engine) findSet(key string) (model.ProfileSet, bool) {
	for _, set := range e.sets {
		if set.Key == key {
			return set, true
		}
	}
	return model.ProfileSet{}, false
}

// splitRepoPath resolves a path under the repository profiles tree into
// its set key and set-relative remainder.
func (e *Engine) splitRepoPath(path string) (key, rel string, ok bool) {
	base := filepath.Join(e.repoDir, model.RepoProfilesDir)
	r, err := filepath.Rel(base, path)
	if err != nil || strings.HasPrefix(r, "..") {
		return "", "", false
	}
	parts := strings.SplitN(filepath.ToSlash(r), "/", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], filepath.FromSlash(parts[1]), true
}

// findSource locates the local counterpart of a set-relative path,
// scanning the set's directories in configuration order.
func findSource(set model.ProfileSet, rel string) (string, bool) {
	for _, dir := range set.ProfileDirs {
		path := filepath.Join(dir, rel)
		if fileExists(path) {
			return path, true
		}
	}
	return "", false
}

// typeSegment returns the first path segment of a set-relative path, the
// profile type directory (filament, machine, process).
func typeSegment(rel string) string {
	parts := strings.SplitN(filepath.ToSlash(rel), "/", 2)
	if len(parts) < 2 {
		return ""
	}
	return parts[0]
}

// listJSON maps set-relative paths of all *.json files under root to
// their absolute paths. A missing root yields an empty map.
func listJSON(root string) (map[string]string, error) {
	files := make(map[string]string)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".json") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files[rel] = path
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return files, nil
}

// sameContent reports whether dest exists with content identical to src.
func sameContent(src, dest string) (bool, error) {
	if !fileExists(dest) {
		return false, nil
	}
	return identicalContent(src, dest)
}

func identicalContent(a, b string) (bool, error) {
	ha, err := HashFile(a)
	if err != nil {
		return false, err
	}
	hb, err := HashFile(b)
	if err != nil {
		return false, err
	}
	return ha == hb, nil
}

func copyFile(src, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return err
	}

	// #nosec G304 - paths come from configured profile directories
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// unquoteStatusPath undoes git's C-style quoting in porcelain output.
func unquoteStatusPath(p string) string {
	if len(p) < 2 || p[0] != '"' || p[len(p)-1] != '"' {
		return p
	}
	if unquoted, err := strconv.Unquote(p); err == nil {
		return unquoted
	}
	return p[1 : len(p)-1]
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
