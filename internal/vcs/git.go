package vcs

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/klauern/profilesync/internal/logging"
	"github.com/klauern/profilesync/internal/model"
)

// BootstrapMessage is the commit message of the initial-setup commit. It is
// filtered out of snapshot listings.
const BootstrapMessage = "Initial setup"

// primaryBranches are the branch names tolerated as the shared history
// line, in preference order.
var primaryBranches = []string{"main", "master"}

// Git drives the git binary for one repository directory.
type Git struct {
	dir string
	run Runner
	log *slog.Logger
}

// Option configures a Git adapter.
type Option func(*Git)

// WithRunner substitutes the command runner (used by tests).
func WithRunner(r Runner) Option {
	return func(g *Git) { g.run = r }
}

// WithLogger sets the adapter logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Git) { g.log = l }
}

// New creates an adapter for the repository at dir.
func New(dir string, opts ...Option) *Git {
	g := &Git{dir: dir, run: ExecRunner{}}
	for _, opt := range opts {
		opt(g)
	}
	if g.log == nil {
		g.log = logging.Default()
	}
	return g
}

// Dir returns the repository directory.
func (g *Git) Dir() string {
	return g.dir
}

// git runs a git command inside the repository directory.
func (g *Git) git(ctx context.Context, args ...string) (Result, error) {
	return g.run.Run(ctx, g.dir, nil, args...)
}

// Available checks that the git binary can be executed at all.
func (g *Git) Available(ctx context.Context) error {
	res, err := g.run.Run(ctx, "", nil, "--version")
	if err != nil || !res.OK() {
		return fmt.Errorf("git not found; install git or Xcode Command Line Tools")
	}
	return nil
}

// ValidateRemote checks the remote URL format and probes access with a
// lightweight ls-remote handshake (no clone). Failures come back classified.
func (g *Git) ValidateRemote(ctx context.Context, remote string) error {
	remote = strings.TrimSpace(remote)
	if remote == "" {
		return &Error{Kind: KindOther, Op: "ls-remote", Stderr: "remote URL is empty"}
	}

	isSSH := strings.HasPrefix(remote, "git@")
	isHTTP := strings.HasPrefix(remote, "https://") || strings.HasPrefix(remote, "http://")
	switch {
	case isSSH:
		if !strings.Contains(remote, ":") {
			return &Error{Kind: KindOther, Op: "ls-remote",
				Stderr: "SSH URL format invalid (expected git@host:user/repo.git)"}
		}
	case isHTTP:
		if u, err := url.Parse(remote); err != nil || u.Host == "" {
			return &Error{Kind: KindOther, Op: "ls-remote", Stderr: "HTTP URL format invalid"}
		}
	default:
		return &Error{Kind: KindOther, Op: "ls-remote",
			Stderr: "remote URL must be SSH (git@...) or HTTPS (https://...)"}
	}

	res, err := g.run.Run(ctx, "", nil, "ls-remote", remote, "HEAD")
	if err != nil {
		return err
	}
	if !res.OK() {
		return classify("ls-remote", res)
	}
	return nil
}

// CloneOrAttach clones the remote into the repository directory, or, when a
// clone already exists there, verifies the origin linkage without any
// destructive action. A URL mismatch is logged, not fatal.
func (g *Git) CloneOrAttach(ctx context.Context, remote string) error {
	if _, err := os.Stat(filepath.Join(g.dir, ".git")); err == nil {
		res, err := g.git(ctx, "remote", "get-url", "origin")
		if err != nil {
			return err
		}
		if !res.OK() {
			if res, err = g.git(ctx, "remote", "add", "origin", remote); err != nil {
				return err
			} else if !res.OK() {
				return classify("remote add", res)
			}
			return nil
		}
		if current := res.Out(); current != remote {
			g.log.Warn("repository origin differs from configured remote",
				slog.String("origin", current), slog.String("configured", remote))
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(g.dir), 0o750); err != nil {
		return err
	}
	res, err := g.run.Run(ctx, "", nil, "clone", remote, g.dir)
	if err != nil {
		return err
	}
	if !res.OK() {
		return classify("clone", res)
	}
	return nil
}

// Fetch refreshes remote-tracking refs. It never touches the working tree.
func (g *Git) Fetch(ctx context.Context) error {
	res, err := g.git(ctx, "fetch", "--prune", "origin")
	if err != nil {
		return err
	}
	if !res.OK() {
		return classify("fetch", res)
	}
	return nil
}

// RemoteHasCommits probes whether origin has any commits at all. Probe
// failure is treated as "no", not as an error.
func (g *Git) RemoteHasCommits(ctx context.Context) bool {
	res, err := g.git(ctx, "ls-remote", "origin", "HEAD")
	return err == nil && res.OK() && res.Out() != ""
}

// HasCommits reports whether the local repository has any commits.
func (g *Git) HasCommits(ctx context.Context) bool {
	res, err := g.git(ctx, "rev-parse", "HEAD")
	return err == nil && res.OK()
}

// Head returns the local head hash. ok is false when there are no commits.
func (g *Git) Head(ctx context.Context) (hash string, ok bool) {
	res, err := g.git(ctx, "rev-parse", "HEAD")
	if err != nil || !res.OK() {
		return "", false
	}
	return res.Out(), true
}

// RemoteHead returns the remote primary-branch head. A missing remote
// branch is an expected absence, not an error.
func (g *Git) RemoteHead(ctx context.Context) (hash string, ok bool) {
	for _, branch := range primaryBranches {
		res, err := g.git(ctx, "rev-parse", "--verify", "origin/"+branch)
		if err == nil && res.OK() {
			return res.Out(), true
		}
	}
	return "", false
}

// remoteRef returns the remote-tracking ref of the primary branch, or ""
// when the remote branch does not exist yet.
func (g *Git) remoteRef(ctx context.Context) string {
	for _, branch := range primaryBranches {
		res, err := g.git(ctx, "rev-parse", "--verify", "origin/"+branch)
		if err == nil && res.OK() {
			return "origin/" + branch
		}
	}
	return ""
}

// AheadBehind counts commits unique to local head (ahead) and to the
// remote primary branch (behind). With no remote branch both are zero.
func (g *Git) AheadBehind(ctx context.Context) (ahead, behind int, err error) {
	ref := g.remoteRef(ctx)
	if ref == "" {
		return 0, 0, nil
	}
	res, err := g.git(ctx, "rev-list", "--left-right", "--count", "HEAD..."+ref)
	if err != nil {
		return 0, 0, err
	}
	if !res.OK() {
		return 0, 0, classify("rev-list", res)
	}
	fields := strings.Fields(res.Out())
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("unexpected rev-list output %q", res.Out())
	}
	ahead, _ = strconv.Atoi(fields[0])
	behind, _ = strconv.Atoi(fields[1])
	return ahead, behind, nil
}

// IsAncestor reports whether commit a is an ancestor of commit b.
func (g *Git) IsAncestor(ctx context.Context, a, b string) bool {
	res, err := g.git(ctx, "merge-base", "--is-ancestor", a, b)
	return err == nil && res.OK()
}

// StatusPorcelain returns machine-readable working-tree status.
func (g *Git) StatusPorcelain(ctx context.Context) (string, error) {
	res, err := g.git(ctx, "status", "--porcelain")
	if err != nil {
		return "", err
	}
	if !res.OK() {
		return "", classify("status", res)
	}
	return res.Stdout, nil
}

// IsDirty reports whether the working tree has uncommitted changes.
func (g *Git) IsDirty(ctx context.Context) (bool, error) {
	status, err := g.StatusPorcelain(ctx)
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(status) != "", nil
}

// CommitIfDirty stages everything and commits iff the tree is non-clean.
// Returns whether a commit was created.
func (g *Git) CommitIfDirty(ctx context.Context, message string) (bool, error) {
	if res, err := g.git(ctx, "add", "-A"); err != nil {
		return false, err
	} else if !res.OK() {
		return false, classify("add", res)
	}

	dirty, err := g.IsDirty(ctx)
	if err != nil || !dirty {
		return false, err
	}

	res, err := g.git(ctx, "commit", "-m", message)
	if err != nil {
		return false, err
	}
	if !res.OK() {
		return false, classify("commit", res)
	}
	return true, nil
}

// RebaseOntoRemote replays local commits on top of the remote primary
// branch. It is a no-op when the remote branch is absent or already equal
// to the local head. Uncommitted changes are stashed around the rebase;
// if the stash cannot be reapplied afterwards it is dropped and its ref
// is logged so the work remains recoverable.
func (g *Git) RebaseOntoRemote(ctx context.Context) error {
	ref := g.remoteRef(ctx)
	if ref == "" {
		return nil
	}

	local, _ := g.Head(ctx)
	res, err := g.git(ctx, "rev-parse", ref)
	if err != nil {
		return err
	}
	if res.OK() && res.Out() == local {
		return nil
	}

	dirty, err := g.IsDirty(ctx)
	if err != nil {
		return err
	}
	if dirty {
		if res, err = g.git(ctx, "stash", "push", "-m", "profilesync auto-stash before rebase"); err != nil {
			return err
		} else if !res.OK() {
			return classify("stash", res)
		}
	}

	res, err = g.git(ctx, "rebase", ref)
	if err != nil {
		return err
	}
	rebaseRes := res

	if dirty {
		if popRes, popErr := g.git(ctx, "stash", "pop"); popErr == nil && !popRes.OK() {
			stashRef, _ := g.git(ctx, "rev-parse", "stash@{0}")
			g.log.Warn("stash reapply failed; dropping stash as already applied",
				logging.Ref(stashRef.Out()))
			_, _ = g.git(ctx, "stash", "drop")
		}
	}

	if !rebaseRes.OK() {
		return &RebaseError{
			HadConflicts: g.HasConflicts(ctx),
			Stderr:       strings.TrimSpace(rebaseRes.Stderr),
		}
	}
	return nil
}

// Push publishes the primary branch. The first push establishes upstream
// tracking, tolerating a default-branch-name mismatch by retrying with the
// actual current branch.
func (g *Git) Push(ctx context.Context) error {
	res, err := g.git(ctx, "rev-parse", "--abbrev-ref", "--symbolic-full-name", "@{u}")
	if err != nil {
		return err
	}
	if res.OK() {
		if res, err = g.git(ctx, "push"); err != nil {
			return err
		} else if !res.OK() {
			return classify("push", res)
		}
		return nil
	}

	// No upstream yet: first push.
	res, err = g.git(ctx, "push", "-u", "origin", primaryBranches[0])
	if err != nil {
		return err
	}
	if res.OK() {
		return nil
	}

	branchRes, err := g.git(ctx, "branch", "--show-current")
	if err != nil {
		return err
	}
	branch := branchRes.Out()
	if branch == "" {
		branch = primaryBranches[0]
	}
	res, err = g.git(ctx, "push", "-u", "origin", branch)
	if err != nil {
		return err
	}
	if !res.OK() {
		return classify("push", res)
	}
	return nil
}

// HasConflicts reports whether a rebase or merge is in progress or the
// status lists unmerged paths.
func (g *Git) HasConflicts(ctx context.Context) bool {
	gitDir := filepath.Join(g.dir, ".git")
	for _, marker := range []string{"rebase-merge", "rebase-apply", "MERGE_HEAD"} {
		if _, err := os.Stat(filepath.Join(gitDir, marker)); err == nil {
			return true
		}
	}
	status, err := g.StatusPorcelain(ctx)
	if err != nil {
		return false
	}
	return len(parseConflictedPaths(status)) > 0
}

// ConflictedPaths returns the repository-absolute paths of unmerged files.
func (g *Git) ConflictedPaths(ctx context.Context) ([]string, error) {
	status, err := g.StatusPorcelain(ctx)
	if err != nil {
		return nil, err
	}
	rels := parseConflictedPaths(status)
	paths := make([]string, len(rels))
	for i, rel := range rels {
		paths[i] = filepath.Join(g.dir, rel)
	}
	return paths, nil
}

// AbortInProgress aborts an active rebase or merge, restoring the
// pre-operation working tree.
func (g *Git) AbortInProgress(ctx context.Context) error {
	gitDir := filepath.Join(g.dir, ".git")
	op := "merge"
	if pathExists(filepath.Join(gitDir, "rebase-merge")) || pathExists(filepath.Join(gitDir, "rebase-apply")) {
		op = "rebase"
	}
	res, err := g.git(ctx, op, "--abort")
	if err != nil {
		return err
	}
	if !res.OK() {
		return classify(op+" --abort", res)
	}
	return nil
}

// ContinueAfterResolution marks all paths resolved and resumes the
// in-progress rebase, or finishes a merge with a non-interactive commit.
// Fails if conflict markers remain.
func (g *Git) ContinueAfterResolution(ctx context.Context) error {
	if res, err := g.git(ctx, "add", "-A"); err != nil {
		return err
	} else if !res.OK() {
		return classify("add", res)
	}

	gitDir := filepath.Join(g.dir, ".git")
	env := []string{"GIT_EDITOR=true"}
	if pathExists(filepath.Join(gitDir, "rebase-merge")) || pathExists(filepath.Join(gitDir, "rebase-apply")) {
		res, err := g.run.Run(ctx, g.dir, env, "rebase", "--continue")
		if err != nil {
			return err
		}
		if !res.OK() {
			return classify("rebase --continue", res)
		}
		return nil
	}

	res, err := g.run.Run(ctx, g.dir, env, "commit", "--no-edit")
	if err != nil {
		return err
	}
	if !res.OK() {
		return classify("commit", res)
	}
	return nil
}

// ListHistory returns up to limit snapshots, newest first.
func (g *Git) ListHistory(ctx context.Context, limit int) ([]model.Snapshot, error) {
	res, err := g.git(ctx, "log", fmt.Sprintf("-%d", limit), "--pretty=format:%h %cI %s")
	if err != nil {
		return nil, err
	}
	if !res.OK() {
		// No commits yet.
		return nil, nil
	}

	var snapshots []model.Snapshot
	for _, line := range strings.Split(res.Stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, " ", 3)
		if len(parts) < 3 {
			continue
		}
		ts, err := time.Parse(time.RFC3339, parts[1])
		if err != nil {
			ts = time.Time{}
		}
		snapshots = append(snapshots, model.Snapshot{
			Hash:    parts[0],
			Time:    ts,
			Subject: parts[2],
		})
	}
	return snapshots, nil
}

// Checkout checks out an arbitrary ref (detached for commit hashes).
func (g *Git) Checkout(ctx context.Context, ref string) error {
	res, err := g.git(ctx, "checkout", ref)
	if err != nil {
		return err
	}
	if !res.OK() {
		return classify("checkout", res)
	}
	return nil
}

// CheckoutPrimary returns the repository to its primary branch, tolerating
// alternate naming.
func (g *Git) CheckoutPrimary(ctx context.Context) error {
	var lastErr error
	for _, branch := range primaryBranches {
		res, err := g.git(ctx, "checkout", branch)
		if err != nil {
			return err
		}
		if res.OK() {
			return nil
		}
		lastErr = classify("checkout", res)
	}
	return lastErr
}

// ResetHard discards all uncommitted tracked changes.
func (g *Git) ResetHard(ctx context.Context) error {
	res, err := g.git(ctx, "reset", "--hard", "HEAD")
	if err != nil {
		return err
	}
	if !res.OK() {
		return classify("reset", res)
	}
	return nil
}

// CleanUntracked removes untracked files and directories.
func (g *Git) CleanUntracked(ctx context.Context) error {
	res, err := g.git(ctx, "clean", "-fd")
	if err != nil {
		return err
	}
	if !res.OK() {
		return classify("clean", res)
	}
	return nil
}

// ShowFile returns the content of a repository-relative path at ref.
// ok is false when the path does not exist at that ref.
func (g *Git) ShowFile(ctx context.Context, ref, rel string) (content string, ok bool) {
	res, err := g.git(ctx, "show", ref+":"+filepath.ToSlash(rel))
	if err != nil || !res.OK() {
		return "", false
	}
	return res.Stdout, true
}

// LastSyncTime returns the committer time of the newest remote commit that
// touched the profiles tree.
func (g *Git) LastSyncTime(ctx context.Context) (time.Time, bool) {
	ref := g.remoteRef(ctx)
	if ref == "" {
		return time.Time{}, false
	}
	res, err := g.git(ctx, "log", "-1", "--pretty=format:%cI", ref, "--", model.RepoProfilesDir)
	if err != nil || !res.OK() || res.Out() == "" {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339, res.Out())
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// InitializeEmpty writes the bootstrap README and profiles/.gitkeep and
// commits them locally. The bootstrap commit is intentionally not pushed;
// the first explicit save publishes it.
func (g *Git) InitializeEmpty(ctx context.Context) error {
	readme := "# Slicer Profile Sync\n\n" +
		"This repository contains synced 3D printer slicer profiles.\n\n" +
		"Managed by profilesync.\n"
	if err := os.WriteFile(filepath.Join(g.dir, "README.md"), []byte(readme), 0o644); err != nil {
		return err
	}

	profilesDir := filepath.Join(g.dir, model.RepoProfilesDir)
	if err := os.MkdirAll(profilesDir, 0o750); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(profilesDir, ".gitkeep"), nil, 0o644); err != nil {
		return err
	}

	if _, err := g.CommitIfDirty(ctx, BootstrapMessage); err != nil {
		return err
	}

	res, err := g.git(ctx, "branch", "-M", primaryBranches[0])
	if err != nil {
		return err
	}
	if !res.OK() {
		if res, err = g.git(ctx, "branch", "-M", primaryBranches[1]); err != nil {
			return err
		} else if !res.OK() {
			return classify("branch", res)
		}
	}
	return nil
}

// parseConflictedPaths extracts unmerged paths from porcelain status.
func parseConflictedPaths(status string) []string {
	var paths []string
	for _, line := range strings.Split(status, "\n") {
		if len(line) < 4 {
			continue
		}
		code := line[:2]
		switch code {
		case "UU", "AA", "DD", "AU", "UA", "DU", "UD":
			paths = append(paths, unquotePath(strings.TrimSpace(line[3:])))
		}
	}
	return paths
}

// unquotePath undoes git's C-style quoting of filenames with special
// characters, e.g. "profiles/orcaslicer/filament/Bambu ABS - Tuned.json".
func unquotePath(p string) string {
	if len(p) < 2 || p[0] != '"' || p[len(p)-1] != '"' {
		return p
	}
	if unquoted, err := strconv.Unquote(p); err == nil {
		return unquoted
	}
	return p[1 : len(p)-1]
}

func pathExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
