package vcs

import (
	"fmt"
	"strings"
)

// Kind classifies adapter failures into the closed set callers make
// decisions on. Only KindConflict is expected to be recoverable without
// aborting the whole flow.
type Kind int

const (
	// KindOther is an unclassified git failure.
	KindOther Kind = iota
	// KindNetworkUnreachable means the remote host could not be reached.
	KindNetworkUnreachable
	// KindAuthDenied means credentials or SSH keys were rejected.
	KindAuthDenied
	// KindRemoteMissing means the remote repository does not exist or is
	// not accessible as a git repository.
	KindRemoteMissing
	// KindConflict means an operation stopped on unmerged paths.
	KindConflict
)

// String returns a human-readable string for Kind.
func (k Kind) String() string {
	switch k {
	case KindNetworkUnreachable:
		return "network unreachable"
	case KindAuthDenied:
		return "access denied"
	case KindRemoteMissing:
		return "remote repository missing"
	case KindConflict:
		return "conflict"
	default:
		return "git error"
	}
}

// Error is a classified git failure.
type Error struct {
	Kind   Kind
	Op     string // the git operation, e.g. "push", "ls-remote"
	Stderr string // trimmed diagnostic text, for display only
}

func (e *Error) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("git %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("git %s: %s: %s", e.Op, e.Kind, e.Stderr)
}

// RebaseError is raised when a rebase stops. HadConflicts tells the caller
// whether unmerged paths were present, i.e. whether the interactive
// conflict-resolution flow applies.
type RebaseError struct {
	HadConflicts bool
	Stderr       string
}

func (e *RebaseError) Error() string {
	if e.HadConflicts {
		return "rebase stopped on conflicts"
	}
	if e.Stderr == "" {
		return "rebase failed"
	}
	return "rebase failed: " + e.Stderr
}

// classify maps raw git diagnostics to an Error. Substring matching on
// diagnostic text is confined to this function.
func classify(op string, res Result) *Error {
	stderr := strings.TrimSpace(res.Stderr)
	e := &Error{Kind: KindOther, Op: op, Stderr: stderr}

	switch {
	case strings.Contains(stderr, "Could not resolve host"),
		strings.Contains(stderr, "Could not read from remote"),
		strings.Contains(stderr, "Connection timed out"):
		e.Kind = KindNetworkUnreachable
	case strings.Contains(stderr, "Permission denied"),
		strings.Contains(stderr, "Authentication failed"),
		strings.Contains(stderr, "could not read Username"):
		e.Kind = KindAuthDenied
	case strings.Contains(stderr, "Repository not found"),
		strings.Contains(stderr, "does not appear to be a git repository"):
		e.Kind = KindRemoteMissing
	case strings.Contains(stderr, "CONFLICT"),
		strings.Contains(stderr, "Resolve all conflicts"):
		e.Kind = KindConflict
	}
	return e
}
