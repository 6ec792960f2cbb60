// Package vcs wraps the git command-line tool behind a typed adapter.
// Every mutating operation returns structured errors from a closed set of
// kinds; raw git diagnostics never leak past this package.
package vcs

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
)

// Result captures one git invocation.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// OK reports whether the command exited zero.
func (r Result) OK() bool {
	return r.ExitCode == 0
}

// Out returns stdout with surrounding whitespace trimmed.
func (r Result) Out() string {
	return strings.TrimSpace(r.Stdout)
}

// Runner executes git commands. The production implementation shells out;
// tests substitute a scripted mock.
type Runner interface {
	// Run executes git with args in dir (empty dir = inherit cwd) and the
	// given extra environment entries. A non-zero exit is reported through
	// Result.ExitCode, not the error; the error is reserved for failures
	// to launch the binary at all.
	Run(ctx context.Context, dir string, env []string, args ...string) (Result, error)
}

// ExecRunner runs the real git binary.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, dir string, env []string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return res, nil
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	default:
		return res, err
	}
}
