package ui

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// OpenEditor opens the given files in the configured editor and waits for
// it to exit. When editorCmd is empty, $GIT_EDITOR then $EDITOR are
// consulted, falling back to vi.
func OpenEditor(ctx context.Context, editorCmd string, paths ...string) error {
	if editorCmd == "" {
		editorCmd = os.Getenv("GIT_EDITOR")
	}
	if editorCmd == "" {
		editorCmd = os.Getenv("EDITOR")
	}
	if editorCmd == "" {
		editorCmd = "vi"
	}

	parts, err := SplitCommand(editorCmd)
	if err != nil {
		return fmt.Errorf("editor command %q: %w", editorCmd, err)
	}
	args := append(parts[1:], paths...)

	// #nosec G204 - the editor command is user configuration
	cmd := exec.CommandContext(ctx, parts[0], args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// SplitCommand splits a command line into arguments, honoring single and
// double quotes so editor configurations like `code --wait` or
// `"/usr/local/bin/my editor" -n` work.
func SplitCommand(cmdline string) ([]string, error) {
	var parts []string
	var current strings.Builder
	var quote rune
	inToken := false

	for _, r := range cmdline {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
			inToken = true
		case r == ' ' || r == '\t':
			if inToken {
				parts = append(parts, current.String())
				current.Reset()
				inToken = false
			}
		default:
			current.WriteRune(r)
			inToken = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated quote")
	}
	if inToken {
		parts = append(parts, current.String())
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty command")
	}
	return parts, nil
}
