package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"runtime"
	"strings"
	"testing"
)

func captureVersionOutput(t *testing.T) string {
	t.Helper()

	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	err := Run(context.Background(), []string{"profilesync", "version"})

	if closeErr := w.Close(); closeErr != nil {
		t.Fatalf("failed to close pipe writer: %v", closeErr)
	}
	os.Stdout = old

	var buf bytes.Buffer
	if _, copyErr := io.Copy(&buf, r); copyErr != nil {
		t.Fatalf("failed to read captured output: %v", copyErr)
	}
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	return buf.String()
}

func TestVersionCommandOutputFormat(t *testing.T) {
	output := captureVersionOutput(t)

	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines of output, got %d: %q", len(lines), output)
	}
	if !strings.HasPrefix(lines[0], "profilesync version ") {
		t.Errorf("first line should start with 'profilesync version ', got %q", lines[0])
	}

	expectedLabels := []string{"version", "commit:", "built:", "go:"}
	for i, label := range expectedLabels {
		if !strings.Contains(lines[i], label) {
			t.Errorf("line %d should contain %q, got %q", i+1, label, lines[i])
		}
	}
}

func TestVersionCommandIncludesVariables(t *testing.T) {
	output := captureVersionOutput(t)

	for name, value := range map[string]string{
		"Version":    Version,
		"Commit":     Commit,
		"BuildDate":  BuildDate,
		"Go version": runtime.Version(),
	} {
		if !strings.Contains(output, value) {
			t.Errorf("output should contain %s %q, got %q", name, value, output)
		}
	}
}

func TestVersionCommandDefinition(t *testing.T) {
	cmd := versionCommand()

	if cmd.Name != "version" {
		t.Errorf("command name = %q, want %q", cmd.Name, "version")
	}
	if cmd.Usage == "" {
		t.Error("command should have usage text")
	}
	if cmd.Action == nil {
		t.Error("command should have an action function")
	}
}
