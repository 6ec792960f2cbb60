package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func validConfig() *Config {
	return &Config{
		Remote:      "git@github.com:alice/profiles.git",
		RepoDir:     "/tmp/profiles-repo",
		EnabledSets: []string{"orcaslicer"},
		ProfileDirs: map[string][]string{
			"orcaslicer": {"/tmp/orca/user/default"},
		},
		EditorCmd: "vim",
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	want := validConfig()
	if err := want.SaveToPath(path); err != nil {
		t.Fatalf("SaveToPath() error = %v", err)
	}

	got, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}

	if got.Remote != want.Remote {
		t.Errorf("Remote = %q, want %q", got.Remote, want.Remote)
	}
	if got.RepoDir != want.RepoDir {
		t.Errorf("RepoDir = %q, want %q", got.RepoDir, want.RepoDir)
	}
	if got.EditorCmd != want.EditorCmd {
		t.Errorf("EditorCmd = %q, want %q", got.EditorCmd, want.EditorCmd)
	}
	if len(got.EnabledSets) != 1 || got.EnabledSets[0] != "orcaslicer" {
		t.Errorf("EnabledSets = %v, want [orcaslicer]", got.EnabledSets)
	}
}

func TestLoadMissingFileIsNotConfigured(t *testing.T) {
	_, err := LoadFromPath(filepath.Join(t.TempDir(), "config.yaml"))
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("LoadFromPath() error = %v, want ErrNotConfigured", err)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("remote: [unterminated"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFromPath(path)
	if err == nil {
		t.Fatal("LoadFromPath() should fail on malformed YAML")
	}
	if errors.Is(err, ErrNotConfigured) {
		t.Error("malformed file should not be reported as not configured")
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := validConfig().SaveToPath(path); err != nil {
		t.Fatal(err)
	}

	t.Setenv("PROFILESYNC_REMOTE", "git@github.com:bob/other.git")
	t.Setenv("PROFILESYNC_EDITOR", "code --wait")

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}
	if cfg.Remote != "git@github.com:bob/other.git" {
		t.Errorf("Remote = %q, want env override", cfg.Remote)
	}
	if cfg.EditorCmd != "code --wait" {
		t.Errorf("EditorCmd = %q, want env override", cfg.EditorCmd)
	}
}

func TestEnabledSetsEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := validConfig()
	cfg.ProfileDirs["bambustudio"] = []string{"/tmp/bambu/user/default"}
	if err := cfg.SaveToPath(path); err != nil {
		t.Fatal(err)
	}

	t.Setenv("PROFILESYNC_ENABLED_SETS", " bambustudio , orcaslicer ,")

	got, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}
	want := []string{"bambustudio", "orcaslicer"}
	if len(got.EnabledSets) != len(want) {
		t.Fatalf("EnabledSets = %v, want %v", got.EnabledSets, want)
	}
	for i := range want {
		if got.EnabledSets[i] != want[i] {
			t.Errorf("EnabledSets[%d] = %q, want %q", i, got.EnabledSets[i], want[i])
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing remote", func(c *Config) { c.Remote = "" }, true},
		{"missing repo dir", func(c *Config) { c.RepoDir = "" }, true},
		{"enabled set without dirs", func(c *Config) {
			c.EnabledSets = append(c.EnabledSets, "ghost")
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestProfileSetsMaterializeInConfigOrder(t *testing.T) {
	cfg := validConfig()
	cfg.EnabledSets = []string{"bambustudio", "orcaslicer"}
	cfg.ProfileDirs["bambustudio"] = []string{"/tmp/bambu/user/default"}

	sets := cfg.ProfileSets()
	if len(sets) != 2 {
		t.Fatalf("got %d sets, want 2", len(sets))
	}
	if sets[0].Key != "bambustudio" || sets[1].Key != "orcaslicer" {
		t.Errorf("set order = [%s %s], want config order", sets[0].Key, sets[1].Key)
	}
	if sets[0].Display != "Bambu Studio" {
		t.Errorf("Display = %q, want %q", sets[0].Display, "Bambu Studio")
	}
	if sets[1].ImportDir() != "/tmp/orca/user/default" {
		t.Errorf("ImportDir = %q, want first profile dir", sets[1].ImportDir())
	}
}

func TestTildeExpansionOnLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := validConfig()
	cfg.RepoDir = "~/profiles-repo"
	cfg.ProfileDirs["orcaslicer"] = []string{"~/orca/user/default"}
	if err := cfg.SaveToPath(path); err != nil {
		t.Fatal(err)
	}

	got, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}
	if filepath.IsAbs(got.RepoDir) == false {
		t.Errorf("RepoDir = %q, want absolute after expansion", got.RepoDir)
	}
	if dir := got.ProfileDirs["orcaslicer"][0]; !filepath.IsAbs(dir) {
		t.Errorf("profile dir = %q, want absolute after expansion", dir)
	}
}
