// Package config provides configuration management for profilesync.
// The configuration is a YAML record with environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/klauern/profilesync/internal/model"
	"github.com/klauern/profilesync/internal/util"
)

// ErrNotConfigured is returned by Load when no config file exists yet.
// Callers surface it as a "run `profilesync init` first" setup error.
var ErrNotConfigured = errors.New("profilesync is not configured")

// Config is the persisted profilesync configuration.
type Config struct {
	// Remote is the git remote URL profiles are synced through.
	Remote string `yaml:"remote"`

	// RepoDir is the local clone directory of the sync repository.
	RepoDir string `yaml:"repo_dir"`

	// EnabledSets lists the profile-set keys selected during setup.
	EnabledSets []string `yaml:"enabled_sets"`

	// ProfileDirs maps profile-set key to its ordered source directories.
	// The first directory is the import target.
	ProfileDirs map[string][]string `yaml:"profile_dirs"`

	// EditorCmd is the external editor command used for conflict
	// resolution, e.g. "vim" or "code --wait". Optional.
	EditorCmd string `yaml:"editor_cmd,omitempty"`
}

// configFileName is the name of the config file.
const configFileName = "config.yaml"

// FilePath returns the path to the config file.
func FilePath() string {
	return filepath.Join(util.ConfigDir(), configFileName)
}

// Exists returns true if a config file exists.
func Exists() bool {
	_, err := os.Stat(FilePath())
	return err == nil
}

// Load reads the configuration from the default path.
func Load() (*Config, error) {
	return LoadFromPath(FilePath())
}

// LoadFromPath reads the configuration from a specific path. A missing file
// is reported as ErrNotConfigured.
func LoadFromPath(path string) (*Config, error) {
	// #nosec G304 - path comes from the trusted config directory or a flag
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: no config at %s", ErrNotConfigured, path)
		}
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.applyEnvironment()
	cfg.expandPaths()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to the config file.
func (c *Config) Save() error {
	return c.SaveToPath(FilePath())
}

// SaveToPath writes the configuration to a specific path.
func (c *Config) SaveToPath(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	// #nosec G306 - config file should be readable by the user
	return os.WriteFile(path, data, 0o644)
}

// Validate checks the record for the fields every sync flow requires.
func (c *Config) Validate() error {
	if c.Remote == "" {
		return errors.New("config: remote URL is empty")
	}
	if c.RepoDir == "" {
		return errors.New("config: repo_dir is empty")
	}
	for _, key := range c.EnabledSets {
		if len(c.ProfileDirs[key]) == 0 {
			return fmt.Errorf("config: enabled set %q has no profile directories", key)
		}
	}
	return nil
}

// ProfileSets materializes the enabled profile sets in config order.
func (c *Config) ProfileSets() []model.ProfileSet {
	sets := make([]model.ProfileSet, 0, len(c.EnabledSets))
	for _, key := range c.EnabledSets {
		sets = append(sets, model.ProfileSet{
			Key:         key,
			Display:     model.DisplayName(key),
			ProfileDirs: c.ProfileDirs[key],
		})
	}
	return sets
}

// applyEnvironment applies environment variable overrides. Variables follow
// the pattern PROFILESYNC_<KEY>.
func (c *Config) applyEnvironment() {
	if v := os.Getenv("PROFILESYNC_REMOTE"); v != "" {
		c.Remote = v
	}
	if v := os.Getenv("PROFILESYNC_REPO_DIR"); v != "" {
		c.RepoDir = v
	}
	if v := os.Getenv("PROFILESYNC_EDITOR"); v != "" {
		c.EditorCmd = v
	}
	if v := os.Getenv("PROFILESYNC_ENABLED_SETS"); v != "" {
		c.EnabledSets = splitList(v)
	}
}

// expandPaths normalizes ~ and relative paths in the record.
func (c *Config) expandPaths() {
	c.RepoDir = util.ExpandPath(c.RepoDir)
	for key, dirs := range c.ProfileDirs {
		c.ProfileDirs[key] = util.ExpandPaths(dirs)
	}
}

// splitList splits a comma-separated list, dropping empty segments.
func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
