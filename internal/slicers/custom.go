package slicers

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/klauern/profilesync/internal/model"
	"github.com/klauern/profilesync/internal/util"
)

// customFileName is the optional user-maintained registration file living
// next to the main config.
const customFileName = "slicers.toml"

func customFilePath() string {
	return filepath.Join(util.ConfigDir(), customFileName)
}

// customFile is the on-disk shape of slicers.toml:
//
//	[slicers.mycoolslicer]
//	display = "My Cool Slicer"
//	profile_dirs = ["~/Library/Application Support/MyCoolSlicer/user/default"]
type customFile struct {
	Slicers map[string]customEntry `toml:"slicers"`
}

type customEntry struct {
	Display     string   `toml:"display"`
	ProfileDirs []string `toml:"profile_dirs"`
}

// LoadCustom reads user-registered slicer applications from a TOML file.
// A missing file yields an empty list; a malformed one is an error so the
// user finds out instead of silently losing a registration.
func LoadCustom(path string) ([]model.ProfileSet, error) {
	// #nosec G304 - path is under the trusted config directory
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var file customFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	sets := make([]model.ProfileSet, 0, len(file.Slicers))
	for key, entry := range file.Slicers {
		if key == "" || len(entry.ProfileDirs) == 0 {
			continue
		}
		display := entry.Display
		if display == "" {
			display = model.DisplayName(key)
		}
		sets = append(sets, model.ProfileSet{
			Key:         key,
			Display:     display,
			ProfileDirs: util.ExpandPaths(entry.ProfileDirs),
		})
	}

	// Deterministic order for display and tests.
	sort.Slice(sets, func(i, j int) bool { return sets[i].Key < sets[j].Key })
	return sets, nil
}
