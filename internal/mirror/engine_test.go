package mirror

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauern/profilesync/internal/model"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

// newTestEngine wires one orcaslicer set with a single local directory.
func newTestEngine(t *testing.T) (*Engine, string, string) {
	t.Helper()
	localDir := t.TempDir()
	repoDir := t.TempDir()
	set := model.ProfileSet{
		Key:         "orcaslicer",
		Display:     "Orca Slicer",
		ProfileDirs: []string{localDir},
	}
	return New(repoDir, []model.ProfileSet{set}), localDir, repoDir
}

func TestScanLocalToRepoDetectsNewAndChanged(t *testing.T) {
	e, localDir, repoDir := newTestEngine(t)

	writeFile(t, filepath.Join(localDir, "filament", "PLA.json"), `{"temp": 210}`)
	writeFile(t, filepath.Join(localDir, "machine", "X1C.json"), `{"bed": 256}`)
	writeFile(t, filepath.Join(repoDir, "profiles", "orcaslicer", "machine", "X1C.json"), `{"bed": 220}`)
	writeFile(t, filepath.Join(localDir, "notes.txt"), "not a profile")

	changes, err := e.ScanLocalToRepo()
	if err != nil {
		t.Fatalf("ScanLocalToRepo() error = %v", err)
	}
	if len(changes) != 2 {
		t.Fatalf("len(changes) = %d, want 2: %v", len(changes), changes)
	}
	for _, c := range changes {
		if c.Kind != model.ChangeUpsert {
			t.Errorf("change %v: kind = %v, want upsert", c, c.Kind)
		}
	}
}

func TestScanIsIdempotentAfterApply(t *testing.T) {
	e, localDir, _ := newTestEngine(t)

	writeFile(t, filepath.Join(localDir, "filament", "PLA.json"), `{"temp": 210}`)

	changes, err := e.ScanLocalToRepo()
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Apply(changes); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	again, err := e.ScanLocalToRepo()
	if err != nil {
		t.Fatal(err)
	}
	if len(again) != 0 {
		t.Errorf("second scan = %v, want empty", again)
	}
}

func TestTimestampTouchIsNotAChange(t *testing.T) {
	e, localDir, repoDir := newTestEngine(t)

	local := filepath.Join(localDir, "filament", "PLA.json")
	mirroredCopy := filepath.Join(repoDir, "profiles", "orcaslicer", "filament", "PLA.json")
	writeFile(t, local, `{"temp": 210}`)
	writeFile(t, mirroredCopy, `{"temp": 210}`)

	past := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(local, past, past); err != nil {
		t.Fatal(err)
	}

	changes, err := e.ScanLocalToRepo()
	if err != nil {
		t.Fatal(err)
	}
	if len(changes) != 0 {
		t.Errorf("changes = %v, want empty for identical content", changes)
	}
}

func TestLocalDeletionBecomesTombstone(t *testing.T) {
	e, localDir, repoDir := newTestEngine(t)

	writeFile(t, filepath.Join(localDir, "filament", "PLA.json"), `{"temp": 210}`)
	mirroredCopy := filepath.Join(repoDir, "profiles", "orcaslicer", "filament", "old.json")
	writeFile(t, mirroredCopy, `{"temp": 190}`)

	changes, err := e.ScanLocalToRepo()
	if err != nil {
		t.Fatal(err)
	}

	var deletes []model.Change
	for _, c := range changes {
		if c.Kind == model.ChangeDelete {
			deletes = append(deletes, c)
		}
	}
	if len(deletes) != 1 || deletes[0].Dest != mirroredCopy {
		t.Fatalf("deletes = %v, want exactly one for %s", deletes, mirroredCopy)
	}

	if err := e.Apply(changes); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(mirroredCopy); !os.IsNotExist(err) {
		t.Error("tombstoned file still present after apply")
	}
}

func TestAbsentProfileDirKeepsMirroredFiles(t *testing.T) {
	repoDir := t.TempDir()
	missingDir := filepath.Join(t.TempDir(), "gone", "user", "default")
	set := model.ProfileSet{
		Key:         "orcaslicer",
		Display:     "Orca Slicer",
		ProfileDirs: []string{missingDir},
	}
	e := New(repoDir, []model.ProfileSet{set})

	writeFile(t, filepath.Join(repoDir, "profiles", "orcaslicer", "filament", "PLA.json"), `{"temp": 210}`)
	writeFile(t, filepath.Join(repoDir, "profiles", "orcaslicer", "machine", "X1C.json"), `{"bed": 256}`)

	changes, err := e.ScanLocalToRepo()
	if err != nil {
		t.Fatalf("ScanLocalToRepo() error = %v", err)
	}
	if len(changes) != 0 {
		t.Fatalf("changes = %v, want none when no profile directory exists", changes)
	}
}

func TestEmptyProfileDirStillTombstones(t *testing.T) {
	e, _, repoDir := newTestEngine(t)

	mirroredCopy := filepath.Join(repoDir, "profiles", "orcaslicer", "filament", "PLA.json")
	writeFile(t, mirroredCopy, `{"temp": 210}`)

	changes, err := e.ScanLocalToRepo()
	if err != nil {
		t.Fatal(err)
	}
	if len(changes) != 1 || changes[0].Kind != model.ChangeDelete || changes[0].Dest != mirroredCopy {
		t.Fatalf("changes = %v, want one delete for %s", changes, mirroredCopy)
	}
}

func TestApplySkipsIdenticalContent(t *testing.T) {
	e, localDir, repoDir := newTestEngine(t)

	source := filepath.Join(localDir, "filament", "PLA.json")
	dest := filepath.Join(repoDir, "profiles", "orcaslicer", "filament", "PLA.json")
	writeFile(t, source, `{"temp": 210}`)
	writeFile(t, dest, `{"temp": 210}`)

	past := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(dest, past, past); err != nil {
		t.Fatal(err)
	}

	if err := e.Apply([]model.Change{model.Upsert(source, dest)}); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	info, err := os.Stat(dest)
	if err != nil {
		t.Fatal(err)
	}
	if info.ModTime().After(past.Add(time.Minute)) {
		t.Errorf("destination rewritten despite identical content, mtime = %v", info.ModTime())
	}
}

func TestPartialApplyLeavesRemainderDetectable(t *testing.T) {
	e, localDir, _ := newTestEngine(t)

	writeFile(t, filepath.Join(localDir, "filament", "PLA.json"), `{"temp": 210}`)
	writeFile(t, filepath.Join(localDir, "filament", "PETG.json"), `{"temp": 240}`)
	writeFile(t, filepath.Join(localDir, "machine", "X1C.json"), `{"bed": 256}`)

	changes, err := e.ScanLocalToRepo()
	if err != nil {
		t.Fatal(err)
	}
	if len(changes) != 3 {
		t.Fatalf("len(changes) = %d, want 3", len(changes))
	}

	if err := e.Apply(changes[:1]); err != nil {
		t.Fatal(err)
	}

	remaining, err := e.ScanLocalToRepo()
	if err != nil {
		t.Fatal(err)
	}
	if len(remaining) != 2 {
		t.Errorf("remaining = %v, want the 2 unapplied changes", remaining)
	}
	for _, c := range remaining {
		if c.Dest == changes[0].Dest {
			t.Errorf("applied change %v reported again", c)
		}
	}
}

// The round trip a modified PLA.json makes through a push on one machine
// and a pull on another.
func TestModifiedProfileRoundTrip(t *testing.T) {
	repoDir := t.TempDir()
	machineA := t.TempDir()
	machineB := t.TempDir()

	setFor := func(dir string) []model.ProfileSet {
		return []model.ProfileSet{{Key: "orcaslicer", Display: "Orca Slicer", ProfileDirs: []string{dir}}}
	}

	writeFile(t, filepath.Join(machineA, "filament", "PLA.json"), `{"temp": 215}`)
	writeFile(t, filepath.Join(machineB, "filament", "PLA.json"), `{"temp": 210}`)

	pushEngine := New(repoDir, setFor(machineA))
	changes, err := pushEngine.ScanLocalToRepo()
	if err != nil {
		t.Fatal(err)
	}
	if err := pushEngine.Apply(changes); err != nil {
		t.Fatal(err)
	}

	pullEngine := New(repoDir, setFor(machineB))
	pulls, err := pullEngine.ScanRepoToLocal()
	if err != nil {
		t.Fatal(err)
	}
	if len(pulls) != 1 {
		t.Fatalf("pulls = %v, want one change", pulls)
	}
	if err := pullEngine.Apply(pulls); err != nil {
		t.Fatal(err)
	}

	got := readFile(t, filepath.Join(machineB, "filament", "PLA.json"))
	if got != `{"temp": 215}` {
		t.Errorf("pulled content = %q, want machine A's version", got)
	}
}

func TestPullNeverDeletes(t *testing.T) {
	e, localDir, _ := newTestEngine(t)

	writeFile(t, filepath.Join(localDir, "filament", "LocalOnly.json"), `{"temp": 200}`)

	pulls, err := e.ScanRepoToLocal()
	if err != nil {
		t.Fatal(err)
	}
	if len(pulls) != 0 {
		t.Errorf("pulls = %v, want empty when repo has nothing", pulls)
	}
}

func TestRebuildFromStatus(t *testing.T) {
	e, localDir, repoDir := newTestEngine(t)

	writeFile(t, filepath.Join(localDir, "filament", "PLA.json"), `{"temp": 210}`)

	status := " M profiles/orcaslicer/filament/PLA.json\n" +
		" D profiles/orcaslicer/filament/gone.json\n" +
		"?? README.md\n"

	changes := e.RebuildFromStatus(status)
	if len(changes) != 2 {
		t.Fatalf("changes = %v, want 2", changes)
	}

	if changes[0].Kind != model.ChangeUpsert {
		t.Errorf("kind = %v, want upsert for a path with a live source", changes[0].Kind)
	}
	if changes[0].Source != filepath.Join(localDir, "filament", "PLA.json") {
		t.Errorf("Source = %q", changes[0].Source)
	}

	if changes[1].Kind != model.ChangeDelete {
		t.Errorf("kind = %v, want delete for a path with no source", changes[1].Kind)
	}
	if changes[1].Dest != filepath.Join(repoDir, "profiles", "orcaslicer", "filament", "gone.json") {
		t.Errorf("Dest = %q", changes[1].Dest)
	}
}

func TestCollectRemoteProfiles(t *testing.T) {
	e, localDir, repoDir := newTestEngine(t)

	writeFile(t, filepath.Join(repoDir, "profiles", "orcaslicer", "filament", "PLA.json"), `{"temp": 210}`)
	writeFile(t, filepath.Join(repoDir, "profiles", "orcaslicer", "machine", "X1C.json"), `{"bed": 256}`)
	writeFile(t, filepath.Join(localDir, "filament", "PLA.json"), `{"temp": 210}`)
	writeFile(t, filepath.Join(localDir, "machine", "X1C.json"), `{"bed": 220}`)

	profiles, err := e.CollectRemoteProfiles()
	if err != nil {
		t.Fatal(err)
	}
	if len(profiles) != 2 {
		t.Fatalf("len(profiles) = %d, want 2", len(profiles))
	}

	byName := make(map[string]model.Profile)
	for _, p := range profiles {
		byName[p.Filename] = p
	}

	pla := byName["PLA.json"]
	if pla.Type != "filament" || !pla.LocalExists || !pla.MatchesLocal {
		t.Errorf("PLA.json = %+v, want matching local filament profile", pla)
	}
	x1c := byName["X1C.json"]
	if x1c.Type != "machine" || !x1c.LocalExists || x1c.MatchesLocal {
		t.Errorf("X1C.json = %+v, want differing local machine profile", x1c)
	}
}

func TestGroupChanges(t *testing.T) {
	e, localDir, repoDir := newTestEngine(t)

	push := []model.Change{
		model.Upsert(
			filepath.Join(localDir, "filament", "PLA.json"),
			filepath.Join(repoDir, "profiles", "orcaslicer", "filament", "PLA.json")),
		model.Delete(filepath.Join(repoDir, "profiles", "orcaslicer", "machine", "X1C.json")),
	}

	grouped := e.GroupChanges(push, model.DirectionPush)
	if len(grouped["orcaslicer"]["filament"]) != 1 || len(grouped["orcaslicer"]["machine"]) != 1 {
		t.Errorf("grouped = %v, want one filament and one machine entry", grouped)
	}

	pull := []model.Change{
		model.Upsert(
			filepath.Join(repoDir, "profiles", "orcaslicer", "process", "standard.json"),
			filepath.Join(localDir, "process", "standard.json")),
	}
	grouped = e.GroupChanges(pull, model.DirectionPull)
	if len(grouped["orcaslicer"]["process"]) != 1 {
		t.Errorf("grouped = %v, want one process entry keyed from the repo side", grouped)
	}
}
