package controller

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauern/profilesync/internal/config"
	"github.com/klauern/profilesync/internal/mirror"
	"github.com/klauern/profilesync/internal/model"
	"github.com/klauern/profilesync/internal/vcs"
)

// scriptedUI is an Interactor with canned answers.
type scriptedUI struct {
	divergence bool
	discard    bool
	resolve    bool

	divergenceAsked bool
	discardAsked    bool
	resolveAsked    bool
	notifications   []string
}

func (s *scriptedUI) ConfirmDivergence(ahead, behind int) bool {
	s.divergenceAsked = true
	return s.divergence
}

func (s *scriptedUI) ConfirmDiscard(dirtyFiles int) bool {
	s.discardAsked = true
	return s.discard
}

func (s *scriptedUI) ResolveConflicts(paths []string) (bool, error) {
	s.resolveAsked = true
	return s.resolve, nil
}

func (s *scriptedUI) Notify(msg string) {
	s.notifications = append(s.notifications, msg)
}

type fixture struct {
	ctrl    *Controller
	mock    *vcs.MockRunner
	ui      *scriptedUI
	repoDir string
	dataDir string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repoDir := t.TempDir()
	dataDir := t.TempDir()

	mock := vcs.NewMockRunner()
	git := vcs.New(repoDir, vcs.WithRunner(mock))
	sets := []model.ProfileSet{{
		Key:         "orcaslicer",
		Display:     "Orca Slicer",
		ProfileDirs: []string{dataDir},
	}}
	engine := mirror.New(repoDir, sets)
	ui := &scriptedUI{}
	cfg := &config.Config{Remote: "git@github.com:user/profiles.git", RepoDir: repoDir}

	return &fixture{
		ctrl:    New(cfg, git, engine, ui),
		mock:    mock,
		ui:      ui,
		repoDir: repoDir,
		dataDir: dataDir,
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestPushAlreadySyncedSkipsNetwork(t *testing.T) {
	f := newFixture(t)
	f.mock.
		Script("rev-parse HEAD", vcs.Result{Stdout: "h1\n"}).
		Script("rev-parse --verify origin/main", vcs.Result{Stdout: "h1\n"})

	session := &Session{State: StateScanned, RemoteReachable: true}
	if err := f.ctrl.Push(context.Background(), session, nil); err != nil {
		t.Fatalf("Push() error = %v", err)
	}

	for _, key := range f.mock.CallKeys() {
		if key == "push" || key == "rebase origin/main" {
			t.Errorf("unexpected network/history command %q on already-synced push", key)
		}
	}
	if len(f.ui.notifications) == 0 {
		t.Error("no notification for the already-synced case")
	}
}

func TestPushDivergenceDeclinedAborts(t *testing.T) {
	f := newFixture(t)
	f.mock.
		Script("status --porcelain", vcs.Result{Stdout: " M profiles/orcaslicer/filament/PLA.json\n"}).
		Script("rev-parse HEAD", vcs.Result{Stdout: "l1\n"}).
		Script("rev-parse --verify origin/main", vcs.Result{Stdout: "r1\n"}).
		Script("merge-base --is-ancestor r1 l1", vcs.Result{ExitCode: 1}).
		Script("rev-list --left-right --count HEAD...origin/main", vcs.Result{Stdout: "1\t2\n"})

	session := &Session{State: StateScanned, RemoteReachable: true}
	err := f.ctrl.Push(context.Background(), session, nil)
	if !errors.Is(err, ErrAborted) {
		t.Fatalf("Push() error = %v, want ErrAborted", err)
	}
	if !f.ui.divergenceAsked {
		t.Error("divergence confirmation never requested")
	}
	if f.mock.Called("push") {
		t.Error("push ran after declined divergence")
	}
}

func TestPushConflictDeclinedAbortsRebase(t *testing.T) {
	f := newFixture(t)
	f.mock.
		Script("rev-parse HEAD", vcs.Result{Stdout: "l1\n"}).
		Script("rev-parse --verify origin/main", vcs.Result{Stdout: "r1\n"}).
		Script("rev-parse origin/main", vcs.Result{Stdout: "r1\n"}).
		Script("rebase origin/main", vcs.Result{
			Stderr:   "CONFLICT (content): Merge conflict in profiles/orcaslicer/filament/PLA.json",
			ExitCode: 1,
		})
	if err := os.MkdirAll(filepath.Join(f.repoDir, ".git", "rebase-merge"), 0o750); err != nil {
		t.Fatal(err)
	}

	session := &Session{State: StateScanned, RemoteReachable: true}
	err := f.ctrl.Push(context.Background(), session, nil)
	if !errors.Is(err, ErrAborted) {
		t.Fatalf("Push() error = %v, want ErrAborted", err)
	}
	if !f.ui.resolveAsked {
		t.Error("conflict resolution never offered")
	}
	if !f.mock.Called("rebase --abort") {
		t.Errorf("calls = %v, want rebase --abort after declined resolution", f.mock.CallKeys())
	}
	if f.mock.Called("push") {
		t.Error("push ran after declined resolution")
	}
}

func TestPushResolvedConflictContinuesAndPushes(t *testing.T) {
	f := newFixture(t)
	f.ui.resolve = true
	f.mock.
		Script("rev-parse HEAD", vcs.Result{Stdout: "l1\n"}).
		Script("rev-parse --verify origin/main", vcs.Result{Stdout: "r1\n"}).
		Script("rev-parse origin/main", vcs.Result{Stdout: "r1\n"}).
		Script("rebase origin/main", vcs.Result{
			Stderr:   "CONFLICT (content): Merge conflict in profiles/orcaslicer/filament/PLA.json",
			ExitCode: 1,
		})
	if err := os.MkdirAll(filepath.Join(f.repoDir, ".git", "rebase-merge"), 0o750); err != nil {
		t.Fatal(err)
	}

	session := &Session{State: StateScanned, RemoteReachable: true}
	if err := f.ctrl.Push(context.Background(), session, nil); err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if !f.mock.Called("rebase --continue") {
		t.Errorf("calls = %v, want rebase --continue", f.mock.CallKeys())
	}
	if !f.mock.Called("push") {
		t.Errorf("calls = %v, want push after resolution", f.mock.CallKeys())
	}
}

func TestPullDirtyTreeDeclinedAborts(t *testing.T) {
	f := newFixture(t)
	f.mock.Script("status --porcelain", vcs.Result{Stdout: " M profiles/orcaslicer/filament/PLA.json\n?? junk\n"})

	session := &Session{State: StateScanned, RemoteReachable: true}
	err := f.ctrl.Pull(context.Background(), session, nil)
	if !errors.Is(err, ErrAborted) {
		t.Fatalf("Pull() error = %v, want ErrAborted", err)
	}
	if !f.ui.discardAsked {
		t.Error("discard confirmation never requested")
	}
	if f.mock.Called("reset --hard HEAD") {
		t.Error("reset ran after declined discard")
	}
}

func TestPullAppliesRepoChanges(t *testing.T) {
	f := newFixture(t)
	writeFile(t, filepath.Join(f.repoDir, "profiles", "orcaslicer", "filament", "PLA.json"), `{"temp": 215}`)
	f.mock.
		Script("rev-parse HEAD", vcs.Result{Stdout: "h1\n"}).
		Script("rev-parse --verify origin/main", vcs.Result{Stdout: "h1\n"}).
		Script("rev-parse origin/main", vcs.Result{Stdout: "h1\n"})

	session := &Session{State: StateScanned, RemoteReachable: true}
	if err := f.ctrl.Pull(context.Background(), session, nil); err != nil {
		t.Fatalf("Pull() error = %v", err)
	}

	got, err := os.ReadFile(filepath.Join(f.dataDir, "filament", "PLA.json"))
	if err != nil {
		t.Fatalf("pulled file missing: %v", err)
	}
	if string(got) != `{"temp": 215}` {
		t.Errorf("pulled content = %q", got)
	}
}

func TestSnapshotsFilterBootstrap(t *testing.T) {
	f := newFixture(t)
	log := "abc1234 2025-06-01T10:30:00Z Synced from macOS (alice@mbp)\n" +
		"def5678 2025-05-20T08:00:00Z Initial setup\n"
	f.mock.Script("log -20 --pretty=format:%h %cI %s", vcs.Result{Stdout: log})

	snapshots, err := f.ctrl.Snapshots(context.Background(), 20)
	if err != nil {
		t.Fatalf("Snapshots() error = %v", err)
	}
	if len(snapshots) != 1 || snapshots[0].Hash != "abc1234" {
		t.Errorf("Snapshots() = %v, want only the sync commit", snapshots)
	}
}

func TestRestoreReturnsToPrimaryBranch(t *testing.T) {
	f := newFixture(t)
	writeFile(t, filepath.Join(f.repoDir, "profiles", "orcaslicer", "filament", "PLA.json"), `{"temp": 190}`)

	snap := model.Snapshot{Hash: "abc1234", Subject: "Synced from macOS (a@b)"}
	if err := f.ctrl.Restore(context.Background(), snap); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	if !f.mock.Called("checkout abc1234") {
		t.Errorf("calls = %v, want snapshot checkout", f.mock.CallKeys())
	}
	if !f.mock.Called("checkout main") {
		t.Errorf("calls = %v, want return to primary branch", f.mock.CallKeys())
	}
	got, err := os.ReadFile(filepath.Join(f.dataDir, "filament", "PLA.json"))
	if err != nil || string(got) != `{"temp": 190}` {
		t.Errorf("restored content = %q, err %v", got, err)
	}
}

func TestOpenSessionDegradesOffline(t *testing.T) {
	f := newFixture(t)
	writeFile(t, filepath.Join(f.repoDir, ".git", "HEAD"), "ref: refs/heads/main\n")
	f.mock.
		Script("fetch --prune origin", vcs.Result{
			Stderr:   "fatal: Could not resolve host: github.com",
			ExitCode: 128,
		}).
		Script("rev-list --left-right --count HEAD...origin/main", vcs.Result{Stdout: "0\t0\n"})

	session, err := f.ctrl.OpenSession(context.Background())
	if err != nil {
		t.Fatalf("OpenSession() error = %v", err)
	}
	if session.RemoteReachable {
		t.Error("RemoteReachable = true after a failed fetch")
	}
	if session.State != StateScanned {
		t.Errorf("State = %v, want StateScanned", session.State)
	}
}

func TestOpenSessionRecoversUncommittedMirror(t *testing.T) {
	f := newFixture(t)
	writeFile(t, filepath.Join(f.repoDir, ".git", "HEAD"), "ref: refs/heads/main\n")
	writeFile(t, filepath.Join(f.dataDir, "filament", "PLA.json"), `{"temp": 210}`)
	writeFile(t, filepath.Join(f.repoDir, "profiles", "orcaslicer", "filament", "PLA.json"), `{"temp": 210}`)
	f.mock.
		Script("status --porcelain", vcs.Result{Stdout: "?? profiles/orcaslicer/filament/PLA.json\n"}).
		Script("rev-list --left-right --count HEAD...origin/main", vcs.Result{Stdout: "0\t0\n"})

	session, err := f.ctrl.OpenSession(context.Background())
	if err != nil {
		t.Fatalf("OpenSession() error = %v", err)
	}
	if len(session.PushChanges) != 1 {
		t.Fatalf("PushChanges = %v, want the recovered mirror change", session.PushChanges)
	}
	if session.PushChanges[0].Kind != model.ChangeUpsert {
		t.Errorf("Kind = %v, want upsert", session.PushChanges[0].Kind)
	}
}
