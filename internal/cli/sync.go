package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/urfave/cli/v3"

	"github.com/klauern/profilesync/internal/config"
	"github.com/klauern/profilesync/internal/controller"
	"github.com/klauern/profilesync/internal/mirror"
	"github.com/klauern/profilesync/internal/model"
	"github.com/klauern/profilesync/internal/ui"
	"github.com/klauern/profilesync/internal/ui/tui"
	"github.com/klauern/profilesync/internal/vcs"
)

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Synchronize profiles with the remote repository",
		Description: `Without --action, opens the interactive menu.

   Actions:
     push   save local profile changes to the remote
     pull   load remote profile changes onto this machine
     pick   choose individual profiles to push and pull
     full   push, then pull`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "action",
				Usage: "Run one action without the menu: push, pull, pick, or full",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runSync(ctx, cmd.String("action"))
		},
	}
}

// app bundles the wired collaborators of one sync invocation.
type app struct {
	cfg    *config.Config
	sets   []model.ProfileSet
	git    *vcs.Git
	engine *mirror.Engine
	ctrl   *controller.Controller
}

func newApp(interactive bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	sets := cfg.ProfileSets()
	git := vcs.New(cfg.RepoDir)
	engine := mirror.New(cfg.RepoDir, sets)

	var interactor controller.Interactor
	if interactive {
		interactor = &terminalInteractor{editorCmd: cfg.EditorCmd}
	} else {
		interactor = autoInteractor{}
	}

	return &app{
		cfg:    cfg,
		sets:   sets,
		git:    git,
		engine: engine,
		ctrl:   controller.New(cfg, git, engine, interactor),
	}, nil
}

func runSync(ctx context.Context, action string) error {
	switch action {
	case "", "push", "pull", "pick", "full":
	default:
		return fmt.Errorf("%w: unknown action %q (want push, pull, pick, or full)", ErrUsage, action)
	}

	interactive := ui.IsInteractive()

	if action == "" {
		if !interactive {
			return fmt.Errorf("%w: --action is required when not attached to a terminal", ErrUsage)
		}
		return runMenuLoop(ctx)
	}

	a, err := newApp(interactive && action == "pick")
	if err != nil {
		return err
	}
	session, err := a.ctrl.OpenSession(ctx)
	if err != nil {
		return err
	}

	switch action {
	case "push":
		err = a.ctrl.Push(ctx, session, nil)
	case "pull":
		err = a.ctrl.Pull(ctx, session, nil)
	case "full":
		err = a.ctrl.FullSync(ctx, session)
	case "pick":
		if !interactive {
			return fmt.Errorf("%w: --action pick needs a terminal", ErrUsage)
		}
		err = a.runPick(ctx, session)
	}

	if errors.Is(err, controller.ErrAborted) {
		fmt.Println(ui.Dim("Nothing changed."))
		return nil
	}
	return err
}

// runMenuLoop drives the interactive session: menu, action, repeat until
// the user quits.
func runMenuLoop(ctx context.Context) error {
	for {
		a, err := newApp(true)
		if err != nil {
			return err
		}
		session, err := a.ctrl.OpenSession(ctx)
		if err != nil {
			return err
		}

		result, err := tui.RunMenu(a.menuStatus(session))
		if err != nil {
			return err
		}

		switch result.Choice {
		case tui.MenuNone:
			return nil
		case tui.MenuPush:
			err = a.runPushChecklist(ctx, session)
		case tui.MenuPull:
			err = a.runPullChecklist(ctx, session)
		case tui.MenuFullSync:
			err = a.ctrl.FullSync(ctx, session)
		case tui.MenuPickVersion:
			err = a.runVersionPicker(ctx)
		}

		if errors.Is(err, controller.ErrAborted) {
			fmt.Println(ui.Dim("Nothing changed."))
			continue
		}
		if err != nil {
			return err
		}
	}
}

func (a *app) menuStatus(session *controller.Session) tui.MenuStatus {
	status := tui.MenuStatus{
		RepoDir:         a.cfg.RepoDir,
		Remote:          a.cfg.Remote,
		RemoteReachable: session.RemoteReachable,
		PushCount:       len(session.PushChanges),
		PullCount:       len(session.PullChanges),
		Ahead:           session.Ahead,
		Behind:          session.Behind,
	}
	if session.HasLastSync {
		status.LastSync = model.Snapshot{Time: session.LastSync}.FormatTime()
	}

	profiles, err := a.engine.CollectRemoteProfiles()
	if err == nil {
		counts := make(map[string]int)
		for _, p := range profiles {
			counts[p.SetKey]++
		}
		for _, set := range a.sets {
			status.SetSummaries = append(status.SetSummaries,
				fmt.Sprintf("%s: %d profile(s)", set.Display, counts[set.Key]))
		}
	}
	return status
}

// runPushChecklist lets the user trim the push selection, with per-entry
// diffs, then pushes.
func (a *app) runPushChecklist(ctx context.Context, session *controller.Session) error {
	if len(session.PushChanges) == 0 {
		fmt.Println(ui.StatusSuccess("No local changes to push."))
		return a.ctrl.Push(ctx, session, nil)
	}

	entries := a.changeEntries(session.PushChanges, model.DirectionPush, true)
	selected, confirmed, err := a.checklistLoop("Push: select changes to save", entries, model.DirectionPush)
	if err != nil || !confirmed {
		return err
	}
	return a.ctrl.Push(ctx, session, selected)
}

// runPullChecklist lists every remote profile with its relationship to
// the local copy, lets the user pick, then pulls.
func (a *app) runPullChecklist(ctx context.Context, session *controller.Session) error {
	entries, err := a.pullEntries()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println(ui.StatusSuccess("No remote profiles to load."))
		return a.ctrl.Pull(ctx, session, nil)
	}

	selected, confirmed, err := a.checklistLoop("Pull: select profiles to load", entries, model.DirectionPull)
	if err != nil || !confirmed {
		return err
	}
	return a.ctrl.Pull(ctx, session, selected)
}

// pullEntries builds the pull checklist from the full remote inventory.
// Every remote profile appears; ones identical to the local copy start
// deselected.
func (a *app) pullEntries() ([]tui.ChangeEntry, error) {
	profiles, err := a.engine.CollectRemoteProfiles()
	if err != nil {
		return nil, err
	}

	displayNames := make(map[string]string, len(a.sets))
	for _, set := range a.sets {
		displayNames[set.Key] = set.Display
	}

	var entries []tui.ChangeEntry
	for _, p := range profiles {
		if p.LocalPath == "" {
			continue
		}

		note := "(new)"
		switch {
		case p.MatchesLocal:
			note = "(matches local)"
		case p.LocalExists:
			note = "(differs from local)"
		}

		display := displayNames[p.SetKey]
		if display == "" {
			display = model.DisplayName(p.SetKey)
		}

		entries = append(entries, tui.ChangeEntry{
			Change:   model.Upsert(p.RepoPath, p.LocalPath),
			Set:      display,
			Type:     p.Type,
			Note:     note,
			Selected: !p.MatchesLocal,
		})
	}
	return entries, nil
}

// runPick is the --action pick flow: push checklist, then pull checklist.
func (a *app) runPick(ctx context.Context, session *controller.Session) error {
	if err := a.runPushChecklist(ctx, session); err != nil {
		return err
	}
	return a.runPullChecklist(ctx, session)
}

func (a *app) runVersionPicker(ctx context.Context) error {
	snapshots, err := a.ctrl.Snapshots(ctx, 20)
	if err != nil {
		return err
	}
	if len(snapshots) == 0 {
		fmt.Println(ui.Dim("No snapshots yet."))
		return nil
	}

	result, err := tui.RunVersionList(snapshots)
	if err != nil || !result.Picked {
		return err
	}
	if !ui.Confirm(fmt.Sprintf("Overwrite local profiles with snapshot %s?", result.Snapshot.Hash), false) {
		return nil
	}
	return a.ctrl.Restore(ctx, result.Snapshot)
}

// checklistLoop runs the change checklist, reopening it after diff views,
// until the user confirms or backs out.
func (a *app) checklistLoop(title string, entries []tui.ChangeEntry, direction model.SyncDirection) ([]model.Change, bool, error) {
	for {
		result, err := tui.RunChangeList(title, entries)
		if err != nil {
			return nil, false, err
		}

		switch result.Action {
		case tui.ChangeListConfirm:
			if result.Selected == nil {
				result.Selected = []model.Change{}
			}
			return result.Selected, true, nil
		case tui.ChangeListDiff:
			if err := a.showDiff(result.DiffEntry, direction); err != nil {
				return nil, false, err
			}
			entries = result.Entries
		default:
			return nil, false, nil
		}
	}
}

// showDiff renders repository content against local content for one entry.
func (a *app) showDiff(entry tui.ChangeEntry, direction model.SyncDirection) error {
	var repoPath, localPath string
	if direction == model.DirectionPush {
		localPath, repoPath = entry.Change.Source, entry.Change.Dest
	} else {
		repoPath, localPath = entry.Change.Source, entry.Change.Dest
	}

	repoContent := readFileOrEmpty(repoPath)
	localContent := readFileOrEmpty(localPath)

	if direction == model.DirectionPush {
		return tui.RunDiffView(entry.Change.Name(), "repository", "local", repoContent, localContent)
	}
	return tui.RunDiffView(entry.Change.Name(), "local", "remote", localContent, repoContent)
}

// changeEntries turns a change list into display entries grouped by set
// and type, all rows preselected or not.
func (a *app) changeEntries(changes []model.Change, direction model.SyncDirection, selected bool) []tui.ChangeEntry {
	displayNames := make(map[string]string, len(a.sets))
	for _, set := range a.sets {
		displayNames[set.Key] = set.Display
	}

	grouped := a.engine.GroupChanges(changes, direction)

	keys := make([]string, 0, len(grouped))
	for key := range grouped {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var entries []tui.ChangeEntry
	for _, key := range keys {
		display := displayNames[key]
		if display == "" {
			display = model.DisplayName(key)
		}

		types := make([]string, 0, len(grouped[key]))
		for typ := range grouped[key] {
			types = append(types, typ)
		}
		sort.Strings(types)

		for _, typ := range types {
			for _, change := range grouped[key][typ] {
				entries = append(entries, tui.ChangeEntry{
					Change:   change,
					Set:      display,
					Type:     typ,
					Selected: selected,
				})
			}
		}
	}
	return entries
}

func readFileOrEmpty(path string) string {
	if path == "" {
		return ""
	}
	// #nosec G304 - paths come from the change list
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(data)
}
