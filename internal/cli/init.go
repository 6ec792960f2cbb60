package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/klauern/profilesync/internal/config"
	"github.com/klauern/profilesync/internal/slicers"
	"github.com/klauern/profilesync/internal/ui"
	"github.com/klauern/profilesync/internal/util"
	"github.com/klauern/profilesync/internal/vcs"
)

func initCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Set up the sync repository and choose which slicers to sync",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "remote",
				Usage: "Git remote URL (SSH or HTTPS) holding the profiles",
			},
			&cli.StringFlag{
				Name:  "repo-dir",
				Usage: "Local directory for the sync repository clone",
			},
			&cli.StringFlag{
				Name:  "editor",
				Usage: "Editor command for conflict resolution (e.g. \"code --wait\")",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runInit(ctx, cmd)
		},
	}
}

func runInit(ctx context.Context, cmd *cli.Command) error {
	interactive := ui.IsInteractive()

	if config.Exists() && interactive {
		if !ui.Confirm("Configuration already exists. Reconfigure?", false) {
			return nil
		}
	}

	git := vcs.New("")
	if err := git.Available(ctx); err != nil {
		return err
	}

	remote, err := resolveRemote(ctx, git, cmd.String("remote"), interactive)
	if err != nil {
		return err
	}

	repoDir := cmd.String("repo-dir")
	if repoDir == "" {
		suggested := suggestRepoDir(remote)
		if interactive {
			repoDir = ui.ReadLine(os.Stdin, os.Stdout, "Where should the sync repository live?", suggested)
		} else {
			repoDir = suggested
		}
	}
	repoDir = util.ExpandPath(repoDir)
	if err := guardRepoDir(repoDir); err != nil {
		return err
	}

	sets, err := chooseProfileSets(interactive)
	if err != nil {
		return err
	}

	editorCmd := cmd.String("editor")
	if editorCmd == "" && interactive {
		editorCmd = ui.ReadLine(os.Stdin, os.Stdout,
			"Editor for resolving conflicts (empty uses $EDITOR):", os.Getenv("EDITOR"))
	}

	repoGit := vcs.New(repoDir)
	if err := repoGit.CloneOrAttach(ctx, remote); err != nil {
		return err
	}
	if !repoGit.HasCommits(ctx) {
		fmt.Println(ui.Info("Remote repository is empty, writing initial layout."))
		if err := repoGit.InitializeEmpty(ctx); err != nil {
			return err
		}
	}

	cfg := &config.Config{
		Remote:      remote,
		RepoDir:     repoDir,
		EditorCmd:   editorCmd,
		ProfileDirs: make(map[string][]string),
	}
	for _, set := range sets {
		cfg.EnabledSets = append(cfg.EnabledSets, set.Key)
		cfg.ProfileDirs[set.Key] = set.ProfileDirs
	}
	if err := cfg.Save(); err != nil {
		return err
	}

	fmt.Println(ui.StatusSuccess("Setup complete. Run `profilesync sync` to start syncing."))
	return nil
}

// resolveRemote obtains and validates the remote URL, re-prompting on the
// terminal when validation fails.
func resolveRemote(ctx context.Context, git *vcs.Git, remote string, interactive bool) (string, error) {
	for {
		if remote == "" {
			if !interactive {
				return "", fmt.Errorf("%w: --remote is required without a terminal", ErrUsage)
			}
			remote = ui.ReadLine(os.Stdin, os.Stdout,
				"Git remote URL (e.g. git@github.com:you/printer-profiles.git):", "")
			if remote == "" {
				return "", fmt.Errorf("%w: no remote URL given", ErrUsage)
			}
		}

		fmt.Println(ui.Dim("Checking remote access..."))
		err := git.ValidateRemote(ctx, remote)
		if err == nil {
			fmt.Println(ui.StatusSuccess("Remote reachable."))
			return remote, nil
		}

		var gitErr *vcs.Error
		if errors.As(err, &gitErr) {
			fmt.Println(ui.StatusError(describeRemoteError(gitErr)))
		} else {
			fmt.Println(ui.StatusError(err.Error()))
		}
		if !interactive || !ui.Confirm("Try a different URL?", true) {
			return "", err
		}
		remote = ""
	}
}

func describeRemoteError(err *vcs.Error) string {
	switch err.Kind {
	case vcs.KindNetworkUnreachable:
		return "Could not reach the remote host. Check your network connection."
	case vcs.KindAuthDenied:
		return "Access denied. Check your SSH keys or credentials."
	case vcs.KindRemoteMissing:
		return "No repository at that URL. Create it first, then rerun init."
	default:
		return err.Error()
	}
}

// suggestRepoDir derives a clone directory under the app data dir from the
// repository name in the remote URL.
func suggestRepoDir(remote string) string {
	name := remote
	if idx := strings.LastIndexAny(name, "/:"); idx >= 0 {
		name = name[idx+1:]
	}
	name = strings.TrimSuffix(name, ".git")
	if name == "" {
		name = "profiles"
	}
	return filepath.Join(util.DataDir(), "repos", name)
}

// guardRepoDir refuses clone targets nested inside an unrelated git
// checkout, which would entangle two repositories. The app's own data
// directory is exempt.
func guardRepoDir(repoDir string) error {
	if util.IsInside(repoDir, util.DataDir()) {
		return nil
	}
	root := util.FindVCSRoot(filepath.Dir(repoDir))
	if root == "" {
		return nil
	}
	return fmt.Errorf("%w: %s is inside the git repository %s; pick a directory outside it",
		ErrUsage, repoDir, root)
}

// chooseProfileSets runs slicer selection. Without a terminal, every
// slicer whose profile directory exists on disk is enabled.
func chooseProfileSets(interactive bool) ([]selectedSet, error) {
	defaults := slicers.Defaults()
	var chosen []selectedSet

	for _, set := range defaults {
		detected := dirExists(set.ImportDir())

		if !interactive {
			if detected {
				chosen = append(chosen, selectedSet{Key: set.Key, ProfileDirs: set.ProfileDirs})
			}
			continue
		}

		label := set.Display
		if detected {
			label += ui.Dim(" (detected)")
		} else {
			label += ui.Dim(" (not found)")
		}
		if !ui.Confirm("Sync "+label+"?", detected) {
			continue
		}

		dirs := set.ProfileDirs
		answer := ui.ReadLine(os.Stdin, os.Stdout, "  Profile directory:", set.ImportDir())
		if answer != set.ImportDir() {
			dirs = []string{util.ExpandPath(answer)}
		}
		chosen = append(chosen, selectedSet{Key: set.Key, ProfileDirs: dirs})
	}

	if len(chosen) == 0 {
		return nil, fmt.Errorf("%w: no slicers selected", ErrUsage)
	}
	return chosen, nil
}

type selectedSet struct {
	Key         string
	ProfileDirs []string
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
