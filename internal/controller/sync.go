package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/klauern/profilesync/internal/logging"
	"github.com/klauern/profilesync/internal/model"
	"github.com/klauern/profilesync/internal/vcs"
)

// Push mirrors local changes into the repository, commits, reconciles with
// the remote, and publishes. A nil selection means everything in the
// session; a proper subset first clears the working tree so only the
// selection lands in the commit. When nothing was committed and local and
// remote heads already agree, Push succeeds without touching the network.
func (c *Controller) Push(ctx context.Context, session *Session, selected []model.Change) error {
	if selected == nil {
		selected = session.PushChanges
	}

	if len(selected) != len(session.PushChanges) {
		if err := c.git.ResetHard(ctx); err != nil {
			return err
		}
		if err := c.git.CleanUntracked(ctx); err != nil {
			return err
		}
	}
	if err := c.engine.Apply(selected); err != nil {
		return err
	}

	committed, err := c.git.CommitIfDirty(ctx, commitMessage())
	if err != nil {
		return err
	}

	localHead, _ := c.git.Head(ctx)
	remoteHead, hasRemote := c.git.RemoteHead(ctx)
	if !committed && hasRemote && localHead == remoteHead {
		c.ui.Notify("Already up to date.")
		return nil
	}

	if !session.RemoteReachable {
		c.ui.Notify("Changes saved locally; remote is unreachable.")
		return fmt.Errorf("cannot publish: %w", &vcs.Error{Kind: vcs.KindNetworkUnreachable, Op: "push"})
	}

	if hasRemote && !c.git.IsAncestor(ctx, remoteHead, localHead) {
		ahead, behind, err := c.git.AheadBehind(ctx)
		if err != nil {
			return err
		}
		if !c.ui.ConfirmDivergence(ahead, behind) {
			return ErrAborted
		}
	}

	if err := c.rebaseWithResolution(ctx); err != nil {
		return err
	}

	if err := c.git.Push(ctx); err != nil {
		return err
	}
	c.ui.Notify(fmt.Sprintf("Pushed %d change(s).", len(selected)))
	c.log.Info("push complete", logging.Count(len(selected)))
	return nil
}

// Pull reconciles the repository with the remote and applies repo-to-local
// changes. A dirty working tree is discarded only after confirmation. A
// nil selection applies a fresh post-rebase scan; an explicit selection
// applies exactly those changes.
func (c *Controller) Pull(ctx context.Context, session *Session, selected []model.Change) error {
	if err := c.git.CheckoutPrimary(ctx); err != nil {
		return err
	}

	status, err := c.git.StatusPorcelain(ctx)
	if err != nil {
		return err
	}
	if dirty := countStatusLines(status); dirty > 0 {
		if !c.ui.ConfirmDiscard(dirty) {
			return ErrAborted
		}
		if err := c.git.ResetHard(ctx); err != nil {
			return err
		}
		if err := c.git.CleanUntracked(ctx); err != nil {
			return err
		}
	}

	if err := c.rebaseWithResolution(ctx); err != nil {
		return err
	}

	if selected == nil {
		if selected, err = c.engine.ScanRepoToLocal(); err != nil {
			return err
		}
	}
	if err := c.engine.Apply(selected); err != nil {
		return err
	}
	c.ui.Notify(fmt.Sprintf("Pulled %d change(s).", len(selected)))
	c.log.Info("pull complete", logging.Count(len(selected)))
	return nil
}

// FullSync pushes local changes and then pulls remote ones.
func (c *Controller) FullSync(ctx context.Context, session *Session) error {
	if err := c.Push(ctx, session, nil); err != nil {
		return err
	}
	return c.Pull(ctx, session, nil)
}

// rebaseWithResolution rebases onto the remote and, when the rebase stops
// on conflicts, runs the interactive resolution loop. Declining resolution
// aborts the rebase so the repository returns to its pre-rebase state.
func (c *Controller) rebaseWithResolution(ctx context.Context) error {
	err := c.git.RebaseOntoRemote(ctx)
	if err == nil {
		return nil
	}

	var rebaseErr *vcs.RebaseError
	if !errors.As(err, &rebaseErr) || !rebaseErr.HadConflicts {
		return err
	}

	paths, err := c.git.ConflictedPaths(ctx)
	if err != nil {
		return err
	}
	resolved, err := c.ui.ResolveConflicts(paths)
	if err != nil {
		return err
	}
	if !resolved {
		if abortErr := c.git.AbortInProgress(ctx); abortErr != nil {
			c.log.Warn("abort after declined resolution failed", logging.Err(abortErr))
		}
		return ErrAborted
	}
	return c.git.ContinueAfterResolution(ctx)
}

// Snapshots lists sync history, newest first, without the bootstrap commit.
func (c *Controller) Snapshots(ctx context.Context, limit int) ([]model.Snapshot, error) {
	all, err := c.git.ListHistory(ctx, limit)
	if err != nil {
		return nil, err
	}
	snapshots := make([]model.Snapshot, 0, len(all))
	for _, s := range all {
		if s.Subject == vcs.BootstrapMessage {
			continue
		}
		snapshots = append(snapshots, s)
	}
	return snapshots, nil
}

// Restore checks out a snapshot, copies its full profile tree into the
// local directories, and returns to the primary branch.
func (c *Controller) Restore(ctx context.Context, snapshot model.Snapshot) error {
	if err := c.git.Checkout(ctx, snapshot.Hash); err != nil {
		return err
	}
	defer func() {
		if err := c.git.CheckoutPrimary(ctx); err != nil {
			c.log.Warn("returning to primary branch failed", logging.Err(err))
		}
	}()

	changes, err := c.engine.ScanRepoToLocal()
	if err != nil {
		return err
	}
	if err := c.engine.Apply(changes); err != nil {
		return err
	}
	c.ui.Notify(fmt.Sprintf("Restored %d profile(s) from %s.", len(changes), snapshot.Hash))
	return nil
}

func countStatusLines(status string) int {
	count := 0
	for _, line := range strings.Split(status, "\n") {
		if strings.TrimSpace(line) != "" {
			count++
		}
	}
	return count
}
