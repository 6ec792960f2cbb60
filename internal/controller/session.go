package controller

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/klauern/profilesync/internal/logging"
	"github.com/klauern/profilesync/internal/model"
	"github.com/klauern/profilesync/internal/vcs"
)

// State tracks how far a session has progressed.
type State int

const (
	// StateInit means the repository is attached but not yet refreshed.
	StateInit State = iota
	// StateFetched means remote-tracking refs are current (or the remote
	// was found unreachable).
	StateFetched
	// StateScanned means change lists have been computed.
	StateScanned
)

// Session is the observed sync state a flow starts from. It is a snapshot:
// flows that mutate the repository re-derive what they need.
type Session struct {
	State State

	// RemoteReachable is false when the fetch failed on a network error.
	// Local operations still work; publishing will not.
	RemoteReachable bool

	// PushChanges are local-to-repo changes a push would mirror.
	PushChanges []model.Change
	// PullChanges are repo-to-local changes a pull would apply.
	PullChanges []model.Change

	Ahead  int
	Behind int

	LastSync    time.Time
	HasLastSync bool
}

// OpenSession attaches the repository, bootstraps it when empty, refreshes
// remote state, and computes both change lists. A network failure during
// fetch degrades the session to local-only instead of failing it.
func (c *Controller) OpenSession(ctx context.Context) (*Session, error) {
	if err := c.git.Available(ctx); err != nil {
		return nil, err
	}
	if err := c.git.CloneOrAttach(ctx, c.cfg.Remote); err != nil {
		return nil, err
	}
	if !c.git.HasCommits(ctx) {
		c.log.Info("repository has no commits, writing bootstrap files")
		if err := c.git.InitializeEmpty(ctx); err != nil {
			return nil, err
		}
	}

	session := &Session{State: StateInit, RemoteReachable: true}

	if err := c.git.Fetch(ctx); err != nil {
		var gitErr *vcs.Error
		if errors.As(err, &gitErr) && gitErr.Kind == vcs.KindNetworkUnreachable {
			c.log.Warn("remote unreachable, continuing offline", logging.Err(err))
			session.RemoteReachable = false
		} else {
			return nil, err
		}
	}
	session.State = StateFetched

	pushChanges, err := c.engine.ScanLocalToRepo()
	if err != nil {
		return nil, err
	}
	if len(pushChanges) == 0 {
		// A previous run may have mirrored files into the repository
		// without committing them; the tree is dirty but the fresh scan
		// sees nothing left to mirror.
		status, err := c.git.StatusPorcelain(ctx)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(status) != "" {
			pushChanges = c.engine.RebuildFromStatus(status)
		}
	}
	session.PushChanges = pushChanges

	if session.PullChanges, err = c.engine.ScanRepoToLocal(); err != nil {
		return nil, err
	}
	if session.Ahead, session.Behind, err = c.git.AheadBehind(ctx); err != nil {
		return nil, err
	}
	session.LastSync, session.HasLastSync = c.git.LastSyncTime(ctx)
	session.State = StateScanned

	c.log.Debug("session opened",
		logging.Count(len(session.PushChanges)),
		logging.Operation("scan"))
	return session, nil
}
