// Package controller orchestrates sync flows between the local profile
// directories, the repository working tree, and the remote. It owns the
// decision logic; all interaction with the user goes through the
// Interactor boundary so flows stay testable.
package controller

import (
	"errors"
	"log/slog"

	"github.com/klauern/profilesync/internal/config"
	"github.com/klauern/profilesync/internal/logging"
	"github.com/klauern/profilesync/internal/mirror"
	"github.com/klauern/profilesync/internal/vcs"
)

// ErrAborted is returned when the user declines a confirmation. It is a
// clean stop, not a failure: local state is left untouched.
var ErrAborted = errors.New("aborted by user")

// Interactor is the controller's window to the user. The CLI supplies a
// terminal implementation; tests supply a scripted one.
type Interactor interface {
	// ConfirmDivergence asks whether to reconcile when local and remote
	// histories have both moved.
	ConfirmDivergence(ahead, behind int) bool

	// ConfirmDiscard asks whether uncommitted repository changes may be
	// thrown away before a pull.
	ConfirmDiscard(dirtyFiles int) bool

	// ResolveConflicts hands conflicted file paths to the user and reports
	// whether they chose to resolve them.
	ResolveConflicts(paths []string) (bool, error)

	// Notify shows a progress or outcome message.
	Notify(msg string)
}

// Controller drives push, pull, and restore flows.
type Controller struct {
	cfg    *config.Config
	git    *vcs.Git
	engine *mirror.Engine
	ui     Interactor
	log    *slog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// New wires a controller from its collaborators.
func New(cfg *config.Config, git *vcs.Git, engine *mirror.Engine, ui Interactor, opts ...Option) *Controller {
	c := &Controller{cfg: cfg, git: git, engine: engine, ui: ui}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logging.Default()
	}
	return c
}
