package cli

import (
	"context"
	"fmt"

	"github.com/klauern/profilesync/internal/ui"
)

// terminalInteractor answers controller confirmations on the terminal.
type terminalInteractor struct {
	editorCmd string
}

func (t *terminalInteractor) ConfirmDivergence(ahead, behind int) bool {
	fmt.Println(ui.StatusWarning(fmt.Sprintf(
		"Local and remote history have diverged: %d commit(s) here, %d on the remote.", ahead, behind)))
	return ui.Confirm("Replay local commits on top of the remote?", true)
}

func (t *terminalInteractor) ConfirmDiscard(dirtyFiles int) bool {
	fmt.Println(ui.StatusWarning(fmt.Sprintf(
		"The sync repository has %d uncommitted change(s) that pulling will overwrite.", dirtyFiles)))
	return ui.Confirm("Discard them and continue?", false)
}

func (t *terminalInteractor) ResolveConflicts(paths []string) (bool, error) {
	fmt.Println(ui.StatusWarning("Both machines changed these profiles:"))
	for _, p := range paths {
		fmt.Println("  " + p)
	}

	if !ui.Confirm("Open your editor to resolve the conflicts?", true) {
		return false, nil
	}
	if err := ui.OpenEditor(context.Background(), t.editorCmd, paths...); err != nil {
		return false, err
	}
	return ui.Confirm("Conflicts resolved, continue the sync?", true), nil
}

func (t *terminalInteractor) Notify(msg string) {
	fmt.Println(msg)
}

// autoInteractor answers confirmations without prompting, for explicit
// --action runs and non-terminal sessions. It proceeds through divergence
// but refuses anything destructive or requiring judgment.
type autoInteractor struct{}

func (autoInteractor) ConfirmDivergence(ahead, behind int) bool {
	fmt.Println(ui.StatusWarning(fmt.Sprintf(
		"Histories diverged (%d ahead, %d behind); reconciling automatically.", ahead, behind)))
	return true
}

func (autoInteractor) ConfirmDiscard(dirtyFiles int) bool {
	fmt.Println(ui.StatusError(fmt.Sprintf(
		"Refusing to discard %d uncommitted repository change(s) without a terminal.", dirtyFiles)))
	return false
}

func (autoInteractor) ResolveConflicts(paths []string) (bool, error) {
	fmt.Println(ui.StatusError("Sync conflicts need interactive resolution:"))
	for _, p := range paths {
		fmt.Println("  " + p)
	}
	return false, nil
}

func (autoInteractor) Notify(msg string) {
	fmt.Println(msg)
}
