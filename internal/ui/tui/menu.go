// Package tui provides interactive terminal UI components using BubbleTea.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// MenuChoice is the action picked from the main menu.
type MenuChoice int

const (
	// MenuNone means the user quit without choosing.
	MenuNone MenuChoice = iota
	// MenuPush saves local profiles to the remote.
	MenuPush
	// MenuPull loads remote profiles onto this machine.
	MenuPull
	// MenuFullSync pushes and then pulls.
	MenuFullSync
	// MenuPickVersion restores profiles from an older snapshot.
	MenuPickVersion
)

// MenuStatus is the summary block shown above the menu entries.
type MenuStatus struct {
	RepoDir         string
	Remote          string
	LastSync        string // already formatted; empty if never synced
	RemoteReachable bool
	PushCount       int
	PullCount       int
	Ahead           int
	Behind          int
	SetSummaries    []string // e.g. "Orca Slicer: 14 profiles"
}

// MenuResult contains the outcome of the menu interaction.
type MenuResult struct {
	Choice MenuChoice
}

type menuKeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Confirm key.Binding
	Quit    key.Binding
}

func defaultMenuKeyMap() menuKeyMap {
	return menuKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "choose"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

type menuEntry struct {
	choice MenuChoice
	label  string
	detail string
}

// MenuModel is the BubbleTea model for the main action menu.
type MenuModel struct {
	status   MenuStatus
	entries  []menuEntry
	cursor   int
	keys     menuKeyMap
	result   MenuResult
	quitting bool
}

var menuStyles = struct {
	Title    lipgloss.Style
	Label    lipgloss.Style
	Value    lipgloss.Style
	Warn     lipgloss.Style
	Cursor   lipgloss.Style
	Entry    lipgloss.Style
	Detail   lipgloss.Style
	Help     lipgloss.Style
}{
	Title:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")).Padding(0, 1),
	Label:  lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	Value:  lipgloss.NewStyle().Foreground(lipgloss.Color("7")),
	Warn:   lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
	Cursor: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2")),
	Entry:  lipgloss.NewStyle(),
	Detail: lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	Help:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
}

// NewMenuModel creates the main menu over a status summary.
func NewMenuModel(status MenuStatus) MenuModel {
	entries := []menuEntry{
		{MenuPush, "Push", fmt.Sprintf("save %d local change(s) to the remote", status.PushCount)},
		{MenuPull, "Pull", fmt.Sprintf("load %d remote change(s) onto this machine", status.PullCount)},
		{MenuFullSync, "Full Sync", "push, then pull"},
		{MenuPickVersion, "Pick Version", "restore profiles from an earlier snapshot"},
	}
	return MenuModel{
		status:  status,
		entries: entries,
		keys:    defaultMenuKeyMap(),
	}
}

// Init implements tea.Model.
func (m MenuModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m MenuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(keyMsg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(keyMsg, m.keys.Down):
		if m.cursor < len(m.entries)-1 {
			m.cursor++
		}

	case key.Matches(keyMsg, m.keys.Confirm):
		m.result = MenuResult{Choice: m.entries[m.cursor].choice}
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func (m MenuModel) renderStatus() string {
	var b strings.Builder

	row := func(label, value string) {
		b.WriteString(menuStyles.Label.Render(fmt.Sprintf("  %-12s", label)))
		b.WriteString(menuStyles.Value.Render(value))
		b.WriteString("\n")
	}

	row("Repository:", m.status.RepoDir)
	row("Remote:", m.status.Remote)

	lastSync := m.status.LastSync
	if lastSync == "" {
		lastSync = "never"
	}
	row("Last sync:", lastSync)

	for _, summary := range m.status.SetSummaries {
		row("", summary)
	}

	if !m.status.RemoteReachable {
		b.WriteString(menuStyles.Warn.Render("  ⚠ remote unreachable, working offline"))
		b.WriteString("\n")
	}
	if m.status.Ahead > 0 || m.status.Behind > 0 {
		b.WriteString(menuStyles.Warn.Render(
			fmt.Sprintf("  %d commit(s) ahead, %d behind the remote", m.status.Ahead, m.status.Behind)))
		b.WriteString("\n")
	}
	return b.String()
}

// View implements tea.Model.
func (m MenuModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(menuStyles.Title.Render("🖨  profilesync"))
	b.WriteString("\n\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")

	for i, entry := range m.entries {
		cursor := "  "
		label := menuStyles.Entry.Render(entry.label)
		if i == m.cursor {
			cursor = menuStyles.Cursor.Render("> ")
			label = menuStyles.Cursor.Render(entry.label)
		}
		b.WriteString(fmt.Sprintf("%s%-14s %s\n", cursor, label, menuStyles.Detail.Render(entry.detail)))
	}

	b.WriteString("\n")
	b.WriteString(menuStyles.Help.Render("↑/↓ navigate • enter choose • q quit"))
	return b.String()
}

// Result returns the outcome of the menu interaction.
func (m MenuModel) Result() MenuResult {
	return m.result
}

// RunMenu runs the interactive main menu and returns the chosen action.
func RunMenu(status MenuStatus) (MenuResult, error) {
	finalModel, err := tea.NewProgram(NewMenuModel(status), tea.WithAltScreen()).Run()
	if err != nil {
		return MenuResult{}, err
	}
	if m, ok := finalModel.(MenuModel); ok {
		return m.Result(), nil
	}
	return MenuResult{}, nil
}
