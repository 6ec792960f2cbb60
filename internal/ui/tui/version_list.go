package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/klauern/profilesync/internal/model"
)

// VersionListResult contains the outcome of the snapshot picker.
type VersionListResult struct {
	Picked   bool
	Snapshot model.Snapshot
}

type versionListKeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Confirm key.Binding
	Back    key.Binding
	Quit    key.Binding
}

func defaultVersionListKeyMap() versionListKeyMap {
	return versionListKeyMap{
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
			key.WithHelp("enter", "restore"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

var versionListStyles = struct {
	Title  lipgloss.Style
	Status lipgloss.Style
	Help   lipgloss.Style
}{
	Title:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")).Padding(0, 1),
	Status: lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Padding(0, 1),
	Help:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
}

const (
	versionListHashWidth    = 10
	versionListTimeWidth    = 28
	versionListSubjectWidth = 44
)

// VersionListModel is the BubbleTea model for picking a sync snapshot.
type VersionListModel struct {
	table     table.Model
	snapshots []model.Snapshot
	keys      versionListKeyMap
	result    VersionListResult
	quitting  bool
}

// NewVersionListModel creates a snapshot picker, newest first.
func NewVersionListModel(snapshots []model.Snapshot) VersionListModel {
	columns := []table.Column{
		{Title: "Commit", Width: versionListHashWidth},
		{Title: "Saved", Width: versionListTimeWidth},
		{Title: "Origin", Width: versionListSubjectWidth},
	}

	rows := make([]table.Row, len(snapshots))
	for i, s := range snapshots {
		rows[i] = table.Row{
			s.Hash,
			s.FormatTime(),
			truncateText(s.Subject, versionListSubjectWidth),
		}
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(15),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return VersionListModel{
		table:     t,
		snapshots: snapshots,
		keys:      defaultVersionListKeyMap(),
	}
}

// Init implements tea.Model.
func (m VersionListModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m VersionListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.table.SetHeight(max(msg.Height-6, 5))

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit), key.Matches(msg, m.keys.Back):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, m.keys.Confirm):
			if cursor := m.table.Cursor(); cursor >= 0 && cursor < len(m.snapshots) {
				m.result = VersionListResult{Picked: true, Snapshot: m.snapshots[cursor]}
				m.quitting = true
				return m, tea.Quit
			}
			return m, nil
		}
	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m VersionListModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(versionListStyles.Title.Render("Pick a version to restore"))
	b.WriteString("\n\n")
	b.WriteString(m.table.View())
	b.WriteString("\n")
	b.WriteString(versionListStyles.Status.Render("Restoring copies that snapshot's profiles over your local files."))
	b.WriteString("\n")
	b.WriteString(versionListStyles.Help.Render("↑/↓ navigate • enter restore • esc back"))
	return b.String()
}

// Result returns the outcome of the picker interaction.
func (m VersionListModel) Result() VersionListResult {
	return m.result
}

// RunVersionList runs the interactive snapshot picker.
func RunVersionList(snapshots []model.Snapshot) (VersionListResult, error) {
	if len(snapshots) == 0 {
		return VersionListResult{}, nil
	}

	finalModel, err := tea.NewProgram(NewVersionListModel(snapshots), tea.WithAltScreen()).Run()
	if err != nil {
		return VersionListResult{}, err
	}
	if m, ok := finalModel.(VersionListModel); ok {
		return m.Result(), nil
	}
	return VersionListResult{}, nil
}
