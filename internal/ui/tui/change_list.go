package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/klauern/profilesync/internal/model"
)

// ChangeEntry is one selectable row of the change checklist.
type ChangeEntry struct {
	Change   model.Change
	Set      string // display name, e.g. "Orca Slicer"
	Type     string // profile type, e.g. "filament"
	Note     string // relationship annotation, e.g. "(matches local)"
	Selected bool
}

// Label renders the grouped display label for the entry.
func (e ChangeEntry) Label() string {
	name := e.Change.Name()
	label := fmt.Sprintf("[%s] %s", e.Set, name)
	if e.Type != "" {
		label = fmt.Sprintf("[%s] %s / %s", e.Set, e.Type, name)
	}
	if e.Note != "" {
		label += " " + e.Note
	}
	return label
}

// ChangeListAction is what the user decided in the checklist.
type ChangeListAction int

const (
	// ChangeListNone means the user quit without deciding.
	ChangeListNone ChangeListAction = iota
	// ChangeListConfirm means the selection should be applied.
	ChangeListConfirm
	// ChangeListBack means return to the previous screen.
	ChangeListBack
	// ChangeListDiff means show the diff for the current entry.
	ChangeListDiff
)

// ChangeListResult contains the outcome of the checklist interaction.
type ChangeListResult struct {
	Action    ChangeListAction
	Selected  []model.Change
	DiffEntry ChangeEntry

	// Entries carries the selection state back so the caller can reopen
	// the list after a diff view without losing toggles.
	Entries []ChangeEntry
}

type changeListKeyMap struct {
	Up          key.Binding
	Down        key.Binding
	Toggle      key.Binding
	SelectAll   key.Binding
	SelectNone  key.Binding
	Invert      key.Binding
	RangeAnchor key.Binding
	Diff        key.Binding
	Confirm     key.Binding
	Back        key.Binding
	Quit        key.Binding
}

func defaultChangeListKeyMap() changeListKeyMap {
	return changeListKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "toggle"),
		),
		SelectAll: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "select all"),
		),
		SelectNone: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "select none"),
		),
		Invert: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "invert"),
		),
		RangeAnchor: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "range select"),
		),
		Diff: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "diff"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "confirm"),
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

var changeListStyles = struct {
	Title  lipgloss.Style
	Status lipgloss.Style
	Anchor lipgloss.Style
	Help   lipgloss.Style
}{
	Title:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")).Padding(0, 1),
	Status: lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Padding(0, 1),
	Anchor: lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
	Help:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
}

const (
	changeListCheckboxWidth = 3
	changeListKindWidth     = 7
	changeListLabelWidth    = 60
)

// ChangeListModel is the BubbleTea model for the change checklist.
type ChangeListModel struct {
	table    table.Model
	entries  []ChangeEntry
	title    string
	keys     changeListKeyMap
	result   ChangeListResult
	anchor   int // -1 when no range anchor is armed
	width    int
	quitting bool
}

// NewChangeListModel creates a checklist over the given entries. Initial
// selection state comes in on the entries themselves: push flows
// preselect everything, pull flows preselect only profiles that differ
// locally.
func NewChangeListModel(title string, entries []ChangeEntry) ChangeListModel {
	columns := []table.Column{
		{Title: " ", Width: changeListCheckboxWidth},
		{Title: "Action", Width: changeListKindWidth},
		{Title: "Profile", Width: changeListLabelWidth},
	}

	m := ChangeListModel{
		entries: entries,
		title:   title,
		keys:    defaultChangeListKeyMap(),
		anchor:  -1,
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(m.entriesToRows()),
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

	m.table = t
	return m
}

func (m ChangeListModel) entriesToRows() []table.Row {
	rows := make([]table.Row, len(m.entries))
	for i, e := range m.entries {
		checkbox := "[ ]"
		if e.Selected {
			checkbox = "[✓]"
		}
		rows[i] = table.Row{
			checkbox,
			e.Change.Kind.String(),
			truncateText(e.Label(), changeListLabelWidth),
		}
	}
	return rows
}

func (m ChangeListModel) selectedChanges() []model.Change {
	var selected []model.Change
	for _, e := range m.entries {
		if e.Selected {
			selected = append(selected, e.Change)
		}
	}
	return selected
}

func (m ChangeListModel) selectedCount() int {
	count := 0
	for _, e := range m.entries {
		if e.Selected {
			count++
		}
	}
	return count
}

// Init implements tea.Model.
func (m ChangeListModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m ChangeListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.table.SetHeight(max(msg.Height-8, 5))

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.result = ChangeListResult{Action: ChangeListNone, Entries: m.entries}
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, m.keys.Back):
			m.result = ChangeListResult{Action: ChangeListBack, Entries: m.entries}
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, m.keys.Toggle):
			if cursor := m.table.Cursor(); cursor >= 0 && cursor < len(m.entries) {
				m.entries[cursor].Selected = !m.entries[cursor].Selected
				m.table.SetRows(m.entriesToRows())
			}
			return m, nil

		case key.Matches(msg, m.keys.SelectAll):
			m.setAll(true)
			return m, nil

		case key.Matches(msg, m.keys.SelectNone):
			m.setAll(false)
			return m, nil

		case key.Matches(msg, m.keys.Invert):
			for i := range m.entries {
				m.entries[i].Selected = !m.entries[i].Selected
			}
			m.table.SetRows(m.entriesToRows())
			return m, nil

		case key.Matches(msg, m.keys.RangeAnchor):
			cursor := m.table.Cursor()
			if m.anchor < 0 {
				m.anchor = cursor
				return m, nil
			}
			lo, hi := m.anchor, cursor
			if lo > hi {
				lo, hi = hi, lo
			}
			for i := lo; i <= hi && i < len(m.entries); i++ {
				m.entries[i].Selected = true
			}
			m.anchor = -1
			m.table.SetRows(m.entriesToRows())
			return m, nil

		case key.Matches(msg, m.keys.Diff):
			if cursor := m.table.Cursor(); cursor >= 0 && cursor < len(m.entries) {
				m.result = ChangeListResult{
					Action:    ChangeListDiff,
					DiffEntry: m.entries[cursor],
					Entries:   m.entries,
				}
				m.quitting = true
				return m, tea.Quit
			}
			return m, nil

		case key.Matches(msg, m.keys.Confirm):
			m.result = ChangeListResult{
				Action:   ChangeListConfirm,
				Selected: m.selectedChanges(),
				Entries:  m.entries,
			}
			m.quitting = true
			return m, tea.Quit
		}
	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *ChangeListModel) setAll(selected bool) {
	for i := range m.entries {
		m.entries[i].Selected = selected
	}
	m.table.SetRows(m.entriesToRows())
}

// View implements tea.Model.
func (m ChangeListModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(changeListStyles.Title.Render(m.title))
	b.WriteString("\n\n")
	b.WriteString(m.table.View())
	b.WriteString("\n")

	status := fmt.Sprintf("%d of %d selected", m.selectedCount(), len(m.entries))
	if m.anchor >= 0 {
		status += changeListStyles.Anchor.Render(fmt.Sprintf(" • range from line %d armed", m.anchor+1))
	}
	b.WriteString(changeListStyles.Status.Render(status))
	b.WriteString("\n")

	help := []string{
		"space toggle",
		"a all",
		"n none",
		"i invert",
		"s range",
		"d diff",
		"enter confirm",
		"esc back",
	}
	b.WriteString(changeListStyles.Help.Render(strings.Join(help, " • ")))
	return b.String()
}

// Result returns the outcome of the checklist interaction.
func (m ChangeListModel) Result() ChangeListResult {
	return m.result
}

// RunChangeList runs the interactive change checklist.
func RunChangeList(title string, entries []ChangeEntry) (ChangeListResult, error) {
	if len(entries) == 0 {
		return ChangeListResult{Action: ChangeListConfirm}, nil
	}

	finalModel, err := tea.NewProgram(NewChangeListModel(title, entries), tea.WithAltScreen()).Run()
	if err != nil {
		return ChangeListResult{}, err
	}
	if m, ok := finalModel.(ChangeListModel); ok {
		return m.Result(), nil
	}
	return ChangeListResult{}, nil
}
