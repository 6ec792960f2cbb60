package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/klauern/profilesync/internal/diff"
)

type diffViewKeyMap struct {
	Up   key.Binding
	Down key.Binding
	Back key.Binding
	Quit key.Binding
}

func defaultDiffViewKeyMap() diffViewKeyMap {
	return diffViewKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "scroll down"),
		),
		Back: key.NewBinding(
			key.WithKeys("b", "esc", "enter"),
			key.WithHelp("b/esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

var diffViewStyles = struct {
	Title     lipgloss.Style
	Summary   lipgloss.Style
	Header    lipgloss.Style
	LineNum   lipgloss.Style
	Removed   lipgloss.Style
	Added     lipgloss.Style
	Unchanged lipgloss.Style
	Status    lipgloss.Style
	Help      lipgloss.Style
}{
	Title:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")).Padding(0, 1),
	Summary:   lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
	Header:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("4")),
	LineNum:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	Removed:   lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
	Added:     lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
	Unchanged: lipgloss.NewStyle().Foreground(lipgloss.Color("7")),
	Status:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Padding(0, 1),
	Help:      lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
}

// DiffViewModel is the BubbleTea model for a side-by-side file comparison.
type DiffViewModel struct {
	viewport    viewport.Model
	title       string
	leftLabel   string
	rightLabel  string
	rows        []diff.Row
	summary     string
	keys        diffViewKeyMap
	width       int
	height      int
	ready       bool
	quitting    bool
}

// NewDiffViewModel builds a diff view from two file versions.
func NewDiffViewModel(title, leftLabel, rightLabel, leftContent, rightContent string) DiffViewModel {
	rows := diff.SideBySide(diff.Lines(leftContent), diff.Lines(rightContent))
	return DiffViewModel{
		title:      title,
		leftLabel:  leftLabel,
		rightLabel: rightLabel,
		rows:       rows,
		summary:    diff.RangeSummary(rows),
		keys:       defaultDiffViewKeyMap(),
	}
}

// Init implements tea.Model.
func (m DiffViewModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m DiffViewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		viewportHeight := max(msg.Height-6, 5)
		if !m.ready {
			m.viewport = viewport.New(msg.Width-2, viewportHeight)
			m.viewport.SetContent(m.renderRows())
			m.ready = true
		} else {
			m.viewport.Width = msg.Width - 2
			m.viewport.Height = viewportHeight
			m.viewport.SetContent(m.renderRows())
		}

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit), key.Matches(msg, m.keys.Back):
			m.quitting = true
			return m, tea.Quit
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// columnWidth splits the available width between the two text columns,
// leaving room for line numbers and the separator.
func (m DiffViewModel) columnWidth() int {
	total := m.width
	if total <= 0 {
		total = 120
	}
	return max((total-14)/2, 20)
}

func (m DiffViewModel) renderRows() string {
	width := m.columnWidth()
	var b strings.Builder

	header := fmt.Sprintf("     %-*s │      %-*s", width, m.leftLabel, width, m.rightLabel)
	b.WriteString(diffViewStyles.Header.Render(header))
	b.WriteString("\n")

	for _, row := range m.rows {
		leftNum, rightNum := "    ", "    "
		if row.LeftNum > 0 {
			leftNum = fmt.Sprintf("%4d", row.LeftNum)
		}
		if row.RightNum > 0 {
			rightNum = fmt.Sprintf("%4d", row.RightNum)
		}

		left := truncateText(row.Left, width)
		right := truncateText(row.Right, width)

		leftStyle, rightStyle := diffViewStyles.Unchanged, diffViewStyles.Unchanged
		if row.Changed {
			leftStyle, rightStyle = diffViewStyles.Removed, diffViewStyles.Added
		}

		b.WriteString(diffViewStyles.LineNum.Render(leftNum + " "))
		b.WriteString(leftStyle.Render(fmt.Sprintf("%-*s", width, left)))
		b.WriteString(" │ ")
		b.WriteString(diffViewStyles.LineNum.Render(rightNum + " "))
		b.WriteString(rightStyle.Render(right))
		b.WriteString("\n")
	}
	return b.String()
}

// View implements tea.Model.
func (m DiffViewModel) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}

	var b strings.Builder
	title := m.title
	if m.summary != "" {
		title += "  " + diffViewStyles.Summary.Render("["+m.summary+"]")
	}
	b.WriteString(diffViewStyles.Title.Render(title))
	b.WriteString("\n\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	scrollPercent := int(m.viewport.ScrollPercent() * 100)
	b.WriteString(diffViewStyles.Status.Render(fmt.Sprintf("Scroll: %d%%", scrollPercent)))
	b.WriteString("\n")
	b.WriteString(diffViewStyles.Help.Render("↑/↓ scroll • b/esc back • q quit"))
	return b.String()
}

// RunDiffView runs the interactive diff viewer until the user leaves it.
func RunDiffView(title, leftLabel, rightLabel, leftContent, rightContent string) error {
	mdl := NewDiffViewModel(title, leftLabel, rightLabel, leftContent, rightContent)
	_, err := tea.NewProgram(mdl, tea.WithAltScreen()).Run()
	return err
}
