package tui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	searchBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255")).
			Padding(0, 1)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)
)

// SearchBarModel is the "/" filter input.
type SearchBarModel struct {
	input   textinput.Model
	focused bool
}

// NewSearchBarModel creates a new search bar.
func NewSearchBarModel() *SearchBarModel {
	ti := textinput.New()
	ti.Placeholder = "name, email, phone or suburb"
	ti.CharLimit = 128
	return &SearchBarModel{input: ti}
}

// Focused reports whether keystrokes go to the search bar.
func (m *SearchBarModel) Focused() bool {
	return m.focused
}

// Focus focuses the search bar.
func (m *SearchBarModel) Focus() tea.Cmd {
	m.focused = true
	return m.input.Focus()
}

// Blur stops editing but keeps the term.
func (m *SearchBarModel) Blur() {
	m.focused = false
	m.input.Blur()
}

// Clear empties the term and blurs.
func (m *SearchBarModel) Clear() {
	m.input.SetValue("")
	m.Blur()
}

// Value is the current search term.
func (m *SearchBarModel) Value() string {
	return m.input.Value()
}

// SetWidth sets the input width.
func (m *SearchBarModel) SetWidth(w int) {
	m.input.Width = w
}

// Update handles messages while focused.
func (m *SearchBarModel) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

// View renders the search bar.
func (m *SearchBarModel) View() string {
	if m.focused {
		return searchBarStyle.Render(promptStyle.Render("/ ") + m.input.View())
	}
	if v := m.input.Value(); v != "" {
		return searchBarStyle.Render(promptStyle.Render("/ ") + v + helpStyle.Render("  (/ to edit, esc in search to clear)"))
	}
	return searchBarStyle.Render(helpStyle.Render("Press / to search leads"))
}
