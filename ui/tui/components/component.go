package components

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Component is a self-contained widget embedded in a page. It mirrors
// tea.Model so widgets can be driven by the page that owns them.
type Component interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (tea.Model, tea.Cmd)
	View() string
}
