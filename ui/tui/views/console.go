package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"timestick/ui/tui/state"
)

// ConsoleView shows the rolling log of received reports.
type ConsoleView struct{}

func (v ConsoleView) Render(s state.AppState, props ViewProps) string {
	header := MenuHeaderStyle.Width(props.Width).Render("Live Console View")

	availableHeight := max(props.Height-lipgloss.Height(header)-4, 1)

	lines := s.ConsoleLogs
	totalLines := len(lines)

	scrollY := min(max(props.ScrollY, 0), max(totalLines-availableHeight, 0))
	end := min(scrollY+availableHeight, totalLines)

	box := lipgloss.NewStyle().
		Width(max(props.Width-4, 10)).
		Height(availableHeight).
		Padding(0, 1).
		Render(strings.Join(lines[scrollY:end], "\n"))

	footerText := fmt.Sprintf("Scroll: %d/%d • Press 'b' to go back", scrollY, totalLines)
	if totalLines > availableHeight {
		footerText += " • Use ↑/↓ to scroll"
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		lipgloss.NewStyle().Padding(1, 2).Render(box),
		lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("#555")).Render(footerText),
	)
}
