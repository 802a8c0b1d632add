package views

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"timestick/ui/tui/state"
	"timestick/ui/tui/styles"
)

type AlertsView struct{}

func (v AlertsView) Render(s state.AppState, props ViewProps) string {
	header := MenuHeaderStyle.Width(props.Width).Render("Alert Log")

	var lines []string
	alerts := s.Report.Alerts
	// Newest first.
	for i := len(alerts) - 1; i >= 0; i-- {
		a := alerts[i]
		lines = append(lines, fmt.Sprintf("%s  %s  %s",
			a.Timestamp.Local().Format(time.TimeOnly),
			StyleForLevel(a.Level).Width(8).Render(string(a.Level)),
			a.Message,
		))
	}
	if len(lines) == 0 {
		lines = []string{"No alerts."}
	}

	box := styles.CardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		box,
		lipgloss.NewStyle().Padding(1, 2).Foreground(styles.Subtle).Render("Press 'b' to go back"),
	)
}
