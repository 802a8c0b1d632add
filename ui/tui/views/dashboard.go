package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"

	"timestick/internal/output"
	"timestick/ui/tui/state"
	"timestick/ui/tui/styles"
)

// Zone ids of the dashboard buttons.
const (
	ZoneStart   = "btn_start"
	ZoneStop    = "btn_stop"
	ZoneRefresh = "btn_refresh"
)

type DashboardView struct{}

func renderSection(sec *output.Section) string {
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Render(sec.Title))
	b.WriteString("\n")
	for _, item := range sec.Items {
		valStr := item.Note
		if item.Unit != "" {
			valStr = fmt.Sprintf("%.1f %s", item.Value, item.Unit)
			if item.Note != "" {
				valStr += " " + item.Note
			}
		}
		if item.Status != "" {
			valStr = ColorForStatus(item.Status).Render(fmt.Sprintf("%s [%s]", valStr, item.Status))
		}
		fmt.Fprintf(&b, "%-13s : %s\n", item.Label, valStr)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func (v DashboardView) Render(s state.AppState, props ViewProps) string {
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("disconnected")
	if s.Connected {
		status = lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Render("live")
	}
	updated := "never"
	if !s.LastUpdate.IsZero() {
		updated = s.LastUpdate.Format(time.TimeOnly)
	}
	header := lipgloss.JoinHorizontal(lipgloss.Left,
		props.SpinnerView,
		styles.TitleStyle.Render("timestick"),
		fmt.Sprintf(" %s • %s • mode %s • last update %s", status, s.View.Interface, s.View.Mode, updated),
	)

	buttons := lipgloss.JoinHorizontal(lipgloss.Top,
		zone.Mark(ZoneStart, styles.ButtonStyle.Render("Start")),
		zone.Mark(ZoneStop, styles.ButtonStyle.Render("Stop")),
		zone.Mark(ZoneRefresh, styles.ButtonStyle.Render("Refresh")),
	)

	card := func(id string) string {
		if sec := s.View.SectionByID(id); sec != nil {
			return styles.CardStyle.Render(renderSection(sec))
		}
		return ""
	}

	row1 := lipgloss.JoinHorizontal(lipgloss.Top, card(output.SectionDevice), card(output.SectionTimeSync), card(output.SectionPulse))
	row2 := lipgloss.JoinHorizontal(lipgloss.Top, card(output.SectionNetwork), card(output.SectionSystem))

	footer := "Press 'b' to go back • 'q' to quit"
	if s.Notice != "" {
		footer = s.Notice + " • " + footer
	}

	return zone.Scan(lipgloss.JoinVertical(lipgloss.Left,
		header,
		buttons,
		row1,
		row2,
		props.ChartView,
		lipgloss.NewStyle().Foreground(styles.Subtle).Render(footer),
	))
}
