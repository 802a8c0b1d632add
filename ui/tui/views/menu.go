package views

import (
	"fmt"
	"math"

	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"

	"timestick/ui/tui/state"
	"timestick/ui/tui/styles"
)

// MenuOptions are the entries of the main menu, in cursor order.
var MenuOptions = []string{
	"Live Dashboard",
	"Alert Log",
	"Console Output View",
	"Start Monitoring",
	"Stop Monitoring",
}

// menuStartIndex is the first control entry; a blank row separates it from the pages.
const menuStartIndex = 3

// MenuZone is the bubblezone id of menu entry i.
func MenuZone(i int) string { return fmt.Sprintf("menu_%d", i) }

type MenuView struct{}

func (v MenuView) Render(s state.AppState, props ViewProps) string {
	header := MenuHeaderStyle.Width(props.Width).Render("TIMESTICK  PTP / PPS adapter monitor")

	// Header and status line take the first six rows.
	const firstRow = 6
	rows := make([]string, 0, len(MenuOptions))
	for i, option := range MenuOptions {
		// weight is 1 under the animated cursor and fades to 0 one row away.
		weight := max(0, 1-math.Abs(float64(i)-props.AnimCursor))
		indent := 2 + int(math.Round(weight*3))

		marker := "  "
		style := MenuItemStyle
		switch {
		case i == props.MenuCursor:
			marker = "▸ "
			style = MenuSelectedStyle
		case props.MouseY == menuRow(firstRow, i):
			style = MenuHoverStyle
		}
		if i == menuStartIndex {
			rows = append(rows, "")
		}
		row := lipgloss.NewStyle().PaddingLeft(indent).Render(style.Render(marker + option))
		rows = append(rows, zone.Mark(MenuZone(i), row))
	}

	var notice string
	if s.Notice != "" {
		notice = lipgloss.NewStyle().PaddingLeft(2).Foreground(BrandColor).Render(s.Notice)
	}
	help := lipgloss.NewStyle().PaddingLeft(2).Foreground(BaseColor).
		Render("↑/↓ move  enter open  s start  x stop  r refresh  q quit")

	return zone.Scan(lipgloss.JoinVertical(lipgloss.Left,
		header,
		CopyStyle.Render(connectionLine(s)),
		lipgloss.JoinVertical(lipgloss.Left, rows...),
		"",
		notice,
		help,
	))
}

func menuRow(first, i int) int {
	if i >= menuStartIndex {
		return first + i + 1
	}
	return first + i
}

func connectionLine(s state.AppState) string {
	if !s.Connected {
		if s.Err != nil {
			return "Disconnected: " + s.Err.Error()
		}
		return "Connecting to server..."
	}
	st := "idle"
	if s.Report.Monitoring {
		st = "monitoring"
	}
	return fmt.Sprintf("%s on %s (%s)", st, s.Report.Device.Interface, s.Report.Mode)
}

var (
	BrandColor = styles.Brand
	BaseColor  = lipgloss.Color("#666")

	MenuHeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(BrandColor).
			Padding(1, 2)

	CopyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888")).
			Italic(true).
			Margin(1, 0).
			PaddingLeft(2)

	MenuItemStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAA"))
	MenuHoverStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#DDD"))
	MenuSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(BrandColor)
)
