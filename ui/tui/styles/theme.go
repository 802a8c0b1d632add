package styles

import "github.com/charmbracelet/lipgloss"

// Palette shared by every page.
var (
	Brand  = lipgloss.AdaptiveColor{Light: "#1B8A94", Dark: "#2BB3C0"}
	Subtle = lipgloss.AdaptiveColor{Light: "#B8BCB0", Dark: "#4A4A4A"}
	Ink    = lipgloss.AdaptiveColor{Light: "#1A1A1A", Dark: "#F2F2F2"}
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Ink).
			Padding(0, 1).
			MarginRight(1)

	// CardStyle frames one dashboard section.
	CardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Brand).
			Padding(0, 1).
			Margin(0, 1, 0, 0)

	StatusStyle = lipgloss.NewStyle().Bold(true)

	ButtonStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(Subtle).
			Foreground(Brand).
			Padding(0, 3).
			MarginRight(2)
)
