package views

import (
	"github.com/charmbracelet/lipgloss"

	"timestick/internal/engine"
	"timestick/internal/model"
	"timestick/ui/tui/styles"
)

func ColorForStatus(status string) lipgloss.Style {
	sStyle := styles.StatusStyle
	switch status {
	case engine.StatusWarning:
		return sStyle.Foreground(lipgloss.Color("220")) // Gold
	case engine.StatusCritical:
		return sStyle.Foreground(lipgloss.Color("196")) // Red
	}
	return sStyle.Foreground(lipgloss.Color("46")) // Green
}

func StyleForLevel(level model.Level) lipgloss.Style {
	switch level {
	case model.LevelError:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	case model.LevelWarning:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	case model.LevelSuccess:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
}
