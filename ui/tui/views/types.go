package views

import (
	"timestick/ui/tui/state"
)

// ViewProps carries the per-frame values a page needs besides AppState.
type ViewProps struct {
	Width, Height  int
	MouseX, MouseY int

	MenuCursor  int
	AnimCursor  float64
	SpinnerView string
	ChartView   string
	ScrollY     int
}

// View renders one page.
type View interface {
	Render(s state.AppState, props ViewProps) string
}

var (
	_ View = MenuView{}
	_ View = DashboardView{}
	_ View = AlertsView{}
	_ View = ConsoleView{}
)
