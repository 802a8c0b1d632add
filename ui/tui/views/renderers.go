package views

import (
	"timestick/ui/tui/state"
)

func RenderMenu(s state.AppState, width, height, cursor int, animCursor float64, mouseX, mouseY int) string {
	return MenuView{}.Render(s, ViewProps{
		Width:      width,
		Height:     height,
		MenuCursor: cursor,
		AnimCursor: animCursor,
		MouseX:     mouseX,
		MouseY:     mouseY,
	})
}

func RenderDashboard(s state.AppState, spinnerView, chartView string) string {
	return DashboardView{}.Render(s, ViewProps{
		SpinnerView: spinnerView,
		ChartView:   chartView,
	})
}

func RenderAlerts(s state.AppState, width int) string {
	return AlertsView{}.Render(s, ViewProps{Width: width})
}

func RenderRawConsole(s state.AppState, width, height, scrollY int) string {
	return ConsoleView{}.Render(s, ViewProps{
		Width:   width,
		Height:  height,
		ScrollY: scrollY,
	})
}
