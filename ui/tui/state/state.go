package state

import (
	"time"

	"timestick/internal/model"
	"timestick/internal/output"
)

type Page int

const (
	PageMenu Page = iota
	PageDashboard
	PageAlerts
	PageConsole
)

// AppState holds the latest report received from the server.
type AppState struct {
	Report      model.Report
	View        output.DashboardView
	LastUpdate  time.Time
	Connected   bool
	Err         error
	Notice      string
	ConsoleLogs []string
	CurrentPage Page
}
