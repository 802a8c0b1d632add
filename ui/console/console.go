package console

import (
	"fmt"
	"io"
	"strings"
	"time"

	"timestick/internal/engine"
	"timestick/internal/model"
	"timestick/internal/output"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
)

const labelWidth = 16

// Print renders the dashboard view to the writer in a compact format.
func Print(w io.Writer, view output.DashboardView) {
	state := "stopped"
	if view.Monitoring {
		state = "monitoring"
	}
	fmt.Fprintf(w, "%s■ TIMESTICK %s%s [%s, %s]\n", colorCyan, view.Interface, colorReset, view.Mode, state)

	for _, sec := range view.Sections {
		fmt.Fprintf(w, "%s─ %s%s\n", colorCyan, sec.Title, colorReset)

		for _, it := range sec.Items {
			label := it.Label
			if len(label) > labelWidth {
				label = label[:labelWidth-3] + "..."
			}
			dots := strings.Repeat("·", labelWidth+2-len(label))
			fmt.Fprintf(w, "  %s%s%s%s %14s%s\n", label, colorCyan, dots, colorReset, valueOf(it), marker(it.Status))
		}
	}

	if len(view.Alerts) > 0 {
		fmt.Fprintf(w, "%s─ Alerts%s\n", colorCyan, colorReset)
		for _, a := range view.Alerts {
			fmt.Fprintf(w, "  %s %s%-7s%s %s\n",
				a.Timestamp.Local().Format(time.TimeOnly), levelColor(a.Level), a.Level, colorReset, a.Message)
		}
	}
	if !view.UpdatedAt.IsZero() {
		fmt.Fprintf(w, "%s─ Updated%s: %s\n", colorCyan, colorReset, view.UpdatedAt.Local().Format(time.DateTime))
	}
	fmt.Fprintln(w)
}

func valueOf(it output.Item) string {
	switch {
	case it.Unit != "" && it.Note != "":
		return fmt.Sprintf("%.1f%s %s", it.Value, it.Unit, it.Note)
	case it.Unit != "":
		return fmt.Sprintf("%.1f%s", it.Value, it.Unit)
	case it.Note != "":
		if len(it.Note) > 25 {
			return it.Note[:22] + "..."
		}
		return it.Note
	case it.Value != 0:
		return fmt.Sprintf("%.1f", it.Value)
	}
	return ""
}

func marker(status string) string {
	color := colorFor(status)
	switch status {
	case engine.StatusHealthy:
		return fmt.Sprintf(" %s✓%s", color, colorReset)
	case engine.StatusWarning:
		return fmt.Sprintf(" %s!%s", color, colorReset)
	case engine.StatusCritical:
		return fmt.Sprintf(" %sX%s", color, colorReset)
	}
	return ""
}

func colorFor(status string) string {
	switch status {
	case engine.StatusWarning:
		return colorYellow
	case engine.StatusCritical:
		return colorRed
	default:
		return colorGreen
	}
}

func levelColor(l model.Level) string {
	switch l {
	case model.LevelError:
		return colorRed
	case model.LevelWarning:
		return colorYellow
	case model.LevelSuccess:
		return colorGreen
	default:
		return colorBlue
	}
}
