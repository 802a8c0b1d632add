package console

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"timestick/internal/model"
	"timestick/internal/output"
)

func TestColorFor(t *testing.T) {
	tests := []struct {
		status   string
		expected string
	}{
		{"WARN", colorYellow},
		{"CRIT", colorRed},
		{"OK", colorGreen},
		{"", colorGreen},
		{"UNKNOWN", colorGreen},
	}

	for _, tt := range tests {
		result := colorFor(tt.status)
		if result != tt.expected {
			t.Errorf("colorFor(%q) = %q; want %q", tt.status, result, tt.expected)
		}
	}
}

func TestValueOf(t *testing.T) {
	tests := []struct {
		item output.Item
		want string
	}{
		{output.Item{Value: 12.34, Unit: "ns"}, "12.3ns"},
		{output.Item{Value: 1000, Unit: "Mb/s", Note: "Connected"}, "1000.0Mb/s Connected"},
		{output.Item{Note: "ax88179_178a"}, "ax88179_178a"},
		{output.Item{Note: strings.Repeat("x", 30)}, strings.Repeat("x", 22) + "..."},
		{output.Item{Value: 3}, "3.0"},
		{output.Item{}, ""},
	}
	for _, tt := range tests {
		if got := valueOf(tt.item); got != tt.want {
			t.Errorf("valueOf(%+v) = %q; want %q", tt.item, got, tt.want)
		}
	}
}

func TestPrint(t *testing.T) {
	view := output.DashboardView{
		Interface:  "enx001",
		Mode:       model.ModeDevice,
		Monitoring: true,
		UpdatedAt:  time.Now(),
		Sections: []output.Section{
			{
				Title: "Time Sync",
				Items: []output.Item{
					{Label: "Offset", Value: 120, Unit: "ns", Status: "OK"},
					{Label: "A Rather Long Label Indeed", Value: 80, Unit: "%", Status: "WARN"},
					{Label: "Critical", Value: 95, Unit: "%", Status: "CRIT"},
					{Label: "With Note", Note: "Info only"},
				},
			},
		},
		Alerts: []model.Alert{model.NewAlert(model.LevelWarning, "network errors: RX=1, TX=0", time.Now())},
	}

	var buf bytes.Buffer
	Print(&buf, view)
	out := buf.String()

	for _, want := range []string{"TIMESTICK enx001", "monitoring", "Time Sync", "120.0ns", "Info only", "network errors: RX=1, TX=0", "A Rather Long..."} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
