package output

import (
	"testing"
	"time"

	"timestick/internal/engine"
	"timestick/internal/model"
	"timestick/internal/simulate"
)

func sampleReport() model.Report {
	at := time.Date(2026, 5, 1, 8, 30, 0, 0, time.UTC)
	snap := simulate.Initial("eth1")
	snap.TimeSync = snap.TimeSync.WithSample(25000, at)
	snap.Network.RxErrors = 2
	snap.System.CPUUsage = 95
	return model.Report{Snapshot: snap, Mode: model.ModeSimulated, Monitoring: true, UpdatedAt: at}
}

func TestBuildDashboard(t *testing.T) {
	view := BuildDashboard(sampleReport(), engine.DefaultConfig())

	if len(view.Sections) != 5 {
		t.Fatalf("Expected 5 sections, got %d", len(view.Sections))
	}
	if view.Interface != "eth1" || !view.Monitoring || view.Mode != model.ModeSimulated {
		t.Errorf("header = %q %v %q", view.Interface, view.Monitoring, view.Mode)
	}

	tests := []struct {
		section    string
		key        string
		wantStatus string
		wantNote   string
	}{
		{SectionDevice, engine.CheckLink, engine.StatusHealthy, model.StatusConnected},
		{SectionDevice, "driver", "", simulate.DemoDriver},
		{SectionTimeSync, engine.CheckOffset, engine.StatusWarning, ""},
		{SectionTimeSync, "syncs", "", "1"},
		{SectionTimeSync, "last_sync", "", "08:30:00"},
		{SectionPulse, engine.CheckPulse, engine.StatusHealthy, ""},
		{SectionNetwork, "rx_bytes", "", "1.5 GB"},
		{SectionNetwork, "rx_packets", "", "1,000,000"},
		{SectionNetwork, engine.CheckNetErrors, engine.StatusWarning, "RX 2 / TX 0"},
		{SectionSystem, engine.CheckCPU, engine.StatusCritical, ""},
		{SectionSystem, engine.CheckMemory, engine.StatusHealthy, ""},
		{SectionSystem, "uptime", "", "1d 0h 0m"},
	}

	for _, tt := range tests {
		t.Run(tt.section+"/"+tt.key, func(t *testing.T) {
			sec := view.SectionByID(tt.section)
			if sec == nil {
				t.Fatalf("section %s missing", tt.section)
			}
			it := sec.ItemByKey(tt.key)
			if it == nil {
				t.Fatalf("item %s missing", tt.key)
			}
			if it.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", it.Status, tt.wantStatus)
			}
			if tt.wantNote != "" && it.Note != tt.wantNote {
				t.Errorf("note = %q, want %q", it.Note, tt.wantNote)
			}
		})
	}
}

func TestBuildDashboard_DisabledSources(t *testing.T) {
	r := model.Report{Snapshot: model.EmptySnapshot()}
	view := BuildDashboard(r, engine.DefaultConfig())

	if it := view.SectionByID(SectionTimeSync).ItemByKey("state"); it == nil || it.Note != "no hardware clock" {
		t.Errorf("time sync state = %+v", it)
	}
	if it := view.SectionByID(SectionPulse).ItemByKey("state"); it == nil || it.Note != "no pps source" {
		t.Errorf("pulse state = %+v", it)
	}
	if it := view.SectionByID(SectionDevice).ItemByKey(engine.CheckLink); it.Status != engine.StatusCritical {
		t.Errorf("offline link status = %q", it.Status)
	}
	if view.SectionByID("disk") != nil {
		t.Error("unexpected section")
	}
}

func TestFormatUptime(t *testing.T) {
	tests := []struct {
		sec  uint64
		want string
	}{
		{0, "0m 0s"},
		{59, "0m 59s"},
		{3661, "1h 1m"},
		{90061, "1d 1h 1m"},
	}
	for _, tt := range tests {
		if got := FormatUptime(tt.sec); got != tt.want {
			t.Errorf("FormatUptime(%d) = %q, want %q", tt.sec, got, tt.want)
		}
	}
}
