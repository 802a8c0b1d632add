package engine

import (
	"strings"
	"testing"
	"time"

	"timestick/internal/model"
)

func onlineSnapshot() model.Snapshot {
	s := model.EmptySnapshot()
	s.Device.IsOnline = true
	s.Device.ConnectionStatus = model.StatusConnected
	return s
}

func TestEvaluate(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	cfg := DefaultConfig()

	tests := []struct {
		name   string
		mutate func(*model.Snapshot)
		want   []model.Level
		substr []string
	}{
		{
			name:   "healthy",
			mutate: func(*model.Snapshot) {},
		},
		{
			name: "offline",
			mutate: func(s *model.Snapshot) {
				s.Device.IsOnline = false
			},
			want:   []model.Level{model.LevelError},
			substr: []string{"not connected"},
		},
		{
			name: "large offset",
			mutate: func(s *model.Snapshot) {
				s.TimeSync.Enabled = true
				s.TimeSync.CurrentOffsetNs = 15000
			},
			want:   []model.Level{model.LevelWarning},
			substr: []string{"15000"},
		},
		{
			name: "large negative offset",
			mutate: func(s *model.Snapshot) {
				s.TimeSync.Enabled = true
				s.TimeSync.CurrentOffsetNs = -20000
			},
			want:   []model.Level{model.LevelWarning},
			substr: []string{"-20000"},
		},
		{
			name: "offset at threshold",
			mutate: func(s *model.Snapshot) {
				s.TimeSync.Enabled = true
				s.TimeSync.CurrentOffsetNs = 10000
			},
		},
		{
			name: "offset ignored when sync disabled",
			mutate: func(s *model.Snapshot) {
				s.TimeSync.CurrentOffsetNs = 50000
			},
		},
		{
			name: "network errors",
			mutate: func(s *model.Snapshot) {
				s.Network.RxErrors = 3
				s.Network.TxErrors = 1
			},
			want:   []model.Level{model.LevelWarning},
			substr: []string{"RX=3, TX=1"},
		},
		{
			name: "pulse drift",
			mutate: func(s *model.Snapshot) {
				s.Pulse.Enabled = true
				s.Pulse.PulseCount = 10
				s.Pulse.PulseIntervalMs = 1002.5
			},
			want:   []model.Level{model.LevelWarning},
			substr: []string{"1002.500"},
		},
		{
			name: "everything wrong",
			mutate: func(s *model.Snapshot) {
				s.Device.IsOnline = false
				s.TimeSync.Enabled = true
				s.TimeSync.CurrentOffsetNs = 15000
				s.Network.TxErrors = 2
			},
			want: []model.Level{model.LevelError, model.LevelWarning, model.LevelWarning},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := onlineSnapshot()
			tt.mutate(&s)

			got := Evaluate(s, cfg, now)
			if len(got) != len(tt.want) {
				t.Fatalf("Evaluate() returned %d alerts (%v); want %d", len(got), got, len(tt.want))
			}
			for i, a := range got {
				if a.Level != tt.want[i] {
					t.Errorf("alert %d level = %q; want %q", i, a.Level, tt.want[i])
				}
				if !a.Timestamp.Equal(now) {
					t.Errorf("alert %d timestamp = %v; want %v", i, a.Timestamp, now)
				}
			}
			for i, sub := range tt.substr {
				if !strings.Contains(got[i].Message, sub) {
					t.Errorf("alert %d message %q does not contain %q", i, got[i].Message, sub)
				}
			}
		})
	}
}

func TestAlertLogKeepsMostRecent(t *testing.T) {
	log := NewAlertLog(10)
	now := time.Now()
	for i := range 12 {
		log.Append(model.NewAlert(model.LevelInfo, string(rune('a'+i)), now))
	}

	got := log.Alerts()
	if len(got) != 10 {
		t.Fatalf("Len = %d; want 10", len(got))
	}
	if got[0].Message != "c" || got[9].Message != "l" {
		t.Errorf("log = %q..%q; want c..l", got[0].Message, got[9].Message)
	}

	got[0].Message = "mutated"
	if log.Alerts()[0].Message != "c" {
		t.Error("Alerts() exposes internal storage")
	}
}

func TestAlertLogBatchLargerThanCapacity(t *testing.T) {
	log := NewAlertLog(3)
	var batch []model.Alert
	for i := range 5 {
		batch = append(batch, model.NewAlert(model.LevelWarning, string(rune('0'+i)), time.Now()))
	}
	log.Append(batch...)

	got := log.Alerts()
	if len(got) != 3 || got[0].Message != "2" || got[2].Message != "4" {
		t.Errorf("Alerts() = %v; want messages 2,3,4", got)
	}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*model.Snapshot)
		expected map[string]string
	}{
		{
			name:   "all healthy",
			mutate: func(*model.Snapshot) {},
			expected: map[string]string{
				CheckLink:      StatusHealthy,
				CheckCPU:       StatusHealthy,
				CheckMemory:    StatusHealthy,
				CheckNetErrors: StatusHealthy,
				CheckOffset:    "",
			},
		},
		{
			name: "offline link",
			mutate: func(s *model.Snapshot) {
				s.Device.IsOnline = false
			},
			expected: map[string]string{CheckLink: StatusCritical},
		},
		{
			name: "offset critical",
			mutate: func(s *model.Snapshot) {
				s.TimeSync.Enabled = true
				s.TimeSync.CurrentOffsetNs = -250000
			},
			expected: map[string]string{CheckOffset: StatusCritical},
		},
		{
			name: "cpu warning and hot",
			mutate: func(s *model.Snapshot) {
				s.System.CPUUsage = 75
				s.System.TemperatureC = 90
			},
			expected: map[string]string{CheckCPU: StatusWarning, CheckTemperature: StatusCritical},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := onlineSnapshot()
			tt.mutate(&s)
			results := Check(s, DefaultConfig())
			for name, want := range tt.expected {
				if got := StatusOf(results, name); got != want {
					t.Errorf("status of %s = %q; want %q", name, got, want)
				}
			}
		})
	}
}
