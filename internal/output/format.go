package output

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"timestick/internal/engine"
	"timestick/internal/model"
)

// Section ids.
const (
	SectionDevice   = "device"
	SectionTimeSync = "timesync"
	SectionPulse    = "pulse"
	SectionNetwork  = "network"
	SectionSystem   = "system"
)

// UI/view-model types (no printing here)
type Item struct {
	Key    string
	Label  string
	Value  float64
	Unit   string
	Status string
	Note   string
}

type Section struct {
	ID    string
	Title string
	Items []Item
}

type DashboardView struct {
	Sections   []Section
	Interface  string
	Mode       string
	Monitoring bool
	UpdatedAt  time.Time
	Alerts     []model.Alert
}

// BuildDashboard converts a report into UI-ready sections graded by cfg.
func BuildDashboard(r model.Report, cfg engine.Config) DashboardView {
	checks := engine.Check(r.Snapshot, cfg)
	status := func(name string) string { return engine.StatusOf(checks, name) }

	d := r.Device
	device := Section{ID: SectionDevice, Title: "Device", Items: []Item{
		{Key: "interface", Label: "Interface", Note: d.Interface},
		{Key: "driver", Label: "Driver", Note: d.Driver},
		{Key: "version", Label: "Version", Note: d.Version},
		{Key: engine.CheckLink, Label: "Link", Value: float64(d.LinkSpeedMbps), Unit: "Mb/s", Status: status(engine.CheckLink), Note: d.ConnectionStatus},
	}}

	ts := r.TimeSync
	timeSync := Section{ID: SectionTimeSync, Title: "Time Sync"}
	if ts.Enabled {
		timeSync.Items = []Item{
			{Key: engine.CheckOffset, Label: "Offset", Value: float64(ts.CurrentOffsetNs), Unit: "ns", Status: status(engine.CheckOffset)},
			{Key: "min_offset", Label: "Min Offset", Value: float64(ts.MinOffsetNs), Unit: "ns"},
			{Key: "max_offset", Label: "Max Offset", Value: float64(ts.MaxOffsetNs), Unit: "ns"},
			{Key: "avg_offset", Label: "Avg Offset", Value: float64(ts.AvgOffsetNs), Unit: "ns"},
			{Key: "frequency", Label: "Freq Adjust", Value: ts.FreqAdjustPPM, Unit: "ppm"},
			{Key: "syncs", Label: "Syncs", Note: humanize.Comma(int64(ts.SyncCount))},
		}
		if ts.LastSync != nil {
			timeSync.Items = append(timeSync.Items, Item{Key: "last_sync", Label: "Last Sync", Note: ts.LastSync.Format(time.TimeOnly)})
		}
	} else {
		timeSync.Items = []Item{{Key: "state", Label: "State", Note: "no hardware clock"}}
	}

	p := r.Pulse
	pulse := Section{ID: SectionPulse, Title: "Pulse"}
	if p.Enabled {
		pulse.Items = []Item{
			{Key: engine.CheckPulse, Label: "Interval", Value: p.PulseIntervalMs, Unit: "ms", Status: status(engine.CheckPulse)},
			{Key: "jitter", Label: "Jitter", Value: p.PulseJitterUs, Unit: "us"},
			{Key: "min_interval", Label: "Min Interval", Value: p.MinIntervalMs, Unit: "ms"},
			{Key: "max_interval", Label: "Max Interval", Value: p.MaxIntervalMs, Unit: "ms"},
			{Key: "pulses", Label: "Pulses", Note: humanize.Comma(int64(p.PulseCount))},
		}
	} else {
		pulse.Items = []Item{{Key: "state", Label: "State", Note: "no pps source"}}
	}

	n := r.Network
	network := Section{ID: SectionNetwork, Title: "Network", Items: []Item{
		{Key: "rx_rate", Label: "RX Rate", Value: n.RxRateMbps, Unit: "Mb/s"},
		{Key: "tx_rate", Label: "TX Rate", Value: n.TxRateMbps, Unit: "Mb/s"},
		{Key: "rx_bytes", Label: "RX Bytes", Note: humanize.Bytes(n.RxBytes)},
		{Key: "tx_bytes", Label: "TX Bytes", Note: humanize.Bytes(n.TxBytes)},
		{Key: "rx_packets", Label: "RX Packets", Note: humanize.Comma(int64(n.RxPackets))},
		{Key: "tx_packets", Label: "TX Packets", Note: humanize.Comma(int64(n.TxPackets))},
		{Key: engine.CheckNetErrors, Label: "Errors", Status: status(engine.CheckNetErrors),
			Note: fmt.Sprintf("RX %s / TX %s", humanize.Comma(int64(n.RxErrors)), humanize.Comma(int64(n.TxErrors)))},
	}}

	s := r.System
	system := Section{ID: SectionSystem, Title: "System", Items: []Item{
		{Key: engine.CheckCPU, Label: "CPU", Value: s.CPUUsage, Unit: "%", Status: status(engine.CheckCPU)},
		{Key: engine.CheckMemory, Label: "Memory", Value: s.MemoryUsage, Unit: "%", Status: status(engine.CheckMemory)},
		{Key: engine.CheckTemperature, Label: "Temperature", Value: s.TemperatureC, Unit: "C", Status: status(engine.CheckTemperature)},
		{Key: "uptime", Label: "Uptime", Note: FormatUptime(s.UptimeSec)},
	}}

	return DashboardView{
		Sections:   []Section{device, timeSync, pulse, network, system},
		Interface:  d.Interface,
		Mode:       r.Mode,
		Monitoring: r.Monitoring,
		UpdatedAt:  r.UpdatedAt,
		Alerts:     r.Alerts,
	}
}

// FormatUptime renders seconds as "3d 4h 5m".
func FormatUptime(sec uint64) string {
	d := sec / 86400
	h := sec % 86400 / 3600
	m := sec % 3600 / 60
	switch {
	case d > 0:
		return fmt.Sprintf("%dd %dh %dm", d, h, m)
	case h > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	default:
		return fmt.Sprintf("%dm %ds", m, sec%60)
	}
}

func (v DashboardView) SectionByID(id string) *Section {
	for i := range v.Sections {
		if v.Sections[i].ID == id {
			return &v.Sections[i]
		}
	}
	return nil
}

func (s Section) ItemByKey(key string) *Item {
	for i := range s.Items {
		if s.Items[i].Key == key {
			return &s.Items[i]
		}
	}
	return nil
}
