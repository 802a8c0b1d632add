package model

import (
	"math"
	"time"
)

// Connection states reported in DeviceInfo.ConnectionStatus.
const (
	StatusConnected    = "Connected"
	StatusDisconnected = "Disconnected"
)

// Monitor modes reported in Report.Mode.
const (
	ModeDevice    = "device"
	ModeSimulated = "simulated"
)

// NominalPulseIntervalMs is the expected spacing of a 1PPS signal.
const NominalPulseIntervalMs = 1000.0

// DeviceInfo identifies the stick and its link state.
type DeviceInfo struct {
	Interface        string `json:"interface"`
	Driver           string `json:"driver"`
	Version          string `json:"version"`
	ConnectionStatus string `json:"connection_status"`
	LinkSpeedMbps    uint64 `json:"link_speed"`
	IsOnline         bool   `json:"is_online"`
}

// TimeSyncStatus tracks the offset between the hardware clock and system time.
type TimeSyncStatus struct {
	Enabled         bool       `json:"enabled"`
	SyncCount       uint64     `json:"sync_count"`
	CurrentOffsetNs int64      `json:"current_offset_ns"`
	MinOffsetNs     int64      `json:"min_offset_ns"`
	MaxOffsetNs     int64      `json:"max_offset_ns"`
	AvgOffsetNs     int64      `json:"avg_offset_ns"`
	LastSync        *time.Time `json:"last_sync"`
	FreqAdjustPPM   float64    `json:"frequency_adjustment_ppm"`

	// meanNs is the unrounded running mean behind AvgOffsetNs.
	meanNs float64
}

// WithSample returns a copy updated with one offset measurement taken at at.
// The first sample seeds min, max and avg; later ones widen the range and
// fold into the running mean.
func (t TimeSyncStatus) WithSample(offsetNs int64, at time.Time) TimeSyncStatus {
	if t.SyncCount == 0 {
		t.MinOffsetNs = offsetNs
		t.MaxOffsetNs = offsetNs
		t.meanNs = float64(offsetNs)
	} else {
		t.MinOffsetNs = min(t.MinOffsetNs, offsetNs)
		t.MaxOffsetNs = max(t.MaxOffsetNs, offsetNs)
		if t.meanNs == 0 {
			// Decoded from JSON; only the rounded mean survived.
			t.meanNs = float64(t.AvgOffsetNs)
		}
		n := float64(t.SyncCount)
		t.meanNs = (t.meanNs*n + float64(offsetNs)) / (n + 1)
	}
	t.AvgOffsetNs = int64(math.Round(t.meanNs))
	t.CurrentOffsetNs = offsetNs
	t.SyncCount++
	at = at.UTC()
	t.LastSync = &at
	return t
}

// PulseStatus describes the PPS input.
type PulseStatus struct {
	Enabled         bool       `json:"enabled"`
	PulseCount      uint64     `json:"pulse_count"`
	LastPulseTime   *time.Time `json:"last_pulse_time"`
	PulseIntervalMs float64    `json:"pulse_interval_ms"`
	PulseJitterUs   float64    `json:"pulse_jitter_us"`
	MinIntervalMs   float64    `json:"min_interval_ms"`
	MaxIntervalMs   float64    `json:"max_interval_ms"`
}

// WithPulses returns a copy that accounts for count new pulses, the last of
// which arrived at at, intervalMs after its predecessor.
func (p PulseStatus) WithPulses(intervalMs float64, at time.Time, count uint64) PulseStatus {
	if count == 0 {
		return p
	}
	if p.MinIntervalMs == 0 || intervalMs < p.MinIntervalMs {
		p.MinIntervalMs = intervalMs
	}
	if intervalMs > p.MaxIntervalMs {
		p.MaxIntervalMs = intervalMs
	}
	p.PulseIntervalMs = intervalMs
	dev := intervalMs - NominalPulseIntervalMs
	if dev < 0 {
		dev = -dev
	}
	p.PulseJitterUs = dev * 1000
	p.PulseCount += count
	at = at.UTC()
	p.LastPulseTime = &at
	return p
}

// NetworkStats holds cumulative interface counters and current rates.
type NetworkStats struct {
	RxPackets  uint64  `json:"rx_packets"`
	TxPackets  uint64  `json:"tx_packets"`
	RxBytes    uint64  `json:"rx_bytes"`
	TxBytes    uint64  `json:"tx_bytes"`
	RxErrors   uint64  `json:"rx_errors"`
	TxErrors   uint64  `json:"tx_errors"`
	RxRateMbps float64 `json:"rx_rate_mbps"`
	TxRateMbps float64 `json:"tx_rate_mbps"`
}

// SystemInfo is the host health summary.
type SystemInfo struct {
	CPUUsage     float64 `json:"cpu_usage"`
	MemoryUsage  float64 `json:"memory_usage"`
	UptimeSec    uint64  `json:"uptime"`
	TemperatureC float64 `json:"temperature"`
}

// Snapshot is the full device state at one instant.
type Snapshot struct {
	Device   DeviceInfo     `json:"device_info"`
	TimeSync TimeSyncStatus `json:"ptp_status"`
	Pulse    PulseStatus    `json:"pps_status"`
	Network  NetworkStats   `json:"network_stats"`
	System   SystemInfo     `json:"system_info"`
}

// EmptySnapshot is the state before anything has been read from a device.
func EmptySnapshot() Snapshot {
	return Snapshot{
		Device: DeviceInfo{
			Interface:        "eth0",
			Driver:           "Unknown",
			Version:          "Unknown",
			ConnectionStatus: StatusDisconnected,
		},
	}
}

// ThroughputMbps is the combined receive and transmit rate.
func (s Snapshot) ThroughputMbps() float64 {
	return s.Network.RxRateMbps + s.Network.TxRateMbps
}

// Clone returns a deep copy; the time pointers are not shared.
func (s Snapshot) Clone() Snapshot {
	s.TimeSync.LastSync = cloneTime(s.TimeSync.LastSync)
	s.Pulse.LastPulseTime = cloneTime(s.Pulse.LastPulseTime)
	return s
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// Report is the document served to every reader: the snapshot plus the
// accumulated alerts and history.
type Report struct {
	Snapshot
	Alerts     []Alert       `json:"alerts"`
	History    HistorySeries `json:"history"`
	Mode       string        `json:"mode"`
	Monitoring bool          `json:"monitoring"`
	UpdatedAt  time.Time     `json:"updated_at"`
}
