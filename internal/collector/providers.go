package collector

import (
	"context"
	"errors"

	"timestick/internal/model"
)

// ErrDeviceNotFound is returned by Discover when no interface matches.
var ErrDeviceNotFound = errors.New("no matching time-sync device found")

// Sensor is the lifecycle every provider shares.
type Sensor interface {
	Name() string
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
}

// DeviceInfoProvider locates the stick and reports its link state.
type DeviceInfoProvider interface {
	Sensor
	// Discover returns the first active interface driven by a matching
	// driver, or ErrDeviceNotFound.
	Discover(ctx context.Context) (string, error)
	Describe(ctx context.Context, iface string, prev model.DeviceInfo) (model.DeviceInfo, error)
}

// NetworkStatsProvider reads cumulative counters for one interface.
type NetworkStatsProvider interface {
	Sensor
	ReadNetwork(ctx context.Context, iface string, prev model.NetworkStats) (model.NetworkStats, error)
}

// TimeSyncProvider measures the hardware clock offset.
type TimeSyncProvider interface {
	Sensor
	ReadTimeSync(ctx context.Context, prev model.TimeSyncStatus) (model.TimeSyncStatus, error)
}

// PulseProvider reports the PPS input.
type PulseProvider interface {
	Sensor
	ReadPulse(ctx context.Context, prev model.PulseStatus) (model.PulseStatus, error)
}

// SystemInfoProvider reports host health.
type SystemInfoProvider interface {
	Sensor
	ReadSystem(ctx context.Context, prev model.SystemInfo) (model.SystemInfo, error)
}

// Providers is one complete set of readers, either real or simulated.
type Providers struct {
	Mode     string
	Device   DeviceInfoProvider
	Network  NetworkStatsProvider
	TimeSync TimeSyncProvider
	Pulse    PulseProvider
	System   SystemInfoProvider

	// Initial is the snapshot shown before the first tick.
	Initial model.Snapshot
}

// Simulated reports whether the set produces synthetic data.
func (p Providers) Simulated() bool { return p.Mode == model.ModeSimulated }

// Sensors lists the set in a fixed order.
func (p Providers) Sensors() []Sensor {
	return []Sensor{p.Device, p.Network, p.TimeSync, p.Pulse, p.System}
}

// Validate checks that no provider is missing.
func (p Providers) Validate() error {
	switch {
	case p.Device == nil:
		return errors.New("device provider is required")
	case p.Network == nil:
		return errors.New("network provider is required")
	case p.TimeSync == nil:
		return errors.New("time-sync provider is required")
	case p.Pulse == nil:
		return errors.New("pulse provider is required")
	case p.System == nil:
		return errors.New("system provider is required")
	}
	return nil
}

// PartialError reports a read where some fields could not be refreshed.
// The value returned alongside it is still usable.
type PartialError struct {
	Sensor string
	Err    error
}

func (e *PartialError) Error() string {
	return e.Sensor + ": partial read: " + e.Err.Error()
}

func (e *PartialError) Unwrap() error { return e.Err }

// SensorError is one failed provider call within a collection.
type SensorError struct {
	Sensor  string
	Partial bool
	Err     error
}

func (e *SensorError) Error() string {
	return e.Sensor + ": " + e.Err.Error()
}

func (e *SensorError) Unwrap() error { return e.Err }
