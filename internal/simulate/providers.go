package simulate

import (
	"context"
	"time"

	"timestick/internal/collector"
	"timestick/internal/model"
)

// source is embedded by every simulated provider.
type source struct {
	name string
	gen  *Generator
	now  func() time.Time
}

func (s source) Name() string                         { return s.name }
func (s source) Connect(ctx context.Context) error    { return nil }
func (s source) Disconnect(ctx context.Context) error { return nil }

type deviceProvider struct {
	source
	iface string
}

// Discover always finds the configured demo interface.
func (p deviceProvider) Discover(ctx context.Context) (string, error) {
	return p.iface, nil
}

func (p deviceProvider) Describe(ctx context.Context, iface string, prev model.DeviceInfo) (model.DeviceInfo, error) {
	return p.gen.Device(iface), nil
}

type networkProvider struct{ source }

func (p networkProvider) ReadNetwork(ctx context.Context, iface string, prev model.NetworkStats) (model.NetworkStats, error) {
	return p.gen.Network(p.now(), prev), nil
}

type timeSyncProvider struct{ source }

func (p timeSyncProvider) ReadTimeSync(ctx context.Context, prev model.TimeSyncStatus) (model.TimeSyncStatus, error) {
	return p.gen.TimeSync(p.now(), prev), nil
}

type pulseProvider struct{ source }

func (p pulseProvider) ReadPulse(ctx context.Context, prev model.PulseStatus) (model.PulseStatus, error) {
	return p.gen.Pulse(p.now(), prev), nil
}

type systemProvider struct{ source }

func (p systemProvider) ReadSystem(ctx context.Context, prev model.SystemInfo) (model.SystemInfo, error) {
	return p.gen.System(p.now()), nil
}

// Providers wires a generator into a full simulated provider set reading
// the wall clock.
func Providers(gen *Generator, iface string) collector.Providers {
	return ProvidersWithClock(gen, iface, time.Now)
}

// ProvidersWithClock is Providers with an injectable clock.
func ProvidersWithClock(gen *Generator, iface string, now func() time.Time) collector.Providers {
	src := func(name string) source { return source{name: name, gen: gen, now: now} }
	return collector.Providers{
		Mode:     model.ModeSimulated,
		Device:   deviceProvider{source: src("SimDevice"), iface: iface},
		Network:  networkProvider{src("SimNetwork")},
		TimeSync: timeSyncProvider{src("SimPTP")},
		Pulse:    pulseProvider{src("SimPPS")},
		System:   systemProvider{src("SimHost")},
		Initial:  Initial(iface),
	}
}
