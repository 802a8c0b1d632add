package simulate

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"timestick/internal/model"
)

// Demo device identity.
const (
	DemoDriver  = "ax88179_178a_demo"
	DemoVersion = "1.2.0-demo"
	DemoSpeed   = 1000
)

const demoUptimeBase = 86400

// Generator produces plausible readings as a function of the time elapsed
// since start. Each section draws from its own source seeded from the same
// seed, so two generators with the same seed and the same read times agree
// however the section reads interleave.
type Generator struct {
	start time.Time

	timeSync *source
	pulse    *source
	network  *source
	system   *source
}

// NewGenerator creates a generator whose waveforms are anchored at start.
func NewGenerator(seed int64, start time.Time) *Generator {
	return &Generator{
		start:    start,
		timeSync: newSource(seed, 1),
		pulse:    newSource(seed, 2),
		network:  newSource(seed, 3),
		system:   newSource(seed, 4),
	}
}

// Start returns the anchor time.
func (g *Generator) Start() time.Time { return g.start }

func (g *Generator) elapsed(at time.Time) float64 {
	e := at.Sub(g.start).Seconds()
	if e < 0 {
		return 0
	}
	return e
}

// source is one section's random stream. Callers hold mu across a reading.
type source struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func newSource(seed, section int64) *source {
	return &source{rng: rand.New(rand.NewSource(seed*31 + section))}
}

// uniform returns a value in [lo, hi].
func (s *source) uniform(lo, hi float64) float64 {
	return lo + s.rng.Float64()*(hi-lo)
}

// intn returns an integer in [lo, hi].
func (s *source) intn(lo, hi int64) int64 {
	return lo + s.rng.Int63n(hi-lo+1)
}

// Initial is the demo snapshot shown before the first tick.
func Initial(iface string) model.Snapshot {
	return model.Snapshot{
		Device: model.DeviceInfo{
			Interface:        iface,
			Driver:           DemoDriver,
			Version:          DemoVersion,
			ConnectionStatus: model.StatusConnected,
			LinkSpeedMbps:    DemoSpeed,
			IsOnline:         true,
		},
		TimeSync: model.TimeSyncStatus{Enabled: true},
		Pulse: model.PulseStatus{
			Enabled:         true,
			PulseIntervalMs: model.NominalPulseIntervalMs,
			PulseJitterUs:   2.0,
		},
		Network: model.NetworkStats{
			RxPackets: 1_000_000,
			TxPackets: 950_000,
			RxBytes:   1_500_000_000,
			TxBytes:   1_200_000_000,
		},
		System: model.SystemInfo{
			CPUUsage:     25.0,
			MemoryUsage:  45.0,
			UptimeSec:    demoUptimeBase,
			TemperatureC: 42.5,
		},
	}
}

// Device reports the demo stick; it is always connected.
func (g *Generator) Device(iface string) model.DeviceInfo {
	return Initial(iface).Device
}

// TimeSync adds one offset sample following a slow sine plus noise.
func (g *Generator) TimeSync(at time.Time, prev model.TimeSyncStatus) model.TimeSyncStatus {
	e := g.elapsed(at)
	r := g.timeSync
	r.mu.Lock()
	noise := r.intn(-50, 50)
	r.mu.Unlock()

	offset := int64(math.Round(100*math.Sin(e/60))) + noise
	next := prev.WithSample(offset, at)
	next.Enabled = true
	return next
}

// Pulse adds one pulse with a few microseconds of jitter.
func (g *Generator) Pulse(at time.Time, prev model.PulseStatus) model.PulseStatus {
	r := g.pulse
	r.mu.Lock()
	interval := model.NominalPulseIntervalMs + r.uniform(-0.01, 0.01)
	jitter := r.uniform(0.5, 3.0)
	r.mu.Unlock()

	next := prev.WithPulses(interval, at, 1)
	next.Enabled = true
	next.PulseJitterUs = jitter
	return next
}

// Network advances every counter by a random step and sets rates from two
// phase-shifted sines.
func (g *Generator) Network(at time.Time, prev model.NetworkStats) model.NetworkStats {
	e := g.elapsed(at)
	base := 50 + 30*math.Sin(e/30)

	r := g.network
	r.mu.Lock()
	defer r.mu.Unlock()

	next := prev
	next.RxRateMbps = math.Max(0, base+r.uniform(-5, 5))
	next.TxRateMbps = math.Max(0, base*0.8+r.uniform(-3, 3))
	next.RxPackets = addSat(next.RxPackets, uint64(r.intn(100, 1000)))
	next.TxPackets = addSat(next.TxPackets, uint64(r.intn(80, 800)))
	next.RxBytes = addSat(next.RxBytes, uint64(r.intn(150_000, 1_500_000)))
	next.TxBytes = addSat(next.TxBytes, uint64(r.intn(120_000, 1_200_000)))

	if r.rng.Float64() < 0.01 {
		next.RxErrors = addSat(next.RxErrors, uint64(r.intn(1, 3)))
	}
	if r.rng.Float64() < 0.005 {
		next.TxErrors = addSat(next.TxErrors, uint64(r.intn(1, 2)))
	}
	return next
}

// System follows slow sines for load, memory and temperature.
func (g *Generator) System(at time.Time) model.SystemInfo {
	e := g.elapsed(at)

	r := g.system
	r.mu.Lock()
	defer r.mu.Unlock()

	return model.SystemInfo{
		CPUUsage:     clamp(20+15*math.Sin(e/45)+r.uniform(-5, 5), 0, 100),
		MemoryUsage:  clamp(40+10*math.Sin(e/120)+r.uniform(-3, 3), 0, 100),
		TemperatureC: clamp(40+5*math.Sin(e/200)+r.uniform(-2, 2), 0, 100),
		UptimeSec:    demoUptimeBase + uint64(e),
	}
}

// addSat adds without wrapping; counters stick at the maximum.
func addSat(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
