package monitor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"timestick/internal/collector"
	"timestick/internal/model"
	"timestick/internal/simulate"
)

type recordingPublisher struct {
	mu      sync.Mutex
	reports []model.Report
	err     error
}

func (p *recordingPublisher) Publish(r model.Report) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reports = append(p.reports, r)
	return p.err
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.reports)
}

func (p *recordingPublisher) last() model.Report {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reports[len(p.reports)-1]
}

// offlineDevice is a real-mode device provider whose stick is unplugged.
type offlineDevice struct {
	found bool
}

func (d *offlineDevice) Name() string                         { return "Link" }
func (d *offlineDevice) Connect(ctx context.Context) error    { return nil }
func (d *offlineDevice) Disconnect(ctx context.Context) error { return nil }

func (d *offlineDevice) Discover(ctx context.Context) (string, error) {
	if !d.found {
		return "", collector.ErrDeviceNotFound
	}
	return "enx01", nil
}

func (d *offlineDevice) Describe(ctx context.Context, iface string, prev model.DeviceInfo) (model.DeviceInfo, error) {
	prev.Interface = iface
	prev.IsOnline = false
	prev.ConnectionStatus = model.StatusDisconnected
	return prev, nil
}

// blockingSystem holds every read until release is closed.
type blockingSystem struct {
	release chan struct{}
	entered atomic.Bool
}

func (b *blockingSystem) Name() string                         { return "Host" }
func (b *blockingSystem) Connect(ctx context.Context) error    { return nil }
func (b *blockingSystem) Disconnect(ctx context.Context) error { return nil }

func (b *blockingSystem) ReadSystem(ctx context.Context, prev model.SystemInfo) (model.SystemInfo, error) {
	b.entered.Store(true)
	<-b.release
	return prev, nil
}

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.TickInterval = 10 * time.Millisecond
	cfg.ErrorBackoff = 500 * time.Millisecond
	cfg.StopTimeout = time.Second
	cfg.PrefillPoints = 0
	cfg.PrefillInterval = time.Millisecond
	return cfg
}

func simulatedCollector(t *testing.T) *collector.Collector {
	t.Helper()
	p := simulate.Providers(simulate.NewGenerator(1, time.Now()), "eth0")
	c, err := collector.NewCollector(p, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func deviceCollector(t *testing.T, dev collector.DeviceInfoProvider, sys collector.SystemInfoProvider) *collector.Collector {
	t.Helper()
	p := simulate.Providers(simulate.NewGenerator(1, time.Now()), "eth0")
	p.Mode = model.ModeDevice
	p.Initial = model.EmptySnapshot()
	if dev != nil {
		p.Device = dev
	}
	if sys != nil {
		p.System = sys
	}
	c, err := collector.NewCollector(p, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestStartTwiceFails(t *testing.T) {
	m, err := New(simulatedCollector(t), nil, fastConfig(), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("first Start() error = %v", err)
	}
	defer m.Stop()

	if err := m.Start(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Start() error = %v; want ErrAlreadyRunning", err)
	}
	if m.State() != StateRunning {
		t.Errorf("State() = %v; want running", m.State())
	}
}

func TestStartTwiceKeepsSingleTickDriver(t *testing.T) {
	cfg := fastConfig()
	cfg.TickInterval = 100 * time.Millisecond
	pub := &recordingPublisher{}
	m, err := New(simulatedCollector(t), pub, cfg, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("first Start() error = %v", err)
	}
	defer m.Stop()
	for range 3 {
		if err := m.Start(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
			t.Fatalf("repeated Start() error = %v; want ErrAlreadyRunning", err)
		}
	}

	// One driver ticks about ten times a second; a second one would double that.
	waitFor(t, time.Second, func() bool { return pub.count() > 0 })
	before := pub.count()
	time.Sleep(time.Second)
	ticks := pub.count() - before
	if ticks < 5 || ticks > 14 {
		t.Errorf("%d ticks in 1s at a 100ms interval; want about 10", ticks)
	}
}

func TestStopWhenIdleIsNoop(t *testing.T) {
	m, _ := New(simulatedCollector(t), nil, fastConfig(), nil, nil)
	if err := m.Stop(); err != nil {
		t.Errorf("Stop() on idle monitor error = %v", err)
	}
	if m.State() != StateIdle {
		t.Errorf("State() = %v; want idle", m.State())
	}
}

func TestStartFailsWithoutDevice(t *testing.T) {
	m, _ := New(deviceCollector(t, &offlineDevice{}, nil), nil, fastConfig(), nil, nil)

	err := m.Start(context.Background())
	if !errors.Is(err, collector.ErrDeviceNotFound) {
		t.Fatalf("Start() error = %v; want ErrDeviceNotFound", err)
	}
	if m.Running() {
		t.Error("monitor running after failed discovery")
	}
}

func TestSimulatedStartPrefillsHistory(t *testing.T) {
	cfg := fastConfig()
	cfg.PrefillPoints = 50
	pub := &recordingPublisher{}
	m, _ := New(simulatedCollector(t), pub, cfg, nil, nil)

	if err := m.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitFor(t, 3*time.Second, func() bool { return pub.count() > 0 })
	if err := m.Stop(); err != nil {
		t.Fatal(err)
	}

	h := m.History()
	if h.Len() < 51 {
		t.Errorf("history length = %d; want at least 51 after prefill and one tick", h.Len())
	}
	if h.Len() > cfg.HistoryCapacity {
		t.Errorf("history length %d exceeds capacity", h.Len())
	}
	if len(h.PTPOffset) != h.Len() || len(h.NetworkThroughput) != h.Len() {
		t.Error("history series not aligned")
	}

	var success bool
	for _, a := range m.Alerts() {
		if a.Level == model.LevelSuccess {
			success = true
		}
	}
	if !success {
		t.Error("simulated start did not log a success alert")
	}

	r := pub.last()
	if r.Mode != model.ModeSimulated || !r.Monitoring || r.Device.Driver != simulate.DemoDriver {
		t.Errorf("published report = mode %q monitoring %v driver %q", r.Mode, r.Monitoring, r.Device.Driver)
	}
}

func TestNoPublishAfterStop(t *testing.T) {
	pub := &recordingPublisher{}
	m, _ := New(simulatedCollector(t), pub, fastConfig(), nil, nil)

	if err := m.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitFor(t, 2*time.Second, func() bool { return pub.count() >= 3 })
	if err := m.Stop(); err != nil {
		t.Fatal(err)
	}
	n := pub.count()
	time.Sleep(100 * time.Millisecond)
	if got := pub.count(); got != n {
		t.Errorf("published %d reports after Stop returned", got-n)
	}
	if m.Report().Monitoring {
		t.Error("report still claims monitoring after Stop")
	}
}

func TestRestartAfterStop(t *testing.T) {
	pub := &recordingPublisher{}
	m, _ := New(simulatedCollector(t), pub, fastConfig(), nil, nil)

	for i := range 2 {
		if err := m.Start(context.Background()); err != nil {
			t.Fatalf("Start() #%d error = %v", i, err)
		}
		want := pub.count() + 2
		waitFor(t, 2*time.Second, func() bool { return pub.count() >= want })
		if err := m.Stop(); err != nil {
			t.Fatalf("Stop() #%d error = %v", i, err)
		}
	}
}

func TestOfflineDeviceAccumulatesBoundedAlerts(t *testing.T) {
	pub := &recordingPublisher{}
	m, _ := New(deviceCollector(t, &offlineDevice{found: true}, nil), pub, fastConfig(), nil, nil)

	if err := m.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitFor(t, 3*time.Second, func() bool { return pub.count() >= 12 })
	m.Stop()

	alerts := m.Alerts()
	if len(alerts) != 10 {
		t.Fatalf("alert log length = %d; want 10", len(alerts))
	}
	var offline int
	for _, a := range alerts {
		if a.Level == model.LevelError && a.Message == "device not connected" {
			offline++
		}
	}
	if offline == 0 {
		t.Errorf("no offline alert in %+v", alerts)
	}
	if m.Report().Device.IsOnline {
		t.Error("device reported online")
	}
}

func TestTickFailureBacksOff(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("encoder broke")}
	metrics := NewMetrics(nil)
	m, _ := New(simulatedCollector(t), pub, fastConfig(), nil, metrics)

	if err := m.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)
	m.Stop()

	if got := pub.count(); got != 1 {
		t.Errorf("publish attempts = %d; want 1 within the backoff window", got)
	}
	if got := testutil.ToFloat64(metrics.TickFailures); got != 1 {
		t.Errorf("tick failures = %v; want 1", got)
	}
}

func TestStopTimeout(t *testing.T) {
	sys := &blockingSystem{release: make(chan struct{})}
	cfg := fastConfig()
	cfg.StopTimeout = 50 * time.Millisecond
	pub := &recordingPublisher{}
	m, _ := New(deviceCollector(t, &offlineDevice{found: true}, sys), pub, cfg, nil, nil)

	if err := m.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitFor(t, time.Second, sys.entered.Load)

	if err := m.Stop(); !errors.Is(err, ErrStopTimeout) {
		t.Fatalf("Stop() error = %v; want ErrStopTimeout", err)
	}
	close(sys.release)
	time.Sleep(50 * time.Millisecond)
	if got := pub.count(); got != 0 {
		t.Errorf("stale tick published %d reports after Stop", got)
	}
}

func TestReportIsACopy(t *testing.T) {
	pub := &recordingPublisher{}
	m, _ := New(simulatedCollector(t), pub, fastConfig(), nil, nil)
	m.Start(context.Background())
	waitFor(t, 2*time.Second, func() bool { return pub.count() >= 1 })
	m.Stop()

	r := m.Report()
	r.History.PTPOffset[0] = 999_999
	r.Alerts[0].Message = "mutated"

	again := m.Report()
	if again.History.PTPOffset[0] == 999_999 || again.Alerts[0].Message == "mutated" {
		t.Error("Report() shares storage with the monitor")
	}
}

func TestMetricsTrackTicks(t *testing.T) {
	pub := &recordingPublisher{}
	metrics := NewMetrics(nil)
	m, _ := New(simulatedCollector(t), pub, fastConfig(), nil, metrics)

	m.Start(context.Background())
	if got := testutil.ToFloat64(metrics.Running); got != 1 {
		t.Errorf("running gauge = %v; want 1", got)
	}
	waitFor(t, 2*time.Second, func() bool { return pub.count() >= 2 })
	m.Stop()

	if got := testutil.ToFloat64(metrics.Ticks); got < 2 {
		t.Errorf("ticks = %v; want >= 2", got)
	}
	if got := testutil.ToFloat64(metrics.Running); got != 0 {
		t.Errorf("running gauge = %v; want 0", got)
	}
}
