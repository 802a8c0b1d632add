package monitor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"timestick/internal/collector"
	"timestick/internal/engine"
	"timestick/internal/model"
)

var (
	// ErrAlreadyRunning is returned by Start while the loop is active.
	ErrAlreadyRunning = errors.New("monitoring already running")
	// ErrStopTimeout is returned by Stop when the loop did not exit in time.
	ErrStopTimeout = errors.New("monitor loop did not stop in time")
)

// State is the lifecycle state of a Monitor.
type State int

const (
	StateIdle State = iota
	StateRunning
)

func (s State) String() string {
	if s == StateRunning {
		return "running"
	}
	return "idle"
}

// Publisher receives every committed report. Publish must not block on slow
// consumers.
type Publisher interface {
	Publish(r model.Report) error
}

// Config controls the loop cadence and retention.
type Config struct {
	TickInterval    time.Duration
	ErrorBackoff    time.Duration
	StopTimeout     time.Duration
	HistoryCapacity int
	AlertCapacity   int
	PrefillPoints   int
	PrefillInterval time.Duration
	Alerts          engine.Config
}

func DefaultConfig() Config {
	return Config{
		TickInterval:    time.Second,
		ErrorBackoff:    5 * time.Second,
		StopTimeout:     5 * time.Second,
		HistoryCapacity: model.DefaultHistoryCapacity,
		AlertCapacity:   engine.DefaultAlertCapacity,
		PrefillPoints:   50,
		PrefillInterval: 20 * time.Millisecond,
		Alerts:          engine.DefaultConfig(),
	}
}

// Monitor owns the snapshot, history and alert log. Only the loop goroutine
// writes the snapshot; readers get copies.
type Monitor struct {
	cfg       Config
	collector *collector.Collector
	publisher Publisher
	logger    *zap.Logger
	metrics   *Metrics
	now       func() time.Time

	// lifecycle
	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running atomic.Bool

	stateMu  sync.RWMutex
	snapshot model.Snapshot
	history  *model.History
	alerts   *engine.AlertLog
	updated  time.Time

	// pubMu orders publishes against Stop; gen changes on every Start and
	// Stop so a late tick cannot publish for a finished session.
	pubMu sync.Mutex
	gen   uint64
}

// New builds an idle monitor. publisher and metrics may be nil.
func New(c *collector.Collector, publisher Publisher, cfg Config, logger *zap.Logger, metrics *Metrics) (*Monitor, error) {
	if c == nil {
		return nil, errors.New("collector is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Monitor{
		cfg:       cfg,
		collector: c,
		publisher: publisher,
		logger:    logger.Named("monitor"),
		metrics:   metrics,
		now:       time.Now,
		snapshot:  c.Providers().Initial.Clone(),
		history:   model.NewHistory(cfg.HistoryCapacity),
		alerts:    engine.NewAlertLog(cfg.AlertCapacity),
	}, nil
}

// SetPublisher replaces the publisher. It must be called before Start.
func (m *Monitor) SetPublisher(p Publisher) {
	m.pubMu.Lock()
	m.publisher = p
	m.pubMu.Unlock()
}

func (m *Monitor) mode() string {
	if m.collector.Providers().Simulated() {
		return model.ModeSimulated
	}
	return model.ModeDevice
}

// Start discovers the device and launches the loop. The loop outlives ctx's
// cancellation; use Stop to end it.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running.Load() {
		return ErrAlreadyRunning
	}

	iface, err := m.collector.Discover(ctx)
	if err != nil {
		return fmt.Errorf("discover device: %w", err)
	}
	if err := m.collector.Connect(ctx); err != nil {
		m.logger.Warn("some sensors failed to connect", zap.Error(err))
	}

	m.pubMu.Lock()
	m.gen++
	gen := m.gen
	m.pubMu.Unlock()

	at := m.now()
	m.stateMu.Lock()
	m.snapshot.Device.Interface = iface
	if m.collector.Providers().Simulated() {
		m.alerts.Append(model.NewAlert(model.LevelSuccess, "simulation mode active", at))
	}
	m.alerts.Append(model.NewAlert(model.LevelInfo, "monitoring started on "+iface, at))
	m.stateMu.Unlock()

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	m.cancel = cancel
	m.done = done
	m.running.Store(true)
	m.metrics.Running.Set(1)

	m.logger.Info("monitoring started", zap.String("interface", iface), zap.String("mode", m.mode()))
	go m.loop(loopCtx, gen, iface, done)
	return nil
}

// Stop ends the loop and waits for it up to the stop timeout. It is a no-op
// when idle. No report is published once Stop returns.
func (m *Monitor) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running.Load() {
		return nil
	}

	m.cancel()
	m.pubMu.Lock()
	m.gen++
	m.pubMu.Unlock()
	m.running.Store(false)
	m.metrics.Running.Set(0)

	var err error
	select {
	case <-m.done:
	case <-time.After(m.cfg.StopTimeout):
		err = ErrStopTimeout
		m.logger.Warn("monitor loop still busy after stop timeout", zap.Duration("timeout", m.cfg.StopTimeout))
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.StopTimeout)
	defer cancel()
	if derr := m.collector.Disconnect(ctx); derr != nil {
		m.logger.Warn("failed to disconnect sensors", zap.Error(derr))
	}

	m.logger.Info("monitoring stopped")
	return err
}

// State reports whether the loop is running.
func (m *Monitor) State() State {
	if m.running.Load() {
		return StateRunning
	}
	return StateIdle
}

// Running reports whether the loop is active.
func (m *Monitor) Running() bool { return m.running.Load() }

// Report returns a copy of the current state.
func (m *Monitor) Report() model.Report {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return m.reportLocked()
}

func (m *Monitor) reportLocked() model.Report {
	return model.Report{
		Snapshot:   m.snapshot.Clone(),
		Alerts:     m.alerts.Alerts(),
		History:    m.history.Series(),
		Mode:       m.mode(),
		Monitoring: m.running.Load(),
		UpdatedAt:  m.updated,
	}
}

// History returns a copy of the chart series.
func (m *Monitor) History() model.HistorySeries {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return m.history.Series()
}

// Alerts returns a copy of the alert log.
func (m *Monitor) Alerts() []model.Alert {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return m.alerts.Alerts()
}

func (m *Monitor) current(gen uint64) bool {
	m.pubMu.Lock()
	defer m.pubMu.Unlock()
	return m.gen == gen
}

func (m *Monitor) loop(ctx context.Context, gen uint64, iface string, done chan struct{}) {
	defer close(done)

	if m.collector.Providers().Simulated() {
		m.prefill(ctx, gen, iface)
	}

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		wait := m.cfg.TickInterval
		if err := m.tick(ctx, gen, iface); err != nil {
			if ctx.Err() != nil {
				return
			}
			m.metrics.TickFailures.Inc()
			m.logger.Error("tick failed, backing off", zap.Error(err), zap.Duration("backoff", m.cfg.ErrorBackoff))
			wait = m.cfg.ErrorBackoff
		}
		timer.Reset(wait)
	}
}

// prefill seeds the history at a fast cadence so charts are not empty.
func (m *Monitor) prefill(ctx context.Context, gen uint64, iface string) {
	for i := 0; i < m.cfg.PrefillPoints; i++ {
		m.stateMu.RLock()
		prev := m.snapshot.Clone()
		m.stateMu.RUnlock()

		next, _ := m.collector.Collect(ctx, iface, prev)
		if ctx.Err() != nil || !m.current(gen) {
			return
		}
		m.stateMu.Lock()
		m.commitLocked(next, m.now())
		m.stateMu.Unlock()

		select {
		case <-ctx.Done():
			return
		case <-time.After(m.cfg.PrefillInterval):
		}
	}
}

func (m *Monitor) commitLocked(next model.Snapshot, at time.Time) {
	m.snapshot = next
	m.history.Append(model.HistoryPoint{
		Timestamp:           at.UTC(),
		PTPOffsetNs:         next.TimeSync.CurrentOffsetNs,
		TotalThroughputMbps: next.ThroughputMbps(),
	})
	m.updated = at.UTC()
}

// tick runs one collect, evaluate, commit and publish cycle.
func (m *Monitor) tick(ctx context.Context, gen uint64, iface string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tick panic: %v", r)
		}
	}()
	start := m.now()

	m.stateMu.RLock()
	prev := m.snapshot.Clone()
	m.stateMu.RUnlock()

	next, sensorErrs := m.collector.Collect(ctx, iface, prev)
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, se := range sensorErrs {
		m.metrics.SensorErrors.WithLabelValues(se.Sensor, strconv.FormatBool(se.Partial)).Inc()
		if se.Partial {
			m.logger.Debug("partial sensor read", zap.String("sensor", se.Sensor), zap.Error(se.Err))
		} else {
			m.logger.Warn("sensor read failed", zap.String("sensor", se.Sensor), zap.Error(se.Err))
		}
	}

	at := m.now()
	alerts := engine.Evaluate(next, m.cfg.Alerts, at)

	if !m.current(gen) {
		return nil
	}
	m.stateMu.Lock()
	m.commitLocked(next, at)
	m.alerts.Append(alerts...)
	report := m.reportLocked()
	m.stateMu.Unlock()

	m.metrics.Ticks.Inc()
	m.metrics.OffsetNs.Set(float64(next.TimeSync.CurrentOffsetNs))
	m.metrics.ThroughputMbps.Set(next.ThroughputMbps())
	m.metrics.TickDuration.Observe(m.now().Sub(start).Seconds())

	return m.publish(gen, report)
}

func (m *Monitor) publish(gen uint64, r model.Report) error {
	m.pubMu.Lock()
	defer m.pubMu.Unlock()
	if m.gen != gen || m.publisher == nil {
		return nil
	}
	if err := m.publisher.Publish(r); err != nil {
		return fmt.Errorf("publish report: %w", err)
	}
	return nil
}
