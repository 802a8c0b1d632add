package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "timestick"

// Metrics are the loop's Prometheus collectors.
type Metrics struct {
	Ticks          prometheus.Counter
	TickFailures   prometheus.Counter
	SensorErrors   *prometheus.CounterVec
	Running        prometheus.Gauge
	OffsetNs       prometheus.Gauge
	ThroughputMbps prometheus.Gauge
	TickDuration   prometheus.Histogram
}

// NewMetrics registers the collectors with reg. A nil reg leaves them
// unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Ticks: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Completed monitor ticks.",
		}),
		TickFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tick_failures_total",
			Help:      "Ticks that failed and triggered the error backoff.",
		}),
		SensorErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sensor_errors_total",
			Help:      "Failed provider reads by sensor.",
		}, []string{"sensor", "partial"}),
		Running: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "monitoring",
			Help:      "1 while the monitor loop runs.",
		}),
		OffsetNs: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ptp_offset_nanoseconds",
			Help:      "Last measured hardware clock offset.",
		}),
		ThroughputMbps: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "throughput_mbps",
			Help:      "Combined receive and transmit rate of the device interface.",
		}),
		TickDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Time spent collecting and publishing one tick.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
	}
}
