package engine

import (
	"fmt"
	"math"
	"time"

	"timestick/internal/model"
)

// DefaultAlertCapacity is how many alerts an AlertLog keeps by default.
const DefaultAlertCapacity = 10

// Evaluate derives the alerts a single snapshot warrants. It has no side
// effects; callers accumulate the result in an AlertLog.
func Evaluate(s model.Snapshot, cfg Config, now time.Time) []model.Alert {
	var alerts []model.Alert

	if !s.Device.IsOnline {
		alerts = append(alerts, model.NewAlert(model.LevelError, "device not connected", now))
	}

	if s.TimeSync.Enabled && absInt64(s.TimeSync.CurrentOffsetNs) > cfg.OffsetWarningNs {
		alerts = append(alerts, model.NewAlert(model.LevelWarning,
			fmt.Sprintf("large time-sync offset: %d ns", s.TimeSync.CurrentOffsetNs), now))
	}

	if s.Network.RxErrors > 0 || s.Network.TxErrors > 0 {
		alerts = append(alerts, model.NewAlert(model.LevelWarning,
			fmt.Sprintf("network errors: RX=%d, TX=%d", s.Network.RxErrors, s.Network.TxErrors), now))
	}

	if s.Pulse.Enabled && s.Pulse.PulseCount > 1 &&
		math.Abs(s.Pulse.PulseIntervalMs-model.NominalPulseIntervalMs) > cfg.PulseDeviationMs {
		alerts = append(alerts, model.NewAlert(model.LevelWarning,
			fmt.Sprintf("pulse interval deviation: %.3f ms", s.Pulse.PulseIntervalMs), now))
	}

	return alerts
}

func absInt64(v int64) int64 {
	if v < 0 {
		if v == math.MinInt64 {
			return math.MaxInt64
		}
		return -v
	}
	return v
}

// AlertLog keeps the most recent alerts, evicting the oldest first.
// It is not safe for concurrent use.
type AlertLog struct {
	capacity int
	items    []model.Alert
}

func NewAlertLog(capacity int) *AlertLog {
	if capacity <= 0 {
		capacity = DefaultAlertCapacity
	}
	return &AlertLog{capacity: capacity, items: make([]model.Alert, 0, capacity)}
}

// Append adds alerts in order and trims the log back to capacity.
func (l *AlertLog) Append(alerts ...model.Alert) {
	l.items = append(l.items, alerts...)
	if over := len(l.items) - l.capacity; over > 0 {
		l.items = append(l.items[:0], l.items[over:]...)
	}
}

// Alerts returns a copy of the log, oldest first.
func (l *AlertLog) Alerts() []model.Alert {
	out := make([]model.Alert, len(l.items))
	copy(out, l.items)
	return out
}

func (l *AlertLog) Len() int { return len(l.items) }
