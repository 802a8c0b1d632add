package engine

import (
	"math"

	"timestick/internal/model"
)

const (
	StatusHealthy  = "OK"
	StatusWarning  = "WARN"
	StatusCritical = "CRIT"
)

// Check names, also used as item keys by the dashboard.
const (
	CheckLink        = "link"
	CheckOffset      = "offset"
	CheckPulse       = "pulse"
	CheckNetErrors   = "net_errors"
	CheckCPU         = "cpu"
	CheckMemory      = "memory"
	CheckTemperature = "temperature"
)

type CheckResult struct {
	Name   string
	Value  float64
	Status string
}

func getStatus(value, warning, critical float64) string {
	if value > critical {
		return StatusCritical
	}
	if value > warning {
		return StatusWarning
	}
	return StatusHealthy
}

// Check grades each gauge of the snapshot against cfg.
func Check(s model.Snapshot, cfg Config) []CheckResult {
	var result []CheckResult

	link := CheckResult{Name: CheckLink, Value: float64(s.Device.LinkSpeedMbps), Status: StatusHealthy}
	if !s.Device.IsOnline {
		link.Status = StatusCritical
	}
	result = append(result, link)

	if s.TimeSync.Enabled {
		off := math.Abs(float64(s.TimeSync.CurrentOffsetNs))
		result = append(result, CheckResult{
			Name:   CheckOffset,
			Value:  float64(s.TimeSync.CurrentOffsetNs),
			Status: getStatus(off, cfg.Offset.Warning, cfg.Offset.Critical),
		})
	}

	if s.Pulse.Enabled {
		dev := math.Abs(s.Pulse.PulseIntervalMs - model.NominalPulseIntervalMs)
		st := StatusHealthy
		if s.Pulse.PulseCount > 1 && dev > cfg.PulseDeviationMs {
			st = StatusWarning
		}
		result = append(result, CheckResult{Name: CheckPulse, Value: s.Pulse.PulseIntervalMs, Status: st})
	}

	netErr := CheckResult{
		Name:   CheckNetErrors,
		Value:  float64(s.Network.RxErrors + s.Network.TxErrors),
		Status: StatusHealthy,
	}
	if netErr.Value > 0 {
		netErr.Status = StatusWarning
	}
	result = append(result, netErr)

	result = append(result,
		CheckResult{Name: CheckCPU, Value: s.System.CPUUsage, Status: getStatus(s.System.CPUUsage, cfg.CPU.Warning, cfg.CPU.Critical)},
		CheckResult{Name: CheckMemory, Value: s.System.MemoryUsage, Status: getStatus(s.System.MemoryUsage, cfg.Memory.Warning, cfg.Memory.Critical)},
		CheckResult{Name: CheckTemperature, Value: s.System.TemperatureC, Status: getStatus(s.System.TemperatureC, cfg.Temperature.Warning, cfg.Temperature.Critical)},
	)

	return result
}

// StatusOf returns the status of the named check, or "" if it was not run.
func StatusOf(results []CheckResult, name string) string {
	for _, r := range results {
		if r.Name == name {
			return r.Status
		}
	}
	return ""
}
