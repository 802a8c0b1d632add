package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"timestick/internal/collector"
	"timestick/internal/model"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/sensors"
)

// HostSensor reports cpu, memory, uptime and temperature. Each field is read
// on its own; a failed field keeps its previous value, except temperature
// which drops to zero.
type HostSensor struct {
	thermalKeys []string

	cpuPercent   func(ctx context.Context) (float64, error)
	memPercent   func(ctx context.Context) (float64, error)
	uptime       func(ctx context.Context) (uint64, error)
	temperatures func(ctx context.Context) ([]sensors.TemperatureStat, error)
}

// NewHostSensor prefers temperature sensors whose key contains one of
// thermalKeys and falls back to the hottest reading.
func NewHostSensor(thermalKeys []string) *HostSensor {
	return &HostSensor{
		thermalKeys:  thermalKeys,
		cpuPercent:   cpuPercent,
		memPercent:   memPercent,
		uptime:       host.UptimeWithContext,
		temperatures: sensors.TemperaturesWithContext,
	}
}

func cpuPercent(ctx context.Context) (float64, error) {
	pct, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return 0, err
	}
	if len(pct) == 0 {
		return 0, errors.New("no cpu usage reported")
	}
	return pct[0], nil
}

func memPercent(ctx context.Context) (float64, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, err
	}
	return vm.UsedPercent, nil
}

func (s *HostSensor) Name() string {
	return "Host"
}

func (s *HostSensor) Connect(ctx context.Context) error {
	return nil
}

func (s *HostSensor) Disconnect(ctx context.Context) error {
	return nil
}

func (s *HostSensor) ReadSystem(ctx context.Context, prev model.SystemInfo) (model.SystemInfo, error) {
	next := prev
	var errs []error

	if v, err := s.cpuPercent(ctx); err != nil {
		errs = append(errs, fmt.Errorf("cpu: %w", err))
	} else {
		next.CPUUsage = clampPercent(v)
	}

	if v, err := s.memPercent(ctx); err != nil {
		errs = append(errs, fmt.Errorf("memory: %w", err))
	} else {
		next.MemoryUsage = clampPercent(v)
	}

	if v, err := s.uptime(ctx); err != nil {
		errs = append(errs, fmt.Errorf("uptime: %w", err))
	} else {
		next.UptimeSec = v
	}

	temp, err := s.temperature(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("temperature: %w", err))
	}
	next.TemperatureC = clampPercent(temp)

	if len(errs) > 0 {
		return next, &collector.PartialError{Sensor: s.Name(), Err: errors.Join(errs...)}
	}
	return next, nil
}

func (s *HostSensor) temperature(ctx context.Context) (float64, error) {
	temps, err := s.temperatures(ctx)
	// gopsutil returns readings alongside warnings for unreadable zones.
	if len(temps) == 0 {
		if err == nil {
			err = errors.New("no temperature sensors")
		}
		return 0, err
	}

	for _, key := range s.thermalKeys {
		for _, t := range temps {
			if strings.Contains(strings.ToLower(t.SensorKey), strings.ToLower(key)) && t.Temperature > 0 {
				return t.Temperature, nil
			}
		}
	}

	hottest := temps[0].Temperature
	for _, t := range temps[1:] {
		hottest = max(hottest, t.Temperature)
	}
	return hottest, nil
}

func clampPercent(v float64) float64 {
	return min(max(v, 0), 100)
}
