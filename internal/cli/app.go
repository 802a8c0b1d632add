package cli

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"timestick/internal/collector"
	"timestick/internal/collector/services"
	"timestick/internal/config"
	"timestick/internal/model"
	"timestick/internal/monitor"
	"timestick/internal/simulate"
)

// addDeviceFlags registers the flags shared by every command that runs a monitor.
func addDeviceFlags(fs *pflag.FlagSet) {
	fs.Bool("simulate", false, "use synthetic data instead of a real adapter")
	fs.Int64("seed", 1, "random seed for simulation mode")
	fs.String("interface", "eth0", "interface name reported in simulation mode")
	fs.String("ptp-device", "", "PTP hardware clock, e.g. /dev/ptp0 (default: the adapter's own clock)")
	fs.String("pps-source", "", "PPS source, e.g. /dev/pps0")
}

// buildProviders returns the simulated set or the real sysfs/ioctl readers.
func buildProviders(cfg config.Config, now time.Time) collector.Providers {
	if cfg.Simulation.Enabled {
		gen := simulate.NewGenerator(cfg.Simulation.Seed, now)
		return simulate.Providers(gen, cfg.Simulation.Interface)
	}
	d := cfg.Device
	return collector.Providers{
		Mode:     model.ModeDevice,
		Device:   services.NewLinkSensor(d.DriverSignatures),
		Network:  services.NewNetSensor(),
		TimeSync: services.NewPTPSensor(d.PTPDevice, d.UTCOffset),
		Pulse:    services.NewPPSSensor(d.PPSSource),
		System:   services.NewHostSensor(d.ThermalKeys),
		Initial:  model.EmptySnapshot(),
	}
}

// app is the monitor with its collector and metrics registry.
type app struct {
	registry  *prometheus.Registry
	collector *collector.Collector
	monitor   *monitor.Monitor
}

func newApp(cfg config.Config, logger *zap.Logger) (*app, error) {
	providers := buildProviders(cfg, time.Now())
	c, err := collector.NewCollector(providers, cfg.Monitor.ProviderTimeout)
	if err != nil {
		return nil, fmt.Errorf("build collector: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m, err := monitor.New(c, nil, cfg.MonitorOptions(), logger, monitor.NewMetrics(reg))
	if err != nil {
		return nil, fmt.Errorf("build monitor: %w", err)
	}
	logger.Info("monitor ready", zap.String("mode", providers.Mode))
	return &app{registry: reg, collector: c, monitor: m}, nil
}
