package config

import (
	"net"
	"strconv"
	"time"

	"timestick/internal/broadcast"
	"timestick/internal/engine"
	"timestick/internal/monitor"
)

// Config is the full runtime configuration. Use Default() and override
// fields with the With* helpers or Load().
type Config struct {
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
	Monitor    MonitorConfig    `mapstructure:"monitor" yaml:"monitor"`
	Device     DeviceConfig     `mapstructure:"device" yaml:"device"`
	Alerts     AlertsConfig     `mapstructure:"alerts" yaml:"alerts"`
	Broadcast  BroadcastConfig  `mapstructure:"broadcast" yaml:"broadcast"`
	MQTT       MQTTConfig       `mapstructure:"mqtt" yaml:"mqtt"`
	Simulation SimulationConfig `mapstructure:"simulation" yaml:"simulation"`
	Log        LogConfig        `mapstructure:"log" yaml:"log"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host" yaml:"host"`
	Port         int           `mapstructure:"port" yaml:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	// Autostart begins monitoring as soon as the server is up.
	Autostart bool `mapstructure:"autostart" yaml:"autostart"`
}

// Addr returns host:port for the listener.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

type MonitorConfig struct {
	TickInterval    time.Duration `mapstructure:"tick_interval" yaml:"tick_interval"`
	ErrorBackoff    time.Duration `mapstructure:"error_backoff" yaml:"error_backoff"`
	StopTimeout     time.Duration `mapstructure:"stop_timeout" yaml:"stop_timeout"`
	ProviderTimeout time.Duration `mapstructure:"provider_timeout" yaml:"provider_timeout"`
	HistoryCapacity int           `mapstructure:"history_capacity" yaml:"history_capacity"`
	AlertCapacity   int           `mapstructure:"alert_capacity" yaml:"alert_capacity"`
	PrefillPoints   int           `mapstructure:"prefill_points" yaml:"prefill_points"`
	PrefillInterval time.Duration `mapstructure:"prefill_interval" yaml:"prefill_interval"`
}

type DeviceConfig struct {
	// DriverSignatures are matched case-insensitively against the driver name.
	DriverSignatures []string      `mapstructure:"driver_signatures" yaml:"driver_signatures"`
	PTPDevice        string        `mapstructure:"ptp_device" yaml:"ptp_device"`
	PPSSource        string        `mapstructure:"pps_source" yaml:"pps_source"`
	UTCOffset        time.Duration `mapstructure:"utc_offset" yaml:"utc_offset"`
	ThermalKeys      []string      `mapstructure:"thermal_keys" yaml:"thermal_keys"`
}

type AlertsConfig struct {
	OffsetWarningNs  int64   `mapstructure:"offset_warning_ns" yaml:"offset_warning_ns"`
	OffsetCriticalNs int64   `mapstructure:"offset_critical_ns" yaml:"offset_critical_ns"`
	PulseDeviationMs float64 `mapstructure:"pulse_deviation_ms" yaml:"pulse_deviation_ms"`
	CPUWarning       float64 `mapstructure:"cpu_warning" yaml:"cpu_warning"`
	CPUCritical      float64 `mapstructure:"cpu_critical" yaml:"cpu_critical"`
	MemoryWarning    float64 `mapstructure:"memory_warning" yaml:"memory_warning"`
	MemoryCritical   float64 `mapstructure:"memory_critical" yaml:"memory_critical"`
	TempWarning      float64 `mapstructure:"temperature_warning" yaml:"temperature_warning"`
	TempCritical     float64 `mapstructure:"temperature_critical" yaml:"temperature_critical"`
}

type BroadcastConfig struct {
	SendBuffer   int           `mapstructure:"send_buffer" yaml:"send_buffer"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	PingInterval time.Duration `mapstructure:"ping_interval" yaml:"ping_interval"`
	PongWait     time.Duration `mapstructure:"pong_wait" yaml:"pong_wait"`
}

// MQTTConfig is disabled while Broker is empty.
type MQTTConfig struct {
	Broker         string        `mapstructure:"broker" yaml:"broker"`
	Topic          string        `mapstructure:"topic" yaml:"topic"`
	ClientID       string        `mapstructure:"client_id" yaml:"client_id"`
	QoS            int           `mapstructure:"qos" yaml:"qos"`
	Retained       bool          `mapstructure:"retained" yaml:"retained"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" yaml:"connect_timeout"`
}

func (m MQTTConfig) Enabled() bool { return m.Broker != "" }

type SimulationConfig struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	Seed      int64  `mapstructure:"seed" yaml:"seed"`
	Interface string `mapstructure:"interface" yaml:"interface"`
}

type LogConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Development bool   `mapstructure:"development" yaml:"development"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	mon := monitor.DefaultConfig()
	thr := engine.DefaultConfig()
	hub := broadcast.DefaultOptions()
	return Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			Autostart:    true,
		},
		Monitor: MonitorConfig{
			TickInterval:    mon.TickInterval,
			ErrorBackoff:    mon.ErrorBackoff,
			StopTimeout:     mon.StopTimeout,
			ProviderTimeout: 800 * time.Millisecond,
			HistoryCapacity: mon.HistoryCapacity,
			AlertCapacity:   mon.AlertCapacity,
			PrefillPoints:   mon.PrefillPoints,
			PrefillInterval: mon.PrefillInterval,
		},
		Device: DeviceConfig{
			DriverSignatures: []string{"ax88179", "ax88279"},
			ThermalKeys:      []string{"coretemp", "k10temp", "cpu_thermal", "acpitz"},
		},
		Alerts: AlertsConfig{
			OffsetWarningNs:  thr.OffsetWarningNs,
			OffsetCriticalNs: int64(thr.Offset.Critical),
			PulseDeviationMs: thr.PulseDeviationMs,
			CPUWarning:       thr.CPU.Warning,
			CPUCritical:      thr.CPU.Critical,
			MemoryWarning:    thr.Memory.Warning,
			MemoryCritical:   thr.Memory.Critical,
			TempWarning:      thr.Temperature.Warning,
			TempCritical:     thr.Temperature.Critical,
		},
		Broadcast: BroadcastConfig{
			SendBuffer:   hub.SendBuffer,
			WriteTimeout: hub.WriteTimeout,
			PingInterval: hub.PingInterval,
			PongWait:     hub.PongWait,
		},
		MQTT: MQTTConfig{
			Topic:          "timestick/report",
			QoS:            0,
			ConnectTimeout: 10 * time.Second,
		},
		Simulation: SimulationConfig{
			Seed:      1,
			Interface: "eth0",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// WithSimulation returns a copy of the config with simulation enabled/disabled.
func (c Config) WithSimulation(enabled bool) Config {
	c.Simulation.Enabled = enabled
	return c
}

// WithListen returns a copy of the config listening on host:port.
func (c Config) WithListen(host string, port int) Config {
	c.Server.Host = host
	c.Server.Port = port
	return c
}

// WithTickInterval returns a copy of the config with a modified tick interval.
func (c Config) WithTickInterval(d time.Duration) Config {
	c.Monitor.TickInterval = d
	return c
}

// WithMQTTBroker returns a copy of the config publishing to broker.
func (c Config) WithMQTTBroker(broker string) Config {
	c.MQTT.Broker = broker
	return c
}

// WithLogLevel returns a copy of the config with a modified log level.
func (c Config) WithLogLevel(level string) Config {
	c.Log.Level = level
	return c
}

// Validate checks the configuration and returns a *ConfigError on the first
// problem found.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return &ConfigError{Field: "server.port", Message: "must be between 1 and 65535"}
	}
	if c.Monitor.TickInterval <= 0 {
		return &ConfigError{Field: "monitor.tick_interval", Message: "must be positive"}
	}
	if c.Monitor.ErrorBackoff <= 0 {
		return &ConfigError{Field: "monitor.error_backoff", Message: "must be positive"}
	}
	if c.Monitor.StopTimeout <= 0 {
		return &ConfigError{Field: "monitor.stop_timeout", Message: "must be positive"}
	}
	if c.Monitor.ProviderTimeout <= 0 {
		return &ConfigError{Field: "monitor.provider_timeout", Message: "must be positive"}
	}
	if c.Monitor.HistoryCapacity <= 0 {
		return &ConfigError{Field: "monitor.history_capacity", Message: "must be positive"}
	}
	if c.Monitor.AlertCapacity <= 0 {
		return &ConfigError{Field: "monitor.alert_capacity", Message: "must be positive"}
	}
	if c.Monitor.PrefillPoints < 0 {
		return &ConfigError{Field: "monitor.prefill_points", Message: "must not be negative"}
	}
	if !c.Simulation.Enabled && len(c.Device.DriverSignatures) == 0 {
		return &ConfigError{Field: "device.driver_signatures", Message: "must not be empty"}
	}
	if c.Alerts.OffsetWarningNs <= 0 {
		return &ConfigError{Field: "alerts.offset_warning_ns", Message: "must be positive"}
	}
	if c.Alerts.PulseDeviationMs <= 0 {
		return &ConfigError{Field: "alerts.pulse_deviation_ms", Message: "must be positive"}
	}
	if c.Broadcast.SendBuffer <= 0 {
		return &ConfigError{Field: "broadcast.send_buffer", Message: "must be positive"}
	}
	if c.MQTT.Enabled() && c.MQTT.Topic == "" {
		return &ConfigError{Field: "mqtt.topic", Message: "must not be empty"}
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		return &ConfigError{Field: "mqtt.qos", Message: "must be 0, 1 or 2"}
	}
	if c.Simulation.Enabled && c.Simulation.Interface == "" {
		return &ConfigError{Field: "simulation.interface", Message: "must not be empty"}
	}
	return nil
}

// MonitorOptions converts the monitor and alert sections.
func (c Config) MonitorOptions() monitor.Config {
	return monitor.Config{
		TickInterval:    c.Monitor.TickInterval,
		ErrorBackoff:    c.Monitor.ErrorBackoff,
		StopTimeout:     c.Monitor.StopTimeout,
		HistoryCapacity: c.Monitor.HistoryCapacity,
		AlertCapacity:   c.Monitor.AlertCapacity,
		PrefillPoints:   c.Monitor.PrefillPoints,
		PrefillInterval: c.Monitor.PrefillInterval,
		Alerts:          c.Thresholds(),
	}
}

// Thresholds converts the alerts section.
func (c Config) Thresholds() engine.Config {
	a := c.Alerts
	return engine.Config{
		OffsetWarningNs:  a.OffsetWarningNs,
		PulseDeviationMs: a.PulseDeviationMs,
		Offset:           engine.Thresholds{Warning: float64(a.OffsetWarningNs), Critical: float64(a.OffsetCriticalNs)},
		CPU:              engine.Thresholds{Warning: a.CPUWarning, Critical: a.CPUCritical},
		Memory:           engine.Thresholds{Warning: a.MemoryWarning, Critical: a.MemoryCritical},
		Temperature:      engine.Thresholds{Warning: a.TempWarning, Critical: a.TempCritical},
	}
}

// HubOptions converts the broadcast section.
func (c Config) HubOptions() broadcast.Options {
	opts := broadcast.DefaultOptions()
	opts.SendBuffer = c.Broadcast.SendBuffer
	opts.WriteTimeout = c.Broadcast.WriteTimeout
	opts.PingInterval = c.Broadcast.PingInterval
	opts.PongWait = c.Broadcast.PongWait
	return opts
}

// MQTTOptions converts the mqtt section.
func (c Config) MQTTOptions() broadcast.MQTTConfig {
	return broadcast.MQTTConfig{
		Broker:         c.MQTT.Broker,
		Topic:          c.MQTT.Topic,
		ClientID:       c.MQTT.ClientID,
		QoS:            byte(c.MQTT.QoS),
		Retained:       c.MQTT.Retained,
		ConnectTimeout: c.MQTT.ConnectTimeout,
	}
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error: " + e.Field + " " + e.Message
}
