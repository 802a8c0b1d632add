package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. TIMESTICK_SERVER_PORT.
const EnvPrefix = "TIMESTICK"

// flagKeys maps command-line flags onto config keys.
var flagKeys = map[string]string{
	"host":        "server.host",
	"port":        "server.port",
	"simulate":    "simulation.enabled",
	"seed":        "simulation.seed",
	"interface":   "simulation.interface",
	"mqtt-broker": "mqtt.broker",
	"mqtt-topic":  "mqtt.topic",
	"log-level":   "log.level",
	"ptp-device":  "device.ptp_device",
	"pps-source":  "device.pps_source",
}

// Load resolves the configuration from defaults, an optional YAML file,
// TIMESTICK_* environment variables and flags, in increasing precedence.
// Only flags the user actually set override the other sources.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("timestick")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/timestick/")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// setDefaults registers every key so environment variables resolve even
// when no file mentions them.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.autostart", d.Server.Autostart)

	v.SetDefault("monitor.tick_interval", d.Monitor.TickInterval)
	v.SetDefault("monitor.error_backoff", d.Monitor.ErrorBackoff)
	v.SetDefault("monitor.stop_timeout", d.Monitor.StopTimeout)
	v.SetDefault("monitor.provider_timeout", d.Monitor.ProviderTimeout)
	v.SetDefault("monitor.history_capacity", d.Monitor.HistoryCapacity)
	v.SetDefault("monitor.alert_capacity", d.Monitor.AlertCapacity)
	v.SetDefault("monitor.prefill_points", d.Monitor.PrefillPoints)
	v.SetDefault("monitor.prefill_interval", d.Monitor.PrefillInterval)

	v.SetDefault("device.driver_signatures", d.Device.DriverSignatures)
	v.SetDefault("device.ptp_device", d.Device.PTPDevice)
	v.SetDefault("device.pps_source", d.Device.PPSSource)
	v.SetDefault("device.utc_offset", d.Device.UTCOffset)
	v.SetDefault("device.thermal_keys", d.Device.ThermalKeys)

	v.SetDefault("alerts.offset_warning_ns", d.Alerts.OffsetWarningNs)
	v.SetDefault("alerts.offset_critical_ns", d.Alerts.OffsetCriticalNs)
	v.SetDefault("alerts.pulse_deviation_ms", d.Alerts.PulseDeviationMs)
	v.SetDefault("alerts.cpu_warning", d.Alerts.CPUWarning)
	v.SetDefault("alerts.cpu_critical", d.Alerts.CPUCritical)
	v.SetDefault("alerts.memory_warning", d.Alerts.MemoryWarning)
	v.SetDefault("alerts.memory_critical", d.Alerts.MemoryCritical)
	v.SetDefault("alerts.temperature_warning", d.Alerts.TempWarning)
	v.SetDefault("alerts.temperature_critical", d.Alerts.TempCritical)

	v.SetDefault("broadcast.send_buffer", d.Broadcast.SendBuffer)
	v.SetDefault("broadcast.write_timeout", d.Broadcast.WriteTimeout)
	v.SetDefault("broadcast.ping_interval", d.Broadcast.PingInterval)
	v.SetDefault("broadcast.pong_wait", d.Broadcast.PongWait)

	v.SetDefault("mqtt.broker", d.MQTT.Broker)
	v.SetDefault("mqtt.topic", d.MQTT.Topic)
	v.SetDefault("mqtt.client_id", d.MQTT.ClientID)
	v.SetDefault("mqtt.qos", d.MQTT.QoS)
	v.SetDefault("mqtt.retained", d.MQTT.Retained)
	v.SetDefault("mqtt.connect_timeout", d.MQTT.ConnectTimeout)

	v.SetDefault("simulation.enabled", d.Simulation.Enabled)
	v.SetDefault("simulation.seed", d.Simulation.Seed)
	v.SetDefault("simulation.interface", d.Simulation.Interface)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.development", d.Log.Development)
}
