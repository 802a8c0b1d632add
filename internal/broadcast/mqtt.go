package broadcast

import (
	"fmt"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"timestick/internal/model"
)

const maxPendingAcks = 32

// MQTTConfig describes the broker connection.
type MQTTConfig struct {
	Broker         string
	Topic          string
	ClientID       string
	QoS            byte
	Retained       bool
	ConnectTimeout time.Duration
}

type mqttClient interface {
	IsConnectionOpen() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTSink mirrors every report to an MQTT topic. Reports published while
// the broker is unreachable are dropped.
type MQTTSink struct {
	client  mqttClient
	cfg     MQTTConfig
	logger  *zap.Logger
	pending atomic.Int32
	skipped atomic.Uint64
}

// DialMQTT connects to the broker and returns a sink that reconnects on its own.
func DialMQTT(cfg MQTTConfig, logger *zap.Logger) (*MQTTSink, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("mqtt")
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.ClientID == "" {
		cfg.ClientID = fmt.Sprintf("timestick-%d", time.Now().Unix())
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetConnectTimeout(cfg.ConnectTimeout)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(time.Minute)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("connection lost, reconnecting", zap.Error(err))
	})
	opts.SetOnConnectHandler(func(mqtt.Client) {
		logger.Info("connected", zap.String("broker", cfg.Broker), zap.String("topic", cfg.Topic))
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(cfg.ConnectTimeout) {
		return nil, fmt.Errorf("connect to %s: timed out after %s", cfg.Broker, cfg.ConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.Broker, err)
	}
	return newMQTTSink(client, cfg, logger), nil
}

func newMQTTSink(client mqttClient, cfg MQTTConfig, logger *zap.Logger) *MQTTSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MQTTSink{client: client, cfg: cfg, logger: logger}
}

// Publish hands the report to the client without waiting for the broker.
// Acknowledgements are checked in the background, a bounded number at a time.
func (s *MQTTSink) Publish(r model.Report) error {
	if !s.client.IsConnectionOpen() {
		s.skipped.Add(1)
		return nil
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	token := s.client.Publish(s.cfg.Topic, s.cfg.QoS, s.cfg.Retained, payload)

	if s.pending.Add(1) > maxPendingAcks {
		s.pending.Add(-1)
		return nil
	}
	go func() {
		defer s.pending.Add(-1)
		if token.WaitTimeout(s.cfg.ConnectTimeout) && token.Error() != nil {
			s.logger.Warn("publish failed", zap.String("topic", s.cfg.Topic), zap.Error(token.Error()))
		}
	}()
	return nil
}

// Skipped reports how many reports were dropped while disconnected.
func (s *MQTTSink) Skipped() uint64 { return s.skipped.Load() }

func (s *MQTTSink) Close() {
	s.client.Disconnect(250)
}
