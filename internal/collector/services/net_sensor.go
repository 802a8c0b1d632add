package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"timestick/internal/model"

	gnet "github.com/shirou/gopsutil/v4/net"
)

type netSample struct {
	iface   string
	at      time.Time
	rxBytes uint64
	txBytes uint64
}

// NetSensor reads per-interface counters and derives the instantaneous rate
// from the byte delta since the previous read.
type NetSensor struct {
	counters func(ctx context.Context, pernic bool) ([]gnet.IOCountersStat, error)
	now      func() time.Time

	mu   sync.Mutex
	last *netSample
}

func NewNetSensor() *NetSensor {
	return &NetSensor{
		counters: gnet.IOCountersWithContext,
		now:      time.Now,
	}
}

func (s *NetSensor) Name() string {
	return "Network"
}

func (s *NetSensor) Connect(ctx context.Context) error {
	return nil
}

// Disconnect forgets the rate baseline.
func (s *NetSensor) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	s.last = nil
	s.mu.Unlock()
	return nil
}

func (s *NetSensor) ReadNetwork(ctx context.Context, iface string, prev model.NetworkStats) (model.NetworkStats, error) {
	counters, err := s.counters(ctx, true)
	if err != nil {
		return prev, fmt.Errorf("failed to get net io counters: %w", err)
	}

	var c *gnet.IOCountersStat
	for i := range counters {
		if counters[i].Name == iface {
			c = &counters[i]
			break
		}
	}
	if c == nil {
		return prev, fmt.Errorf("no counters for interface %s", iface)
	}

	next := model.NetworkStats{
		RxPackets: c.PacketsRecv,
		TxPackets: c.PacketsSent,
		RxBytes:   c.BytesRecv,
		TxBytes:   c.BytesSent,
		RxErrors:  c.Errin,
		TxErrors:  c.Errout,
	}

	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if last := s.last; last != nil && last.iface == iface {
		elapsed := now.Sub(last.at).Seconds()
		next.RxRateMbps = rateMbps(last.rxBytes, c.BytesRecv, elapsed)
		next.TxRateMbps = rateMbps(last.txBytes, c.BytesSent, elapsed)
	}
	s.last = &netSample{iface: iface, at: now, rxBytes: c.BytesRecv, txBytes: c.BytesSent}
	return next, nil
}

// rateMbps is zero when no time passed or the counter went backwards.
func rateMbps(before, after uint64, seconds float64) float64 {
	if seconds <= 0 || after < before {
		return 0
	}
	return float64(after-before) * 8 / seconds / 1e6
}
