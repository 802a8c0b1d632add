package simulate

import (
	"context"
	"math"
	"testing"
	"time"

	"timestick/internal/collector"
	"timestick/internal/model"
)

func TestGeneratorIsDeterministic(t *testing.T) {
	start := time.Unix(1700000000, 0)
	a := NewGenerator(7, start)
	b := NewGenerator(7, start)

	var na, nb model.NetworkStats
	var ta, tb model.TimeSyncStatus
	for i := range 20 {
		at := start.Add(time.Duration(i) * time.Second)
		na, nb = a.Network(at, na), b.Network(at, nb)
		ta, tb = a.TimeSync(at, ta), b.TimeSync(at, tb)
	}
	if na != nb {
		t.Errorf("network diverged: %+v vs %+v", na, nb)
	}
	if ta.CurrentOffsetNs != tb.CurrentOffsetNs || ta.AvgOffsetNs != tb.AvgOffsetNs {
		t.Errorf("time sync diverged: %+v vs %+v", ta, tb)
	}
}

func TestGeneratorSectionsIndependentOfReadOrder(t *testing.T) {
	start := time.Unix(1700000000, 0)
	a := NewGenerator(11, start)
	b := NewGenerator(11, start)

	var na, nb model.NetworkStats
	var pa, pb model.PulseStatus
	var sa, sb model.SystemInfo
	for i := range 20 {
		at := start.Add(time.Duration(i) * time.Second)
		na = a.Network(at, na)
		pa = a.Pulse(at, pa)
		sa = a.System(at)

		sb = b.System(at)
		if i%2 == 0 {
			pb = b.Pulse(at, pb)
			nb = b.Network(at, nb)
		} else {
			nb = b.Network(at, nb)
			pb = b.Pulse(at, pb)
		}
	}
	if na != nb {
		t.Errorf("network diverged: %+v vs %+v", na, nb)
	}
	if pa.PulseJitterUs != pb.PulseJitterUs || pa.PulseIntervalMs != pb.PulseIntervalMs {
		t.Errorf("pulse diverged: %+v vs %+v", pa, pb)
	}
	if sa != sb {
		t.Errorf("system diverged: %+v vs %+v", sa, sb)
	}
}

func TestGeneratorRanges(t *testing.T) {
	start := time.Unix(1700000000, 0)
	g := NewGenerator(1, start)
	prevNet := Initial("eth0").Network
	var ts model.TimeSyncStatus
	var pulse model.PulseStatus

	for i := range 600 {
		at := start.Add(time.Duration(i) * time.Second)

		net := g.Network(at, prevNet)
		if net.RxPackets < prevNet.RxPackets+100 || net.RxPackets > prevNet.RxPackets+1000 {
			t.Fatalf("rx packet step %d out of range", net.RxPackets-prevNet.RxPackets)
		}
		if net.TxBytes < prevNet.TxBytes+120_000 || net.TxBytes > prevNet.TxBytes+1_200_000 {
			t.Fatalf("tx byte step %d out of range", net.TxBytes-prevNet.TxBytes)
		}
		if net.RxErrors < prevNet.RxErrors || net.TxErrors < prevNet.TxErrors {
			t.Fatal("error counters decreased")
		}
		if net.RxRateMbps < 0 || net.RxRateMbps > 85 || net.TxRateMbps < 0 || net.TxRateMbps > 67 {
			t.Fatalf("rates out of range: %v/%v", net.RxRateMbps, net.TxRateMbps)
		}
		prevNet = net

		ts = g.TimeSync(at, ts)
		if math.Abs(float64(ts.CurrentOffsetNs)) > 150 {
			t.Fatalf("offset %d outside ±150", ts.CurrentOffsetNs)
		}
		if ts.CurrentOffsetNs < ts.MinOffsetNs || ts.CurrentOffsetNs > ts.MaxOffsetNs {
			t.Fatalf("offset %d outside [%d, %d]", ts.CurrentOffsetNs, ts.MinOffsetNs, ts.MaxOffsetNs)
		}

		pulse = g.Pulse(at, pulse)
		if pulse.PulseJitterUs < 0.5 || pulse.PulseJitterUs > 3.0 {
			t.Fatalf("jitter %v outside [0.5, 3]", pulse.PulseJitterUs)
		}
		if math.Abs(pulse.PulseIntervalMs-1000) > 0.0101 {
			t.Fatalf("interval %v too far from 1000", pulse.PulseIntervalMs)
		}

		sys := g.System(at)
		if sys.CPUUsage < 0 || sys.CPUUsage > 40 || sys.MemoryUsage < 27 || sys.MemoryUsage > 53 {
			t.Fatalf("system out of range: %+v", sys)
		}
		if sys.UptimeSec != 86400+uint64(i) {
			t.Fatalf("uptime = %d; want %d", sys.UptimeSec, 86400+i)
		}
	}
	if ts.SyncCount != 600 || pulse.PulseCount != 600 {
		t.Errorf("counts = %d/%d; want 600/600", ts.SyncCount, pulse.PulseCount)
	}
}

func TestAddSatSticksAtMax(t *testing.T) {
	tests := []struct {
		a, b, want uint64
	}{
		{1, 2, 3},
		{math.MaxUint64 - 1, 1, math.MaxUint64},
		{math.MaxUint64 - 1, 5, math.MaxUint64},
		{math.MaxUint64, math.MaxUint64, math.MaxUint64},
	}
	for _, tt := range tests {
		if got := addSat(tt.a, tt.b); got != tt.want {
			t.Errorf("addSat(%d, %d) = %d; want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestNetworkCountersSaturate(t *testing.T) {
	g := NewGenerator(3, time.Unix(0, 0))
	prev := model.NetworkStats{RxBytes: math.MaxUint64 - 10, TxPackets: math.MaxUint64}
	next := g.Network(time.Unix(5, 0), prev)
	if next.RxBytes != math.MaxUint64 || next.TxPackets != math.MaxUint64 {
		t.Errorf("counters wrapped: %+v", next)
	}
}

func TestSimulatedProvidersThroughCollector(t *testing.T) {
	start := time.Unix(1700000000, 0)
	now := start
	p := ProvidersWithClock(NewGenerator(11, start), "eth0", func() time.Time { return now })
	if !p.Simulated() {
		t.Fatal("simulated providers must report simulated mode")
	}

	c, err := collector.NewCollector(p, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	iface, err := c.Discover(context.Background())
	if err != nil || iface != "eth0" {
		t.Fatalf("Discover() = %q, %v", iface, err)
	}

	snap := p.Initial
	for i := range 5 {
		now = start.Add(time.Duration(i+1) * time.Second)
		var errs []*collector.SensorError
		snap, errs = c.Collect(context.Background(), iface, snap)
		if len(errs) != 0 {
			t.Fatalf("tick %d errors: %v", i, errs)
		}
	}

	if snap.Device.Driver != DemoDriver || !snap.Device.IsOnline {
		t.Errorf("device = %+v", snap.Device)
	}
	if snap.TimeSync.SyncCount != 5 || snap.Pulse.PulseCount != 5 {
		t.Errorf("sync/pulse counts = %d/%d", snap.TimeSync.SyncCount, snap.Pulse.PulseCount)
	}
	if snap.Network.RxPackets <= 1_000_000 {
		t.Errorf("rx packets did not advance: %d", snap.Network.RxPackets)
	}
}
