package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"timestick/internal/model"
)

const defaultProviderTimeout = 800 * time.Millisecond

// Collector fans a tick out to every provider and merges the results into
// the next snapshot.
type Collector struct {
	providers Providers
	timeout   time.Duration
}

func NewCollector(p Providers, timeout time.Duration) (*Collector, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = defaultProviderTimeout
	}
	return &Collector{providers: p, timeout: timeout}, nil
}

// ErrProviderTimeout is reported for a provider that did not answer within
// the provider timeout. Its section keeps the previous value.
var ErrProviderTimeout = errors.New("provider timed out")

type result[T any] struct {
	val T
	err error
}

// Collect reads every provider concurrently, each bounded by the provider
// timeout. A failed read keeps the previous section, except that the device
// section falls back to disconnected. Partial reads are taken as returned.
func (c *Collector) Collect(ctx context.Context, iface string, prev model.Snapshot) (model.Snapshot, []*SensorError) {
	var (
		wg       sync.WaitGroup
		devRes   result[model.DeviceInfo]
		netRes   result[model.NetworkStats]
		syncRes  result[model.TimeSyncStatus]
		pulseRes result[model.PulseStatus]
		sysRes   result[model.SystemInfo]
	)
	wg.Add(5)

	go func() {
		defer wg.Done()
		devRes = read(ctx, c.timeout, func(ctx context.Context) (model.DeviceInfo, error) {
			return c.providers.Device.Describe(ctx, iface, prev.Device)
		})
	}()
	go func() {
		defer wg.Done()
		netRes = read(ctx, c.timeout, func(ctx context.Context) (model.NetworkStats, error) {
			return c.providers.Network.ReadNetwork(ctx, iface, prev.Network)
		})
	}()
	go func() {
		defer wg.Done()
		syncRes = read(ctx, c.timeout, func(ctx context.Context) (model.TimeSyncStatus, error) {
			return c.providers.TimeSync.ReadTimeSync(ctx, prev.TimeSync)
		})
	}()
	go func() {
		defer wg.Done()
		pulseRes = read(ctx, c.timeout, func(ctx context.Context) (model.PulseStatus, error) {
			return c.providers.Pulse.ReadPulse(ctx, prev.Pulse)
		})
	}()
	go func() {
		defer wg.Done()
		sysRes = read(ctx, c.timeout, func(ctx context.Context) (model.SystemInfo, error) {
			return c.providers.System.ReadSystem(ctx, prev.System)
		})
	}()

	wg.Wait()

	next := prev.Clone()
	var errs []*SensorError

	if keep, serr := classify(c.providers.Device.Name(), devRes.err); serr != nil {
		errs = append(errs, serr)
		if keep {
			next.Device = devRes.val
		} else {
			next.Device.ConnectionStatus = model.StatusDisconnected
			next.Device.IsOnline = false
		}
	} else {
		next.Device = devRes.val
	}
	if next.Device.Interface == "" {
		next.Device.Interface = iface
	}

	if keep, serr := classify(c.providers.Network.Name(), netRes.err); serr == nil || keep {
		next.Network = netRes.val
		if serr != nil {
			errs = append(errs, serr)
		}
	} else {
		errs = append(errs, serr)
	}

	if keep, serr := classify(c.providers.TimeSync.Name(), syncRes.err); serr == nil || keep {
		next.TimeSync = syncRes.val
		if serr != nil {
			errs = append(errs, serr)
		}
	} else {
		errs = append(errs, serr)
	}

	if keep, serr := classify(c.providers.Pulse.Name(), pulseRes.err); serr == nil || keep {
		next.Pulse = pulseRes.val
		if serr != nil {
			errs = append(errs, serr)
		}
	} else {
		errs = append(errs, serr)
	}

	if keep, serr := classify(c.providers.System.Name(), sysRes.err); serr == nil || keep {
		next.System = sysRes.val
		if serr != nil {
			errs = append(errs, serr)
		}
	} else {
		errs = append(errs, serr)
	}

	return next.Clone(), errs
}

// read runs fn on its own goroutine and stops waiting once the provider
// timeout expires, so a provider that ignores its context cannot stall the
// tick. A panic in fn becomes an error.
func read[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) result[T] {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ch := make(chan result[T], 1)
	go func() {
		var r result[T]
		defer func() {
			if p := recover(); p != nil {
				r = result[T]{err: fmt.Errorf("provider panic: %v", p)}
			}
			ch <- r
		}()
		r.val, r.err = fn(ctx)
	}()

	select {
	case r := <-ch:
		return r
	case <-ctx.Done():
		return result[T]{err: fmt.Errorf("%w after %s: %w", ErrProviderTimeout, timeout, ctx.Err())}
	}
}

// classify reports whether the value accompanying err may be used, and the
// error to record. A nil SensorError means the read succeeded.
func classify(sensor string, err error) (bool, *SensorError) {
	if err == nil {
		return true, nil
	}
	var partial *PartialError
	if errors.As(err, &partial) {
		return true, &SensorError{Sensor: sensor, Partial: true, Err: err}
	}
	return false, &SensorError{Sensor: sensor, Err: err}
}

// Connect connects every sensor, returning the joined failures. A sensor
// that fails to connect is still read each tick.
func (c *Collector) Connect(ctx context.Context) error {
	var errs []error
	for _, s := range c.providers.Sensors() {
		if err := s.Connect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("connect %s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Disconnect releases every sensor.
func (c *Collector) Disconnect(ctx context.Context) error {
	var errs []error
	for _, s := range c.providers.Sensors() {
		if err := s.Disconnect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("disconnect %s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Discover delegates to the device provider.
func (c *Collector) Discover(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout*4)
	defer cancel()
	return c.providers.Device.Discover(ctx)
}

// Providers returns the set the collector reads from.
func (c *Collector) Providers() Providers { return c.providers }
