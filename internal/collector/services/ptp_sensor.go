package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"timestick/internal/collector"
	"timestick/internal/model"
)

// ErrNoClock means no PTP hardware clock device is present.
var ErrNoClock = errors.New("no ptp hardware clock")

const defaultPTPGlob = "/dev/ptp[0-9]*"

// phc is an open PTP hardware clock.
type phc interface {
	Now() (time.Time, error)
	FreqPPM() (float64, error)
	Close() error
}

// PTPSensor compares a PTP hardware clock against the system clock.
type PTPSensor struct {
	device    string
	glob      string
	utcOffset time.Duration

	open func(path string) (phc, error)
	now  func() time.Time

	mu    sync.Mutex
	clock phc
	path  string
}

// NewPTPSensor reads device, or the first /dev/ptpN when device is empty.
// utcOffset is subtracted from every reading, for clocks kept in TAI.
func NewPTPSensor(device string, utcOffset time.Duration) *PTPSensor {
	return &PTPSensor{
		device:    device,
		glob:      defaultPTPGlob,
		utcOffset: utcOffset,
		open:      openPHC,
		now:       time.Now,
	}
}

func (s *PTPSensor) Name() string {
	return "PTP"
}

// Connect opens the clock if one exists. A missing clock is not an error;
// reads report the section disabled until one appears.
func (s *PTPSensor) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.openLocked()
	if errors.Is(err, ErrNoClock) {
		return nil
	}
	return err
}

func (s *PTPSensor) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

func (s *PTPSensor) closeLocked() error {
	if s.clock == nil {
		return nil
	}
	err := s.clock.Close()
	s.clock = nil
	s.path = ""
	return err
}

func (s *PTPSensor) resolve() (string, error) {
	if s.device != "" {
		return s.device, nil
	}
	matches, err := filepath.Glob(s.glob)
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", ErrNoClock
	}
	sort.Strings(matches)
	return matches[0], nil
}

func (s *PTPSensor) openLocked() error {
	if s.clock != nil {
		return nil
	}
	path, err := s.resolve()
	if err != nil {
		return err
	}
	clock, err := s.open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	s.clock = clock
	s.path = path
	return nil
}

func (s *PTPSensor) ReadTimeSync(ctx context.Context, prev model.TimeSyncStatus) (model.TimeSyncStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.openLocked(); err != nil {
		if errors.Is(err, ErrNoClock) {
			prev.Enabled = false
			return prev, nil
		}
		return prev, err
	}

	phcTime, err := s.clock.Now()
	sysTime := s.now()
	if err != nil {
		// The device may have been unplugged; reopen on the next read.
		_ = s.closeLocked()
		return prev, fmt.Errorf("failed to read ptp clock: %w", err)
	}

	offset := phcTime.Sub(sysTime) - s.utcOffset
	next := prev.WithSample(offset.Nanoseconds(), sysTime)
	next.Enabled = true

	ppm, err := s.clock.FreqPPM()
	if err != nil {
		return next, &collector.PartialError{Sensor: s.Name(), Err: fmt.Errorf("frequency: %w", err)}
	}
	next.FreqAdjustPPM = ppm
	return next, nil
}
