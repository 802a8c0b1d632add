//go:build linux

package services

import (
	"errors"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

const clockFD = 3

type phcClock struct {
	f  *os.File
	id int32
}

func openPHC(path string) (phc, error) {
	// clock_adjtime needs a writable descriptor even for reads.
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if errors.Is(err, os.ErrPermission) {
		f, err = os.OpenFile(path, os.O_RDONLY, 0)
	}
	if err != nil {
		return nil, err
	}
	return &phcClock{f: f, id: fdToClockID(f.Fd())}, nil
}

// fdToClockID mirrors the kernel FD_TO_CLOCKID macro for dynamic clocks.
func fdToClockID(fd uintptr) int32 {
	return int32((^fd << 3) | clockFD)
}

func (c *phcClock) Now() (time.Time, error) {
	var ts unix.Timespec
	if err := unix.ClockGettime(c.id, &ts); err != nil {
		return time.Time{}, err
	}
	sec, nsec := ts.Unix()
	return time.Unix(sec, nsec), nil
}

// FreqPPM reads the frequency correction; the kernel reports it in ppm
// scaled by 2^16.
func (c *phcClock) FreqPPM() (float64, error) {
	var tx unix.Timex
	if _, err := unix.ClockAdjtime(c.id, &tx); err != nil {
		return 0, err
	}
	return float64(tx.Freq) / 65536.0, nil
}

func (c *phcClock) Close() error {
	return c.f.Close()
}
