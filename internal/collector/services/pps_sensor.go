package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"timestick/internal/model"
)

// ErrNoPulseSource means no PPS source is registered with the kernel.
var ErrNoPulseSource = errors.New("no pps source")

type ppsAssert struct {
	at  time.Time
	seq uint64
}

// PPSSensor follows the assert timestamps the kernel PPS subsystem
// exposes in sysfs.
type PPSSensor struct {
	sysfsRoot string
	source    string

	mu   sync.Mutex
	last *ppsAssert
}

// NewPPSSensor follows source (for example "pps0"), or the first registered
// source when source is empty.
func NewPPSSensor(source string) *PPSSensor {
	return &PPSSensor{sysfsRoot: defaultSysfsRoot, source: source}
}

func (s *PPSSensor) Name() string {
	return "PPS"
}

func (s *PPSSensor) Connect(ctx context.Context) error {
	return nil
}

func (s *PPSSensor) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	s.last = nil
	s.mu.Unlock()
	return nil
}

func (s *PPSSensor) assertPath() (string, error) {
	dir := filepath.Join(s.sysfsRoot, "class", "pps")
	if s.source != "" {
		return filepath.Join(dir, s.source, "assert"), nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) == 0 {
		return "", ErrNoPulseSource
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return filepath.Join(dir, names[0], "assert"), nil
}

func (s *PPSSensor) ReadPulse(ctx context.Context, prev model.PulseStatus) (model.PulseStatus, error) {
	path, err := s.assertPath()
	if err != nil {
		prev.Enabled = false
		return prev, nil
	}
	raw, err := readTrimmed(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			prev.Enabled = false
			return prev, nil
		}
		return prev, fmt.Errorf("failed to read %s: %w", path, err)
	}
	cur, err := parseAssert(raw)
	if err != nil {
		return prev, err
	}

	next := prev
	next.Enabled = true

	s.mu.Lock()
	defer s.mu.Unlock()
	last := s.last
	s.last = &cur
	if last == nil || cur.seq <= last.seq {
		return next, nil
	}

	n := cur.seq - last.seq
	intervalMs := float64(cur.at.Sub(last.at).Nanoseconds()) / float64(n) / 1e6
	return next.WithPulses(intervalMs, cur.at, n), nil
}

// parseAssert decodes "<sec>.<nsec>#<sequence>".
func parseAssert(raw string) (ppsAssert, error) {
	stamp, seqStr, ok := strings.Cut(raw, "#")
	if !ok {
		return ppsAssert{}, fmt.Errorf("malformed pps assert %q", raw)
	}
	seq, err := strconv.ParseUint(strings.TrimSpace(seqStr), 10, 64)
	if err != nil {
		return ppsAssert{}, fmt.Errorf("malformed pps sequence %q: %w", seqStr, err)
	}
	secStr, nsecStr, _ := strings.Cut(stamp, ".")
	sec, err := strconv.ParseInt(secStr, 10, 64)
	if err != nil {
		return ppsAssert{}, fmt.Errorf("malformed pps seconds %q: %w", secStr, err)
	}
	var nsec int64
	if nsecStr != "" {
		nsecStr = (nsecStr + "000000000")[:9]
		if nsec, err = strconv.ParseInt(nsecStr, 10, 64); err != nil {
			return ppsAssert{}, fmt.Errorf("malformed pps nanoseconds %q: %w", nsecStr, err)
		}
	}
	return ppsAssert{at: time.Unix(sec, nsec), seq: seq}, nil
}
