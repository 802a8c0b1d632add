package model

import "time"

// DefaultHistoryCapacity is the number of points kept when no capacity is given.
const DefaultHistoryCapacity = 100

// HistoryPoint is one tick's contribution to the charts.
type HistoryPoint struct {
	Timestamp           time.Time
	PTPOffsetNs         int64
	TotalThroughputMbps float64
}

// HistorySeries is the column form sent to clients. The three slices always
// have the same length.
type HistorySeries struct {
	Timestamps        []time.Time `json:"timestamps"`
	PTPOffset         []int64     `json:"ptp_offset"`
	NetworkThroughput []float64   `json:"network_throughput"`
}

// History is a fixed-capacity ring of points, oldest evicted first.
// It is not safe for concurrent use.
type History struct {
	buf   []HistoryPoint
	start int
	size  int
}

// NewHistory creates a ring holding at most capacity points.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &History{buf: make([]HistoryPoint, capacity)}
}

// Append adds p, dropping the oldest point when full.
func (h *History) Append(p HistoryPoint) {
	c := len(h.buf)
	if h.size < c {
		h.buf[(h.start+h.size)%c] = p
		h.size++
		return
	}
	h.buf[h.start] = p
	h.start = (h.start + 1) % c
}

// Len reports how many points are stored.
func (h *History) Len() int { return h.size }

// Cap reports the ring capacity.
func (h *History) Cap() int { return len(h.buf) }

// Points returns the stored points, oldest first.
func (h *History) Points() []HistoryPoint {
	out := make([]HistoryPoint, h.size)
	for i := range h.size {
		out[i] = h.buf[(h.start+i)%len(h.buf)]
	}
	return out
}

// Series returns a fresh column copy of the ring.
func (h *History) Series() HistorySeries {
	s := HistorySeries{
		Timestamps:        make([]time.Time, 0, h.size),
		PTPOffset:         make([]int64, 0, h.size),
		NetworkThroughput: make([]float64, 0, h.size),
	}
	for _, p := range h.Points() {
		s.Timestamps = append(s.Timestamps, p.Timestamp)
		s.PTPOffset = append(s.PTPOffset, p.PTPOffsetNs)
		s.NetworkThroughput = append(s.NetworkThroughput, p.TotalThroughputMbps)
	}
	return s
}

// Len reports the number of aligned entries.
func (s HistorySeries) Len() int { return len(s.Timestamps) }
