package engine

// Thresholds defines warning and critical levels for a gauge.
type Thresholds struct {
	Warning  float64
	Critical float64
}

// Config holds every limit the evaluator and the status checks use.
type Config struct {
	// OffsetWarningNs is the absolute offset above which a tick raises a warning.
	OffsetWarningNs int64
	// PulseDeviationMs is the allowed distance of the PPS interval from 1000 ms.
	PulseDeviationMs float64

	Offset      Thresholds // ns, absolute value
	CPU         Thresholds
	Memory      Thresholds
	Temperature Thresholds // degrees C
}

func DefaultConfig() Config {
	return Config{
		OffsetWarningNs:  10000,
		PulseDeviationMs: 1.0,
		Offset:           Thresholds{Warning: 10000, Critical: 100000},
		CPU:              Thresholds{Warning: 70.0, Critical: 90.0},
		Memory:           Thresholds{Warning: 70.0, Critical: 90.0},
		Temperature:      Thresholds{Warning: 70.0, Critical: 85.0},
	}
}
