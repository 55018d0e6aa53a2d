package validation

import (
	"errors"
	"fmt"
	"time"
)

// Config holds every tunable of the validation engine. Defaults mirror the
// thresholds the production dashboards were calibrated against.
type Config struct {
	// Interval between timer-driven validation cycles.
	Interval time.Duration

	// VarianceThreshold is the relative drift from baseline tolerated by the
	// metric accuracy check (0.15 = 15%).
	VarianceThreshold float64

	// SyncDelayMax is the maximum acceptable round-trip of the synthetic
	// tracked action in the realtime synchronization check.
	SyncDelayMax time.Duration

	// SyncSettleDelay is how long the synchronization check waits for the
	// tracked action to propagate before re-reading the journey counter.
	SyncSettleDelay time.Duration

	// MemoryLimitBytes is the resident memory cap of the performance check.
	MemoryLimitBytes uint64

	// ResponseTimeMaxMs is the average response time cap of the performance check.
	ResponseTimeMaxMs float64

	// SpikeSigma is the deviation (in standard deviations from the series
	// mean) at which the trend check flags an observation as a spike.
	SpikeSigma float64

	// TrendWindow is the per-metric rolling window size.
	TrendWindow int

	// HistoryLimit caps the retained validation history.
	HistoryLimit int

	// KnownUserTypes are the user roles the consistency check accepts.
	KnownUserTypes []string

	// ServiceName tags emitted validation events.
	ServiceName string
}

// DefaultConfig returns the engine configuration with production defaults.
func DefaultConfig() Config {
	return Config{
		Interval:          5 * time.Minute,
		VarianceThreshold: 0.15,
		SyncDelayMax:      1000 * time.Millisecond,
		SyncSettleDelay:   500 * time.Millisecond,
		MemoryLimitBytes:  100 * 1024 * 1024,
		ResponseTimeMaxMs: 100,
		SpikeSigma:        3,
		TrendWindow:       10,
		HistoryLimit:      100,
		KnownUserTypes:    []string{"client", "partner", "admin"},
		ServiceName:       "analytics-validator",
	}
}

// Validate rejects configurations the engine cannot run with.
func (c Config) Validate() error {
	if c.Interval < 5*time.Second {
		return errors.New("validation interval must be >= 5s")
	}
	if c.VarianceThreshold <= 0 {
		return errors.New("variance threshold must be positive")
	}
	if c.SpikeSigma <= 0 {
		return errors.New("spike sigma must be positive")
	}
	if c.TrendWindow < 3 {
		return errors.New("trend window must be >= 3")
	}
	if c.HistoryLimit <= 0 {
		return errors.New("history limit must be positive")
	}
	if c.SyncSettleDelay < 0 || c.SyncSettleDelay > c.SyncDelayMax {
		return fmt.Errorf("sync settle delay must be within [0, %s]", c.SyncDelayMax)
	}
	return nil
}
