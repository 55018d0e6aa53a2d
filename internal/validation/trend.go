package validation

import (
	"math"
	"sync"
)

// TrendBook keeps a bounded FIFO window of recent observations per metric.
// Insertion order is observation order; length never exceeds the window size.
// Safe for concurrent use: cycle-side appends and HTTP-side reads share it.
type TrendBook struct {
	mu     sync.RWMutex
	window int
	series map[string][]float64
}

// NewTrendBook creates an empty trend book with the given window size.
func NewTrendBook(window int) *TrendBook {
	return &TrendBook{
		window: window,
		series: make(map[string][]float64),
	}
}

// Append adds an observation to a metric's series, evicting the oldest
// observation once the window is full.
func (t *TrendBook) Append(name string, value float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	series := append(t.series[name], value)
	if len(series) > t.window {
		series = series[1:]
	}
	t.series[name] = series
}

// Series returns a copy of a metric's window, oldest first.
func (t *TrendBook) Series(name string) []float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]float64(nil), t.series[name]...)
}

// Len returns the current window length for a metric.
func (t *TrendBook) Len(name string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.series[name])
}

// Reset drops all series. Only Dispose may call this.
func (t *TrendBook) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.series = make(map[string][]float64)
}

// seriesStats returns the mean and population standard deviation of values.
func seriesStats(values []float64) (mean, stddev float64) {
	if len(values) == 0 {
		return 0, 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(len(values))

	var sumSquares float64
	for _, v := range values {
		diff := v - mean
		sumSquares += diff * diff
	}

	return mean, math.Sqrt(sumSquares / float64(len(values)))
}
