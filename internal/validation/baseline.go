package validation

import (
	"sync"
	"time"
)

// BaselineEntry holds the first observed value of one tracked metric.
type BaselineEntry struct {
	Value      float64   `json:"value"`
	CapturedAt time.Time `json:"captured_at"`
}

// Baseline is the reference point for drift checks. Entries are first-write-wins:
// once a metric has a baseline it stays fixed for the lifetime of the engine
// (no automatic re-baselining). Safe for concurrent use: capture during
// Initialize may overlap HTTP-side snapshot reads.
type Baseline struct {
	mu      sync.RWMutex
	entries map[string]BaselineEntry
}

// NewBaseline creates an empty baseline.
func NewBaseline() *Baseline {
	return &Baseline{entries: make(map[string]BaselineEntry)}
}

// Capture records the value for a metric unless one is already present.
// Returns true when the value was recorded.
func (b *Baseline) Capture(name string, value float64, at time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.entries[name]; exists {
		return false
	}
	b.entries[name] = BaselineEntry{Value: value, CapturedAt: at}
	return true
}

// Get returns the baseline entry for a metric, if captured.
func (b *Baseline) Get(name string) (BaselineEntry, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	entry, ok := b.entries[name]
	return entry, ok
}

// Len returns the number of captured metrics.
func (b *Baseline) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// Snapshot returns a copy of all entries.
func (b *Baseline) Snapshot() map[string]BaselineEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make(map[string]BaselineEntry, len(b.entries))
	for name, entry := range b.entries {
		out[name] = entry
	}
	return out
}

// Reset drops all entries. Only Dispose may call this.
func (b *Baseline) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = make(map[string]BaselineEntry)
}
