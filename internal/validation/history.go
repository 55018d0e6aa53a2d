package validation

// History is a bounded, append-only sequence of cycle results, oldest first.
// The oldest entry is evicted once the cap is exceeded.
type History struct {
	limit   int
	entries []CycleResult
}

// NewHistory creates an empty history with the given cap.
func NewHistory(limit int) *History {
	return &History{limit: limit}
}

// Append adds a result, evicting the oldest entry beyond the cap.
func (h *History) Append(result CycleResult) {
	h.entries = append(h.entries, result)
	if len(h.entries) > h.limit {
		h.entries = h.entries[1:]
	}
}

// All returns a copy of the retained history, oldest first.
func (h *History) All() []CycleResult {
	return append([]CycleResult(nil), h.entries...)
}

// Latest returns the most recent result, or nil if no cycle has run.
func (h *History) Latest() *CycleResult {
	if len(h.entries) == 0 {
		return nil
	}
	latest := h.entries[len(h.entries)-1]
	return &latest
}

// Len returns the number of retained results.
func (h *History) Len() int {
	return len(h.entries)
}

// Reset drops all entries. Only Dispose may call this.
func (h *History) Reset() {
	h.entries = nil
}
