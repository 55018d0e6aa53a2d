package port

import (
	"context"
	"time"
)

// EventSeverity represents the severity of a validation event.
type EventSeverity string

const (
	SeverityInfo    EventSeverity = "info"
	SeverityWarning EventSeverity = "warning"
	SeverityError   EventSeverity = "error"
)

// ValidationEvent represents a structured lifecycle or cycle-summary event
// emitted by the validation engine to external observability platforms.
type ValidationEvent struct {
	EventType string                 // e.g. "validation_cycle_completed"
	Severity  EventSeverity          // Event severity
	Timestamp time.Time              // When the event occurred
	Service   string                 // Emitting service name
	Metadata  map[string]interface{} // Additional structured fields
}

// ValidationEventSink defines the interface for publishing validation events.
// Publishing is diagnostic, not load-bearing: implementations must be safe to
// call fire-and-forget, and callers swallow any returned error.
type ValidationEventSink interface {
	// Publish sends a single event to the external system.
	Publish(ctx context.Context, event ValidationEvent) error

	// Flush forces immediate publication of any buffered events.
	// Should be called during graceful shutdown to prevent data loss.
	Flush(ctx context.Context) error
}
