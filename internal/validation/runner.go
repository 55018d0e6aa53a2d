package validation

import (
	"context"
	"sync"
	"time"

	"github.com/dreschagin/analytics-validator/pkg/logger"
)

// Runner drives the engine on a recurring timer and fans completed cycle
// results out to registered listeners (websocket hub, brokers, archives).
type Runner struct {
	engine    *Engine
	log       *logger.Logger
	interval  time.Duration
	listeners []CycleListener

	mu        sync.RWMutex
	startedAt time.Time
	lastRunAt time.Time
	lastError string
}

// RunnerSnapshot is the health-facing view of runner state.
type RunnerSnapshot struct {
	StartedAt time.Time     `json:"started_at"`
	Interval  time.Duration `json:"interval_ns"`
	LastRunAt time.Time     `json:"last_run_at"`
	LastError string        `json:"last_error,omitempty"`
}

// NewRunner creates a runner for the engine. Listeners are optional.
func NewRunner(engine *Engine, log *logger.Logger, listeners ...CycleListener) *Runner {
	return &Runner{
		engine:    engine,
		log:       log,
		interval:  engine.cfg.Interval,
		listeners: listeners,
		startedAt: time.Now(),
	}
}

// Start runs the timer loop until the context is cancelled. Should be run in
// its own goroutine by the composition root.
func (r *Runner) Start(ctx context.Context) {
	r.engine.setTimerActive(true)
	defer r.engine.setTimerActive(false)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Info("Validation runner started", "interval", r.interval.String())

	for {
		select {
		case <-ticker.C:
			r.RunOnce(ctx)
		case <-ctx.Done():
			r.log.Info("Validation runner stopped")
			return
		}
	}
}

// RunOnce executes a single validation cycle and notifies listeners.
// Manual triggers and the timer share the engine's single-flight guard.
func (r *Runner) RunOnce(ctx context.Context) CycleResult {
	result := r.engine.RunCycle(ctx)

	r.mu.Lock()
	r.lastRunAt = time.Now()
	r.lastError = result.Error
	r.mu.Unlock()

	r.notify(ctx, result)

	return result
}

// notify delivers the result to every listener. Listener failures are
// contained: a panicking listener never affects the cycle or its siblings.
func (r *Runner) notify(ctx context.Context, result CycleResult) {
	for _, listener := range r.listeners {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					r.log.Warn("Cycle listener panicked", "panic", rec)
				}
			}()
			listener.OnCycleResult(ctx, result)
		}()
	}
}

// Snapshot returns the health-facing runner state.
func (r *Runner) Snapshot() RunnerSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return RunnerSnapshot{
		StartedAt: r.startedAt,
		Interval:  r.interval,
		LastRunAt: r.lastRunAt,
		LastError: r.lastError,
	}
}
