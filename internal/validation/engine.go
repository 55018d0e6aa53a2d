package validation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dreschagin/analytics-validator/internal/application/port"
	"github.com/dreschagin/analytics-validator/internal/domain/valueobject"
	"github.com/dreschagin/analytics-validator/pkg/logger"
)

// Engine runs the battery of analytics validation checks and owns the
// baseline, trend windows and validation history. It is constructed once by
// the composition root; there is no package-level state.
//
// Concurrency model: runMu serializes validation cycles (timer-driven and
// manual triggers never interleave). Baseline and TrendBook carry their own
// locks because the cycle mutates them while HTTP handlers query them.
// stateMu protects the flags, counters and history.
type Engine struct {
	cfg      Config
	sessions port.SessionSource
	perf     port.PerformanceSource
	events   port.ValidationEventSink
	log      *logger.Logger

	runMu sync.Mutex

	stateMu     sync.RWMutex
	initialized bool
	timerActive bool
	totalCycles int
	baseline    *Baseline
	trends      *TrendBook
	history     *History
}

// NewEngine creates a validation engine. The event sink may be nil; both
// metric sources and the logger are required.
func NewEngine(
	cfg Config,
	sessions port.SessionSource,
	perf port.PerformanceSource,
	events port.ValidationEventSink,
	log *logger.Logger,
) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid validation config: %w", err)
	}
	if sessions == nil {
		return nil, errors.New("session source is required")
	}
	if perf == nil {
		return nil, errors.New("performance source is required")
	}
	if log == nil {
		return nil, errors.New("logger is required")
	}

	return &Engine{
		cfg:      cfg,
		sessions: sessions,
		perf:     perf,
		events:   events,
		log:      log,
		baseline: NewBaseline(),
		trends:   NewTrendBook(cfg.TrendWindow),
		history:  NewHistory(cfg.HistoryLimit),
	}, nil
}

// Initialize captures the baseline from the current snapshots. Idempotent: a
// second call is a no-op. Baseline capture is best-effort; a failing source
// is logged and initialization still completes with a partial baseline.
func (e *Engine) Initialize(ctx context.Context) {
	e.stateMu.Lock()
	if e.initialized {
		e.stateMu.Unlock()
		return
	}
	e.initialized = true
	e.stateMu.Unlock()

	captured := e.captureBaseline(ctx)

	e.log.Info("Validation engine initialized",
		"baseline_metrics", captured,
		"interval", e.cfg.Interval.String(),
	)
	e.emitEvent("validator_initialized", port.SeverityInfo, map[string]interface{}{
		"baseline_metrics": captured,
	})
}

// captureBaseline records first-seen values for every tracked metric that is
// currently observable. Returns the number of captured metrics.
func (e *Engine) captureBaseline(ctx context.Context) int {
	now := time.Now()
	captured := 0

	session, err := e.sessions.SessionInfo(ctx)
	if err != nil {
		e.log.Warn("Baseline capture: session snapshot unavailable", "error", err.Error())
	} else {
		if e.baseline.Capture(MetricSessionDuration, session.DurationSeconds, now) {
			captured++
		}
		if e.baseline.Capture(MetricJourneyEvents, float64(session.JourneyEvents), now) {
			captured++
		}
	}

	stats, err := e.perf.PerformanceStats(ctx)
	if err != nil {
		e.log.Warn("Baseline capture: performance snapshot unavailable", "error", err.Error())
	} else {
		if e.baseline.Capture(MetricMemoryUsage, float64(stats.MemoryUsageBytes), now) {
			captured++
		}
		if e.baseline.Capture(MetricErrorCount, float64(stats.TotalErrors), now) {
			captured++
		}
	}

	return captured
}

// currentMetrics merges the two snapshot kinds into the tracked metric set.
func currentMetrics(session port.SessionInfo, stats port.PerformanceStats) map[string]float64 {
	return map[string]float64{
		MetricSessionDuration: session.DurationSeconds,
		MetricJourneyEvents:   float64(session.JourneyEvents),
		MetricMemoryUsage:     float64(stats.MemoryUsageBytes),
		MetricErrorCount:      float64(stats.TotalErrors),
	}
}

// RunCycle executes all six checks and appends the consolidated result to
// history. Cycles are single-flight: a manual trigger arriving while a
// timer-driven cycle is in flight waits for it to finish.
func (e *Engine) RunCycle(ctx context.Context) CycleResult {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	start := time.Now()
	id := fmt.Sprintf("%d-%s", start.UnixMilli(), uuid.New().String()[:8])

	result := e.assembleResult(ctx, id, start)

	e.stateMu.Lock()
	e.history.Append(result)
	e.totalCycles++
	e.stateMu.Unlock()

	e.reportCycle(result)

	return result
}

// assembleResult runs the checks and scores the cycle. Any panic escaping the
// per-check isolation (i.e. a failure while forming the result itself) is
// converted into a failed result with the error message populated.
func (e *Engine) assembleResult(ctx context.Context, id string, start time.Time) (result CycleResult) {
	defer func() {
		if r := recover(); r != nil {
			result = CycleResult{
				ID:           id,
				Timestamp:    start,
				Duration:     time.Since(start),
				OverallScore: 0,
				Status:       valueobject.StatusFailed,
				Checks:       map[string]CheckResult{},
				Error:        fmt.Sprintf("validation cycle failed: %v", r),
			}
		}
	}()

	checks := make(map[string]CheckResult, len(checkOrder))
	checkFns := map[string]func(context.Context) CheckResult{
		CheckDataConsistency:   e.checkDataConsistency,
		CheckRealtimeSync:      e.checkRealtimeSync,
		CheckMetricAccuracy:    e.checkMetricAccuracy,
		CheckPerformanceImpact: e.checkPerformanceImpact,
		CheckBusinessLogic:     e.checkBusinessLogic,
		CheckTrendAnalysis:     e.checkTrendAnalysis,
	}

	var total float64
	for _, name := range checkOrder {
		res := e.runIsolated(ctx, name, checkFns[name])
		checks[name] = res
		total += res.Score.Raw()
	}

	overall := 0.0
	if len(checks) > 0 {
		overall = total / float64(len(checks))
	}

	return CycleResult{
		ID:              id,
		Timestamp:       start,
		Duration:        time.Since(start),
		OverallScore:    overall,
		Status:          valueobject.StatusForScore(overall),
		Checks:          checks,
		Recommendations: collectRecommendations(checks),
	}
}

// runIsolated fault-isolates one check: a panicking check becomes a
// zero-score failing result instead of aborting the cycle.
func (e *Engine) runIsolated(ctx context.Context, name string, fn func(context.Context) CheckResult) (res CheckResult) {
	defer func() {
		if r := recover(); r != nil {
			res = failedCheck(name, fmt.Errorf("%v", r))
			e.log.Warn("Validation check panicked", "check", name, "panic", fmt.Sprintf("%v", r))
		}
	}()
	return fn(ctx)
}

// collectRecommendations deduplicates recommendations from failing checks,
// preserving check order, and appends the fixed general reminders whenever
// any check produced recommendations of its own.
func collectRecommendations(checks map[string]CheckResult) []string {
	var out []string
	seen := make(map[string]struct{})

	for _, name := range checkOrder {
		for _, rec := range checks[name].Recommendations {
			if _, dup := seen[rec]; dup {
				continue
			}
			seen[rec] = struct{}{}
			out = append(out, rec)
		}
	}

	if len(out) > 0 {
		out = append(out, generalRecommendations...)
	}

	return out
}

// reportCycle emits the single cycle-summary log line and validation event.
// Severity is solely a function of the cycle status.
func (e *Engine) reportCycle(result CycleResult) {
	fields := []interface{}{
		"cycle_id", result.ID,
		"overall_score", fmt.Sprintf("%.1f", result.OverallScore),
		"status", result.Status.String(),
		"duration_ms", result.Duration.Milliseconds(),
	}

	severity := port.SeverityInfo
	switch {
	case result.Error != "":
		e.log.Error("Validation cycle errored", errors.New(result.Error), fields...)
		severity = port.SeverityError
	case result.Status == valueobject.StatusPassed:
		e.log.Info("Validation cycle completed", fields...)
	default:
		e.log.Warn("Validation cycle completed", fields...)
		severity = port.SeverityWarning
	}

	metadata := map[string]interface{}{
		"cycle_id":      result.ID,
		"overall_score": result.OverallScore,
		"status":        result.Status.String(),
		"duration_ms":   result.Duration.Milliseconds(),
	}
	if result.Error != "" {
		metadata["error"] = result.Error
	}
	e.emitEvent("validation_cycle_completed", severity, metadata)
}

// emitEvent publishes a validation event fire-and-forget. Event publishing is
// diagnostic: it never blocks the cycle and a panicking or failing sink is
// swallowed.
func (e *Engine) emitEvent(eventType string, severity port.EventSeverity, metadata map[string]interface{}) {
	if e.events == nil {
		return
	}

	event := port.ValidationEvent{
		EventType: eventType,
		Severity:  severity,
		Timestamp: time.Now(),
		Service:   e.cfg.ServiceName,
		Metadata:  metadata,
	}

	go func() {
		defer func() { _ = recover() }()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = e.events.Publish(ctx, event)
	}()
}

// History returns a copy of the retained validation history, oldest first.
func (e *Engine) History() []CycleResult {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.history.All()
}

// Latest returns the most recent cycle result, or nil before the first cycle.
func (e *Engine) Latest() *CycleResult {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.history.Latest()
}

// Baseline returns a copy of the captured baseline entries.
func (e *Engine) Baseline() map[string]BaselineEntry {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.baseline.Snapshot()
}

// TrendWindow returns a copy of one metric's trend series, oldest first.
func (e *Engine) TrendWindow(name string) []float64 {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.trends.Series(name)
}

// Summary returns the dashboard-facing digest of engine state.
func (e *Engine) Summary() Summary {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()

	// totalCycles keeps counting past the history cap.
	summary := Summary{
		Initialized:      e.initialized,
		ValidationActive: e.timerActive,
		TotalValidations: e.totalCycles,
	}

	if latest := e.history.Latest(); latest != nil {
		summary.LatestScore = latest.OverallScore
		summary.LatestStatus = latest.Status.String()
		ts := latest.Timestamp
		summary.LastValidation = &ts
	}

	return summary
}

// setTimerActive is toggled by the runner around its ticker loop.
func (e *Engine) setTimerActive(active bool) {
	e.stateMu.Lock()
	e.timerActive = active
	e.stateMu.Unlock()
}

// Dispose clears history, trend windows and baseline and resets the
// initialized flag. Safe to call even if the engine was never initialized;
// waits for an in-flight cycle to finish first.
func (e *Engine) Dispose() {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	e.stateMu.Lock()
	defer e.stateMu.Unlock()

	e.history.Reset()
	e.trends.Reset()
	e.baseline.Reset()
	e.initialized = false
	e.timerActive = false
	e.totalCycles = 0

	e.log.Info("Validation engine disposed")
}
