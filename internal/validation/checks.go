package validation

import (
	"context"
	"fmt"
	"time"

	"github.com/dreschagin/analytics-validator/internal/domain/valueobject"
)

// checkBuilder accumulates issues for one check, deducting a fixed penalty
// per issue and clamping the score to [0, 100].
type checkBuilder struct {
	name    string
	penalty float64
	score   valueobject.Score
	issues  []string
	recs    []string
}

func newCheck(name string, penalty float64) *checkBuilder {
	return &checkBuilder{
		name:    name,
		penalty: penalty,
		score:   valueobject.MaxScore,
	}
}

func (b *checkBuilder) flag(issue string) {
	b.score = b.score.Deduct(b.penalty)
	b.issues = append(b.issues, issue)
}

func (b *checkBuilder) recommend(rec string) {
	b.recs = append(b.recs, rec)
}

func (b *checkBuilder) result() CheckResult {
	res := CheckResult{
		Name:   b.name,
		Score:  b.score,
		Passed: len(b.issues) == 0,
		Issues: b.issues,
	}
	if !res.Passed {
		res.Recommendations = b.recs
	}
	return res
}

// failedCheck converts a check-local error into a zero-score failing result.
// One failing check never aborts the cycle.
func failedCheck(name string, err error) CheckResult {
	return CheckResult{
		Name:   name,
		Score:  valueobject.MinScore,
		Passed: false,
		Issues: []string{fmt.Sprintf("%s failed: %v", name, err)},
	}
}

// checkDataConsistency verifies field presence and sign sanity of both
// snapshot kinds.
func (e *Engine) checkDataConsistency(ctx context.Context) CheckResult {
	session, err := e.sessions.SessionInfo(ctx)
	if err != nil {
		return failedCheck(CheckDataConsistency, err)
	}
	stats, err := e.perf.PerformanceStats(ctx)
	if err != nil {
		return failedCheck(CheckDataConsistency, err)
	}

	b := newCheck(CheckDataConsistency, penaltyConsistency)

	if session.SessionID == "" {
		b.flag("session snapshot is missing session id")
	}
	if session.DurationSeconds < 0 {
		b.flag(fmt.Sprintf("negative session duration: %.1fs", session.DurationSeconds))
	}
	if stats.TotalErrors < 0 {
		b.flag(fmt.Sprintf("negative error count: %d", stats.TotalErrors))
	}
	if session.UserType != "" && !e.isKnownUserType(session.UserType) {
		b.flag(fmt.Sprintf("unknown user type: %q", session.UserType))
	}

	if len(b.issues) > 0 {
		b.recommend("verify session tracking wiring in the analytics client")
	}

	return b.result()
}

// checkRealtimeSync tracks a synthetic action, waits for it to settle and
// verifies that the journey counter observed it within the latency budget.
func (e *Engine) checkRealtimeSync(ctx context.Context) CheckResult {
	before, err := e.sessions.SessionInfo(ctx)
	if err != nil {
		return failedCheck(CheckRealtimeSync, err)
	}

	b := newCheck(CheckRealtimeSync, penaltySync)

	start := time.Now()
	if err := e.sessions.TrackAction(ctx, "validation_sync_probe", "system_validation"); err != nil {
		b.flag(fmt.Sprintf("sync probe was not accepted: %v", err))
	}

	// Bounded-latency suspension point, not a cancellable long-running operation.
	select {
	case <-time.After(e.cfg.SyncSettleDelay):
	case <-ctx.Done():
		return failedCheck(CheckRealtimeSync, ctx.Err())
	}

	after, err := e.sessions.SessionInfo(ctx)
	if err != nil {
		return failedCheck(CheckRealtimeSync, err)
	}
	elapsed := time.Since(start)

	if after.JourneyEvents <= before.JourneyEvents {
		b.flag("journey counter did not increment after sync probe")
	}
	if elapsed > e.cfg.SyncDelayMax {
		b.flag(fmt.Sprintf("sync delay %dms exceeds %dms budget",
			elapsed.Milliseconds(), e.cfg.SyncDelayMax.Milliseconds()))
	}

	if len(b.issues) > 0 {
		b.recommend("inspect event delivery latency between client and analytics backend")
	}

	return b.result()
}

// checkMetricAccuracy compares every tracked metric against its baseline and
// records the current observation into the trend window.
func (e *Engine) checkMetricAccuracy(ctx context.Context) CheckResult {
	session, err := e.sessions.SessionInfo(ctx)
	if err != nil {
		return failedCheck(CheckMetricAccuracy, err)
	}
	stats, err := e.perf.PerformanceStats(ctx)
	if err != nil {
		return failedCheck(CheckMetricAccuracy, err)
	}

	b := newCheck(CheckMetricAccuracy, penaltyAccuracy)
	current := currentMetrics(session, stats)

	for _, name := range trackedMetrics {
		value := current[name]

		// Zero-valued baselines are unscorable for relative variance.
		if entry, ok := e.baseline.Get(name); ok && entry.Value != 0 {
			variance := (value - entry.Value) / entry.Value
			if variance < 0 {
				variance = -variance
			}
			if variance > e.cfg.VarianceThreshold {
				b.flag(fmt.Sprintf("%s variance %.1f%% exceeds %.0f%% baseline threshold",
					name, variance*100, e.cfg.VarianceThreshold*100))
			}
		}

		e.trends.Append(name, value)
	}

	if len(b.issues) > 0 {
		b.recommend("review metric drift against the captured baseline")
	}

	return b.result()
}

// checkPerformanceImpact verifies the resource counters stay within budget.
func (e *Engine) checkPerformanceImpact(ctx context.Context) CheckResult {
	stats, err := e.perf.PerformanceStats(ctx)
	if err != nil {
		return failedCheck(CheckPerformanceImpact, err)
	}

	b := newCheck(CheckPerformanceImpact, penaltyPerformance)

	if stats.MemoryUsageBytes > e.cfg.MemoryLimitBytes {
		b.flag(fmt.Sprintf("memory usage %dMB exceeds %dMB limit",
			stats.MemoryUsageBytes/(1024*1024), e.cfg.MemoryLimitBytes/(1024*1024)))
	}
	if stats.AvgResponseTimeMs > e.cfg.ResponseTimeMaxMs {
		b.flag(fmt.Sprintf("average response time %.1fms exceeds %.0fms limit",
			stats.AvgResponseTimeMs, e.cfg.ResponseTimeMaxMs))
	}

	if len(b.issues) > 0 {
		b.recommend("profile memory and response time hot paths")
	}

	return b.result()
}

// checkBusinessLogic verifies cross-field invariants of the session snapshot.
func (e *Engine) checkBusinessLogic(ctx context.Context) CheckResult {
	session, err := e.sessions.SessionInfo(ctx)
	if err != nil {
		return failedCheck(CheckBusinessLogic, err)
	}

	b := newCheck(CheckBusinessLogic, penaltyBusiness)

	if session.DurationSeconds > 0 && session.JourneyEvents == 0 {
		b.flag("active session with no journey events")
	}
	if session.DurationSeconds < 0 {
		b.flag(fmt.Sprintf("negative session duration: %.1fs", session.DurationSeconds))
	}
	if session.UserID != "" && session.UserType == "" {
		b.flag("user id set without user type")
	}

	if len(b.issues) > 0 {
		b.recommend("audit journey instrumentation for dropped events")
	}

	return b.result()
}

// checkTrendAnalysis flags observations deviating at least SpikeSigma standard
// deviations from their series mean. Needs at least 3 points per series.
func (e *Engine) checkTrendAnalysis(_ context.Context) CheckResult {
	b := newCheck(CheckTrendAnalysis, penaltyTrend)

	for _, name := range trackedMetrics {
		series := e.trends.Series(name)
		if len(series) < 3 {
			continue
		}

		mean, stddev := seriesStats(series)
		if stddev == 0 {
			continue
		}

		for _, value := range series {
			deviation := value - mean
			if deviation < 0 {
				deviation = -deviation
			}
			if deviation >= stddev*e.cfg.SpikeSigma {
				b.flag(fmt.Sprintf("anomalous spike in %s: value %.1f deviates %.1fσ from mean %.1f",
					name, value, deviation/stddev, mean))
			}
		}
	}

	if len(b.issues) > 0 {
		b.recommend("investigate anomalous metric spikes")
	}

	return b.result()
}

func (e *Engine) isKnownUserType(userType string) bool {
	for _, known := range e.cfg.KnownUserTypes {
		if userType == known {
			return true
		}
	}
	return false
}
