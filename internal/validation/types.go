package validation

import (
	"context"
	"time"

	"github.com/dreschagin/analytics-validator/internal/domain/valueobject"
)

// Check names, in the fixed execution order of a cycle.
const (
	CheckDataConsistency   = "data_consistency"
	CheckRealtimeSync      = "realtime_sync"
	CheckMetricAccuracy    = "metric_accuracy"
	CheckPerformanceImpact = "performance_impact"
	CheckBusinessLogic     = "business_logic"
	CheckTrendAnalysis     = "trend_analysis"
)

// checkOrder only affects log readability, not correctness.
var checkOrder = []string{
	CheckDataConsistency,
	CheckRealtimeSync,
	CheckMetricAccuracy,
	CheckPerformanceImpact,
	CheckBusinessLogic,
	CheckTrendAnalysis,
}

// Metric names tracked against the baseline and trend windows.
const (
	MetricSessionDuration = "session_duration"
	MetricJourneyEvents   = "journey_events"
	MetricMemoryUsage     = "memory_usage"
	MetricErrorCount      = "error_count"
)

var trackedMetrics = []string{
	MetricSessionDuration,
	MetricJourneyEvents,
	MetricMemoryUsage,
	MetricErrorCount,
}

// Penalty points deducted per issue, by check.
const (
	penaltyConsistency = 20
	penaltySync        = 25
	penaltyAccuracy    = 15
	penaltyPerformance = 30
	penaltyBusiness    = 20
	penaltyTrend       = 25
)

// generalRecommendations are appended once whenever any check produced
// recommendations of its own.
var generalRecommendations = []string{
	"schedule regular validation",
	"monitor performance impact",
	"review data collection accuracy",
}

// CheckResult is the outcome of one independent check.
// Invariant: Passed == (len(Issues) == 0), Score within [0, 100].
type CheckResult struct {
	Name            string            `json:"name"`
	Score           valueobject.Score `json:"score"`
	Passed          bool              `json:"passed"`
	Issues          []string          `json:"issues,omitempty"`
	Recommendations []string          `json:"recommendations,omitempty"`
}

// CycleResult is the consolidated outcome of one validation cycle.
// Immutable once appended to history.
type CycleResult struct {
	ID              string                       `json:"id"`
	Timestamp       time.Time                    `json:"timestamp"`
	Duration        time.Duration                `json:"duration_ns"`
	OverallScore    float64                      `json:"overall_score"`
	Status          valueobject.ValidationStatus `json:"status"`
	Checks          map[string]CheckResult       `json:"checks"`
	Recommendations []string                     `json:"recommendations,omitempty"`
	Error           string                       `json:"error,omitempty"`
}

// Summary is the dashboard-facing digest of engine state.
type Summary struct {
	Initialized      bool       `json:"is_initialized"`
	ValidationActive bool       `json:"validation_active"`
	TotalValidations int        `json:"total_validations"`
	LatestScore      float64    `json:"latest_score"`
	LatestStatus     string     `json:"latest_status"`
	LastValidation   *time.Time `json:"last_validation"`
}

// CycleListener receives every completed cycle result. Implementations are
// invoked fire-and-forget: they must not assume ordering guarantees beyond
// per-cycle sequencing and must tolerate being skipped on shutdown.
type CycleListener interface {
	OnCycleResult(ctx context.Context, result CycleResult)
}
