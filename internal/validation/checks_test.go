package validation

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dreschagin/analytics-validator/internal/application/port"
	"github.com/dreschagin/analytics-validator/pkg/logger"
)

func TestCheckDataConsistency(t *testing.T) {
	tests := []struct {
		name      string
		session   port.SessionInfo
		stats     port.PerformanceStats
		wantScore float64
		wantIssue string
	}{
		{
			name:      "healthy snapshot",
			session:   healthySession(),
			stats:     healthyStats(),
			wantScore: 100,
		},
		{
			name: "missing session id",
			session: port.SessionInfo{
				DurationSeconds: 60,
				JourneyEvents:   3,
				UserType:        "client",
			},
			stats:     healthyStats(),
			wantScore: 80,
			wantIssue: "missing session id",
		},
		{
			name: "negative duration",
			session: port.SessionInfo{
				SessionID:       "session-1",
				DurationSeconds: -5,
				UserType:        "client",
			},
			stats:     healthyStats(),
			wantScore: 80,
			wantIssue: "negative session duration",
		},
		{
			name: "unknown user type",
			session: port.SessionInfo{
				SessionID:       "session-1",
				DurationSeconds: 60,
				UserType:        "guest",
			},
			stats:     healthyStats(),
			wantScore: 80,
			wantIssue: "unknown user type",
		},
		{
			name: "multiple issues stack penalties",
			session: port.SessionInfo{
				DurationSeconds: -5,
				UserType:        "guest",
			},
			stats:     healthyStats(),
			wantScore: 40,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions := &fakeSessionSource{info: tt.session}
			perf := &fakePerfSource{stats: tt.stats}
			engine := newTestEngine(t, sessions, perf, nil)

			res := engine.checkDataConsistency(context.Background())

			if res.Score.Raw() != tt.wantScore {
				t.Errorf("expected score %v, got %v (issues: %v)", tt.wantScore, res.Score.Raw(), res.Issues)
			}
			if res.Passed != (tt.wantScore == 100) {
				t.Errorf("Passed = %v inconsistent with score %v", res.Passed, tt.wantScore)
			}
			if tt.wantIssue != "" && !containsIssue(res.Issues, tt.wantIssue) {
				t.Errorf("expected issue containing %q, got %v", tt.wantIssue, res.Issues)
			}
		})
	}
}

func TestCheckRealtimeSync(t *testing.T) {
	t.Run("healthy sync passes", func(t *testing.T) {
		sessions := &fakeSessionSource{info: healthySession()}
		engine := newTestEngine(t, sessions, &fakePerfSource{stats: healthyStats()}, nil)

		res := engine.checkRealtimeSync(context.Background())

		if !res.Passed {
			t.Errorf("expected pass, got issues %v", res.Issues)
		}
	})

	t.Run("counter not incrementing", func(t *testing.T) {
		sessions := &fakeSessionSource{info: healthySession(), syncBroken: true}
		engine := newTestEngine(t, sessions, &fakePerfSource{stats: healthyStats()}, nil)

		res := engine.checkRealtimeSync(context.Background())

		if res.Score.Raw() != 75 {
			t.Errorf("expected score 75, got %v", res.Score.Raw())
		}
		if !containsIssue(res.Issues, "did not increment") {
			t.Errorf("expected counter issue, got %v", res.Issues)
		}
	})

	t.Run("sync delay over budget", func(t *testing.T) {
		sessions := &fakeSessionSource{info: healthySession(), trackDelay: 30 * time.Millisecond}
		cfg := testConfig()
		cfg.SyncDelayMax = 15 * time.Millisecond
		cfg.SyncSettleDelay = time.Millisecond
		engine, err := NewEngine(cfg, sessions, &fakePerfSource{stats: healthyStats()}, nil, logger.New("error"))
		if err != nil {
			t.Fatalf("NewEngine failed: %v", err)
		}

		res := engine.checkRealtimeSync(context.Background())

		if res.Score.Raw() != 75 {
			t.Errorf("expected score 75, got %v (issues: %v)", res.Score.Raw(), res.Issues)
		}
		if !containsIssue(res.Issues, "exceeds 15ms budget") {
			t.Errorf("expected delay issue, got %v", res.Issues)
		}
	})

	t.Run("cancelled context fails the check", func(t *testing.T) {
		sessions := &fakeSessionSource{info: healthySession()}
		engine := newTestEngine(t, sessions, &fakePerfSource{stats: healthyStats()}, nil)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		res := engine.checkRealtimeSync(ctx)

		if res.Passed || res.Score.Raw() != 0 {
			t.Errorf("expected zero-score failure on cancelled context, got %+v", res)
		}
	})
}

func TestCheckMetricAccuracy(t *testing.T) {
	t.Run("variance over threshold", func(t *testing.T) {
		sessions := &fakeSessionSource{info: healthySession()}
		perf := &fakePerfSource{stats: healthyStats()}
		engine := newTestEngine(t, sessions, perf, nil)
		engine.Initialize(context.Background())

		// 30% drift on session duration against the 15% threshold
		drifted := healthySession()
		drifted.DurationSeconds = 156
		sessions.set(drifted)

		res := engine.checkMetricAccuracy(context.Background())

		if res.Score.Raw() != 85 {
			t.Errorf("expected score 85, got %v (issues: %v)", res.Score.Raw(), res.Issues)
		}
		if !containsIssue(res.Issues, "session_duration variance 30.0% exceeds 15% baseline threshold") {
			t.Errorf("expected variance issue, got %v", res.Issues)
		}
	})

	t.Run("zero baseline is skipped", func(t *testing.T) {
		session := healthySession()
		session.JourneyEvents = 0
		sessions := &fakeSessionSource{info: session}
		perf := &fakePerfSource{stats: healthyStats()}
		engine := newTestEngine(t, sessions, perf, nil)
		engine.Initialize(context.Background())

		// Counter jumps from 0; relative variance is undefined, not an issue
		session.JourneyEvents = 500
		sessions.set(session)

		res := engine.checkMetricAccuracy(context.Background())

		if containsIssue(res.Issues, "journey_events") {
			t.Errorf("zero baseline must not be scored, got %v", res.Issues)
		}
	})

	t.Run("no baseline passes", func(t *testing.T) {
		sessions := &fakeSessionSource{info: healthySession()}
		engine := newTestEngine(t, sessions, &fakePerfSource{stats: healthyStats()}, nil)

		res := engine.checkMetricAccuracy(context.Background())

		if !res.Passed {
			t.Errorf("expected pass without a baseline, got %v", res.Issues)
		}
	})

	t.Run("records trend observations", func(t *testing.T) {
		sessions := &fakeSessionSource{info: healthySession()}
		engine := newTestEngine(t, sessions, &fakePerfSource{stats: healthyStats()}, nil)

		engine.checkMetricAccuracy(context.Background())
		engine.checkMetricAccuracy(context.Background())

		if got := len(engine.TrendWindow(MetricSessionDuration)); got != 2 {
			t.Errorf("expected 2 trend points, got %d", got)
		}
	})
}

func TestCheckPerformanceImpact(t *testing.T) {
	tests := []struct {
		name      string
		stats     port.PerformanceStats
		wantScore float64
		wantIssue string
	}{
		{
			name:      "within budget",
			stats:     healthyStats(),
			wantScore: 100,
		},
		{
			name: "memory over limit",
			stats: port.PerformanceStats{
				MemoryUsageBytes:  150 * 1024 * 1024,
				AvgResponseTimeMs: 45,
			},
			wantScore: 70,
			wantIssue: "memory usage 150MB exceeds 100MB limit",
		},
		{
			name: "response time over limit",
			stats: port.PerformanceStats{
				MemoryUsageBytes:  80 * 1024 * 1024,
				AvgResponseTimeMs: 250,
			},
			wantScore: 70,
			wantIssue: "average response time 250.0ms exceeds 100ms limit",
		},
		{
			name: "both budgets blown",
			stats: port.PerformanceStats{
				MemoryUsageBytes:  150 * 1024 * 1024,
				AvgResponseTimeMs: 250,
			},
			wantScore: 40,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestEngine(t, &fakeSessionSource{info: healthySession()}, &fakePerfSource{stats: tt.stats}, nil)

			res := engine.checkPerformanceImpact(context.Background())

			if res.Score.Raw() != tt.wantScore {
				t.Errorf("expected score %v, got %v (issues: %v)", tt.wantScore, res.Score.Raw(), res.Issues)
			}
			if tt.wantIssue != "" && !containsIssue(res.Issues, tt.wantIssue) {
				t.Errorf("expected issue containing %q, got %v", tt.wantIssue, res.Issues)
			}
		})
	}
}

func TestCheckBusinessLogic(t *testing.T) {
	tests := []struct {
		name      string
		session   port.SessionInfo
		wantScore float64
		wantIssue string
	}{
		{
			name:      "healthy session",
			session:   healthySession(),
			wantScore: 100,
		},
		{
			name: "active session without events",
			session: port.SessionInfo{
				SessionID:       "session-1",
				DurationSeconds: 300,
				JourneyEvents:   0,
				UserID:          "user-1",
				UserType:        "client",
			},
			wantScore: 80,
			wantIssue: "active session with no journey events",
		},
		{
			name: "user id without user type",
			session: port.SessionInfo{
				SessionID:       "session-1",
				DurationSeconds: 60,
				JourneyEvents:   5,
				UserID:          "user-1",
			},
			wantScore: 80,
			wantIssue: "user id set without user type",
		},
		{
			name: "negative duration",
			session: port.SessionInfo{
				SessionID:       "session-1",
				DurationSeconds: -10,
				JourneyEvents:   5,
				UserType:        "client",
			},
			wantScore: 80,
			wantIssue: "negative session duration",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestEngine(t, &fakeSessionSource{info: tt.session}, &fakePerfSource{stats: healthyStats()}, nil)

			res := engine.checkBusinessLogic(context.Background())

			if res.Score.Raw() != tt.wantScore {
				t.Errorf("expected score %v, got %v (issues: %v)", tt.wantScore, res.Score.Raw(), res.Issues)
			}
			if tt.wantIssue != "" && !containsIssue(res.Issues, tt.wantIssue) {
				t.Errorf("expected issue containing %q, got %v", tt.wantIssue, res.Issues)
			}
		})
	}
}

func TestCheckTrendAnalysis(t *testing.T) {
	t.Run("spike three sigma from mean", func(t *testing.T) {
		engine := newTestEngine(t, &fakeSessionSource{info: healthySession()}, &fakePerfSource{stats: healthyStats()}, nil)

		// Nine stable observations then a 10x outlier: the spike sits exactly
		// three population standard deviations from the mean
		for i := 0; i < 9; i++ {
			engine.trends.Append(MetricErrorCount, 10)
		}
		engine.trends.Append(MetricErrorCount, 100)

		res := engine.checkTrendAnalysis(context.Background())

		if res.Score.Raw() != 75 {
			t.Errorf("expected score 75, got %v (issues: %v)", res.Score.Raw(), res.Issues)
		}
		if !containsIssue(res.Issues, "anomalous spike in error_count") {
			t.Errorf("expected spike issue, got %v", res.Issues)
		}
	})

	t.Run("flat series passes", func(t *testing.T) {
		engine := newTestEngine(t, &fakeSessionSource{info: healthySession()}, &fakePerfSource{stats: healthyStats()}, nil)

		for i := 0; i < 10; i++ {
			engine.trends.Append(MetricSessionDuration, 120)
		}

		res := engine.checkTrendAnalysis(context.Background())

		if !res.Passed {
			t.Errorf("constant series must not flag spikes, got %v", res.Issues)
		}
	})

	t.Run("short series is skipped", func(t *testing.T) {
		engine := newTestEngine(t, &fakeSessionSource{info: healthySession()}, &fakePerfSource{stats: healthyStats()}, nil)

		engine.trends.Append(MetricMemoryUsage, 10)
		engine.trends.Append(MetricMemoryUsage, 99999)

		res := engine.checkTrendAnalysis(context.Background())

		if !res.Passed {
			t.Errorf("series below 3 points must be skipped, got %v", res.Issues)
		}
	})
}

func containsIssue(issues []string, substr string) bool {
	for _, issue := range issues {
		if strings.Contains(issue, substr) {
			return true
		}
	}
	return false
}
