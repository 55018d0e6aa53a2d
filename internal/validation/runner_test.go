package validation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dreschagin/analytics-validator/pkg/logger"
)

// recordingListener captures every result it receives.
type recordingListener struct {
	mu      sync.Mutex
	results []CycleResult
}

func (l *recordingListener) OnCycleResult(_ context.Context, result CycleResult) {
	l.mu.Lock()
	l.results = append(l.results, result)
	l.mu.Unlock()
}

func (l *recordingListener) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.results)
}

type panickingListener struct{}

func (panickingListener) OnCycleResult(context.Context, CycleResult) {
	panic("listener blew up")
}

func newTestRunner(t *testing.T, listeners ...CycleListener) (*Runner, *Engine) {
	t.Helper()

	sessions := &fakeSessionSource{info: healthySession()}
	perf := &fakePerfSource{stats: healthyStats()}
	engine := newTestEngine(t, sessions, perf, nil)
	engine.Initialize(context.Background())

	return NewRunner(engine, logger.New("error"), listeners...), engine
}

func TestRunOnceNotifiesListeners(t *testing.T) {
	first := &recordingListener{}
	second := &recordingListener{}
	runner, _ := newTestRunner(t, first, second)

	result := runner.RunOnce(context.Background())

	if first.count() != 1 || second.count() != 1 {
		t.Fatalf("expected each listener notified once, got %d and %d", first.count(), second.count())
	}
	if first.results[0].ID != result.ID {
		t.Error("listener received a different result than RunOnce returned")
	}
}

func TestRunOncePanickingListenerIsContained(t *testing.T) {
	survivor := &recordingListener{}
	runner, _ := newTestRunner(t, panickingListener{}, survivor)

	result := runner.RunOnce(context.Background())

	if result.ID == "" {
		t.Error("expected a completed cycle despite listener panic")
	}
	if survivor.count() != 1 {
		t.Errorf("expected sibling listener still notified, got %d", survivor.count())
	}
}

func TestRunOnceUpdatesSnapshot(t *testing.T) {
	runner, _ := newTestRunner(t)

	before := runner.Snapshot()
	if !before.LastRunAt.IsZero() {
		t.Fatal("expected zero last run before any cycle")
	}

	runner.RunOnce(context.Background())

	after := runner.Snapshot()
	if after.LastRunAt.IsZero() {
		t.Error("expected last run timestamp after a cycle")
	}
	if after.LastError != "" {
		t.Errorf("expected empty last error for healthy cycle, got %q", after.LastError)
	}
	if after.StartedAt.IsZero() {
		t.Error("expected started timestamp")
	}
}

func TestStartTogglesTimerActive(t *testing.T) {
	runner, engine := newTestRunner(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		runner.Start(ctx)
		close(done)
	}()

	waitFor(t, time.Second, func() bool { return engine.Summary().ValidationActive })

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("runner did not stop after context cancellation")
	}

	if engine.Summary().ValidationActive {
		t.Error("expected timer inactive after runner stopped")
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}
