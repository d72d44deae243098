package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/directory/internal/metrics"
)

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s, err := New(4, zap.NewNop())
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	t.Cleanup(func() { _ = s.Stop(context.Background()) })
	return s
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func runs(job, status string) float64 {
	return testutil.ToFloat64(metrics.JobRunsTotal.WithLabelValues(job, status))
}

func TestSchedule_RunsAfterDelay(t *testing.T) {
	s := newTestScheduler(t)
	done := make(chan time.Time, 1)
	start := time.Now()

	if err := s.Schedule("test-delay", 20*time.Millisecond, func(context.Context) error {
		done <- time.Now()
		return nil
	}); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	select {
	case at := <-done:
		if at.Sub(start) < 20*time.Millisecond {
			t.Errorf("job ran early after %v", at.Sub(start))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run")
	}
	waitFor(t, func() bool { return runs("test-delay", statusOK) == 1 })
	if s.Pending() != 0 {
		t.Errorf("expected no pending jobs, got %d", s.Pending())
	}
}

func TestSchedule_ErrorAndPanicAreCounted(t *testing.T) {
	s := newTestScheduler(t)
	if err := s.Schedule("test-fail", 0, func(context.Context) error { return errors.New("boom") }); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if err := s.Schedule("test-panic", 0, func(context.Context) error { panic("kaboom") }); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	waitFor(t, func() bool {
		return runs("test-fail", statusError) == 1 && runs("test-panic", statusPanic) == 1
	})

	var ran atomic.Bool
	if err := s.Schedule("test-after-panic", 0, func(context.Context) error { ran.Store(true); return nil }); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	waitFor(t, ran.Load)
}

func TestEvery_Repeats(t *testing.T) {
	s := newTestScheduler(t)
	var n atomic.Int32
	if err := s.Every("test-every", 10*time.Millisecond, func(context.Context) error {
		n.Add(1)
		return nil
	}); err != nil {
		t.Fatalf("every: %v", err)
	}
	waitFor(t, func() bool { return n.Load() >= 3 })
}

func TestStop_DropsPending(t *testing.T) {
	s, err := New(1, zap.NewNop())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	var ran atomic.Bool
	if err := s.Schedule("test-dropped", time.Hour, func(context.Context) error { ran.Store(true); return nil }); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if s.Pending() != 1 {
		t.Fatalf("expected 1 pending job, got %d", s.Pending())
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if s.Pending() != 0 || ran.Load() {
		t.Error("pending job must be dropped")
	}
	if err := s.Schedule("test-dropped", 0, func(context.Context) error { return nil }); !errors.Is(err, ErrStopped) {
		t.Errorf("expected ErrStopped, got %v", err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Errorf("second stop: %v", err)
	}
}

func TestStop_WaitsForRunning(t *testing.T) {
	s, err := New(1, zap.NewNop())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	started := make(chan struct{})
	var finished atomic.Bool
	if err := s.Schedule("test-wait", 0, func(context.Context) error {
		close(started)
		time.Sleep(50 * time.Millisecond)
		finished.Store(true)
		return nil
	}); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	<-started
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if !finished.Load() {
		t.Error("stop returned before the running job finished")
	}
}

func TestStop_DeadlineCancelsRunning(t *testing.T) {
	s, err := New(1, zap.NewNop())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	started := make(chan struct{})
	if err := s.Schedule("test-cancel", 0, func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := s.Stop(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	waitFor(t, func() bool { return runs("test-cancel", statusError) == 1 })
}
