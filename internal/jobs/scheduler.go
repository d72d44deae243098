// Package jobs runs delayed and periodic background work on a bounded
// worker pool.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/directory/internal/logger"
	"github.com/kailas-cloud/directory/internal/metrics"
)

// ErrStopped is returned when scheduling on a stopped Scheduler.
var ErrStopped = errors.New("scheduler stopped")

// Job is a unit of background work. ctx is cancelled when the scheduler
// stops without finishing in time.
type Job func(ctx context.Context) error

// Job run outcomes.
const (
	statusOK       = "ok"
	statusError    = "error"
	statusPanic    = "panic"
	statusRejected = "rejected"
)

// Scheduler fires jobs after a delay and runs them on an ants pool.
type Scheduler struct {
	pool   *ants.Pool
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	timers  map[uint64]*time.Timer
	nextID  uint64
	stopped bool
	wg      sync.WaitGroup
}

// New creates a Scheduler with size workers.
func New(size int, log *zap.Logger) (*Scheduler, error) {
	pool, err := ants.NewPool(size, ants.WithPanicHandler(func(v any) {
		log.Error("Job worker panic", zap.Any("panic", v))
	}))
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	ctx, cancel := context.WithCancel(logger.ContextWithLogger(context.Background(), log))
	return &Scheduler{
		pool:   pool,
		logger: log,
		ctx:    ctx,
		cancel: cancel,
		timers: make(map[uint64]*time.Timer),
	}, nil
}

// Schedule runs job once after delay.
func (s *Scheduler) Schedule(name string, delay time.Duration, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}
	id := s.nextID
	s.nextID++
	s.timers[id] = time.AfterFunc(delay, func() {
		s.fire(id, name, job)
	})
	return nil
}

// Every runs job every interval until the scheduler stops. The first run
// happens after one interval.
func (s *Scheduler) Every(name string, interval time.Duration, job Job) error {
	var tick Job
	tick = func(ctx context.Context) error {
		err := job(ctx)
		if serr := s.Schedule(name, interval, tick); serr != nil && !errors.Is(serr, ErrStopped) {
			s.logger.Error("Failed to reschedule job", zap.String("job", name), zap.Error(serr))
		}
		return err
	}
	return s.Schedule(name, interval, tick)
}

// Pending returns the number of jobs waiting for their delay to elapse.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Running returns the number of busy workers.
func (s *Scheduler) Running() int {
	return s.pool.Running()
}

// Stop drops pending jobs and waits for running ones. When ctx expires
// first, running jobs are cancelled and ctx.Err() is returned.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	dropped := 0
	for id, t := range s.timers {
		if t.Stop() {
			dropped++
		}
		delete(s.timers, id)
	}
	s.mu.Unlock()

	if dropped > 0 {
		s.logger.Info("Dropped pending jobs", zap.Int("count", dropped))
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		s.cancel()
		<-done
		err = ctx.Err()
	}
	s.cancel()
	s.pool.Release()
	return err
}

func (s *Scheduler) fire(id uint64, name string, job Job) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	delete(s.timers, id)
	s.wg.Add(1)
	s.mu.Unlock()

	err := s.pool.Submit(func() {
		defer s.wg.Done()
		s.run(name, job)
	})
	if err != nil {
		s.wg.Done()
		metrics.JobRunsTotal.WithLabelValues(name, statusRejected).Inc()
		s.logger.Error("Job rejected by worker pool", zap.String("job", name), zap.Error(err))
	}
}

func (s *Scheduler) run(name string, job Job) {
	start := time.Now()
	status := statusOK
	defer func() {
		if r := recover(); r != nil {
			status = statusPanic
			s.logger.Error("Job panicked", zap.String("job", name), zap.Any("panic", r))
		}
		metrics.JobRunsTotal.WithLabelValues(name, status).Inc()
		s.logger.Debug("Job finished",
			zap.String("job", name),
			zap.String("status", status),
			zap.Duration("duration", time.Since(start)),
		)
	}()

	if err := job(s.ctx); err != nil {
		status = statusError
		s.logger.Warn("Job failed", zap.String("job", name), zap.Error(err))
	}
}
