// Package scheduler drives periodic and on-demand sync cycles.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	syncpkg "aicopilot/core/internal/sync"
)

// CycleRunner is the part of the sync engine the scheduler drives.
type CycleRunner interface {
	RunSyncCycle(ctx context.Context) (*syncpkg.CycleResult, error)
}

// Config holds scheduler timing.
type Config struct {
	Interval   time.Duration // periodic cycle spacing while healthy
	BackoffMin time.Duration // first wait after a failed cycle
	BackoffMax time.Duration // backoff ceiling
}

// DefaultConfig returns the timing used when no configuration is given.
func DefaultConfig() Config {
	return Config{
		Interval:   time.Minute,
		BackoffMin: time.Second,
		BackoffMax: 30 * time.Second,
	}
}

// Scheduler runs sync cycles on a timer, doubling the wait after each
// failed cycle up to the ceiling. A manual trigger or a connectivity
// change runs a cycle immediately, ignoring any backoff in progress.
type Scheduler struct {
	engine  CycleRunner
	cfg     Config
	logger  *slog.Logger
	trigger chan struct{}
	stopCh  chan struct{}
	wg      sync.WaitGroup

	mu       sync.RWMutex
	running  bool
	online   bool
	lastSync time.Time
	lastErr  error
	failures int
}

// New creates a Scheduler over the engine.
func New(engine CycleRunner, cfg Config, logger *slog.Logger) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if cfg.BackoffMin <= 0 {
		cfg.BackoffMin = DefaultConfig().BackoffMin
	}
	if cfg.BackoffMax < cfg.BackoffMin {
		cfg.BackoffMax = DefaultConfig().BackoffMax
	}
	return &Scheduler{
		engine:  engine,
		cfg:     cfg,
		logger:  logger,
		trigger: make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
		online:  true,
	}
}

// Start launches the background loop. Calling Start twice is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop(ctx)
	s.logger.Info("sync scheduler started", "interval", s.cfg.Interval)
}

// Stop shuts the loop down and waits for any in-flight cycle.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info("sync scheduler stopped")
}

// TriggerSync requests an immediate cycle. Requests arriving while a
// cycle runs coalesce into at most one follow-up cycle.
func (s *Scheduler) TriggerSync() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// SetOnline records connectivity. Coming back online triggers an
// immediate cycle to drain whatever queued up while offline.
func (s *Scheduler) SetOnline(online bool) {
	s.mu.Lock()
	was := s.online
	s.online = online
	s.mu.Unlock()

	if was != online {
		s.logger.Info("connectivity changed", "online", online)
	}
	if !was && online {
		s.TriggerSync()
	}
}

// IsOnline reports the recorded connectivity.
func (s *Scheduler) IsOnline() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.online
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	timer := time.NewTimer(s.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-timer.C:
			if s.IsOnline() {
				s.runCycle(ctx)
			}
			timer.Reset(s.nextWait())
		case <-s.trigger:
			// Manual triggers bypass both the offline gate and any
			// backoff wait in progress.
			s.runCycle(ctx)
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(s.nextWait())
		}
	}
}

// nextWait returns the interval while healthy, or the exponential
// backoff wait after consecutive failures.
func (s *Scheduler) nextWait() time.Duration {
	s.mu.RLock()
	failures := s.failures
	s.mu.RUnlock()

	if failures == 0 {
		return s.cfg.Interval
	}
	wait := s.cfg.BackoffMin << (failures - 1)
	if wait > s.cfg.BackoffMax || wait <= 0 {
		wait = s.cfg.BackoffMax
	}
	return wait
}

func (s *Scheduler) runCycle(ctx context.Context) {
	result, err := s.engine.RunSyncCycle(ctx)
	if errors.Is(err, syncpkg.ErrCycleRunning) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
	if err != nil {
		s.failures++
		s.logger.Warn("sync cycle failed", "failures", s.failures, "error", err)
		return
	}
	s.failures = 0
	s.lastSync = time.Now()
	if result != nil && (result.Pushed > 0 || result.Conflicts > 0) {
		s.logger.Info("sync cycle completed",
			"pushed", result.Pushed, "conflicts", result.Conflicts)
	}
}

// Status is a point-in-time snapshot for a status screen.
type Status struct {
	Running      bool       `json:"running"`
	Online       bool       `json:"online"`
	LastSyncTime *time.Time `json:"last_sync_time,omitempty"`
	LastError    string     `json:"last_error,omitempty"`
	Failures     int        `json:"failures"`
}

// GetStatus returns the current scheduler state.
func (s *Scheduler) GetStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		Running:  s.running,
		Online:   s.online,
		Failures: s.failures,
	}
	if !s.lastSync.IsZero() {
		last := s.lastSync
		st.LastSyncTime = &last
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}
