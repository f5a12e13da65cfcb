package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	apperrors "aicopilot/core/internal/errors"
	"aicopilot/core/internal/logging"
	syncpkg "aicopilot/core/internal/sync"
)

// countingEngine runs scripted cycle outcomes.
type countingEngine struct {
	cycles  int32
	outcome func(n int32) error
}

func (e *countingEngine) RunSyncCycle(ctx context.Context) (*syncpkg.CycleResult, error) {
	n := atomic.AddInt32(&e.cycles, 1)
	if e.outcome != nil {
		if err := e.outcome(n); err != nil {
			return nil, err
		}
	}
	return &syncpkg.CycleResult{Pushed: 1}, nil
}

func (e *countingEngine) count() int32 {
	return atomic.LoadInt32(&e.cycles)
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
	t.Fatal("condition not met before deadline")
}

func testConfig() Config {
	return Config{
		Interval:   20 * time.Millisecond,
		BackoffMin: 10 * time.Millisecond,
		BackoffMax: 80 * time.Millisecond,
	}
}

func TestPeriodicCyclesRun(t *testing.T) {
	engine := &countingEngine{}
	s := New(engine, testConfig(), logging.Discard())

	s.Start(context.Background())
	defer s.Stop()

	waitFor(t, time.Second, func() bool { return engine.count() >= 2 })
}

func TestTriggerSyncRunsImmediately(t *testing.T) {
	engine := &countingEngine{}
	cfg := testConfig()
	cfg.Interval = time.Hour // periodic path effectively off
	s := New(engine, cfg, logging.Discard())

	s.Start(context.Background())
	defer s.Stop()

	s.TriggerSync()
	waitFor(t, time.Second, func() bool { return engine.count() == 1 })
}

func TestTriggersCoalesce(t *testing.T) {
	engine := &countingEngine{}
	cfg := testConfig()
	cfg.Interval = time.Hour
	s := New(engine, cfg, logging.Discard())

	// Fire a burst before the loop picks any of them up.
	for i := 0; i < 10; i++ {
		s.TriggerSync()
	}
	s.Start(context.Background())
	defer s.Stop()

	waitFor(t, time.Second, func() bool { return engine.count() >= 1 })
	time.Sleep(50 * time.Millisecond)
	if n := engine.count(); n > 2 {
		t.Errorf("burst of triggers ran %d cycles, want at most 2", n)
	}
}

func TestOfflineSkipsPeriodicCycles(t *testing.T) {
	engine := &countingEngine{}
	s := New(engine, testConfig(), logging.Discard())

	s.SetOnline(false)
	s.Start(context.Background())
	defer s.Stop()

	time.Sleep(100 * time.Millisecond)
	if n := engine.count(); n != 0 {
		t.Errorf("offline scheduler ran %d cycles, want 0", n)
	}
}

func TestComingOnlineTriggersCycle(t *testing.T) {
	engine := &countingEngine{}
	cfg := testConfig()
	cfg.Interval = time.Hour
	s := New(engine, cfg, logging.Discard())

	s.SetOnline(false)
	s.Start(context.Background())
	defer s.Stop()

	s.SetOnline(true)
	waitFor(t, time.Second, func() bool { return engine.count() >= 1 })
}

func TestFailuresBackOffAndRecover(t *testing.T) {
	engine := &countingEngine{
		outcome: func(n int32) error {
			if n <= 2 {
				return apperrors.New(apperrors.ErrNetwork, "offline")
			}
			return nil
		},
	}
	s := New(engine, testConfig(), logging.Discard())

	s.Start(context.Background())
	defer s.Stop()

	waitFor(t, 2*time.Second, func() bool { return engine.count() >= 3 })
	waitFor(t, time.Second, func() bool { return s.GetStatus().Failures == 0 })

	st := s.GetStatus()
	if st.LastSyncTime == nil {
		t.Error("successful cycle must stamp last sync time")
	}
	if st.LastError != "" {
		t.Errorf("last error must clear on success, got %q", st.LastError)
	}
}

func TestNextWaitDoublesUpToCeiling(t *testing.T) {
	s := New(&countingEngine{}, Config{
		Interval:   time.Minute,
		BackoffMin: time.Second,
		BackoffMax: 30 * time.Second,
	}, logging.Discard())

	waits := []time.Duration{}
	for _, failures := range []int{0, 1, 2, 3, 4, 5, 6, 10} {
		s.failures = failures
		waits = append(waits, s.nextWait())
	}
	want := []time.Duration{
		time.Minute, // healthy: plain interval
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		30 * time.Second, // capped
		30 * time.Second,
	}
	for i := range want {
		if waits[i] != want[i] {
			t.Errorf("wait[%d] = %v, want %v", i, waits[i], want[i])
		}
	}
}

func TestStopIsIdempotentAndWaits(t *testing.T) {
	engine := &countingEngine{}
	s := New(engine, testConfig(), logging.Discard())

	s.Start(context.Background())
	s.Start(context.Background()) // second start is a no-op
	s.Stop()
	s.Stop() // second stop must not panic

	n := engine.count()
	time.Sleep(60 * time.Millisecond)
	if engine.count() != n {
		t.Error("cycles kept running after Stop")
	}
}
