package retry

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/stackpad/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// fireRecorder collects callback invocations across goroutines.
type fireRecorder struct {
	mu    sync.Mutex
	fired []string
	ch    chan string
}

func newFireRecorder() *fireRecorder {
	return &fireRecorder{ch: make(chan string, 16)}
}

func (f *fireRecorder) fire(itemID string) {
	f.mu.Lock()
	f.fired = append(f.fired, itemID)
	f.mu.Unlock()
	f.ch <- itemID
}

func (f *fireRecorder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fired)
}

func (f *fireRecorder) waitOne(t *testing.T) string {
	t.Helper()
	select {
	case id := <-f.ch:
		return id
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a retry fire")
		return ""
	}
}

func alwaysReachable(context.Context) bool { return true }
func neverReachable(context.Context) bool  { return false }

func TestConfig_DelayDoublesAndCaps(t *testing.T) {
	c := Config{BaseDelay: time.Second, MaxDelay: 30 * time.Second, MaxAttempts: 3}

	assert.Equal(t, 1*time.Second, c.Delay(0))
	assert.Equal(t, 2*time.Second, c.Delay(1))
	assert.Equal(t, 4*time.Second, c.Delay(2))
	assert.Equal(t, 8*time.Second, c.Delay(3))
	assert.Equal(t, 30*time.Second, c.Delay(5))
	assert.Equal(t, 30*time.Second, c.Delay(20))
}

func TestRegisterFailure_ArmsTimerAndFires(t *testing.T) {
	rec := newFireRecorder()
	cfg := Config{BaseDelay: 10 * time.Millisecond, MaxDelay: 100 * time.Millisecond, MaxAttempts: 3}
	s := New(cfg, alwaysReachable, rec.fire, testLogger())

	state := s.RegisterFailure("item1")
	assert.Equal(t, StateScheduled, state)

	job, st := s.Job("item1")
	require.NotNil(t, job)
	assert.Equal(t, StateScheduled, st)
	assert.Equal(t, 1, job.Attempt)
	assert.NotNil(t, job.NextRetryAt)

	assert.Equal(t, "item1", rec.waitOne(t))
}

func TestRegisterFailure_ExhaustsAfterMaxAttempts(t *testing.T) {
	rec := newFireRecorder()
	// Long base delay so timers never fire during the test.
	cfg := Config{BaseDelay: time.Hour, MaxDelay: time.Hour, MaxAttempts: 2}
	s := New(cfg, alwaysReachable, rec.fire, testLogger())

	assert.Equal(t, StateScheduled, s.RegisterFailure("item1"))
	assert.Equal(t, StateScheduled, s.RegisterFailure("item1"))
	assert.Equal(t, StateExhausted, s.RegisterFailure("item1"))

	job, st := s.Job("item1")
	assert.Equal(t, StateExhausted, st)
	assert.Nil(t, job.NextRetryAt)
	assert.Equal(t, 0, rec.count())
}

func TestTimerFired_OfflineParksWithoutConsumingAttempt(t *testing.T) {
	rec := newFireRecorder()
	cfg := Config{BaseDelay: 10 * time.Millisecond, MaxDelay: time.Second, MaxAttempts: 3}
	s := New(cfg, neverReachable, rec.fire, testLogger())

	s.RegisterFailure("item1")

	// Give the timer ample time to fire; offline it must park, not invoke.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, rec.count())

	job, st := s.Job("item1")
	assert.Equal(t, StateScheduled, st)
	assert.Equal(t, 1, job.Attempt)
	assert.Nil(t, job.NextRetryAt)
}

func TestNetworkRestored_FlushesParkedItems(t *testing.T) {
	rec := newFireRecorder()
	cfg := Config{BaseDelay: 10 * time.Millisecond, MaxDelay: time.Second, MaxAttempts: 3}
	s := New(cfg, neverReachable, rec.fire, testLogger())

	s.RegisterFailure("item1")
	s.RegisterFailure("item2")
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, 0, rec.count())

	s.NetworkRestored()

	got := map[string]bool{rec.waitOne(t): true, rec.waitOne(t): true}
	assert.True(t, got["item1"])
	assert.True(t, got["item2"])
}

func TestNetworkRestored_IgnoresExhaustedItems(t *testing.T) {
	rec := newFireRecorder()
	cfg := Config{BaseDelay: time.Hour, MaxDelay: time.Hour, MaxAttempts: 1}
	s := New(cfg, alwaysReachable, rec.fire, testLogger())

	s.RegisterFailure("item1")                                  // scheduled, far in the future
	require.Equal(t, StateExhausted, s.RegisterFailure("item1")) // now exhausted

	s.NetworkRestored()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, rec.count())
}

func TestManualRetry_ResetsAttemptsAndFires(t *testing.T) {
	rec := newFireRecorder()
	cfg := Config{BaseDelay: time.Hour, MaxDelay: time.Hour, MaxAttempts: 1}
	s := New(cfg, alwaysReachable, rec.fire, testLogger())

	s.RegisterFailure("item1")
	require.Equal(t, StateExhausted, s.RegisterFailure("item1"))

	s.ManualRetry(context.Background(), "item1")
	assert.Equal(t, "item1", rec.waitOne(t))

	// The reset makes another automatic retry cycle possible.
	assert.Equal(t, StateScheduled, s.RegisterFailure("item1"))
}

func TestManualRetry_OfflineArmsBackoffInstead(t *testing.T) {
	rec := newFireRecorder()
	cfg := Config{BaseDelay: time.Hour, MaxDelay: time.Hour, MaxAttempts: 3}
	s := New(cfg, neverReachable, rec.fire, testLogger())

	s.ManualRetry(context.Background(), "item1")

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, rec.count())

	job, st := s.Job("item1")
	assert.Equal(t, StateScheduled, st)
	assert.Equal(t, 1, job.Attempt)
	assert.NotNil(t, job.NextRetryAt)
}

func TestClear_ForgetsItem(t *testing.T) {
	rec := newFireRecorder()
	cfg := Config{BaseDelay: time.Hour, MaxDelay: time.Hour, MaxAttempts: 3}
	s := New(cfg, alwaysReachable, rec.fire, testLogger())

	s.RegisterFailure("item1")
	s.Clear("item1")

	job, st := s.Job("item1")
	assert.Nil(t, job)
	assert.Equal(t, StateIdle, st)
}
