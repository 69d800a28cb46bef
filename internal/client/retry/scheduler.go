// Package retry drives bounded, network-aware retries of failed transfers.
// One exponential-backoff timer per failing item; the scheduler holds no
// transfer logic, only item identity and a callback invoked with it.
package retry

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/stackpad/internal/client/models"
	"github.com/dmitrijs2005/stackpad/internal/logging"
)

// State of one item in the scheduler.
type State int

const (
	// StateIdle: unknown item, or callback in flight with no verdict yet.
	StateIdle State = iota
	// StateScheduled: a retry is armed, or parked waiting for connectivity.
	StateScheduled
	// StateFiring: the retry callback is being invoked right now.
	StateFiring
	// StateExhausted: attempts used up; only ManualRetry can revive the item.
	StateExhausted
)

// Config bounds the backoff.
type Config struct {
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxAttempts int
}

// DefaultConfig returns the production bounds: 1s base, 30s cap, 3 attempts.
func DefaultConfig() Config {
	return Config{BaseDelay: time.Second, MaxDelay: 30 * time.Second, MaxAttempts: 3}
}

// Delay computes the backoff before attempt n (zero-based), capped at MaxDelay.
func (c Config) Delay(attempt int) time.Duration {
	d := c.BaseDelay
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= c.MaxDelay {
			return c.MaxDelay
		}
	}
	if d > c.MaxDelay {
		return c.MaxDelay
	}
	return d
}

type item struct {
	attempt       int
	state         State
	timer         *time.Timer
	lastAttemptAt time.Time
	nextRetryAt   *time.Time

	// parked is set when a fire was skipped because the device was offline:
	// the item stays Scheduled with no timer and re-arms on network restore.
	parked bool
}

// Scheduler is a keyed set of independent one-shot backoff timers. All state
// lives behind one mutex; item operations are independent so a single lock is
// enough.
type Scheduler struct {
	cfg       Config
	reachable func(ctx context.Context) bool
	fire      func(itemID string)
	logger    logging.Logger

	mu    sync.Mutex
	items map[string]*item
}

// New returns a Scheduler. reachable is consulted before every fire; fire is
// the retry callback and runs on a timer goroutine.
func New(cfg Config, reachable func(ctx context.Context) bool, fire func(itemID string), logger logging.Logger) *Scheduler {
	return &Scheduler{
		cfg:       cfg,
		reachable: reachable,
		fire:      fire,
		logger:    logger,
		items:     make(map[string]*item),
	}
}

// RegisterFailure records a failed attempt for the item. If the configured
// maximum was already reached no timer is armed and the item is Exhausted,
// left for the user to retry manually. Otherwise the attempt count increments
// and a one-shot timer is scheduled with exponential backoff.
func (s *Scheduler) RegisterFailure(itemID string) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	it := s.items[itemID]
	if it == nil {
		it = &item{}
		s.items[itemID] = it
	}

	if it.attempt >= s.cfg.MaxAttempts {
		it.state = StateExhausted
		it.nextRetryAt = nil
		s.logger.Warn(context.Background(), "retries exhausted", "item", itemID, "attempts", it.attempt)
		return StateExhausted
	}

	delay := s.cfg.Delay(it.attempt)
	it.attempt++
	it.lastAttemptAt = time.Now()
	s.arm(itemID, it, delay)
	return StateScheduled
}

// ManualRetry cancels any pending timer, resets the attempt count and fires
// immediately when the device is reachable; offline it arms a fresh backoff
// timer instead.
func (s *Scheduler) ManualRetry(ctx context.Context, itemID string) {
	s.mu.Lock()
	it := s.items[itemID]
	if it == nil {
		it = &item{}
		s.items[itemID] = it
	}
	s.stopTimer(it)
	it.attempt = 0
	it.parked = false
	s.mu.Unlock()

	if s.reachable(ctx) {
		s.fireNow(itemID)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Re-fetch: a concurrent Clear may have dropped the item meanwhile.
	it, ok := s.items[itemID]
	if !ok {
		it = &item{}
		s.items[itemID] = it
	}
	it.attempt = 1
	it.lastAttemptAt = time.Now()
	s.arm(itemID, it, s.cfg.Delay(0))
}

// Clear cancels the item's timer and forgets all state. Called after a
// confirmed success.
func (s *Scheduler) Clear(itemID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if it, ok := s.items[itemID]; ok {
		s.stopTimer(it)
		delete(s.items, itemID)
	}
}

// NetworkRestored fires every scheduled-but-not-yet-fired retry immediately,
// ignoring the remaining delay. The connectivity watcher calls it once per
// offline-to-online transition.
func (s *Scheduler) NetworkRestored() {
	s.mu.Lock()
	var due []string
	for id, it := range s.items {
		if it.state != StateScheduled {
			continue
		}
		s.stopTimer(it)
		it.parked = false
		it.nextRetryAt = nil
		due = append(due, id)
	}
	s.mu.Unlock()

	for _, id := range due {
		go s.fireNow(id)
	}
}

// Job returns a snapshot of the item's retry bookkeeping and its state.
func (s *Scheduler) Job(itemID string) (*models.TransferJob, State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[itemID]
	if !ok {
		return nil, StateIdle
	}
	job := &models.TransferJob{
		ItemID:        itemID,
		Attempt:       it.attempt,
		LastAttemptAt: it.lastAttemptAt,
	}
	if it.nextRetryAt != nil {
		t := *it.nextRetryAt
		job.NextRetryAt = &t
	}
	return job, it.state
}

// arm schedules the one-shot timer. Caller holds s.mu.
func (s *Scheduler) arm(itemID string, it *item, delay time.Duration) {
	s.stopTimer(it)
	it.state = StateScheduled
	it.parked = false
	at := time.Now().Add(delay)
	it.nextRetryAt = &at
	it.timer = time.AfterFunc(delay, func() { s.timerFired(itemID) })
}

// stopTimer cancels a pending timer if any. Caller holds s.mu. A timer that
// already fired cannot be cancelled; timerFired tolerates the race.
func (s *Scheduler) stopTimer(it *item) {
	if it.timer != nil {
		it.timer.Stop()
		it.timer = nil
	}
}

func (s *Scheduler) timerFired(itemID string) {
	// Reachability is checked before taking the lock: the probe can block
	// for its full timeout.
	reachable := s.reachable(context.Background())

	s.mu.Lock()
	it, ok := s.items[itemID]
	if !ok || it.state != StateScheduled {
		// Cleared or manually retried while the timer was in flight.
		s.mu.Unlock()
		return
	}

	if !reachable {
		// Skip silently: no attempt is consumed, no new timer. The item is
		// parked until NetworkRestored re-arms it.
		it.parked = true
		it.timer = nil
		it.nextRetryAt = nil
		s.mu.Unlock()
		return
	}

	it.state = StateFiring
	it.timer = nil
	it.nextRetryAt = nil
	s.mu.Unlock()

	s.invoke(itemID)
}

func (s *Scheduler) fireNow(itemID string) {
	s.mu.Lock()
	it, ok := s.items[itemID]
	if !ok {
		s.mu.Unlock()
		return
	}
	it.state = StateFiring
	s.mu.Unlock()

	s.invoke(itemID)
}

// invoke runs the callback and settles the state afterwards: the callback's
// own RegisterFailure/Clear calls take precedence over the reset to Idle.
func (s *Scheduler) invoke(itemID string) {
	s.fire(itemID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if it, ok := s.items[itemID]; ok && it.state == StateFiring {
		it.state = StateIdle
	}
}
