package netx

import (
	"context"
	"time"

	"github.com/dmitrijs2005/stackpad/internal/logging"
)

// Watcher polls connectivity at a fixed short interval and notifies
// subscribers once per offline-to-online transition (edge-triggered, never
// repeated while the link stays up). Polling trades a little latency for
// simplicity; a platform push notifier could replace it behind the same
// subscription surface.
type Watcher struct {
	checker   *Checker
	interval  time.Duration
	logger    logging.Logger
	onRestore []func()
	onLost    []func()
}

// NewWatcher returns a Watcher polling the given checker.
func NewWatcher(checker *Checker, interval time.Duration, logger logging.Logger) *Watcher {
	return &Watcher{checker: checker, interval: interval, logger: logger}
}

// OnRestore registers a callback fired on every offline-to-online transition.
// Must be called before Run.
func (w *Watcher) OnRestore(fn func()) {
	w.onRestore = append(w.onRestore, fn)
}

// OnLost registers a callback fired on every online-to-offline transition.
// Must be called before Run.
func (w *Watcher) OnLost(fn func()) {
	w.onLost = append(w.onLost, fn)
}

// Run polls until ctx is cancelled. Callbacks run on the watcher goroutine.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	online := w.checker.IsReachable(ctx)

	for {
		select {
		case <-ticker.C:
			w.checker.Invalidate()
			now := w.checker.IsReachable(ctx)
			if now && !online {
				w.logger.Info(ctx, "connectivity restored")
				for _, fn := range w.onRestore {
					fn()
				}
			}
			if !now && online {
				w.logger.Info(ctx, "connectivity lost")
				for _, fn := range w.onLost {
					fn()
				}
			}
			online = now

		case <-ctx.Done():
			return
		}
	}
}
