// Package push drains unsynced events from the local log to the server's
// ingestion endpoint. Offline periods are expected steady state and stay
// silent; only server-side problems are worth a warning.
package push

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/stackpad/internal/api"
	"github.com/dmitrijs2005/stackpad/internal/client/client"
	"github.com/dmitrijs2005/stackpad/internal/client/eventlog"
	"github.com/dmitrijs2005/stackpad/internal/client/models"
	"github.com/dmitrijs2005/stackpad/internal/client/netx"
	"github.com/dmitrijs2005/stackpad/internal/logging"
	"github.com/sethvargo/go-retry"
)

const defaultBatchSize = 100

// Pusher pushes pending events in batches and marks them synced on
// acknowledgement.
type Pusher struct {
	log       *eventlog.Log
	api       client.Client
	checker   *netx.Checker
	logger    logging.Logger
	batchSize int
}

// New returns a Pusher.
func New(log *eventlog.Log, api client.Client, checker *netx.Checker, logger logging.Logger) *Pusher {
	return &Pusher{
		log:       log,
		api:       api,
		checker:   checker,
		logger:    logger,
		batchSize: defaultBatchSize,
	}
}

// PushPending sends all pending events and returns how many were acknowledged.
// Transient transport errors are retried briefly in place; offline aborts the
// push quietly, leaving the events for the next run.
func (p *Pusher) PushPending(ctx context.Context) (int, error) {
	pending, err := p.log.Pending(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load pending events: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	pushed := 0
	for start := 0; start < len(pending); start += p.batchSize {
		end := start + p.batchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]

		n, err := p.pushBatch(ctx, batch)
		pushed += n
		if err != nil {
			return pushed, err
		}
	}

	p.logger.Info(ctx, "push done", "events", pushed)
	return pushed, nil
}

// Run pushes on a fixed interval until ctx is cancelled.
func (p *Pusher) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := p.PushPending(ctx); err != nil {
				p.logger.Warn(ctx, "push failed", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (p *Pusher) pushBatch(ctx context.Context, batch []*models.Event) (int, error) {
	wire, err := toWire(batch)
	if err != nil {
		return 0, err
	}

	var accepted []string
	backoff := retry.WithMaxRetries(2, retry.NewExponential(500*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		var perr error
		accepted, perr = p.api.PushEvents(ctx, wire)
		if perr == nil {
			return nil
		}
		switch cat := p.checker.Classify(ctx, perr); cat {
		case netx.CategoryOffline:
			// Not retryable here; the next scheduled push will pick it up.
			return perr
		case netx.CategoryRemoteTimeout, netx.CategoryConnectionLost, netx.CategoryRemoteUnreachable:
			return retry.RetryableError(perr)
		default:
			return perr
		}
	})
	if err != nil {
		if !p.checker.Classify(ctx, err).IsServerProblem() {
			p.logger.Debug(ctx, "push deferred, device offline", "events", len(batch))
			return 0, nil
		}
		return 0, fmt.Errorf("push batch: %w", err)
	}

	acked := make(map[string]bool, len(accepted))
	for _, id := range accepted {
		acked[id] = true
	}
	var done []*models.Event
	for _, e := range batch {
		if acked[e.ID] {
			done = append(done, e)
		}
	}
	if err := p.log.MarkSynced(ctx, done); err != nil {
		return 0, fmt.Errorf("failed to mark events synced: %w", err)
	}
	return len(done), nil
}

// toWire converts events into their JSON wire shape. Payloads travel as raw
// maps; the server never interprets them.
func toWire(events []*models.Event) ([]api.WireEvent, error) {
	out := make([]api.WireEvent, 0, len(events))
	for _, e := range events {
		raw, err := e.MarshalPayload()
		if err != nil {
			return nil, fmt.Errorf("failed to serialize payload of %s: %w", e.ID, err)
		}
		var payload map[string]any
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, err
		}
		out = append(out, api.WireEvent{
			EventID:        e.ID,
			Type:           string(e.Type),
			EntityID:       e.EntityID,
			Payload:        payload,
			PayloadVersion: e.PayloadVersion,
			OriginUserID:   e.OriginUserID,
			OriginDeviceID: e.OriginDeviceID,
			Timestamp:      e.Timestamp,
		})
	}
	return out, nil
}
