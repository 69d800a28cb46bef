// Package netx decides whether a transfer failure means "this device is
// offline" or "the remote service has a problem". Everything downstream that
// alerts, retries or defers keys off that single distinction.
package netx

import (
	"context"
	"net/http"
	"sync"
	"time"
)

const (
	// DefaultProbeURL returns 204 with no body and is about as highly
	// available as the internet gets.
	DefaultProbeURL = "https://clients3.google.com/generate_204"

	DefaultProbeTimeout = 2 * time.Second
	DefaultCacheTTL     = 10 * time.Second
)

// Checker probes a well-known endpoint and memoizes the result for a short
// TTL so bursts of concurrent failures do not hammer the network.
type Checker struct {
	probeURL string
	timeout  time.Duration
	ttl      time.Duration
	client   *http.Client

	// probe is a test seam; the default performs a real HTTP request.
	probe func(ctx context.Context) bool

	mu        sync.Mutex
	reachable bool
	checkedAt time.Time
}

// CheckerOption customizes a Checker.
type CheckerOption func(*Checker)

// WithProbeURL replaces the probe endpoint.
func WithProbeURL(u string) CheckerOption {
	return func(c *Checker) { c.probeURL = u }
}

// WithProbeTimeout replaces the per-probe timeout.
func WithProbeTimeout(d time.Duration) CheckerOption {
	return func(c *Checker) { c.timeout = d }
}

// WithCacheTTL replaces the memoization window.
func WithCacheTTL(d time.Duration) CheckerOption {
	return func(c *Checker) { c.ttl = d }
}

// WithProbeFunc replaces the probe itself, for tests.
func WithProbeFunc(fn func(ctx context.Context) bool) CheckerOption {
	return func(c *Checker) { c.probe = fn }
}

// NewChecker returns a Checker with the default probe endpoint and timings.
func NewChecker(opts ...CheckerOption) *Checker {
	c := &Checker{
		probeURL: DefaultProbeURL,
		timeout:  DefaultProbeTimeout,
		ttl:      DefaultCacheTTL,
		client:   &http.Client{},
	}
	for _, o := range opts {
		o(c)
	}
	if c.probe == nil {
		c.probe = c.httpProbe
	}
	return c
}

// IsReachable reports whether the device currently has a usable network
// path. Safe to call concurrently from many failure sites; at most one probe
// runs per TTL window.
func (c *Checker) IsReachable(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if time.Since(c.checkedAt) < c.ttl {
		return c.reachable
	}

	c.reachable = c.probe(ctx)
	c.checkedAt = time.Now()
	return c.reachable
}

// Invalidate drops the cached probe result so the next IsReachable call
// probes again. Used by the connectivity watcher on its own schedule.
func (c *Checker) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checkedAt = time.Time{}
}

func (c *Checker) httpProbe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.probeURL, nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < http.StatusInternalServerError
}
