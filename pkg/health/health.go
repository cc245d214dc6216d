// Package health serves liveness and readiness probes.
//
// Checks run together on every tick. A check turns unhealthy after
// FailureThreshold consecutive failures and healthy again after one success.
package health

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/jx"
	"golang.org/x/sync/errgroup"
)

// FailureThreshold is the number of consecutive failures that marks a check
// unhealthy.
const FailureThreshold = 3

// CheckFunc reports nil when the checked component is healthy.
type CheckFunc func(ctx context.Context) error

type check struct {
	name    string
	timeout time.Duration
	fn      CheckFunc

	fails   int // touched by the tick loop only
	healthy atomic.Bool
	lastErr atomic.Pointer[string]
}

func (c *check) run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.fn(ctx); err != nil {
		msg := err.Error()
		c.lastErr.Store(&msg)
		c.fails++
		if c.fails >= FailureThreshold {
			c.healthy.Store(false)
		}
		return
	}
	c.fails = 0
	c.lastErr.Store(nil)
	c.healthy.Store(true)
}

func (c *check) failure() (string, bool) {
	if c.healthy.Load() {
		return "", false
	}
	if msg := c.lastErr.Load(); msg != nil {
		return *msg, true
	}
	return "unhealthy", true
}

// Health tracks probe state. It starts not ready.
type Health struct {
	ready atomic.Bool

	mu     sync.Mutex
	live   []*check
	readyz []*check
	cancel context.CancelFunc
	done   chan struct{}
}

// New returns a Health with no checks.
func New() *Health {
	return &Health{}
}

func newCheck(name string, timeout time.Duration, fn CheckFunc) *check {
	c := &check{name: name, timeout: timeout, fn: fn}
	c.healthy.Store(true)
	return c
}

// AddLivenessCheck registers a check for /livez. Call before Start.
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.live = append(h.live, newCheck(name, timeout, fn))
}

// AddReadinessCheck registers a check for /readyz. Call before Start.
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readyz = append(h.readyz, newCheck(name, timeout, fn))
}

// Start runs every check now and then once per interval until Stop or ctx
// cancellation.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		return
	}
	ctx, h.cancel = context.WithCancel(ctx)
	h.done = make(chan struct{})
	checks := slices.Concat(h.live, h.readyz)

	go func() {
		defer close(h.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			tick(ctx, checks)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

func tick(ctx context.Context, checks []*check) {
	var g errgroup.Group
	for _, c := range checks {
		g.Go(func() error {
			c.run(ctx)
			return nil
		})
	}
	_ = g.Wait()
}

// Stop halts the check loop and waits for it to exit.
func (h *Health) Stop() {
	h.mu.Lock()
	cancel, done := h.cancel, h.done
	h.cancel, h.done = nil, nil
	h.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// SetReady marks the service ready or draining.
func (h *Health) SetReady(ready bool) { h.ready.Store(ready) }

// IsReady reports whether the service is marked ready and every readiness
// check passes.
func (h *Health) IsReady() bool {
	return h.ready.Load() && len(h.failures(h.readinessChecks())) == 0
}

func (h *Health) livenessChecks() []*check {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.live)
}

func (h *Health) readinessChecks() []*check {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.readyz)
}

type failure struct{ name, msg string }

func (h *Health) failures(checks []*check) []failure {
	var out []failure
	for _, c := range checks {
		if msg, failed := c.failure(); failed {
			out = append(out, failure{name: c.name, msg: msg})
		}
	}
	return out
}

// LiveEndpoint serves /livez.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	write(w, h.failures(h.livenessChecks()))
}

// ReadyEndpoint serves /readyz.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	failed := h.failures(h.readinessChecks())
	if !h.ready.Load() {
		failed = append(failed, failure{name: "ready", msg: "service is not ready"})
	}
	write(w, failed)
}

func write(w http.ResponseWriter, failed []failure) {
	status, code := "ok", http.StatusOK
	if len(failed) > 0 {
		status, code = "unavailable", http.StatusServiceUnavailable
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("status")
	e.Str(status)
	if len(failed) > 0 {
		e.FieldStart("checks")
		e.ObjStart()
		for _, f := range failed {
			e.FieldStart(f.name)
			e.Str(f.msg)
		}
		e.ObjEnd()
	}
	e.ObjEnd()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(e.Bytes())
}
