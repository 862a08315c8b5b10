// Package autoscan runs the repeating re-diagnosis task: while active it
// fires a capture callback at a fixed interval. The runner is a disposable
// handle; Stop is idempotent and guaranteed to silence the task on every
// exit path (user toggle-off, a manual diagnosis taking over, or teardown).
package autoscan

import (
	"context"
	"sync"
	"time"
)

// CaptureFunc is invoked once per interval tick while the runner is active.
type CaptureFunc func(ctx context.Context)

// TickerFunc produces the tick source. Tests substitute a manual channel.
type TickerFunc func(interval time.Duration) (<-chan time.Time, func())

func defaultTicker(interval time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(interval)
	return t.C, t.Stop
}

// Runner owns one repeating capture task.
type Runner struct {
	interval time.Duration
	capture  CaptureFunc
	ticker   TickerFunc

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRunner creates an inactive runner.
func NewRunner(interval time.Duration, capture CaptureFunc) *Runner {
	return &Runner{
		interval: interval,
		capture:  capture,
		ticker:   defaultTicker,
	}
}

// NewRunnerWithTicker creates a runner with an injected tick source.
func NewRunnerWithTicker(interval time.Duration, capture CaptureFunc, ticker TickerFunc) *Runner {
	return &Runner{
		interval: interval,
		capture:  capture,
		ticker:   ticker,
	}
}

// Start begins firing captures every interval. Starting an active runner is a
// no-op, so a double toggle cannot spawn a second loop.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	done := make(chan struct{})
	r.done = done

	go r.run(runCtx, done)
}

func (r *Runner) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticks, stop := r.ticker(r.interval)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks:
			// Re-check cancellation before firing: a Stop that raced the
			// tick must win, so no capture can land after Stop returns.
			select {
			case <-ctx.Done():
				return
			default:
			}
			r.capture(ctx)
		}
	}
}

// Stop cancels the task and waits for the loop to drain. After Stop returns
// no further capture fires. Safe to call on an inactive runner.
func (r *Runner) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	done := r.done
	r.cancel = nil
	r.done = nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Active reports whether the task is currently scheduled.
func (r *Runner) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancel != nil
}
