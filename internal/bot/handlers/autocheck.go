package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/plantguardian/garden-helper/internal/autoscan"
)

// AutoChecker tracks the per-chat auto-recheck runners. At most one runner
// exists per chat; toggling off, starting a manual diagnosis, or bot teardown
// all go through Stop, so a recheck can never fire after any of them.
type AutoChecker struct {
	interval time.Duration

	mu      sync.Mutex
	runners map[int64]*autoscan.Runner
}

// NewAutoChecker creates an auto-check registry with the given recheck interval
func NewAutoChecker(interval time.Duration) *AutoChecker {
	return &AutoChecker{
		interval: interval,
		runners:  make(map[int64]*autoscan.Runner),
	}
}

// Toggle flips auto-recheck for a chat and reports whether it is now active.
func (a *AutoChecker) Toggle(ctx context.Context, chatID int64, capture autoscan.CaptureFunc) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if runner, ok := a.runners[chatID]; ok {
		runner.Stop()
		delete(a.runners, chatID)
		return false
	}
	runner := autoscan.NewRunner(a.interval, capture)
	runner.Start(ctx)
	a.runners[chatID] = runner
	return true
}

// Stop silences the chat's runner, if any. Safe to call when none is active.
func (a *AutoChecker) Stop(chatID int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if runner, ok := a.runners[chatID]; ok {
		runner.Stop()
		delete(a.runners, chatID)
	}
}

// Active reports whether auto-recheck is running for a chat
func (a *AutoChecker) Active(chatID int64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.runners[chatID]
	return ok
}

// StopAll silences every runner. Called on shutdown.
func (a *AutoChecker) StopAll() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for chatID, runner := range a.runners {
		runner.Stop()
		delete(a.runners, chatID)
	}
}
