// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package debounce provides a cancellable deferred action with a single owner.
package debounce

import (
	"sync"
	"time"
)

// Timer owns at most one pending deferred function. Scheduling a new function always cancels
// the previous one first. The zero value is ready to use.
type Timer struct {
	mu       sync.Mutex
	cond     *sync.Cond
	timer    *time.Timer
	gen      uint64
	inflight int
}

// New returns a new, idle Timer.
func New() *Timer {
	return new(Timer)
}

// Schedule cancels any pending function and runs fn once after d has elapsed, unless it is
// superseded by another call to Schedule or cancelled by Stop before that.
func (t *Timer) Schedule(d time.Duration, fn func()) {
	if fn == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelLocked()

	gen := t.gen
	t.timer = time.AfterFunc(d, func() {
		t.mu.Lock()
		if gen != t.gen {
			t.mu.Unlock()
			return
		}
		t.timer = nil
		t.inflight++
		t.mu.Unlock()

		defer t.done()
		fn()
	})
}

// Cancel cancels the pending function, if any, without waiting for a function that already
// started. It reports whether a pending function was cancelled.
func (t *Timer) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	wasPending := t.timer != nil
	t.cancelLocked()
	return wasPending
}

// Stop cancels the pending function, if any, and waits for a function that already started to
// return. After Stop returns no previously scheduled function will run. It reports whether a
// pending function was cancelled. Stop must not be called from within a scheduled function.
func (t *Timer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	wasPending := t.timer != nil
	t.cancelLocked()

	for t.inflight > 0 {
		t.condLocked().Wait()
	}
	return wasPending
}

// Pending reports whether a scheduled function is waiting to run.
func (t *Timer) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timer != nil
}

// cancelLocked invalidates the current generation. A timer that already fired but has not yet
// acquired the lock will see the generation mismatch and return without running.
func (t *Timer) cancelLocked() {
	t.gen++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

func (t *Timer) done() {
	t.mu.Lock()
	t.inflight--
	t.condLocked().Broadcast()
	t.mu.Unlock()
}

func (t *Timer) condLocked() *sync.Cond {
	if t.cond == nil {
		t.cond = sync.NewCond(&t.mu)
	}
	return t.cond
}
