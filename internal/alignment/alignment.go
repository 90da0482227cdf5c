// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package alignment decides whether the user is pointing at the target. The raw comparison of
// bearing and heading is debounced asymmetrically: becoming aligned is confirmed quickly, losing
// alignment slowly, so jitter near the dead-band boundary does not flicker.
package alignment

import (
	"log/slog"
	"sync"
	"time"

	"github.com/wneessen/waybar-landmark/internal/debounce"
	"github.com/wneessen/waybar-landmark/internal/geo"
	"github.com/wneessen/waybar-landmark/internal/haptic"
	"github.com/wneessen/waybar-landmark/internal/logger"
	"github.com/wneessen/waybar-landmark/internal/vartype"
)

const (
	DefaultAlignDelay   = 100 * time.Millisecond
	DefaultUnalignDelay = 200 * time.Millisecond
)

// Options configure the Tracker.
type Options struct {
	// DeadBand is the maximum absolute angle in degrees between bearing and heading that
	// counts as aligned.
	DeadBand float64
	// AlignDelay is the debounce delay for transitions towards aligned.
	AlignDelay time.Duration
	// UnalignDelay is the debounce delay for transitions towards not aligned.
	UnalignDelay time.Duration
	// Pattern is the vibration pattern triggered when alignment is gained.
	Pattern []time.Duration
}

// DefaultOptions returns the Options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		DeadBand:     geo.DefaultDeadBand,
		AlignDelay:   DefaultAlignDelay,
		UnalignDelay: DefaultUnalignDelay,
		Pattern:      haptic.DefaultPattern,
	}
}

// Tracker is the debounced alignment state machine. The externally visible state starts as not
// aligned and is only changed by an elapsed debounce delay, Reset or Close.
type Tracker struct {
	opts     Options
	actuator haptic.Actuator
	logger   *logger.Logger
	timer    *debounce.Timer

	mu       sync.Mutex
	aligned  bool
	pending  uint64
	closed   bool
	onChange func(aligned bool)
}

// New returns a new Tracker. A nil actuator disables haptic feedback.
func New(opts Options, actuator haptic.Actuator, log *logger.Logger) *Tracker {
	if actuator == nil {
		actuator = haptic.Nop{}
	}
	return &Tracker{
		opts:     opts,
		actuator: actuator,
		logger:   log,
		timer:    debounce.New(),
	}
}

// OnChange registers fn to be called after every committed state change. fn must not call Close.
func (t *Tracker) OnChange(fn func(aligned bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onChange = fn
}

// Aligned returns the committed alignment state.
func (t *Tracker) Aligned() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.aligned
}

// Pending reports whether a debounced transition is waiting to be committed.
func (t *Tracker) Pending() bool {
	return t.timer.Pending()
}

// Update feeds a new (bearing, heading) sample into the tracker. Any pending transition is
// cancelled. Without a heading the tracker falls back to not aligned right away.
func (t *Tracker) Update(bearing float64, heading vartype.VarFloat64) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}

	t.pending++
	t.timer.Cancel()
	if !heading.IsSet() {
		changed := t.aligned
		t.aligned = false
		fn := t.onChange
		t.mu.Unlock()
		if changed {
			t.logger.Debug("heading lost, alignment cleared")
			if fn != nil {
				fn(false)
			}
		}
		return
	}

	raw := geo.WithinDeadBand(bearing, heading.Value(), t.opts.DeadBand)
	if raw == t.aligned {
		t.mu.Unlock()
		return
	}

	id := t.pending
	delay := t.opts.UnalignDelay
	if raw {
		delay = t.opts.AlignDelay
	}
	t.timer.Schedule(delay, func() { t.commit(id, raw) })
	t.mu.Unlock()
}

// Reset cancels any pending transition and clears the state to not aligned.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.pending++
	t.timer.Cancel()
	changed := t.aligned
	t.aligned = false
	fn := t.onChange
	closed := t.closed
	t.mu.Unlock()

	if changed && !closed && fn != nil {
		fn(false)
	}
}

// Close tears the tracker down. Pending transitions are cancelled, a transition that is being
// committed concurrently is waited for, and no callback fires afterwards. Further samples are
// ignored.
func (t *Tracker) Close() {
	t.mu.Lock()
	t.closed = true
	t.pending++
	t.aligned = false
	t.mu.Unlock()
	t.timer.Stop()
}

func (t *Tracker) commit(id uint64, aligned bool) {
	t.mu.Lock()
	if t.closed || id != t.pending || t.aligned == aligned {
		t.mu.Unlock()
		return
	}
	prev := t.aligned
	t.aligned = aligned
	fn := t.onChange
	t.mu.Unlock()

	t.logger.Debug("alignment state changed", slog.Bool("aligned", aligned))
	if aligned && !prev {
		t.actuator.Trigger(t.opts.Pattern)
	}
	if fn != nil {
		fn(aligned)
	}
}
