// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package haptic provides fire-and-forget feedback actuators. A missing feedback capability is
// never an error, the trigger simply does nothing.
package haptic

import (
	"fmt"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/wneessen/waybar-landmark/internal/logger"
)

const (
	ModeFeedbackd = "feedbackd"
	ModeNotify    = "notify"
	ModeNone      = "none"
)

// DefaultPattern is the vibration pattern sent on alignment: on, off, on.
var DefaultPattern = []time.Duration{200 * time.Millisecond, 100 * time.Millisecond, 200 * time.Millisecond}

// Actuator accepts a vibration pattern request. Implementations must not block and must not
// report errors to the caller.
type Actuator interface {
	Trigger(pattern []time.Duration)
}

// caller is the subset of dbus.BusObject used by the D-Bus based actuators.
type caller interface {
	Go(method string, flags dbus.Flags, ch chan *dbus.Call, args ...interface{}) *dbus.Call
}

// Nop is the actuator used when no feedback capability is available.
type Nop struct{}

// Trigger does nothing.
func (Nop) Trigger([]time.Duration) {}

// Options configure the actuator created by New.
type Options struct {
	Mode    string
	AppID   string
	Event   string
	Summary string
	Body    string
}

// New returns the actuator for the configured mode. If the session bus is not reachable, the
// Nop actuator is returned and the failure is logged.
func New(opts Options, log *logger.Logger) Actuator {
	mode := strings.ToLower(opts.Mode)
	if mode == ModeNone || mode == "" {
		return Nop{}
	}

	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		log.Warn("session bus unavailable, haptic feedback disabled", logger.Err(err))
		return Nop{}
	}

	switch mode {
	case ModeFeedbackd:
		return NewFeedbackd(conn.Object(feedbackdDest, feedbackdPath), opts.AppID, opts.Event, log)
	case ModeNotify:
		return NewNotifier(conn.Object(notifyDest, notifyPath), opts.AppID, opts.Summary, opts.Body, log)
	default:
		log.Warn(fmt.Sprintf("unsupported haptic mode %q, haptic feedback disabled", opts.Mode))
		_ = conn.Close()
		return Nop{}
	}
}

// PatternDuration returns the total duration of a pattern.
func PatternDuration(pattern []time.Duration) time.Duration {
	var total time.Duration
	for _, d := range pattern {
		total += d
	}
	return total
}
