// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package session models the lifecycle of a tracking session as an explicit state machine.
package session

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/wneessen/waybar-landmark/internal/geobus"
	"github.com/wneessen/waybar-landmark/internal/logger"
)

// Phase is the coarse state of the tracking session.
type Phase int

const (
	RequestingPermission Phase = iota
	Loading
	Error
	Active
)

// Failure classifies why the session is in the Error phase.
type Failure int

const (
	FailureNone Failure = iota
	FailurePermissionDenied
	FailurePositionUnavailable
	FailureTimeout
)

// EventType enumerates the inputs of the state machine.
type EventType int

const (
	EventStart EventType = iota
	EventPosition
	EventLocationFailed
	EventTimeout
	EventRetry
)

// Event is a single input to the state machine. Err is only evaluated for EventLocationFailed.
type Event struct {
	Type EventType
	Err  error
}

// State is the current state of the session.
type State struct {
	Phase   Phase
	Failure Failure
}

// String satisfies the fmt.Stringer interface for the Phase type.
func (p Phase) String() string {
	switch p {
	case RequestingPermission:
		return "requesting_permission"
	case Loading:
		return "loading"
	case Error:
		return "error"
	case Active:
		return "active"
	default:
		return "unknown"
	}
}

// String satisfies the fmt.Stringer interface for the Failure type.
func (f Failure) String() string {
	switch f {
	case FailurePermissionDenied:
		return "permission_denied"
	case FailurePositionUnavailable:
		return "position_unavailable"
	case FailureTimeout:
		return "timeout"
	default:
		return "none"
	}
}

// GPSStatus returns the status shown by the GPS indicator for the phase.
func (s State) GPSStatus() string {
	switch s.Phase {
	case Active:
		return "active"
	case Loading:
		return "searching"
	case Error:
		return "error"
	default:
		return "off"
	}
}

// FailureFromError maps a location provider error onto the failure taxonomy. Unknown errors are
// treated as an unavailable position.
func FailureFromError(err error) Failure {
	switch {
	case err == nil:
		return FailureNone
	case errors.Is(err, geobus.ErrPermissionDenied):
		return FailurePermissionDenied
	case errors.Is(err, geobus.ErrTimeout):
		return FailureTimeout
	default:
		return FailurePositionUnavailable
	}
}

// Reduce returns the state that follows from applying event to state. It has no side effects.
func Reduce(state State, event Event) State {
	switch event.Type {
	case EventStart:
		if state.Phase == RequestingPermission {
			return State{Phase: Loading}
		}
	case EventPosition:
		return State{Phase: Active}
	case EventLocationFailed:
		return State{Phase: Error, Failure: FailureFromError(event.Err)}
	case EventTimeout:
		if state.Phase == Loading {
			return State{Phase: Error, Failure: FailureTimeout}
		}
	case EventRetry:
		if state.Phase == Error {
			return State{Phase: Loading}
		}
	}
	return state
}

// Machine applies events to the session state in a thread-safe manner.
type Machine struct {
	logger *logger.Logger

	mu           sync.RWMutex
	state        State
	onTransition func(prev, next State)
}

// NewMachine returns a Machine in the RequestingPermission phase.
func NewMachine(log *logger.Logger) *Machine {
	return &Machine{logger: log}
}

// OnTransition registers fn to be called after every state change.
func (m *Machine) OnTransition(fn func(prev, next State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onTransition = fn
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Dispatch applies event and returns the resulting state.
func (m *Machine) Dispatch(event Event) State {
	m.mu.Lock()
	prev := m.state
	next := Reduce(prev, event)
	m.state = next
	fn := m.onTransition
	m.mu.Unlock()

	if prev != next {
		m.logger.Debug("session state changed", slog.String("from", prev.Phase.String()),
			slog.String("to", next.Phase.String()), slog.String("failure", next.Failure.String()))
		if fn != nil {
			fn(prev, next)
		}
	}
	return next
}
