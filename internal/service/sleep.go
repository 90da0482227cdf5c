// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/wneessen/waybar-landmark/internal/logger"
)

const (
	logindInterface   = "org.freedesktop.login1.Manager"
	logindSleepMember = "PrepareForSleep"

	signalBufferSize  = 8
	resumeDebounce    = 2 * time.Second
	resumeSettleDelay = 10 * time.Second
	busReconnectDelay = 5 * time.Second
)

// sleepBus is the subset of a D-Bus connection the sleep monitor relies on.
type sleepBus interface {
	AddMatchSignal(options ...dbus.MatchOption) error
	Signal(ch chan<- *dbus.Signal)
	RemoveSignal(ch chan<- *dbus.Signal)
	Close() error
}

func connectSystemBus() (sleepBus, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// monitorSleepResume watches logind for resume events and retries the location request after the
// system woke up. Lost bus connections are re-established until ctx is cancelled.
func (s *Service) monitorSleepResume(ctx context.Context) {
	var lastResume time.Time
	for {
		bus, err := s.systemBus()
		if err != nil {
			s.logger.Debug("system bus unavailable, retrying", logger.Err(err))
			if !waitOrDone(ctx, busReconnectDelay) {
				return
			}
			continue
		}

		if err = bus.AddMatchSignal(dbus.WithMatchInterface(logindInterface),
			dbus.WithMatchMember(logindSleepMember)); err != nil {
			s.logger.Error("failed to subscribe to dbus signal", slog.String("interface", logindInterface),
				slog.String("member", logindSleepMember), logger.Err(err))
			s.closeSleepBus(bus)
			if !waitOrDone(ctx, busReconnectDelay) {
				return
			}
			continue
		}

		sigCh := make(chan *dbus.Signal, signalBufferSize)
		bus.Signal(sigCh)
		s.logger.Debug("subscribed to dbus signal", slog.String("interface", logindInterface),
			slog.String("member", logindSleepMember))
		s.watchSleepSignals(ctx, sigCh, &lastResume)

		bus.RemoveSignal(sigCh)
		s.closeSleepBus(bus)
		if !waitOrDone(ctx, busReconnectDelay) {
			return
		}
	}
}

// watchSleepSignals returns when ctx is cancelled or the signal channel was closed.
func (s *Service) watchSleepSignals(ctx context.Context, sigCh <-chan *dbus.Signal, lastResume *time.Time) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-sigCh:
			if !ok {
				return
			}
			if !isResumeSignal(sig) {
				continue
			}
			// logind may announce the same wake-up more than once
			now := time.Now()
			if now.Sub(*lastResume) < resumeDebounce {
				continue
			}
			*lastResume = now

			if !waitOrDone(ctx, resumeSettleDelay) {
				return
			}
			s.logger.Debug("resumed from sleep, retrying location request")
			s.Retry(ctx)
		}
	}
}

func (s *Service) closeSleepBus(bus sleepBus) {
	if err := bus.Close(); err != nil {
		s.logger.Error("failed to close system bus connection", logger.Err(err))
	}
}

// isResumeSignal reports whether sig is a PrepareForSleep(false) signal.
func isResumeSignal(sig *dbus.Signal) bool {
	if sig == nil || len(sig.Body) != 1 {
		return false
	}
	sleeping, ok := sig.Body[0].(bool)
	return ok && !sleeping
}

func waitOrDone(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
