// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// clickSignals are sent by waybar on clicks, configured as "pkill -USR1 waybar-landmark".
var clickSignals = []os.Signal{syscall.SIGUSR1, syscall.SIGUSR2}

// signalSource abstracts os/signal so tests can inject signals.
type signalSource interface {
	Notify(c chan<- os.Signal, sig ...os.Signal)
	Stop(c chan<- os.Signal)
}

type osSignals struct{}

func (osSignals) Notify(c chan<- os.Signal, sig ...os.Signal) { signal.Notify(c, sig...) }
func (osSignals) Stop(c chan<- os.Signal)                     { signal.Stop(c) }

// HandleSignals maps the click signals onto actions until ctx is cancelled: SIGUSR1 toggles the
// AR view and SIGUSR2 retries after a location or camera failure.
func (s *Service) HandleSignals(ctx context.Context, sigChan <-chan os.Signal) {
	actions := map[os.Signal]func(context.Context){
		syscall.SIGUSR1: s.ToggleAR,
		syscall.SIGUSR2: s.Retry,
	}
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-sigChan:
			action, ok := actions[sig]
			if !ok {
				s.logger.Debug("ignoring unexpected signal", slog.String("signal", sig.String()))
				continue
			}
			action(ctx)
		}
	}
}
