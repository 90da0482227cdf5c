// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package gpswatch maintains a watch session with a gpsd daemon and fans out the received fixes
// to any number of subscribers.
package gpswatch

import (
	"context"
	"log/slog"
	"math"
	"net"
	"sync"
	"time"

	"github.com/stratoberry/go-gpsd"

	"github.com/wneessen/waybar-landmark/internal/logger"
)

const (
	DefaultHost = "localhost"
	DefaultPort = "2947"

	fallbackAccuracy3DFix = 10  // ~10 m typical consumer GPS in open sky
	fallbackAccuracy2DFix = 25  // worse than 3D, but still accurate enough
	fallbackAccuracyNoFix = 1e6 // effectively unusable
	defaultRetryInterval  = 30 * time.Second
)

// Fix represents a single TPV report from gpsd.
type Fix struct {
	Lat   float64
	Lon   float64
	Alt   float64
	Acc   float64
	Track float64
	Speed float64
	Mode  int
}

// Has2DFix reports whether the fix has at least a 2D fix.
func (f Fix) Has2DFix() bool {
	return f.Mode >= int(gpsd.Mode2D)
}

// Moving reports whether the receiver moves faster than minSpeed (m/s), which is when the track
// can be trusted as a heading.
func (f Fix) Moving(minSpeed float64) bool {
	return f.Has2DFix() && f.Speed > minSpeed && !math.IsNaN(f.Track)
}

// FixFromTPV converts a gpsd TPV report into a Fix.
func FixFromTPV(tpv *gpsd.TPVReport) Fix {
	fix := Fix{
		Lat:   tpv.Lat,
		Lon:   tpv.Lon,
		Alt:   tpv.Alt,
		Track: tpv.Track,
		Speed: tpv.Speed,
		Mode:  int(tpv.Mode),
	}
	fix.Acc = horizontalAccuracyMeters(tpv.Epx, tpv.Epy, fix.Mode)
	return fix
}

func horizontalAccuracyMeters(epx, epy float64, mode int) float64 {
	if epx > 0 && epy > 0 {
		// sqrt(epx² + epy²)
		return math.Hypot(epx, epy)
	}
	switch mode {
	case 3:
		return fallbackAccuracy3DFix
	case 2:
		return fallbackAccuracy2DFix
	default:
		return fallbackAccuracyNoFix
	}
}

// Watcher keeps a gpsd watch session open and reconnects when it ends.
type Watcher struct {
	addr   string
	retry  time.Duration
	logger *logger.Logger
	dialFn func(addr string) (session, error)

	mu   sync.RWMutex
	subs map[chan Fix]struct{}
	last Fix
	have bool
}

// session is the subset of a gpsd session the Watcher relies on.
type session interface {
	AddFilter(class string, f gpsd.Filter)
	Watch() chan bool
}

// New returns a Watcher for the gpsd daemon at host:port.
func New(host, port string, log *logger.Logger) *Watcher {
	return &Watcher{
		addr:   net.JoinHostPort(host, port),
		retry:  defaultRetryInterval,
		logger: log,
		dialFn: dialGPSD,
		subs:   make(map[chan Fix]struct{}),
	}
}

func dialGPSD(addr string) (session, error) {
	sess, err := gpsd.Dial(addr)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// Addr returns the address of the gpsd daemon.
func (w *Watcher) Addr() string {
	return w.addr
}

// Subscribe registers a subscriber. The last received fix, if any, is delivered right away.
// Slow subscribers miss fixes instead of blocking the watcher.
func (w *Watcher) Subscribe(size int) (<-chan Fix, func()) {
	ch := make(chan Fix, max(size, 1))
	w.mu.Lock()
	w.subs[ch] = struct{}{}
	if w.have {
		ch <- w.last
	}
	w.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			w.mu.Lock()
			delete(w.subs, ch)
			w.mu.Unlock()
			close(ch)
		})
	}
	return ch, unsub
}

func (w *Watcher) publish(fix Fix) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.last, w.have = fix, true
	for ch := range w.subs {
		select {
		case ch <- fix:
		default:
		}
	}
}

// Run connects to gpsd and forwards TPV reports until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		sess, err := w.dialFn(w.addr)
		if err != nil {
			w.logger.Debug("failed to connect to gpsd", slog.String("addr", w.addr), logger.Err(err))
		} else {
			w.watch(ctx, sess)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.retry):
		}
	}
}

func (w *Watcher) watch(ctx context.Context, sess session) {
	sess.AddFilter("TPV", func(r interface{}) {
		tpv, ok := r.(*gpsd.TPVReport)
		if !ok || ctx.Err() != nil {
			return
		}
		w.publish(FixFromTPV(tpv))
	})

	done := sess.Watch()
	select {
	case <-ctx.Done():
		// go-gpsd offers no way to end a watch, the connection is torn down on exit.
	case <-done:
		w.logger.Debug("gpsd watch ended, reconnecting", slog.String("addr", w.addr))
	}
}
