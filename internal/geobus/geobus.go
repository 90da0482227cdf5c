// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geobus

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/wneessen/waybar-landmark/internal/logger"
)

const (
	accuracyEpsilon = 1e-6
	initialBackoff  = time.Second
	maxBackoff      = 30 * time.Second
)

const (
	AccuracyCountry = 300000
	AccuracyRegion  = 100000
	AccuracyCity    = 15000
	AccuracyZip     = 3000
	AccuracyUnknown = 1000000
	TruncPrecision  = 4
)

var (
	// ErrPermissionDenied is returned by a provider when the user or the system refused access
	// to the location.
	ErrPermissionDenied = errors.New("location permission denied")

	// ErrPositionUnavailable is returned by a provider that cannot determine a position.
	ErrPositionUnavailable = errors.New("position unavailable")

	// ErrTimeout is returned when no position could be determined in time.
	ErrTimeout = errors.New("location request timed out")
)

// Provider streams geolocation results for a key. A provider reports failures as results with Err
// set and closes the stream when it gives up.
type Provider interface {
	Name() string
	LookupStream(ctx context.Context, key string) <-chan Result
}

// GeoBus keeps the best known position per key and fans results out to subscribers.
type GeoBus struct {
	logger *logger.Logger

	mu   sync.RWMutex
	best map[string]Result
	subs map[*subscriber]struct{}
}

// subscriber receives the results of key, or of all keys when key is empty.
type subscriber struct {
	key string
	ch  chan Result
}

// Result is a position, or a failure, reported by a provider.
type Result struct {
	Key            string
	Lat, Lon       float64
	Alt            float64
	AccuracyMeters float64
	Source         string
	At             time.Time
	TTL            time.Duration

	// Err is set when the provider failed to determine a position. Failed results are broadcast
	// to subscribers but never replace the best result.
	Err error
}

// Supersedes reports whether r replaces prev as the position of its key. An older result never
// does. A newer fix of the same source replaces prev once it moved significantly, so a moving
// device is followed at constant accuracy. A fix of another source additionally must not be less
// accurate than prev.
func (r Result) Supersedes(prev Result) bool {
	switch {
	case prev.Key == "":
		return true
	case r.At.Before(prev.At):
		return false
	case r.Source != prev.Source && r.AccuracyMeters > prev.AccuracyMeters+accuracyEpsilon:
		return false
	default:
		return r.Coordinate().PosHasSignificantChange(prev.Coordinate())
	}
}

func (r Result) Failed() bool {
	return r.Err != nil
}

// Coordinate returns the position of the Result as Coordinate.
func (r Result) Coordinate() Coordinate {
	return Coordinate{Lat: r.Lat, Lon: r.Lon, Acc: r.AccuracyMeters}
}

// IsExpired reports whether the TTL of the result elapsed. A zero TTL never expires.
func (r Result) IsExpired() bool {
	return r.TTL > 0 && time.Since(r.At) > r.TTL
}

func New(log *logger.Logger) *GeoBus {
	return &GeoBus{
		logger: log,
		best:   make(map[string]Result),
		subs:   make(map[*subscriber]struct{}),
	}
}

// NewOrchestrator returns an Orchestrator publishing the results of the given providers to the bus.
func (b *GeoBus) NewOrchestrator(provider []Provider) *Orchestrator {
	return &Orchestrator{Bus: b, Providers: provider}
}

// Subscribe registers a subscriber for the results of key. An empty key subscribes to all keys.
// The current best results are delivered right away. The returned function unsubscribes and
// closes the channel.
func (b *GeoBus) Subscribe(key string, size int) (<-chan Result, func()) {
	sub := &subscriber{key: key, ch: make(chan Result, max(size, 1))}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	for k, best := range b.best {
		if sub.wants(k) && !best.IsExpired() {
			sub.offer(best)
		}
	}
	b.mu.Unlock()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, sub)
			b.mu.Unlock()
			close(sub.ch)
		})
	}
}

// Publish hands a provider result to the bus. A position is stored and broadcast when it is the
// first one for its key, replaces an expired one, or supersedes the stored one.
// Failures are broadcast only while no valid position is known for the key.
func (b *GeoBus) Publish(r Result) {
	if r.At.IsZero() {
		r.At = time.Now()
	}
	if r.Failed() {
		b.publishFailure(r)
		return
	}
	if r.AccuracyMeters == 0 || !r.Coordinate().Valid() {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	prev, have := b.best[r.Key]
	if replaces(prev, have, r) {
		b.best[r.Key] = r
		b.broadcast(r)
		return
	}

	// A repeated report of the same source keeps its position alive
	if have && prev.Source == r.Source {
		prev.At = r.At
		b.best[r.Key] = prev
	}
}

func replaces(prev Result, have bool, r Result) bool {
	if !have || prev.IsExpired() {
		return true
	}
	return r.Supersedes(prev)
}

func (b *GeoBus) publishFailure(r Result) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if best, ok := b.best[r.Key]; ok && !best.IsExpired() {
		b.logger.Debug("ignoring provider failure, valid position available", slog.String("source", r.Source),
			logger.Err(r.Err))
		return
	}
	b.broadcast(r)
}

// broadcast must be called with the lock held. Full subscriber buffers drop the result.
func (b *GeoBus) broadcast(r Result) {
	for sub := range b.subs {
		if sub.wants(r.Key) {
			sub.offer(r)
		}
	}
}

// Best returns the best known, non-expired result for the key.
func (b *GeoBus) Best(key string) (Result, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	r, ok := b.best[key]
	return r, ok && !r.IsExpired()
}

func (s *subscriber) wants(key string) bool {
	return s.key == "" || s.key == key
}

func (s *subscriber) offer(r Result) {
	select {
	case s.ch <- r:
	default:
	}
}

// Truncate cuts x down to the given number of decimal places.
func Truncate(x float64, precision int) float64 {
	p := math.Pow(10, float64(precision))
	return math.Trunc(x*p) / p
}
