// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package orientation collects compass headings from the available orientation providers. The
// most recent heading wins, and a heading that was not refreshed within the maximum age is treated
// as absent.
package orientation

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/wneessen/waybar-landmark/internal/geo"
	"github.com/wneessen/waybar-landmark/internal/logger"
	"github.com/wneessen/waybar-landmark/internal/vartype"
)

const (
	DefaultMaxAge = 10 * time.Second

	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

// ErrUnsupported is returned by a provider that can never deliver a heading on this system.
var ErrUnsupported = errors.New("orientation sensor not supported")

// Reading is a single compass heading in degrees clockwise from north.
type Reading struct {
	Heading float64
	Source  string
	At      time.Time
}

// Provider delivers compass headings. HeadingStream returns ErrUnsupported (possibly wrapped) when
// the provider is unusable, the provider is then not retried.
type Provider interface {
	Name() string
	HeadingStream(ctx context.Context) (<-chan Reading, error)
}

// Bus fans in the readings of all providers.
type Bus struct {
	logger *logger.Logger
	maxAge time.Duration

	mu          sync.RWMutex
	last        Reading
	have        bool
	started     bool
	providers   int
	unsupported map[string]struct{}
	subs        map[chan Reading]struct{}
}

// New returns a Bus that considers headings older than maxAge stale. A zero maxAge selects
// DefaultMaxAge.
func New(log *logger.Logger, maxAge time.Duration) *Bus {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Bus{
		logger:      log,
		maxAge:      maxAge,
		unsupported: make(map[string]struct{}),
		subs:        make(map[chan Reading]struct{}),
	}
}

// NormalizeAlpha converts a counter-clockwise alpha angle, as reported by device orientation
// sensors, into a compass heading.
func NormalizeAlpha(alpha float64) float64 {
	return geo.Normalize(360 - alpha)
}

// Run starts all providers and blocks until ctx is cancelled.
func (b *Bus) Run(ctx context.Context, providers []Provider) {
	b.mu.Lock()
	b.started, b.providers = true, len(providers)
	b.mu.Unlock()

	var wg sync.WaitGroup
	for _, provider := range providers {
		wg.Go(func() { b.runProvider(ctx, provider) })
	}
	<-ctx.Done()
	wg.Wait()
}

func (b *Bus) runProvider(ctx context.Context, p Provider) {
	backoff := initialBackoff
	for {
		stream, err := p.HeadingStream(ctx)
		switch {
		case errors.Is(err, ErrUnsupported):
			b.logger.Info("orientation provider not supported", slog.String("provider", p.Name()),
				logger.Err(err))
			b.markUnsupported(p.Name())
			return
		case err != nil:
			b.logger.Error("orientation provider failed", slog.String("provider", p.Name()), logger.Err(err))
		default:
			if b.drain(ctx, stream) {
				backoff = initialBackoff
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff *= 2; backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (b *Bus) drain(ctx context.Context, stream <-chan Reading) bool {
	received := false
	for {
		select {
		case <-ctx.Done():
			return received
		case r, ok := <-stream:
			if !ok {
				return received
			}
			received = true
			b.Publish(r)
		}
	}
}

func (b *Bus) markUnsupported(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.unsupported[name] = struct{}{}
}

// Publish records r as the latest reading and hands it to all subscribers. Readings that are not
// a finite number are dropped.
func (b *Bus) Publish(r Reading) {
	if math.IsNaN(r.Heading) || math.IsInf(r.Heading, 0) {
		return
	}
	r.Heading = geo.Normalize(r.Heading)
	if r.At.IsZero() {
		r.At = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.have && r.At.Before(b.last.At) {
		return
	}
	b.last, b.have = r, true
	for ch := range b.subs {
		select {
		case ch <- r:
		default:
		}
	}
}

// Heading returns the latest heading. It is unset if no reading arrived yet or the latest one is
// older than the maximum age.
func (b *Bus) Heading() vartype.VarFloat64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var heading vartype.VarFloat64
	if b.have && time.Since(b.last.At) <= b.maxAge {
		heading.Set(b.last.Heading)
	}
	return heading
}

// Last returns the latest reading regardless of its age.
func (b *Bus) Last() (Reading, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.last, b.have
}

// Supported reports whether at least one provider may deliver headings. It turns false once every
// provider reported ErrUnsupported, or when Run was started without providers.
func (b *Bus) Supported() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.started || b.have {
		return true
	}
	return b.providers > 0 && len(b.unsupported) < b.providers
}

// Subscribe registers a subscriber for new readings. Slow subscribers miss readings instead of
// blocking the bus.
func (b *Bus) Subscribe(size int) (<-chan Reading, func()) {
	ch := make(chan Reading, max(size, 1))
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
}
