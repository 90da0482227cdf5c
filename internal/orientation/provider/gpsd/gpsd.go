// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package gpsd derives a heading from the course over ground reported by gpsd. The course is only
// meaningful while moving, so fixes below the minimum speed are ignored.
package gpsd

import (
	"context"
	"time"

	"github.com/wneessen/waybar-landmark/internal/gpswatch"
	"github.com/wneessen/waybar-landmark/internal/orientation"
)

const (
	name = "gpsd"

	// DefaultMinSpeed is the minimum speed in m/s at which the track is used as heading.
	DefaultMinSpeed = 0.5
)

// FixSource delivers gpsd fixes. It is implemented by gpswatch.Watcher.
type FixSource interface {
	Subscribe(size int) (<-chan gpswatch.Fix, func())
}

// Provider turns the gpsd track into compass headings.
type Provider struct {
	name     string
	source   FixSource
	minSpeed float64
}

// New returns a Provider reading from source.
func New(source FixSource) *Provider {
	return &Provider{name: name, source: source, minSpeed: DefaultMinSpeed}
}

// Name returns the name of the provider.
func (p *Provider) Name() string {
	return p.name
}

// HeadingStream emits the track of every fix taken while moving.
func (p *Provider) HeadingStream(ctx context.Context) (<-chan orientation.Reading, error) {
	fixes, unsub := p.source.Subscribe(4)
	out := make(chan orientation.Reading)
	go func() {
		defer close(out)
		defer unsub()
		for {
			select {
			case <-ctx.Done():
				return
			case fix, ok := <-fixes:
				if !ok {
					return
				}
				if !fix.Moving(p.minSpeed) {
					continue
				}
				select {
				case <-ctx.Done():
					return
				case out <- orientation.Reading{Heading: fix.Track, Source: p.name, At: time.Now()}:
				}
			}
		}
	}()
	return out, nil
}
