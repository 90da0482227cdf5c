// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package gpsd

import (
	"context"
	"time"

	"github.com/wneessen/waybar-landmark/internal/geobus"
	"github.com/wneessen/waybar-landmark/internal/gpswatch"
)

const name = "gpsd"

// FixSource delivers gpsd fixes. It is implemented by gpswatch.Watcher.
type FixSource interface {
	Subscribe(size int) (<-chan gpswatch.Fix, func())
}

// GeolocationGPSDProvider publishes positions from a gpsd watch session.
type GeolocationGPSDProvider struct {
	name   string
	source FixSource
	ttl    time.Duration
}

// NewGeolocationGPSDProvider returns a provider reading fixes from source.
func NewGeolocationGPSDProvider(source FixSource) *GeolocationGPSDProvider {
	return &GeolocationGPSDProvider{
		name:   name,
		source: source,
		ttl:    time.Minute * 2,
	}
}

// Name returns the name of the provider.
func (p *GeolocationGPSDProvider) Name() string {
	return p.name
}

// LookupStream emits every fix with at least a 2D fix that moved significantly from the last one.
// A stationary position is repeated after half its TTL so it does not expire on the bus.
func (p *GeolocationGPSDProvider) LookupStream(ctx context.Context, key string) <-chan geobus.Result {
	out := make(chan geobus.Result)
	fixes, unsub := p.source.Subscribe(4)

	go func() {
		defer close(out)
		defer unsub()

		var last geobus.GeolocationState
		for {
			select {
			case <-ctx.Done():
				return
			case fix, ok := <-fixes:
				if !ok {
					return
				}
				coord, usable := position(fix)
				if !usable || (!last.HasChanged(coord) && !last.Older(p.ttl/2)) {
					continue
				}
				last.Update(coord)
				select {
				case out <- geobus.NewResult(key, p.name, coord, p.ttl):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}

// position converts a fix into a coordinate and reports whether it can be used.
func position(fix gpswatch.Fix) (geobus.Coordinate, bool) {
	if !fix.Has2DFix() {
		return geobus.Coordinate{}, false
	}
	coord := geobus.Coordinate{Lat: fix.Lat, Lon: fix.Lon, Acc: fix.Acc}
	return coord, coord.Valid()
}
