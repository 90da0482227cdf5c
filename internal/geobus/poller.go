// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geobus

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// NewResult returns the Result for a position reported by source.
func NewResult(key, source string, c Coordinate, ttl time.Duration) Result {
	return Result{
		Key:            key,
		Lat:            c.Lat,
		Lon:            c.Lon,
		AccuracyMeters: c.Acc,
		Source:         source,
		At:             time.Now(),
		TTL:            ttl,
	}
}

// Poller turns a lookup function into a provider stream. Locate runs right away and then every
// Period. Positions are emitted when they moved significantly, and repeated after half their TTL
// so the bus keeps them alive. Failures are emitted while no unexpired position was emitted, or
// only the first one of an outage if FailOnce is set.
type Poller struct {
	Source   string
	Period   time.Duration
	TTL      time.Duration
	FailOnce bool
	Locate   func(ctx context.Context) (Coordinate, error)
}

// Stream runs the poll loop until ctx is cancelled and closes the channel afterwards.
func (p Poller) Stream(ctx context.Context, key string) <-chan Result {
	out := make(chan Result)
	go func() {
		defer close(out)
		var state GeolocationState
		failed := false

		for first := true; ; first = false {
			if !first && !sleepOrDone(ctx, p.Period) {
				return
			}

			coord, err := p.Locate(ctx)
			var r Result
			switch {
			case err != nil:
				if p.positionValid(&state) || ctx.Err() != nil || (p.FailOnce && failed) {
					continue
				}
				failed = true
				r = Result{Key: key, Source: p.Source, At: time.Now(), Err: classify(err)}
			case state.HasChanged(coord) || p.keepAliveDue(&state):
				failed = false
				state.Update(coord)
				r = NewResult(key, p.Source, coord, p.TTL)
			default:
				continue
			}

			select {
			case <-ctx.Done():
				return
			case out <- r:
			}
		}
	}()
	return out
}

// positionValid reports whether the last emitted position has not expired yet.
func (p Poller) positionValid(state *GeolocationState) bool {
	if _, ok := state.Last(); !ok {
		return false
	}
	return p.TTL == 0 || !state.Older(p.TTL)
}

func (p Poller) keepAliveDue(state *GeolocationState) bool {
	return p.TTL > 0 && state.Older(p.TTL/2)
}

// classify wraps errors outside the failure taxonomy as ErrPositionUnavailable.
func classify(err error) error {
	if errors.Is(err, ErrPermissionDenied) || errors.Is(err, ErrPositionUnavailable) ||
		errors.Is(err, ErrTimeout) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrPositionUnavailable, err)
}
