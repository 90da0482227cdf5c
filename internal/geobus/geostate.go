// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geobus

import "time"

// GeolocationState tracks the last known geolocation coordinates and accuracy values.
// It provides functionality to detect changes in geolocation data.
type GeolocationState struct {
	last     Coordinate
	haveLast bool
	at       time.Time
}

// HasChanged reports whether c differs significantly from the last stored coordinate. An empty
// state always reports a change.
func (s *GeolocationState) HasChanged(c Coordinate) bool {
	if !s.haveLast {
		return true
	}
	return s.last.DistanceMeters(c) > DistanceThreshold
}

// Update stores c as the last known coordinate.
func (s *GeolocationState) Update(c Coordinate) {
	s.last = c
	s.haveLast = true
	s.at = time.Now()
}

// Older reports whether the last coordinate was stored at least d ago.
func (s *GeolocationState) Older(d time.Duration) bool {
	return s.haveLast && time.Since(s.at) >= d
}

// Last returns the last stored coordinate and whether one exists.
func (s *GeolocationState) Last() (Coordinate, bool) {
	return s.last, s.haveLast
}
