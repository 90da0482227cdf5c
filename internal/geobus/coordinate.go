// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geobus

import "github.com/wneessen/waybar-landmark/internal/geo"

// Thresholds in meters above which a new position replaces a known one.
const (
	DistanceThreshold = 25.0
	AccuracyThreshold = 50.0
)

// Coordinate represents a geographic coordinate with its accuracy in meters.
type Coordinate struct {
	Lat float64
	Lon float64
	Acc float64
}

// Point returns the coordinate as geo.Point.
func (c Coordinate) Point() geo.Point {
	return geo.Point{Lat: c.Lat, Lon: c.Lon}
}

// DistanceMeters returns the great-circle distance to other in meters.
func (c Coordinate) DistanceMeters(other Coordinate) float64 {
	return geo.Distance(c.Lat, c.Lon, other.Lat, other.Lon) * 1000
}

// PosHasSignificantChange reports whether c moved more than DistanceThreshold away from other or
// is more accurate by more than AccuracyThreshold.
func (c Coordinate) PosHasSignificantChange(other Coordinate) bool {
	return other.Acc-c.Acc > AccuracyThreshold || c.DistanceMeters(other) > DistanceThreshold
}

// Valid reports whether latitude and longitude are within WGS84 bounds.
func (c Coordinate) Valid() bool {
	return c.Point().Valid()
}
