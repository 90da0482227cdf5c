// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geo

import "math"

// DefaultDeadBand is the angular tolerance in degrees within which the device counts as
// pointing at the target.
const DefaultDeadBand = 15.0

// Direction is a turn hint derived from the signed difference between bearing and heading.
type Direction int

const (
	DirectionUnknown Direction = iota
	DirectionCentered
	DirectionRight
	DirectionLeft
)

var compassPoints = []string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

// String satisfies the fmt.Stringer interface for the Direction type.
func (d Direction) String() string {
	switch d {
	case DirectionCentered:
		return "centered"
	case DirectionRight:
		return "right"
	case DirectionLeft:
		return "left"
	default:
		return "unknown"
	}
}

// RelativeBearing returns the angle a north-up indicator has to be rotated by, so that it points
// at the target given the current heading. The result is in [0, 360).
func RelativeBearing(bearing, heading float64) float64 {
	return Normalize(Normalize(bearing) - Normalize(heading) + 360)
}

// SignedDifference returns the shortest signed angle from heading to bearing in (-180, 180].
// Positive values mean the target lies to the right.
func SignedDifference(bearing, heading float64) float64 {
	diff := math.Mod(Normalize(bearing)-Normalize(heading)+540, 360) - 180
	if diff <= -180 {
		return 180
	}
	return diff
}

// WithinDeadBand reports whether the absolute difference between bearing and heading is within
// the given dead-band (inclusive).
func WithinDeadBand(bearing, heading, deadBand float64) bool {
	return math.Abs(SignedDifference(bearing, heading)) <= deadBand
}

// TurnDirection returns the direction the user has to turn to face the target.
func TurnDirection(bearing, heading, deadBand float64) Direction {
	diff := SignedDifference(bearing, heading)
	switch {
	case math.Abs(diff) <= deadBand:
		return DirectionCentered
	case diff > 0:
		return DirectionRight
	default:
		return DirectionLeft
	}
}

// CompassPoint returns the name of the 8-wind compass point closest to the given angle.
func CompassPoint(deg float64) string {
	idx := int(math.Round(Normalize(deg)/45)) % len(compassPoints)
	return compassPoints[idx]
}
