// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package overlay places the target marker in the augmented reality view. The camera field of
// view is mapped onto a horizontal range of [0, 1], the marker is scaled down with distance.
package overlay

import (
	"math"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/wneessen/waybar-landmark/internal/geo"
)

const (
	DefaultFieldOfView = 60.0
	DefaultStripWidth  = 21
	DefaultMarker      = "▲"

	stripFill  = "·"
	arrowLeft  = "◀"
	arrowRight = "▶"
)

// Placement describes where and how large the marker appears in the view.
type Placement struct {
	// Offset is the horizontal position of the marker, 0 is the left and 1 the right edge
	// of the view. It is clamped to that range when the target is out of view.
	Offset float64
	// Visible is true when the target lies within the field of view.
	Visible bool
	// Scale is the marker size relative to its full size.
	Scale float64
	// Direction tells which way to turn when the target is out of view.
	Direction geo.Direction
}

// Place computes the Placement of a target at bearing and distanceKm for a camera pointing at
// heading with a horizontal field of view of fov degrees.
func Place(bearing, heading, distanceKm, fov float64) Placement {
	if fov <= 0 || fov > 360 || math.IsNaN(fov) {
		fov = DefaultFieldOfView
	}
	diff := geo.SignedDifference(bearing, heading)
	placement := Placement{
		Offset:  0.5 + diff/fov,
		Visible: math.Abs(diff) <= fov/2,
		Scale:   Scale(distanceKm),
	}
	switch {
	case placement.Visible:
		placement.Direction = geo.DirectionCentered
	case diff > 0:
		placement.Direction = geo.DirectionRight
	default:
		placement.Direction = geo.DirectionLeft
	}
	placement.Offset = math.Max(0, math.Min(1, placement.Offset))
	return placement
}

// Scale returns the marker size for a target distanceKm away. Far targets are drawn small.
func Scale(distanceKm float64) float64 {
	switch {
	case distanceKm > 100:
		return 0.1
	case distanceKm > 50:
		return 0.15
	case distanceKm > 20:
		return 0.2
	case distanceKm > 10:
		return 0.3
	case distanceKm > 5:
		return 0.4
	case distanceKm > 1:
		return 0.6
	default:
		return 0.8
	}
}

// Strip renders a horizon strip of width display cells with marker at the placement offset. An
// out of view target is indicated by an arrow at the edge it has to be looked for.
func Strip(placement Placement, width int, marker string) string {
	if width < 3 {
		width = 3
	}
	if marker == "" {
		marker = DefaultMarker
	}
	fillWidth := runewidth.StringWidth(stripFill)

	if !placement.Visible {
		arrow := arrowLeft
		if placement.Direction == geo.DirectionRight {
			arrow = arrowRight
		}
		rest := strings.Repeat(stripFill, (width-runewidth.StringWidth(arrow))/fillWidth)
		if placement.Direction == geo.DirectionRight {
			return runewidth.FillRight(rest+arrow, width)
		}
		return runewidth.FillRight(arrow+rest, width)
	}

	markerWidth := runewidth.StringWidth(marker)
	if markerWidth > width {
		return runewidth.Truncate(marker, width, "")
	}
	free := width - markerWidth
	left := int(math.Round(placement.Offset * float64(free)))
	right := free - left
	return runewidth.FillLeft(strings.Repeat(stripFill, left/fillWidth), left) + marker +
		runewidth.FillRight(strings.Repeat(stripFill, right/fillWidth), right)
}

// EmptyStrip renders a horizon strip without marker, used while no heading is known.
func EmptyStrip(width int) string {
	if width < 3 {
		width = 3
	}
	return runewidth.FillRight(strings.Repeat(stripFill, width/runewidth.StringWidth(stripFill)), width)
}
