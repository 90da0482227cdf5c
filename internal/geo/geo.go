// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package geo implements the great-circle math used to point the user at the landmark.
package geo

import (
	"math"
)

// EarthRadius is the mean earth radius in kilometers used by the spherical earth model.
const EarthRadius = 6371.0

// Point represents a geographic position in degrees.
type Point struct {
	Lat float64
	Lon float64
}

// Measurement holds distance and bearing derived from the same position sample.
type Measurement struct {
	// Distance in kilometers
	Distance float64
	// Bearing in degrees clockwise from true north, [0, 360)
	Bearing float64
}

// Valid checks if the point lies within the EPSG:4326 bounds.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// DistanceTo returns the great-circle distance in kilometers from p to other.
func (p Point) DistanceTo(other Point) float64 {
	return Distance(p.Lat, p.Lon, other.Lat, other.Lon)
}

// BearingTo returns the initial bearing from p to other.
func (p Point) BearingTo(other Point) float64 {
	return Bearing(p.Lat, p.Lon, other.Lat, other.Lon)
}

// Measure computes distance and bearing from one position to another in a single step.
func Measure(from, to Point) Measurement {
	return Measurement{
		Distance: from.DistanceTo(to),
		Bearing:  from.BearingTo(to),
	}
}

// Distance calculates the great-circle distance in kilometers between two points using the
// Haversine formula. The result is accurate within the error bound of the spherical model
// (about 0.5%). Identical points yield 0.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	// rounding can push h marginally above 1 for antipodal points
	h = math.Min(1, math.Max(0, h))
	dist := 2 * EarthRadius * math.Asin(math.Sqrt(h))
	if math.IsNaN(dist) {
		return 0
	}
	return dist
}

// Bearing calculates the initial bearing (forward azimuth) from point 1 to point 2 in degrees,
// normalized into [0, 360) where 0 is true north. Identical points yield 0.
func Bearing(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := radians(lat1)
	phi2 := radians(lat2)
	dLon := radians(lon2 - lon1)

	y := math.Sin(dLon) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLon)
	return Normalize(degrees(math.Atan2(y, x)))
}

// Normalize maps any angle in degrees into [0, 360). NaN and infinite values map to 0.
func Normalize(deg float64) float64 {
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return 0
	}
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	if deg >= 360 {
		return 0
	}
	return deg
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

func degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}
