// Package proj contains the small set of projection helpers the geocoder
// needs: a locally linear meters scale for geographic coordinates, the
// Mercator distance correction and a few planar geometry helpers.
package proj

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

const earthRadius = 6378137.0

// metersPerDegreeLat is the length of one degree of latitude in meters. The
// longitude scale shrinks with the cosine of the latitude.
const metersPerDegreeLat = earthRadius * math.Pi / 180.0

// MetersPerDegree returns the local meters-per-degree scale (longitude,
// latitude) at the given latitude. Multiplying a small lng/lat delta with
// this scale gives an approximate planar distance in meters.
func MetersPerDegree(lat float64) orb.Point {
	return orb.Point{
		metersPerDegreeLat * math.Cos(lat*math.Pi/180.0),
		metersPerDegreeLat,
	}
}

// MercatorScale returns the factor that converts a distance measured in Web
// Mercator meters around the given latitude into true meters.
func MercatorScale(lat float64) float64 {
	return math.Cos(lat * math.Pi / 180.0)
}

// NearestPointOnBound returns the point within the bound that is closest to
// the given point. A point inside the bound is returned unchanged.
func NearestPointOnBound(bound orb.Bound, point orb.Point) orb.Point {
	return orb.Point{
		math.Min(math.Max(point[0], bound.Min[0]), bound.Max[0]),
		math.Min(math.Max(point[1], bound.Min[1]), bound.Max[1]),
	}
}

// DistanceToBound returns the planar distance from the point to the bound, 0
// when the point lies inside the bound.
func DistanceToBound(bound orb.Bound, point orb.Point) float64 {
	return planar.Distance(NearestPointOnBound(bound, point), point)
}

// PointAlongLine returns the point at the given fraction (0..1) of the lines
// total length. Fractions outside this range are clamped to the endpoints.
func PointAlongLine(line orb.LineString, fraction float64) orb.Point {
	if len(line) == 0 {
		return orb.Point{}
	}
	if fraction <= 0 || len(line) == 1 {
		return line[0]
	}
	if fraction >= 1 {
		return line[len(line)-1]
	}

	remaining := planar.Length(line) * fraction
	for i := 0; i < len(line)-1; i++ {
		segment := planar.Distance(line[i], line[i+1])
		if segment >= remaining && segment > 0 {
			t := remaining / segment
			return orb.Point{
				line[i][0] + (line[i+1][0]-line[i][0])*t,
				line[i][1] + (line[i+1][1]-line[i][1])*t,
			}
		}
		remaining -= segment
	}

	return line[len(line)-1]
}
