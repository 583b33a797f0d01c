package geo

import (
	"math"

	"github.com/golang/geo/s2"
	"github.com/paulmach/orb"
)

const (
	EarthRadiusMeters = 6371000.0

	// Average adult walking pace.
	WalkingSpeedMetersPerSecond = 1.4
)

// Coordinate is a WGS84 position in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Point converts to orb's lng/lat ordering.
func (c Coordinate) Point() orb.Point {
	return orb.Point{c.Lng, c.Lat}
}

// DistanceMeters returns the great-circle distance between two points on a
// sphere of radius EarthRadiusMeters. Inputs are not validated.
func DistanceMeters(lat1, lng1, lat2, lng2 float64) float64 {
	a := s2.LatLngFromDegrees(lat1, lng1)
	b := s2.LatLngFromDegrees(lat2, lng2)
	return a.Distance(b).Radians() * EarthRadiusMeters
}

// Distance is DistanceMeters for two Coordinates.
func Distance(a, b Coordinate) float64 {
	return DistanceMeters(a.Lat, a.Lng, b.Lat, b.Lng)
}

// WalkingTimeMinutes converts meters to whole minutes at walking pace,
// rounding half away from zero.
func WalkingTimeMinutes(distanceMeters float64) int {
	return int(math.Round(distanceMeters / WalkingSpeedMetersPerSecond / 60))
}
