// Package utils holds small geometry helpers shared by the spatial stop
// queries.
package utils

import "math"

const (
	// RadiusOfEarthInMeters is the mean Earth radius used for all
	// distance math.
	RadiusOfEarthInMeters = 6371010.0

	degToRad = math.Pi / 180
)

// CoordinateBounds is a latitude/longitude bounding box.
type CoordinateBounds struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// Distance returns the distance in meters between two points on Earth.
// Coordinate deltas under ~0.2 degrees use an equirectangular
// approximation, which covers any realistic transit query; larger deltas
// fall back to the exact great-circle formula.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	if math.Abs(lat2-lat1) < 0.2 && math.Abs(lon2-lon1) < 0.2 {
		lat1Rad := lat1 * degToRad
		lat2Rad := lat2 * degToRad

		x := (lon2 - lon1) * degToRad * math.Cos((lat1Rad+lat2Rad)/2)
		y := (lat2 - lat1) * degToRad
		return RadiusOfEarthInMeters * math.Sqrt(x*x+y*y)
	}

	lat1Rad := lat1 * degToRad
	lat2Rad := lat2 * degToRad
	deltaLon := (lon2 - lon1) * degToRad

	y := math.Sqrt(math.Pow(math.Cos(lat2Rad)*math.Sin(deltaLon), 2) +
		math.Pow(math.Cos(lat1Rad)*math.Sin(lat2Rad)-math.Sin(lat1Rad)*math.Cos(lat2Rad)*math.Cos(deltaLon), 2))
	x := math.Sin(lat1Rad)*math.Sin(lat2Rad) + math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Cos(deltaLon)

	return RadiusOfEarthInMeters * math.Atan2(y, x)
}

// CalculateBounds returns the bounding box that contains every point within
// the given distance (meters) of the center. The box over-covers slightly;
// callers filter by exact Distance afterwards.
func CalculateBounds(lat, lon, distance float64) CoordinateBounds {
	latRadians := lat * degToRad
	lonRadians := lon * degToRad

	latOffset := distance / RadiusOfEarthInMeters
	lonOffset := distance / (math.Cos(latRadians) * RadiusOfEarthInMeters)

	return CoordinateBounds{
		MinLat: (latRadians - latOffset) / degToRad,
		MaxLat: (latRadians + latOffset) / degToRad,
		MinLon: (lonRadians - lonOffset) / degToRad,
		MaxLon: (lonRadians + lonOffset) / degToRad,
	}
}
