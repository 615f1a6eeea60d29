// Package geo provides great-circle distance math and the unit conversions
// used at the API boundary.
//
// Distances are computed on a spherical earth model (haversine), not a
// flat-plane approximation. Search radii here span tens of kilometers, and
// at that range the flat-plane error is material — a 50 mile radius drawn
// with equirectangular math misplaces the boundary by whole kilometers at
// mid latitudes.
package geo

import "math"

// earthRadiusM is the mean earth radius in meters (IUGG value).
const earthRadiusM = 6371008.8

// MetersPerMile is the conversion constant for user-facing radii. All
// internal radius and distance values are meters; miles exist only at the
// HTTP boundary.
const MetersPerMile = 1609

// DistanceM returns the great-circle distance in meters between two
// latitude/longitude pairs, in degrees.
func DistanceM(lat1, lng1, lat2, lng2 float64) float64 {
	const degToRad = math.Pi / 180

	phi1 := lat1 * degToRad
	phi2 := lat2 * degToRad
	dPhi := (lat2 - lat1) * degToRad
	dLambda := (lng2 - lng1) * degToRad

	sinPhi := math.Sin(dPhi / 2)
	sinLambda := math.Sin(dLambda / 2)

	a := sinPhi*sinPhi + math.Cos(phi1)*math.Cos(phi2)*sinLambda*sinLambda
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusM * c
}

// MilesToMeters converts a user-facing radius in miles to meters.
func MilesToMeters(miles int64) int64 {
	return miles * MetersPerMile
}

// MetersToMiles converts an internal radius back to whole miles for display.
// Integer division truncates toward zero.
func MetersToMiles(meters int64) int64 {
	return meters / MetersPerMile
}
