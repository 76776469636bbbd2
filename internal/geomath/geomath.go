// Package geomath computes great-circle distances and GeoScores.
package geomath

import "math"

const (
	// EarthRadiusKM is the mean radius of the sphere used for distances.
	EarthRadiusKM = 6371.0

	// MaxScore is awarded for a guess at zero distance.
	MaxScore = 5000.0

	// ScoreScaleKM is the distance at which the score decays by a factor of e.
	ScoreScaleKM = 1492.7
)

// Distance returns the haversine distance in kilometres between the true
// location and a guess, in decimal degrees.
//
// A NaN in any argument means "no guess" and yields 0.
func Distance(trueLat, trueLon, guessLat, guessLon float64) float64 {
	if math.IsNaN(trueLat) || math.IsNaN(trueLon) || math.IsNaN(guessLat) || math.IsNaN(guessLon) {
		return 0
	}

	dLat := radians(guessLat - trueLat)
	dLon := radians(guessLon - trueLon)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(trueLat))*math.Cos(radians(guessLat))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	// Rounding can push a a hair above 1 for antipodal points.
	c := 2 * math.Asin(math.Sqrt(math.Min(a, 1)))
	return EarthRadiusKM * c
}

// DistanceOpt is Distance for optional coordinates; a nil component yields 0.
func DistanceOpt(trueLat, trueLon, guessLat, guessLon *float64) float64 {
	if trueLat == nil || trueLon == nil || guessLat == nil || guessLon == nil {
		return 0
	}
	return Distance(*trueLat, *trueLon, *guessLat, *guessLon)
}

// Score converts a distance in kilometres to GeoScore points:
// 5000 at 0 km, decaying exponentially towards 0.
func Score(distanceKM float64) float64 {
	return MaxScore * math.Exp(-distanceKM/ScoreScaleKM)
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
