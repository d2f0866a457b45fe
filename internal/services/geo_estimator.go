package services

import (
	"math"

	"itinerary-service/internal/domain"

	"github.com/golang/geo/s2"
)

const earthRadiusKm = 6371.0

// Placeholder leg used when either endpoint has no usable coordinate.
// It is a fixed guess, not a measurement.
var defaultLeg = LegEstimate{Minutes: 12, Km: 3.0}

// Assumed average urban speeds in km/h.
var modeSpeedKmh = map[domain.TravelMode]float64{
	domain.ModeWalking: 4,
	domain.ModeTransit: 18,
	domain.ModeDriving: 28,
}

// Duration and distance of a single leg.
type LegEstimate struct {
	Minutes int
	Km      float64
}

// DistanceKm returns the haversine great-circle distance between a and b on a
// 6371 km sphere.
func DistanceKm(a, b domain.Coordinates) float64 {
	p1 := s2.LatLngFromDegrees(a.Lat, a.Lon)
	p2 := s2.LatLngFromDegrees(b.Lat, b.Lon)
	return p1.Distance(p2).Radians() * earthRadiusKm
}

// EstimateLeg converts straight-line distance to a travel time for mode.
// Minutes are never below 1. Missing coordinates yield the fixed default leg.
func EstimateLeg(a, b *domain.Coordinates, mode domain.TravelMode) LegEstimate {
	if a == nil || b == nil || !a.Valid() || !b.Valid() {
		return defaultLeg
	}

	km := roundTo(DistanceKm(*a, *b), 2)
	speed, ok := modeSpeedKmh[mode]
	if !ok {
		speed = modeSpeedKmh[domain.ModeDriving]
	}

	minutes := int(math.Round(km / speed * 60))
	return LegEstimate{Minutes: max(1, minutes), Km: km}
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
