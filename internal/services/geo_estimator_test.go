package services

import (
	"testing"

	"itinerary-service/internal/domain"

	"github.com/stretchr/testify/assert"
)

var (
	taipei101 = domain.Coordinates{Lat: 25.0340, Lon: 121.5645}
	longshan  = domain.Coordinates{Lat: 25.0372, Lon: 121.4999}
	shilin    = domain.Coordinates{Lat: 25.0880, Lon: 121.5240}
)

func TestDistanceKmSymmetricAndZero(t *testing.T) {
	ab := DistanceKm(taipei101, longshan)
	ba := DistanceKm(longshan, taipei101)

	assert.InDelta(t, ab, ba, 1e-9)
	assert.InDelta(t, 6.5, ab, 0.3)
	assert.Equal(t, 0.0, DistanceKm(shilin, shilin))
}

func TestEstimateLegByMode(t *testing.T) {
	a, b := taipei101, longshan

	drive := EstimateLeg(&a, &b, domain.ModeDriving)
	walk := EstimateLeg(&a, &b, domain.ModeWalking)
	transit := EstimateLeg(&a, &b, domain.ModeTransit)

	assert.Equal(t, drive.Km, walk.Km)
	assert.Less(t, drive.Minutes, transit.Minutes)
	assert.Less(t, transit.Minutes, walk.Minutes)
	assert.InDelta(t, walk.Km/4*60, float64(walk.Minutes), 1)
}

func TestEstimateLegSymmetricKm(t *testing.T) {
	points := []domain.Coordinates{taipei101, longshan, shilin, {Lat: -33.86, Lon: 151.2}}
	for _, mode := range []domain.TravelMode{domain.ModeDriving, domain.ModeWalking, domain.ModeTransit} {
		for i := range points {
			for j := range points {
				ab := EstimateLeg(&points[i], &points[j], mode)
				ba := EstimateLeg(&points[j], &points[i], mode)
				assert.Equal(t, ab.Km, ba.Km)
				assert.GreaterOrEqual(t, ab.Minutes, 1)
			}
		}
	}
}

func TestEstimateLegMissingCoordinates(t *testing.T) {
	a := taipei101
	zero := domain.Coordinates{}

	assert.Equal(t, LegEstimate{Minutes: 12, Km: 3.0}, EstimateLeg(nil, &a, domain.ModeDriving))
	assert.Equal(t, LegEstimate{Minutes: 12, Km: 3.0}, EstimateLeg(&a, &zero, domain.ModeWalking))
}
