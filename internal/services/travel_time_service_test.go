package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"itinerary-service/internal/adapters/travel"
	"itinerary-service/internal/domain"
	"itinerary-service/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gridStops(n int) []domain.Stop {
	stops := make([]domain.Stop, n)
	for i := range stops {
		c := domain.Coordinates{Lat: 25.0 + float64(i)*0.01, Lon: 121.5 + float64(i%7)*0.01}
		stops[i] = domain.Stop{ID: fmt.Sprintf("s%d", i), Name: fmt.Sprintf("Stop %d", i), Coordinates: &c}
	}
	return stops
}

func TestGetEtaMatrixSmallInputs(t *testing.T) {
	svc := NewTravelTimeService(nil, TravelTimeOptions{}, nil)

	empty := svc.GetEtaMatrix(context.Background(), nil, domain.ModeDriving, true)
	assert.Empty(t, empty.Minutes)

	one := svc.GetEtaMatrix(context.Background(), gridStops(1), domain.ModeDriving, true)
	assert.Equal(t, [][]int{{0}}, one.Minutes)
	assert.Equal(t, [][]float64{{0}}, one.Km)
}

func TestGetEtaMatrixDiagonalZero(t *testing.T) {
	svc := NewTravelTimeService(travel.NewConstantMatrixProvider(300, 1000), TravelTimeOptions{BatchSize: 4}, nil)

	m := svc.GetEtaMatrix(context.Background(), gridStops(9), domain.ModeDriving, false)
	require.Len(t, m.Minutes, 9)
	assert.Nil(t, m.Km)
	for i := range m.Minutes {
		assert.Equal(t, 0, m.Minutes[i][i])
	}
}

func TestGetEtaMatrixFailingProviderAnyBatchSize(t *testing.T) {
	provider := travel.NewFailingMatrixProvider(errors.New("connection refused"))

	for _, batch := range []int{1, 7, 25} {
		svc := NewTravelTimeService(provider, TravelTimeOptions{BatchSize: batch}, nil)
		for n := 0; n <= 60; n += 3 {
			stops := gridStops(n)
			got := svc.GetEtaMatrix(context.Background(), stops, domain.ModeWalking, true)

			want := localMatrix(stops, domain.ModeWalking, true)
			require.Len(t, got.Minutes, n, "batch=%d n=%d", batch, n)
			assert.Equal(t, want, got, "batch=%d n=%d", batch, n)
		}
	}
}

func TestGetEtaMatrixChunksRequests(t *testing.T) {
	provider := travel.NewConstantMatrixProvider(600, 2500)
	svc := NewTravelTimeService(provider, TravelTimeOptions{BatchSize: 25}, nil)

	m := svc.GetEtaMatrix(context.Background(), gridStops(30), domain.ModeDriving, true)

	calls := provider.Calls()
	require.Len(t, calls, 4)
	for _, c := range calls {
		assert.LessOrEqual(t, c.Origins, 25)
		assert.LessOrEqual(t, c.Destinations, 25)
	}
	assert.Equal(t, 10, m.Minutes[0][29])
	assert.Equal(t, 2.5, m.Km[29][0])
	assert.Equal(t, 0, m.Minutes[29][29])
}

func TestGetEtaMatrixPerCellFallback(t *testing.T) {
	stops := gridStops(3)
	provider := &travel.MockMatrixProvider{
		FetchFunc: func(_ context.Context, origins, destinations []domain.Coordinates, _ domain.TravelMode) (ports.MatrixBlock, error) {
			sec, m := 90.0, 800.0
			rows := make([][]ports.MatrixCell, len(origins))
			for i := range rows {
				rows[i] = make([]ports.MatrixCell, len(destinations))
				for j := range rows[i] {
					if i == 0 && j == 2 {
						continue
					}
					rows[i][j] = ports.MatrixCell{DurationSeconds: &sec, DistanceMeters: &m}
				}
			}
			return ports.MatrixBlock{Rows: rows}, nil
		},
	}
	svc := NewTravelTimeService(provider, TravelTimeOptions{}, nil)

	m := svc.GetEtaMatrix(context.Background(), stops, domain.ModeDriving, true)

	local := EstimateLeg(stops[0].Coordinates, stops[2].Coordinates, domain.ModeDriving)
	assert.Equal(t, 2, m.Minutes[0][1])
	assert.Equal(t, 0.8, m.Km[0][1])
	assert.Equal(t, local.Minutes, m.Minutes[0][2])
	assert.Equal(t, local.Km, m.Km[0][2])
}

func TestGetEtaMatrixSkipsStopsWithoutCoordinates(t *testing.T) {
	stops := gridStops(3)
	stops[1].Coordinates = nil
	provider := travel.NewConstantMatrixProvider(120, 1000)
	svc := NewTravelTimeService(provider, TravelTimeOptions{}, nil)

	m := svc.GetEtaMatrix(context.Background(), stops, domain.ModeDriving, true)

	calls := provider.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, 2, calls[0].Origins)
	assert.Equal(t, 12, m.Minutes[1][0])
	assert.Equal(t, 3.0, m.Km[0][1])
	assert.Equal(t, 2, m.Minutes[0][2])
}

func TestGetEtaMatrixEmptyRowsFallsBackEntirely(t *testing.T) {
	stops := gridStops(5)
	provider := &travel.MockMatrixProvider{}
	svc := NewTravelTimeService(provider, TravelTimeOptions{BatchSize: 2}, nil)

	m := svc.GetEtaMatrix(context.Background(), stops, domain.ModeTransit, false)

	assert.Len(t, provider.Calls(), 1)
	assert.Equal(t, localMatrix(stops, domain.ModeTransit, false), m)
}

func TestGetLegTimes(t *testing.T) {
	stops := gridStops(4)

	remote := NewTravelTimeService(travel.NewConstantMatrixProvider(600, 4200), TravelTimeOptions{}, nil)
	legs := remote.GetLegTimes(context.Background(), stops, domain.ModeDriving)
	require.Len(t, legs, 3)
	for i, l := range legs {
		assert.Equal(t, domain.Leg{From: i, To: i + 1, Minutes: 10, Km: 4.2}, l)
	}

	failing := NewTravelTimeService(travel.NewFailingMatrixProvider(ports.ErrRateLimited), TravelTimeOptions{}, nil)
	legs = failing.GetLegTimes(context.Background(), stops, domain.ModeDriving)
	require.Len(t, legs, 3)
	want := EstimateLeg(stops[1].Coordinates, stops[2].Coordinates, domain.ModeDriving)
	assert.Equal(t, want.Minutes, legs[1].Minutes)
	assert.Equal(t, want.Km, legs[1].Km)

	assert.Empty(t, failing.GetLegTimes(context.Background(), stops[:1], domain.ModeDriving))
}

func TestFallbackReason(t *testing.T) {
	assert.Equal(t, "rate_limited", fallbackReason(fmt.Errorf("block: %w", ports.ErrRateLimited)))
	assert.Equal(t, "timeout", fallbackReason(context.DeadlineExceeded))
	assert.Equal(t, "remote_error", fallbackReason(errors.New("boom")))
}
