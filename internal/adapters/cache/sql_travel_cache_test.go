package cache

import (
	"context"
	"errors"
	"testing"

	"itinerary-service/internal/adapters/repositories"
	"itinerary-service/internal/adapters/travel"
	"itinerary-service/internal/domain"
	"itinerary-service/internal/platform/db"
	"itinerary-service/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	taipei101 = domain.Coordinates{Lat: 25.0340, Lon: 121.5645}
	longshan  = domain.Coordinates{Lat: 25.0372, Lon: 121.4999}
)

func newTestCache(t *testing.T, next ports.TravelMatrixProvider) *SQLTravelCache {
	t.Helper()

	conn, err := db.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	_, err = repositories.Migrate(context.Background(), conn, db.SQLite)
	require.NoError(t, err)

	return NewSQLTravelCache(conn, db.SQLite, next, nil)
}

func TestSQLTravelCacheServesRepeatLookups(t *testing.T) {
	ctx := context.Background()
	next := travel.NewConstantMatrixProvider(600, 4200)
	c := newTestCache(t, next)

	pts := []domain.Coordinates{taipei101, longshan}

	first, err := c.FetchMatrix(ctx, pts, pts, domain.ModeDriving)
	require.NoError(t, err)
	require.Len(t, first.Rows, 2)

	second, err := c.FetchMatrix(ctx, pts, pts, domain.ModeDriving)
	require.NoError(t, err)
	require.Len(t, second.Rows, 2)

	assert.Len(t, next.Calls(), 1)
	assert.InDelta(t, 600, *second.Rows[0][1].DurationSeconds, 1e-9)
	assert.InDelta(t, 4200, *second.Rows[1][0].DistanceMeters, 1e-9)
}

func TestSQLTravelCacheKeysByMode(t *testing.T) {
	ctx := context.Background()
	next := travel.NewConstantMatrixProvider(600, 4200)
	c := newTestCache(t, next)

	pts := []domain.Coordinates{taipei101, longshan}

	_, err := c.FetchMatrix(ctx, pts, pts, domain.ModeDriving)
	require.NoError(t, err)
	_, err = c.FetchMatrix(ctx, pts, pts, domain.ModeWalking)
	require.NoError(t, err)

	assert.Len(t, next.Calls(), 2)
}

func TestSQLTravelCacheRefetchesPartialBlocks(t *testing.T) {
	ctx := context.Background()
	next := travel.NewConstantMatrixProvider(300, 1000)
	c := newTestCache(t, next)

	_, err := c.FetchMatrix(ctx, []domain.Coordinates{taipei101}, []domain.Coordinates{longshan}, domain.ModeDriving)
	require.NoError(t, err)

	pts := []domain.Coordinates{taipei101, longshan}
	_, err = c.FetchMatrix(ctx, pts, pts, domain.ModeDriving)
	require.NoError(t, err)

	calls := next.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, 2, calls[1].Origins)
}

func TestSQLTravelCacheSkipsMissingCells(t *testing.T) {
	ctx := context.Background()
	next := &travel.MockMatrixProvider{
		FetchFunc: func(_ context.Context, origins, destinations []domain.Coordinates, _ domain.TravelMode) (ports.MatrixBlock, error) {
			s, m := 120.0, 800.0
			return ports.MatrixBlock{Rows: [][]ports.MatrixCell{{
				{DurationSeconds: &s, DistanceMeters: &m},
				{},
			}}}, nil
		},
	}
	c := newTestCache(t, next)

	dests := []domain.Coordinates{longshan, taipei101}
	_, err := c.FetchMatrix(ctx, []domain.Coordinates{taipei101}, dests, domain.ModeDriving)
	require.NoError(t, err)

	// The unanswered cell was not stored, so the block is fetched again.
	_, err = c.FetchMatrix(ctx, []domain.Coordinates{taipei101}, dests, domain.ModeDriving)
	require.NoError(t, err)
	assert.Len(t, next.Calls(), 2)
}

func TestSQLTravelCachePassesErrorsThrough(t *testing.T) {
	c := newTestCache(t, travel.NewFailingMatrixProvider(ports.ErrRateLimited))

	_, err := c.FetchMatrix(context.Background(), []domain.Coordinates{taipei101}, []domain.Coordinates{longshan}, domain.ModeDriving)
	assert.True(t, errors.Is(err, ports.ErrRateLimited))
}

func TestSQLTravelCacheWithoutNext(t *testing.T) {
	c := newTestCache(t, nil)

	_, err := c.FetchMatrix(context.Background(), []domain.Coordinates{taipei101}, []domain.Coordinates{longshan}, domain.ModeDriving)
	assert.ErrorIs(t, err, ports.ErrNoProvider)
}
