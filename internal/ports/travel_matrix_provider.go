package ports

import (
	"context"
	"errors"
	"itinerary-service/internal/domain"
)

// Typed reasons a remote matrix lookup was abandoned.
var (
	ErrNoProvider      = errors.New("no travel-time provider configured")
	ErrEmptyResponse   = errors.New("provider returned no rows")
	ErrRateLimited     = errors.New("provider rate limit exceeded")
	ErrRequestDenied   = errors.New("provider denied the request")
	ErrUnsupportedMode = errors.New("travel mode not supported by provider")
)

// One origin/destination cell. A nil field means the provider had no usable value.
type MatrixCell struct {
	DurationSeconds *float64
	DistanceMeters  *float64
}

// Response for one origins x destinations block, indexed [origin][destination].
type MatrixBlock struct {
	Rows [][]MatrixCell
}

// Contract for a remote travel-time matrix service.
// Implementations must not be asked for more than their per-request limit on either side.
type TravelMatrixProvider interface {
	// Return durations and distances from every origin to every destination.
	FetchMatrix(
		ctx context.Context,
		origins []domain.Coordinates,
		destinations []domain.Coordinates,
		mode domain.TravelMode,
	) (MatrixBlock, error)
}
