package travel

import (
	"context"
	"sync"

	"itinerary-service/internal/domain"
	"itinerary-service/internal/ports"
)

// MockCall records the block shape of one FetchMatrix call.
type MockCall struct {
	Origins      int
	Destinations int
	Mode         domain.TravelMode
}

// MockMatrixProvider is a test double driven by FetchFunc. It is safe for concurrent use.
type MockMatrixProvider struct {
	FetchFunc func(ctx context.Context, origins, destinations []domain.Coordinates, mode domain.TravelMode) (ports.MatrixBlock, error)

	mu    sync.Mutex
	calls []MockCall
}

func (p *MockMatrixProvider) FetchMatrix(
	ctx context.Context,
	origins []domain.Coordinates,
	destinations []domain.Coordinates,
	mode domain.TravelMode,
) (ports.MatrixBlock, error) {
	p.mu.Lock()
	p.calls = append(p.calls, MockCall{Origins: len(origins), Destinations: len(destinations), Mode: mode})
	p.mu.Unlock()

	if p.FetchFunc == nil {
		return ports.MatrixBlock{}, ports.ErrEmptyResponse
	}
	return p.FetchFunc(ctx, origins, destinations, mode)
}

// Calls returns a copy of the recorded calls.
func (p *MockMatrixProvider) Calls() []MockCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]MockCall(nil), p.calls...)
}

// NewFailingMatrixProvider always returns err.
func NewFailingMatrixProvider(err error) *MockMatrixProvider {
	return &MockMatrixProvider{
		FetchFunc: func(context.Context, []domain.Coordinates, []domain.Coordinates, domain.TravelMode) (ports.MatrixBlock, error) {
			return ports.MatrixBlock{}, err
		},
	}
}

// NewConstantMatrixProvider answers every cell with the same duration and distance.
func NewConstantMatrixProvider(seconds, meters float64) *MockMatrixProvider {
	return &MockMatrixProvider{
		FetchFunc: func(_ context.Context, origins, destinations []domain.Coordinates, _ domain.TravelMode) (ports.MatrixBlock, error) {
			rows := make([][]ports.MatrixCell, len(origins))
			for i := range rows {
				rows[i] = make([]ports.MatrixCell, len(destinations))
				for j := range rows[i] {
					s, m := seconds, meters
					rows[i][j] = ports.MatrixCell{DurationSeconds: &s, DistanceMeters: &m}
				}
			}
			return ports.MatrixBlock{Rows: rows}, nil
		},
	}
}
