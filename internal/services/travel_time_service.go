package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"itinerary-service/internal/domain"
	"itinerary-service/internal/platform/obs"
	"itinerary-service/internal/ports"
)

// DefaultBatchSize matches the common per-side ceiling of hosted matrix APIs.
const DefaultBatchSize = 25

// Matrix holds pairwise travel estimates indexed [from][to].
// Km is nil unless distances were requested.
type Matrix struct {
	Minutes [][]int     `json:"minutes"`
	Km      [][]float64 `json:"km,omitempty"`
}

type TravelTimeOptions struct {
	BatchSize int
	// Upper bound for the whole remote stage. Zero leaves it to the provider.
	Timeout time.Duration
}

// TravelTimeService turns ordered stops into travel estimates.
// Remote lookups are batched; any failure degrades to GeoEstimator so callers
// always get a well-formed result.
type TravelTimeService struct {
	provider  ports.TravelMatrixProvider
	batchSize int
	timeout   time.Duration
	log       *slog.Logger
}

// NewTravelTimeService builds the service. A nil provider means local estimates only.
func NewTravelTimeService(provider ports.TravelMatrixProvider, opts TravelTimeOptions, log *slog.Logger) *TravelTimeService {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if log == nil {
		log = slog.Default()
	}
	return &TravelTimeService{
		provider:  provider,
		batchSize: opts.BatchSize,
		timeout:   opts.Timeout,
		log:       log,
	}
}

// HasProvider reports whether remote lookups are attempted at all.
func (s *TravelTimeService) HasProvider() bool { return s.provider != nil }

// GetEtaMatrix returns an N x N matrix for stops. The diagonal is always zero.
// It never fails: remote errors are logged and the full matrix is recomputed locally.
func (s *TravelTimeService) GetEtaMatrix(ctx context.Context, stops []domain.Stop, mode domain.TravelMode, withDistance bool) Matrix {
	if len(stops) < 2 {
		return localMatrix(stops, mode, withDistance)
	}

	m, err := s.remoteMatrix(ctx, stops, mode, withDistance)
	if err != nil {
		s.logFallback(ctx, "travel.matrix", "remote", err, len(stops), mode)
		return localMatrix(stops, mode, withDistance)
	}
	return m
}

// GetLegTimes returns one leg per adjacent pair of stops.
// The remote matrix is read along its super-diagonal; when it cannot be had,
// every leg is estimated independently.
func (s *TravelTimeService) GetLegTimes(ctx context.Context, stops []domain.Stop, mode domain.TravelMode) []domain.Leg {
	if len(stops) < 2 {
		return []domain.Leg{}
	}

	m, err := s.remoteMatrix(ctx, stops, mode, true)
	if err != nil {
		s.logFallback(ctx, "travel.legs", "remote", err, len(stops), mode)
		return localLegs(stops, mode)
	}

	legs := make([]domain.Leg, 0, len(stops)-1)
	for i := 0; i+1 < len(stops); i++ {
		legs = append(legs, domain.Leg{
			From:    i,
			To:      i + 1,
			Minutes: m.Minutes[i][i+1],
			Km:      m.Km[i][i+1],
		})
	}
	return legs
}

func (s *TravelTimeService) logFallback(ctx context.Context, op, stage string, err error, n int, mode domain.TravelMode) {
	reason := fallbackReason(err)
	level := slog.LevelWarn
	if errors.Is(err, ports.ErrNoProvider) {
		level = slog.LevelDebug
	}
	s.log.Log(ctx, level, "travel estimate fallback",
		"op", op,
		"stage", stage,
		"reason", reason,
		"stops", n,
		"mode", string(mode),
		"error", err,
	)
}

func fallbackReason(err error) string {
	switch {
	case errors.Is(err, ports.ErrNoProvider):
		return "no_provider"
	case errors.Is(err, ports.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ports.ErrRequestDenied):
		return "denied"
	case errors.Is(err, ports.ErrEmptyResponse):
		return "empty_response"
	case errors.Is(err, ports.ErrUnsupportedMode):
		return "unsupported_mode"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "remote_error"
	}
}

// remoteMatrix fills the matrix block by block from the provider. Only stops with
// usable coordinates are sent; cells touching any other stop get the local default.
// The first failed block abandons the whole attempt.
func (s *TravelTimeService) remoteMatrix(
	ctx context.Context,
	stops []domain.Stop,
	mode domain.TravelMode,
	withDistance bool,
) (_ Matrix, err error) {
	if s.provider == nil {
		return Matrix{}, ports.ErrNoProvider
	}
	defer obs.Time(ctx, "travel.remoteMatrix")(&err)

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	m := localMatrix(stops, mode, true)

	located := make([]int, 0, len(stops))
	for i, st := range stops {
		if st.HasCoordinates() {
			located = append(located, i)
		}
	}
	if len(located) < 2 {
		if !withDistance {
			m.Km = nil
		}
		return m, nil
	}

	chunks := chunkIndices(located, s.batchSize)
	for _, rows := range chunks {
		for _, cols := range chunks {
			block, err := s.provider.FetchMatrix(ctx, coordsAt(stops, rows), coordsAt(stops, cols), mode)
			if err != nil {
				return Matrix{}, fmt.Errorf("fetch block %dx%d: %w", len(rows), len(cols), err)
			}
			if len(block.Rows) == 0 {
				return Matrix{}, ports.ErrEmptyResponse
			}
			fillBlock(m, stops, mode, block, rows, cols)
		}
	}

	if !withDistance {
		m.Km = nil
	}
	return m, nil
}

// fillBlock copies provider cells into m. Missing or short rows keep the local estimate.
func fillBlock(m Matrix, stops []domain.Stop, mode domain.TravelMode, block ports.MatrixBlock, rows, cols []int) {
	for r, i := range rows {
		if r >= len(block.Rows) {
			break
		}
		row := block.Rows[r]
		for c, j := range cols {
			if i == j || c >= len(row) {
				continue
			}
			cell := row[c]
			if cell.DurationSeconds != nil && isFinite(*cell.DurationSeconds) {
				m.Minutes[i][j] = max(1, int(math.Round(*cell.DurationSeconds/60)))
			}
			if cell.DistanceMeters != nil && isFinite(*cell.DistanceMeters) {
				m.Km[i][j] = roundTo(*cell.DistanceMeters/1000, 2)
			}
		}
	}
}

func localMatrix(stops []domain.Stop, mode domain.TravelMode, withDistance bool) Matrix {
	n := len(stops)
	m := Matrix{Minutes: make([][]int, n)}
	if withDistance {
		m.Km = make([][]float64, n)
	}
	for i := range n {
		m.Minutes[i] = make([]int, n)
		if withDistance {
			m.Km[i] = make([]float64, n)
		}
		for j := range n {
			if i == j {
				continue
			}
			leg := EstimateLeg(stops[i].Coordinates, stops[j].Coordinates, mode)
			m.Minutes[i][j] = leg.Minutes
			if withDistance {
				m.Km[i][j] = leg.Km
			}
		}
	}
	return m
}

func localLegs(stops []domain.Stop, mode domain.TravelMode) []domain.Leg {
	legs := make([]domain.Leg, 0, len(stops)-1)
	for i := 0; i+1 < len(stops); i++ {
		leg := EstimateLeg(stops[i].Coordinates, stops[i+1].Coordinates, mode)
		legs = append(legs, domain.Leg{From: i, To: i + 1, Minutes: leg.Minutes, Km: leg.Km})
	}
	return legs
}

func chunkIndices(idx []int, size int) [][]int {
	out := make([][]int, 0, (len(idx)+size-1)/size)
	for start := 0; start < len(idx); start += size {
		end := min(start+size, len(idx))
		out = append(out, idx[start:end])
	}
	return out
}

func coordsAt(stops []domain.Stop, idx []int) []domain.Coordinates {
	out := make([]domain.Coordinates, len(idx))
	for k, i := range idx {
		out[k] = *stops[i].Coordinates
	}
	return out
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
