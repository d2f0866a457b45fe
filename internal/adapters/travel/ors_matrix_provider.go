package travel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"itinerary-service/internal/domain"
	"itinerary-service/internal/platform/obs"
	"itinerary-service/internal/ports"
)

const orsBaseURL = "https://api.openrouteservice.org"

var orsProfiles = map[domain.TravelMode]string{
	domain.ModeDriving: "driving-car",
	domain.ModeWalking: "foot-walking",
}

type orsMatrixRequest struct {
	Locations    [][]float64 `json:"locations"`
	Sources      []int       `json:"sources"`
	Destinations []int       `json:"destinations"`
	Metrics      []string    `json:"metrics"`
}

type orsMatrixResponse struct {
	Distances [][]*float64 `json:"distances"`
	Durations [][]*float64 `json:"durations"`
}

// ORSMatrixProvider implements TravelMatrixProvider using the OpenRouteService
// matrix endpoint. It is safe for concurrent use.
type ORSMatrixProvider struct {
	http    *client
	baseURL string
}

// NewORSMatrixProvider returns a provider. A nil session gets a client with a 10s timeout.
func NewORSMatrixProvider(apiKey string, session *http.Client) (*ORSMatrixProvider, error) {
	if apiKey == "" {
		return nil, errors.New("ORS api key is empty")
	}

	return &ORSMatrixProvider{
		http: newClient(session, func(r *http.Request) {
			r.Header.Set("Authorization", apiKey)
		}),
		baseURL: orsBaseURL,
	}, nil
}

// WithBaseURL points the provider at another host, e.g. a self-hosted instance.
func (o *ORSMatrixProvider) WithBaseURL(u string) *ORSMatrixProvider {
	o.baseURL = strings.TrimRight(u, "/")
	return o
}

// FetchMatrix requests one origins x destinations block in a single call.
// Locations are sent as origins followed by destinations.
func (o *ORSMatrixProvider) FetchMatrix(
	ctx context.Context,
	origins []domain.Coordinates,
	destinations []domain.Coordinates,
	mode domain.TravelMode,
) (_ ports.MatrixBlock, err error) {
	defer obs.Time(ctx, "ors.FetchMatrix")(&err)

	profile, ok := orsProfiles[mode]
	if !ok {
		return ports.MatrixBlock{}, fmt.Errorf("ors %s: %w", mode, ports.ErrUnsupportedMode)
	}

	if len(origins) == 0 || len(destinations) == 0 {
		return ports.MatrixBlock{}, nil
	}

	endpoint := fmt.Sprintf("%s/v2/matrix/%s", o.baseURL, profile)

	locations := make([][]float64, 0, len(origins)+len(destinations))
	sources := make([]int, 0, len(origins))
	for _, c := range origins {
		sources = append(sources, len(locations))
		locations = append(locations, c.CoordsToList())
	}
	destIdx := make([]int, 0, len(destinations))
	for _, c := range destinations {
		destIdx = append(destIdx, len(locations))
		locations = append(locations, c.CoordsToList())
	}

	payload, err := json.Marshal(orsMatrixRequest{
		Locations:    locations,
		Sources:      sources,
		Destinations: destIdx,
		Metrics:      []string{"distance", "duration"},
	})
	if err != nil {
		return ports.MatrixBlock{}, fmt.Errorf("marshal matrix request: %w", err)
	}

	resp, err := o.http.doWithRetry(ctx, func() (*http.Request, error) {
		return o.http.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	})
	if err != nil {
		return ports.MatrixBlock{}, fmt.Errorf("matrix request failed: %w", err)
	}
	defer resp.Body.Close()

	var mr orsMatrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return ports.MatrixBlock{}, fmt.Errorf("decode matrix response: %w", err)
	}

	if len(mr.Durations) == 0 {
		return ports.MatrixBlock{}, ports.ErrEmptyResponse
	}

	// ORS reports distances in meters when units is omitted.
	rows := make([][]ports.MatrixCell, len(mr.Durations))
	for i, durations := range mr.Durations {
		rows[i] = make([]ports.MatrixCell, len(durations))
		for j, sec := range durations {
			rows[i][j].DurationSeconds = sec
			if i < len(mr.Distances) && j < len(mr.Distances[i]) {
				rows[i][j].DistanceMeters = mr.Distances[i][j]
			}
		}
	}

	return ports.MatrixBlock{Rows: rows}, nil
}
