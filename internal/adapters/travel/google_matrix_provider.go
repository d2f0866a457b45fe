package travel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"itinerary-service/internal/domain"
	"itinerary-service/internal/platform/obs"
	"itinerary-service/internal/ports"
)

const googleBaseURL = "https://maps.googleapis.com"

type googleMatrixResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Rows         []struct {
		Elements []struct {
			Status   string `json:"status"`
			Duration *struct {
				Value float64 `json:"value"`
			} `json:"duration"`
			Distance *struct {
				Value float64 `json:"value"`
			} `json:"distance"`
		} `json:"elements"`
	} `json:"rows"`
}

// GoogleMatrixProvider implements TravelMatrixProvider using the Google
// Distance Matrix API. It is safe for concurrent use.
type GoogleMatrixProvider struct {
	http    *client
	apiKey  string
	baseURL string
}

func NewGoogleMatrixProvider(apiKey string, session *http.Client) (*GoogleMatrixProvider, error) {
	if apiKey == "" {
		return nil, errors.New("google maps api key is empty")
	}

	return &GoogleMatrixProvider{
		http:    newClient(session, nil),
		apiKey:  apiKey,
		baseURL: googleBaseURL,
	}, nil
}

func (g *GoogleMatrixProvider) WithBaseURL(u string) *GoogleMatrixProvider {
	g.baseURL = strings.TrimRight(u, "/")
	return g
}

func (g *GoogleMatrixProvider) FetchMatrix(
	ctx context.Context,
	origins []domain.Coordinates,
	destinations []domain.Coordinates,
	mode domain.TravelMode,
) (_ ports.MatrixBlock, err error) {
	defer obs.Time(ctx, "google.FetchMatrix")(&err)

	if len(origins) == 0 || len(destinations) == 0 {
		return ports.MatrixBlock{}, nil
	}

	q := url.Values{}
	q.Set("origins", joinLatLng(origins))
	q.Set("destinations", joinLatLng(destinations))
	q.Set("mode", string(mode))
	q.Set("key", g.apiKey)
	endpoint := g.baseURL + "/maps/api/distancematrix/json?" + q.Encode()

	resp, err := g.http.doWithRetry(ctx, func() (*http.Request, error) {
		return g.http.newRequest(ctx, http.MethodGet, endpoint, nil)
	})
	if err != nil {
		return ports.MatrixBlock{}, fmt.Errorf("distance matrix request failed: %w", err)
	}
	defer resp.Body.Close()

	var gr googleMatrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return ports.MatrixBlock{}, fmt.Errorf("decode distance matrix response: %w", err)
	}

	switch gr.Status {
	case "OK":
	case "OVER_QUERY_LIMIT", "OVER_DAILY_LIMIT":
		return ports.MatrixBlock{}, fmt.Errorf("distance matrix %s: %w", gr.Status, ports.ErrRateLimited)
	case "REQUEST_DENIED":
		return ports.MatrixBlock{}, fmt.Errorf("distance matrix %s: %s: %w", gr.Status, gr.ErrorMessage, ports.ErrRequestDenied)
	default:
		return ports.MatrixBlock{}, fmt.Errorf("distance matrix status %q: %s", gr.Status, gr.ErrorMessage)
	}

	if len(gr.Rows) == 0 {
		return ports.MatrixBlock{}, ports.ErrEmptyResponse
	}

	rows := make([][]ports.MatrixCell, len(gr.Rows))
	for i, r := range gr.Rows {
		rows[i] = make([]ports.MatrixCell, len(r.Elements))
		for j, el := range r.Elements {
			if el.Status != "OK" {
				continue
			}
			if el.Duration != nil {
				v := el.Duration.Value
				rows[i][j].DurationSeconds = &v
			}
			if el.Distance != nil {
				v := el.Distance.Value
				rows[i][j].DistanceMeters = &v
			}
		}
	}

	return ports.MatrixBlock{Rows: rows}, nil
}

func joinLatLng(cs []domain.Coordinates) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = c.LatLngString()
	}
	return strings.Join(parts, "|")
}
