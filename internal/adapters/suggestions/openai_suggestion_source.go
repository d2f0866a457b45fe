package suggestions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"itinerary-service/internal/platform/obs"
	"itinerary-service/internal/ports"
)

const (
	DefaultModel   = "gpt-4o-mini"
	DefaultBaseURL = "https://api.openai.com/v1"

	temperature = 0.7

	maxResponseBytes = 1 << 20
)

const systemPrompt = `You are a travel planner with deep local knowledge of %[1]s.
Plan a trip for the given destination, number of days and style.

Rules:
1. Split %[1]s into geographic clusters. Keep each day inside one cluster so that
   no hop between places exceeds 20 minutes. Different days visit different clusters.
2. Vary the experience. Do not repeat the same kind of day twice in a row.
3. Include local specialities. Night markets are only scheduled after 18:00.
4. Use real place names that can be found on a map.

Reply with a JSON array only, no markdown and no explanation:
[
  {
    "day": 1,
    "theme": "short theme",
    "places": [
      {"name": "place name", "type": "sightseeing | restaurant | shopping | night market", "time": "10:00 - 11:30", "reason": "why it is worth it"}
    ]
  }
]`

// OpenAISuggestionSource asks an OpenAI-compatible chat completions endpoint
// for a day-by-day itinerary.
type OpenAISuggestionSource struct {
	apiKey  string
	model   string
	baseURL string
	session *http.Client
}

func NewOpenAISuggestionSource(apiKey, model, baseURL string, session *http.Client) *OpenAISuggestionSource {
	if model == "" {
		model = DefaultModel
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if session == nil {
		session = &http.Client{Timeout: 45 * time.Second}
	}
	return &OpenAISuggestionSource{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		session: session,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generate returns the proposed days, or nil with no error when the model
// replied with nothing usable.
func (s *OpenAISuggestionSource) Generate(ctx context.Context, region string, days int, style string) (_ []ports.SuggestedDay, err error) {
	defer obs.Time(ctx, "suggestions.openai.Generate")(&err)

	if s.apiKey == "" {
		return nil, errors.New("openai suggestions: api key is empty")
	}

	user := fmt.Sprintf("Destination: %s\nDays: %d\nStyle: %s\n(random seed: %d)\n\nMake sure each day covers a different area and the route flows without backtracking.",
		region, days, style, rand.IntN(10000))

	body, err := json.Marshal(chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "system", Content: fmt.Sprintf(systemPrompt, region)},
			{Role: "user", Content: user},
		},
		Temperature: temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("openai suggestions: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("openai suggestions: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.session.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai suggestions: send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("openai suggestions: read body: %w", err)
	}
	if len(raw) > maxResponseBytes {
		return nil, fmt.Errorf("openai suggestions: response exceeds %d bytes", maxResponseBytes)
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil && resp.StatusCode < 300 {
		return nil, fmt.Errorf("openai suggestions: decode response: %w", err)
	}
	if resp.StatusCode >= 300 {
		if out.Error != nil && out.Error.Message != "" {
			return nil, fmt.Errorf("openai suggestions: %s: %s", resp.Status, out.Error.Message)
		}
		return nil, fmt.Errorf("openai suggestions: %s", resp.Status)
	}

	if len(out.Choices) == 0 {
		return nil, nil
	}
	text := stripCodeFence(out.Choices[0].Message.Content)
	if text == "" {
		return nil, nil
	}

	var suggested []ports.SuggestedDay
	if err := json.Unmarshal([]byte(text), &suggested); err != nil {
		return nil, fmt.Errorf("openai suggestions: parse itinerary: %w", err)
	}
	return suggested, nil
}

// stripCodeFence removes a surrounding ``` or ```json fence.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
