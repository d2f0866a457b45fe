package ports

import "context"

// One place proposed by a generative planner. Time is free text like "10:00 - 12:00".
type SuggestedPlace struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Time   string `json:"time"`
	Reason string `json:"reason"`
}

// One proposed day.
type SuggestedDay struct {
	Day    int              `json:"day"`
	Theme  string           `json:"theme"`
	Places []SuggestedPlace `json:"places"`
}

// Contract for a generative itinerary source.
// Callers treat an error and an empty result the same way: nothing to propose.
type SuggestionSource interface {
	Generate(ctx context.Context, region string, days int, style string) ([]SuggestedDay, error)
}
