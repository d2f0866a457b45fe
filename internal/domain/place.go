package domain

import (
	"math"
	"slices"
)

// Opening window of a place on one weekday (0 = Sunday, -1 = every day).
type OpeningPeriod struct {
	Weekday int    `json:"weekday"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

// Read-only record from a place catalog, used as a scheduling candidate.
type Place struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Address          string          `json:"address,omitempty"`
	Coordinates      *Coordinates    `json:"coordinates,omitempty"`
	Rating           float64         `json:"rating,omitempty"`
	UserRatingsTotal int             `json:"user_ratings_total,omitempty"`
	CategoryTags     []string        `json:"category_tags,omitempty"`
	OpeningPeriods   []OpeningPeriod `json:"opening_periods,omitempty"`
}

// Popularity weights rating by review volume: rating * ln(1 + reviews).
func (p Place) Popularity() float64 {
	return p.Rating * math.Log1p(float64(max(p.UserRatingsTotal, 0)))
}

// StayMinutes is the typical visit length for the place's category.
func (p Place) StayMinutes() int {
	switch {
	case slices.Contains(p.CategoryTags, "museum"):
		return 90
	case slices.Contains(p.CategoryTags, "shopping_mall"):
		return 80
	case slices.Contains(p.CategoryTags, "cafe"):
		return 40
	default:
		return 60
	}
}
