package domain

import "time"

// Metadata saved alongside every plan version.
type Meta struct {
	Region       string   `json:"region,omitempty"`
	Days         int      `json:"days"`
	Tags         []string `json:"tags,omitempty"`
	AdoptedIndex int      `json:"adopted_index"`
}

// Immutable, numbered snapshot of a plan for one trip.
// Version numbers start at 1 and strictly increase per trip.
type Version struct {
	TripID    string    `json:"trip_id"`
	Version   int       `json:"version"`
	Plan      Plan      `json:"plan"`
	Meta      Meta      `json:"meta"`
	CreatedAt time.Time `json:"created_at"`
}

// The single plan a trip is currently using. Written only by adopt.
type AdoptedSnapshot struct {
	TripID    string    `json:"trip_id"`
	Version   int       `json:"version"`
	Plan      Plan      `json:"plan"`
	Meta      Meta      `json:"meta"`
	AdoptedAt time.Time `json:"adopted_at"`
}

// Trip-level bookkeeping kept next to the version history.
type Trip struct {
	TripID           string     `json:"trip_id"`
	GroupName        string     `json:"group_name,omitempty"`
	Region           string     `json:"region,omitempty"`
	Days             int        `json:"days"`
	Tags             []string   `json:"tags,omitempty"`
	LastSavedVersion int        `json:"last_saved_version"`
	AdoptedVersion   int        `json:"adopted_version"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	AdoptedAt        *time.Time `json:"adopted_at,omitempty"`
}
