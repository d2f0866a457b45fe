package dto

import (
	"time"

	"itinerary-service/internal/domain"
)

type SaveVersionRequest struct {
	GroupName string      `json:"group_name" validate:"max=200"`
	Plan      domain.Plan `json:"plan"`
	Meta      domain.Meta `json:"meta"`
	// Adopt defaults to true when omitted.
	Adopt   *bool `json:"adopt"`
	Version int   `json:"version" validate:"min=0"`
}

type SaveVersionResponse struct {
	TripID  string `json:"trip_id"`
	Version int    `json:"version"`
	Adopted bool   `json:"adopted"`
}

type VersionSummary struct {
	Version   int         `json:"version"`
	Meta      domain.Meta `json:"meta"`
	CreatedAt time.Time   `json:"created_at"`
}

type ListVersionsResponse struct {
	TripID   string           `json:"trip_id"`
	Versions []VersionSummary `json:"versions"`
}

type AdoptResponse struct {
	TripID  string `json:"trip_id"`
	Version int    `json:"version"`
}

type AddStopRequest struct {
	Name         string              `json:"name" validate:"required,max=200"`
	Address      string              `json:"address" validate:"max=500"`
	CategoryTags []string            `json:"category_tags" validate:"max=20"`
	Coordinates  *domain.Coordinates `json:"coordinates"`
	Start        *domain.Clock       `json:"start"`
	End          *domain.Clock       `json:"end"`
}

type RebuildDayRequest struct {
	Style string `json:"style" validate:"max=200"`
}
