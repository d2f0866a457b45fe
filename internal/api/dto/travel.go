package dto

import (
	"itinerary-service/internal/domain"
	"itinerary-service/internal/services"
)

type MatrixRequest struct {
	Stops        []domain.Stop `json:"stops" validate:"max=200"`
	Mode         string        `json:"mode" validate:"omitempty,oneof=driving walking transit"`
	WithDistance bool          `json:"with_distance"`
}

type MatrixResponse struct {
	Mode   domain.TravelMode `json:"mode"`
	Matrix services.Matrix   `json:"matrix"`
}

type LegsRequest struct {
	Stops []domain.Stop `json:"stops" validate:"max=200"`
	Mode  string        `json:"mode" validate:"omitempty,oneof=driving walking transit"`
}

type LegsResponse struct {
	Mode domain.TravelMode `json:"mode"`
	Legs []domain.Leg      `json:"legs"`
}
