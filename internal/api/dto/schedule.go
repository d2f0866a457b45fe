package dto

import "itinerary-service/internal/domain"

type RescheduleRequest struct {
	Stops []domain.Stop `json:"stops" validate:"max=200"`
	// EnableTimeShift defaults to true when omitted.
	EnableTimeShift *bool  `json:"enable_time_shift"`
	PinManual       bool   `json:"pin_manual"`
	LiveTravel      bool   `json:"live_travel"`
	Mode            string `json:"mode" validate:"omitempty,oneof=driving walking transit"`
}

type OptimizeRequest struct {
	Stops []domain.Stop `json:"stops" validate:"max=200"`
}

type StopsResponse struct {
	Stops []domain.Stop `json:"stops"`
}

type GenerateRequest struct {
	Region string `json:"region" validate:"required,max=100"`
	Days   int    `json:"days" validate:"required,min=1,max=14"`
	Style  string `json:"style" validate:"max=200"`
}

type CandidatesRequest struct {
	Day      int            `json:"day" validate:"min=0"`
	Places   []domain.Place `json:"places" validate:"required,min=1,max=200"`
	DayStart string         `json:"day_start" validate:"omitempty,len=5"`
	Limit    int            `json:"limit" validate:"min=0,max=20"`
	// Mode, when set, fills the day's legs.
	Mode string `json:"mode" validate:"omitempty,oneof=driving walking transit"`
}
