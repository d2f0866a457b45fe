package services

import (
	"testing"

	"itinerary-service/internal/domain"
	"itinerary-service/internal/ports"

	"github.com/stretchr/testify/assert"
)

func TestParseTimeRange(t *testing.T) {
	cases := []struct {
		in         string
		start, end string
	}{
		{"10:00 - 11:30", "10:00", "11:30"},
		{"10:00-11:30", "10:00", "11:30"},
		{"", "09:00", "10:00"},
		{"afternoon", "09:00", "10:00"},
		{"14:00", "14:00", "15:00"},
		{"x - 16:30", "09:00", "10:00"},
		{"abc - 08:00", "09:00", "10:00"},
		{"18:00 - late", "18:00", "19:00"},
	}
	for _, tc := range cases {
		start, end := ParseTimeRange(tc.in)
		assert.Equal(t, tc.start, start.String(), tc.in)
		assert.Equal(t, tc.end, end.String(), tc.in)
	}
}

func TestSuggestedStops(t *testing.T) {
	day := ports.SuggestedDay{Day: 2, Places: []ports.SuggestedPlace{
		{Name: "Chihkan Tower", Type: "景點", Time: "10:00 - 11:30", Reason: "Dutch-era fort"},
		{Name: "  "},
		{Name: "Anping Oysters", Type: "美食"},
	}}

	got := suggestedStops(day, "ai")

	assert.Len(t, got, 2)
	assert.Equal(t, domain.Stop{
		ID:           "ai-2-0",
		Name:         "Chihkan Tower",
		Address:      "Dutch-era fort",
		CategoryTags: []string{"景點"},
		Start:        domain.ParseClock("10:00"),
		End:          domain.ParseClock("11:30"),
	}, got[0])
	assert.Equal(t, "ai-2-2", got[1].ID)
	assert.False(t, got[1].IsManual)
}
