package services

import (
	"fmt"
	"strconv"
	"strings"

	"itinerary-service/internal/domain"
	"itinerary-service/internal/ports"
)

var (
	defaultSuggestionStart = domain.Clock(9 * 60)
	defaultSuggestionEnd   = domain.Clock(10 * 60)
)

// ParseTimeRange reads "HH:MM - HH:MM". A missing or malformed start yields the
// 09:00 to 10:00 default whatever the end says. A parsed start with no usable
// end gets a one hour visit.
func ParseTimeRange(s string) (start, end domain.Clock) {
	left, right, found := strings.Cut(s, "-")
	start, ok := parseStrictClock(left)
	if !ok {
		return defaultSuggestionStart, defaultSuggestionEnd
	}
	if c, ok := parseStrictClock(right); found && ok {
		return start, c
	}
	return start, start + 60
}

func parseStrictClock(s string) (domain.Clock, bool) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, false
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 47 {
		return 0, false
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	return domain.Clock(h*60 + m), true
}

// suggestedStops turns one suggested day into unscheduled stops. idPrefix
// distinguishes first generation from rebuilds.
func suggestedStops(day ports.SuggestedDay, idPrefix string) []domain.Stop {
	stops := make([]domain.Stop, 0, len(day.Places))
	for i, p := range day.Places {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			continue
		}
		start, end := ParseTimeRange(p.Time)
		s := domain.Stop{
			ID:      fmt.Sprintf("%s-%d-%d", idPrefix, day.Day, i),
			Name:    name,
			Address: p.Reason,
			Start:   start,
			End:     end,
		}
		if t := strings.TrimSpace(p.Type); t != "" {
			s.CategoryTags = []string{t}
		}
		stops = append(stops, s)
	}
	return stops
}
