package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// MinutesPerDay is the length of one logical day on the wall clock.
const MinutesPerDay = 24 * 60

// Clock is a wall-clock time expressed as minutes since midnight of the stop's day.
// Values at or past MinutesPerDay are times that rolled past midnight.
type Clock int

// ParseClock converts "HH:MM" to a Clock. It is permissive: a missing or
// unparsable hour or minute part counts as zero, so garbage yields 00:00.
func ParseClock(s string) Clock {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	hh, mm, _ := strings.Cut(s, ":")
	h, err := strconv.Atoi(strings.TrimSpace(hh))
	if err != nil || h < 0 {
		h = 0
	}
	m, err := strconv.Atoi(strings.TrimSpace(mm))
	if err != nil || m < 0 {
		m = 0
	}

	return Clock(h*60 + m)
}

// Hour returns the hour of day, wrapped into [0, 24).
func (c Clock) Hour() int {
	return (int(c) % MinutesPerDay) / 60
}

// String formats c as "HH:MM", wrapping times past midnight.
func (c Clock) String() string {
	m := int(c) % MinutesPerDay
	if m < 0 {
		m += MinutesPerDay
	}
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// MarshalText keeps the day offset, so 01:15 on the following day encodes as
// "25:15" and survives a round trip.
func (c Clock) MarshalText() ([]byte, error) {
	m := max(int(c), 0)
	return []byte(fmt.Sprintf("%02d:%02d", m/60, m%60)), nil
}

func (c *Clock) UnmarshalText(b []byte) error {
	*c = ParseClock(string(b))
	return nil
}
