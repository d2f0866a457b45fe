package domain

// TravelMode selects the speed profile used for travel-time estimates.
type TravelMode string

const (
	ModeDriving TravelMode = "driving"
	ModeWalking TravelMode = "walking"
	ModeTransit TravelMode = "transit"
)

// ParseTravelMode maps free-form input onto a known mode, defaulting to driving.
func ParseTravelMode(s string) TravelMode {
	switch TravelMode(s) {
	case ModeWalking:
		return ModeWalking
	case ModeTransit:
		return ModeTransit
	default:
		return ModeDriving
	}
}

// Represents one scheduled place visit within a single day.
// Coordinates is nil when the place has no known location.
// End may be numerically below Start in raw input when the visit rolls past
// midnight; NormalizeTimes repairs that before any scheduling arithmetic.
type Stop struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Address      string       `json:"address,omitempty"`
	CategoryTags []string     `json:"category_tags,omitempty"`
	Coordinates  *Coordinates `json:"coordinates,omitempty"`
	Start        Clock        `json:"start"`
	End          Clock        `json:"end"`
	IsManual     bool         `json:"is_manual"`
	Warning      string       `json:"warning,omitempty"`
}

// DurationMinutes is the length of the visit.
func (s Stop) DurationMinutes() int {
	return int(s.End - s.Start)
}

// HasCoordinates reports whether the stop carries a usable location.
func (s Stop) HasCoordinates() bool {
	return s.Coordinates != nil && s.Coordinates.Valid()
}

// NormalizeTimes moves an end time that precedes the start onto the next day.
func (s *Stop) NormalizeTimes() {
	if s.End < s.Start {
		s.End += MinutesPerDay
	}
}

// Travel segment between two stops of the same day, addressed by index.
type Leg struct {
	From    int     `json:"from"`
	To      int     `json:"to"`
	Minutes int     `json:"minutes"`
	Km      float64 `json:"km"`
}

// One day of an itinerary. Stops stay sorted by start after every reconciliation.
type DayPlan struct {
	Day   int    `json:"day"`
	Theme string `json:"theme,omitempty"`
	Stops []Stop `json:"stops"`
	Legs  []Leg  `json:"legs,omitempty"`
}

// A full multi-day itinerary candidate.
type Plan struct {
	DayPlans []DayPlan `json:"day_plans"`
}

// DayIndex returns the slice index of the day numbered day, or -1.
func (p Plan) DayIndex(day int) int {
	for i, d := range p.DayPlans {
		if d.Day == day {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy so callers can edit without aliasing stored plans.
func (p Plan) Clone() Plan {
	out := Plan{DayPlans: make([]DayPlan, len(p.DayPlans))}
	for i, d := range p.DayPlans {
		out.DayPlans[i] = DayPlan{
			Day:   d.Day,
			Theme: d.Theme,
			Stops: CloneStops(d.Stops),
			Legs:  append([]Leg(nil), d.Legs...),
		}
	}
	return out
}

// CloneStops copies stops including their tag slices and coordinates.
func CloneStops(stops []Stop) []Stop {
	if stops == nil {
		return nil
	}
	out := make([]Stop, len(stops))
	for i, s := range stops {
		s.CategoryTags = append([]string(nil), s.CategoryTags...)
		if s.Coordinates != nil {
			c := *s.Coordinates
			s.Coordinates = &c
		}
		out[i] = s
	}
	return out
}
