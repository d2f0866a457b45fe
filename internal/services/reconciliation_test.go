package services

import (
	"context"
	"fmt"
	"math/rand/v2"
	"testing"

	"itinerary-service/internal/adapters/travel"
	"itinerary-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(s string) domain.Clock { return domain.ParseClock(s) }

func TestRescheduleShiftsOverlap(t *testing.T) {
	in := []domain.Stop{
		{ID: "b", Name: "Breakfast", Start: at("09:00"), End: at("10:00")},
		{ID: "m", Name: "Museum", Start: at("09:30"), End: at("11:00")},
	}

	got := Reschedule(in, DefaultRescheduleOptions())

	require.Len(t, got, 2)
	assert.Equal(t, "09:00", got[0].Start.String())
	assert.Equal(t, "10:00", got[0].End.String())
	assert.Equal(t, "10:15", got[1].Start.String())
	assert.Equal(t, "11:45", got[1].End.String())
	assert.Equal(t, at("09:30"), in[1].Start)
}

func TestReschedulePropagatesDelay(t *testing.T) {
	in := []domain.Stop{
		{ID: "c", Name: "C", Start: at("10:30"), End: at("11:00")},
		{ID: "a", Name: "A", Start: at("09:00"), End: at("10:30")},
		{ID: "b", Name: "B", Start: at("10:00"), End: at("10:45")},
		{ID: "d", Name: "D", Start: at("15:00"), End: at("16:00")},
	}

	got := Reschedule(in, DefaultRescheduleOptions())

	assert.Equal(t, []string{"A", "B", "C", "D"}, names(got))
	assert.Equal(t, "10:45", got[1].Start.String())
	assert.Equal(t, "11:30", got[1].End.String())
	assert.Equal(t, "11:45", got[2].Start.String())
	assert.Equal(t, "12:15", got[2].End.String())
	assert.Equal(t, "15:00", got[3].Start.String())
}

func TestRescheduleManualStopPropagatesByDefault(t *testing.T) {
	in := []domain.Stop{
		{ID: "a", Name: "A", Start: at("09:00"), End: at("11:00")},
		{ID: "m", Name: "Pinned", Start: at("10:00"), End: at("10:30"), IsManual: true},
		{ID: "c", Name: "C", Start: at("11:00"), End: at("12:00")},
	}

	got := Reschedule(in, DefaultRescheduleOptions())

	assert.Equal(t, "11:15", got[1].Start.String())
	assert.Equal(t, "11:45", got[1].End.String())
	assert.Equal(t, "12:00", got[2].Start.String())
}

func TestReschedulePinManual(t *testing.T) {
	in := []domain.Stop{
		{ID: "a", Name: "A", Start: at("09:00"), End: at("11:00")},
		{ID: "m1", Name: "M1", Start: at("10:00"), End: at("11:30"), IsManual: true},
		{ID: "m2", Name: "M2", Start: at("11:00"), End: at("11:30"), IsManual: true},
		{ID: "c", Name: "C", Start: at("11:40"), End: at("12:00")},
	}

	opts := DefaultRescheduleOptions()
	opts.PinManual = true
	got := Reschedule(in, opts)

	assert.Equal(t, "10:00", got[1].Start.String())
	assert.Equal(t, "11:30", got[2].Start.String())
	assert.Equal(t, "12:00", got[2].End.String())
	assert.Equal(t, "11:40", got[3].Start.String())
}

func TestRescheduleShiftDisabled(t *testing.T) {
	in := []domain.Stop{
		{Name: "A", Start: at("10:00"), End: at("11:00")},
		{Name: "B", Start: at("09:00"), End: at("10:30")},
	}

	got := Reschedule(in, RescheduleOptions{EnableTimeShift: false, BufferMinutes: 15})

	assert.Equal(t, []string{"B", "A"}, names(got))
	assert.Equal(t, at("10:00"), got[1].Start)
}

func TestRescheduleUsesLegMinutes(t *testing.T) {
	in := []domain.Stop{
		{Name: "A", Start: at("09:00"), End: at("10:00")},
		{Name: "B", Start: at("10:05"), End: at("11:00")},
	}
	opts := DefaultRescheduleOptions()
	opts.LegMinutes = []int{20}
	opts.LegMarginMinutes = 10

	got := Reschedule(in, opts)

	assert.Equal(t, "10:30", got[1].Start.String())
	assert.Equal(t, "11:25", got[1].End.String())
}

func TestRescheduleRollsPastMidnight(t *testing.T) {
	in := []domain.Stop{
		{Name: "Club", CategoryTags: []string{"night_club"}, Start: at("23:00"), End: at("01:00")},
		{Name: "Late Snack", Start: at("23:30"), End: at("23:59")},
	}

	got := Reschedule(in, DefaultRescheduleOptions())

	assert.Equal(t, 120, got[0].DurationMinutes())
	assert.Equal(t, "01:15", got[1].Start.String())
	assert.Equal(t, 29, got[1].DurationMinutes())
}

func TestRescheduleWarnings(t *testing.T) {
	in := []domain.Stop{
		{Name: "Bakery", CategoryTags: []string{"bakery"}, Start: at("14:30"), End: at("15:00")},
		{Name: "Shilin Night Market", Start: at("16:00"), End: at("18:00")},
		{Name: "Bookstore", CategoryTags: []string{"book_store"}, Start: at("21:00"), End: at("22:00")},
		{Name: "Bar", CategoryTags: []string{"bar"}, Start: at("22:30"), End: at("23:30")},
	}

	got := Reschedule(in, RescheduleOptions{EnableTimeShift: false})

	assert.Equal(t, WarnLikelyClosed, got[0].Warning)
	assert.Equal(t, WarnTooEarlyNightMarket, got[1].Warning)
	assert.Equal(t, WarnConfirmOpen, got[2].Warning)
	assert.Empty(t, got[3].Warning)
}

func TestSituationalWarningCombines(t *testing.T) {
	s := domain.Stop{Name: "Breakfast Bar", Start: at("21:00"), End: at("22:30")}
	assert.Equal(t, WarnLikelyClosed+"; "+WarnConfirmOpen, SituationalWarning(s))
	assert.Empty(t, SituationalWarning(domain.Stop{Name: "Museum", Start: at("10:00"), End: at("12:00")}))
}

func randomDay(r *rand.Rand, n int) []domain.Stop {
	stops := make([]domain.Stop, n)
	for i := range stops {
		start := domain.Clock(r.IntN(20 * 60))
		stops[i] = domain.Stop{
			ID:       fmt.Sprintf("s%d", i),
			Name:     fmt.Sprintf("Stop %d", i),
			Start:    start,
			End:      start + domain.Clock(15+r.IntN(180)),
			IsManual: r.IntN(4) == 0,
		}
	}
	return stops
}

func TestRescheduleProperties(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))

	for round := 0; round < 200; round++ {
		in := randomDay(r, r.IntN(12))
		durations := make(map[string]int, len(in))
		for _, s := range in {
			durations[s.ID] = s.DurationMinutes()
		}

		once := Reschedule(in, DefaultRescheduleOptions())
		require.Len(t, once, len(in))

		for i := range once {
			assert.Equal(t, durations[once[i].ID], once[i].DurationMinutes())
			if i+1 < len(once) {
				assert.LessOrEqual(t, once[i].Start, once[i+1].Start)
			}
		}

		twice := Reschedule(once, DefaultRescheduleOptions())
		for i := range once {
			assert.Equal(t, once[i].Start, twice[i].Start)
			assert.Equal(t, once[i].End, twice[i].End)
		}
	}
}

func TestReconciliationEngineLiveTravel(t *testing.T) {
	stops := gridStops(2)
	stops[0].Start, stops[0].End = at("09:00"), at("10:00")
	stops[1].Start, stops[1].End = at("10:10"), at("11:00")

	tts := NewTravelTimeService(travel.NewConstantMatrixProvider(20*60, 5000), TravelTimeOptions{}, nil)
	engine := NewReconciliationEngine(tts, ReconcileConfig{BufferMinutes: 15, LiveMarginMinutes: 10}, nil)

	got := engine.Reconcile(context.Background(), stops, ReconcileRequest{EnableTimeShift: true, LiveTravel: true, Mode: domain.ModeDriving})
	assert.Equal(t, "10:30", got[1].Start.String())

	fixed := engine.Reconcile(context.Background(), stops, ReconcileRequest{EnableTimeShift: true})
	assert.Equal(t, "10:15", fixed[1].Start.String())
}
