package services

import (
	"context"
	"log/slog"
	"slices"

	"itinerary-service/internal/domain"
)

const (
	DefaultBufferMinutes     = 15
	DefaultLiveMarginMinutes = 10
)

type RescheduleOptions struct {
	EnableTimeShift bool
	// Gap between one stop's end and the next start when no leg estimate is given.
	BufferMinutes int
	// PinManual keeps manual stops where they are unless an earlier manual stop
	// overlaps them, and stops them from pushing later stops.
	PinManual bool
	// LegMinutes[i] is the travel time from the i-th to the (i+1)-th stop in start
	// order. Used instead of BufferMinutes when it has exactly len(stops)-1 entries.
	LegMinutes       []int
	LegMarginMinutes int
}

// DefaultRescheduleOptions shifts with the fixed 15 minute buffer.
func DefaultRescheduleOptions() RescheduleOptions {
	return RescheduleOptions{EnableTimeShift: true, BufferMinutes: DefaultBufferMinutes}
}

// SortByStart returns a time-ordered copy of stops with end times normalized
// past midnight. Equal starts keep input order.
func SortByStart(stops []domain.Stop) []domain.Stop {
	out := domain.CloneStops(stops)
	for i := range out {
		out[i].NormalizeTimes()
	}
	slices.SortStableFunc(out, func(a, b domain.Stop) int { return int(a.Start - b.Start) })
	return out
}

// Reschedule time-orders a day and repairs overlaps in one left-to-right pass.
// A stop that starts before its predecessor's end plus buffer is moved to exactly
// that time, keeping its duration. Warnings are recomputed for every stop that
// has a successor. The input slice is not modified.
func Reschedule(stops []domain.Stop, opts RescheduleOptions) []domain.Stop {
	out := SortByStart(stops)
	useLegs := len(out) > 1 && len(opts.LegMinutes) == len(out)-1

	for i := range out {
		out[i].Warning = ""
	}

	for i := 0; i+1 < len(out); i++ {
		cur, next := &out[i], &out[i+1]
		cur.Warning = SituationalWarning(*cur)

		if !opts.EnableTimeShift {
			continue
		}

		if opts.PinManual && (cur.IsManual || next.IsManual) {
			if cur.IsManual && next.IsManual && cur.End > next.Start {
				shiftTo(next, cur.End)
			}
			continue
		}

		buffer := opts.BufferMinutes
		if useLegs {
			buffer = opts.LegMinutes[i] + opts.LegMarginMinutes
		}

		if arrival := cur.End + domain.Clock(buffer); arrival > next.Start {
			shiftTo(next, arrival)
		}
	}

	slices.SortStableFunc(out, func(a, b domain.Stop) int { return int(a.Start - b.Start) })
	return out
}

func shiftTo(s *domain.Stop, start domain.Clock) {
	d := s.End - s.Start
	s.Start = start
	s.End = start + d
}

// ReconcileRequest selects the per-call behavior of ReconciliationEngine.
type ReconcileRequest struct {
	EnableTimeShift bool
	PinManual       bool
	// LiveTravel replaces the fixed buffer with estimated leg times plus a margin.
	LiveTravel bool
	Mode       domain.TravelMode
}

type ReconcileConfig struct {
	BufferMinutes     int
	LiveMarginMinutes int
}

// ReconciliationEngine applies Reschedule with configured buffers and, on request,
// live leg estimates from a TravelTimeService.
type ReconciliationEngine struct {
	travel *TravelTimeService
	cfg    ReconcileConfig
	log    *slog.Logger
}

// NewReconciliationEngine builds an engine. travel may be nil.
func NewReconciliationEngine(travel *TravelTimeService, cfg ReconcileConfig, log *slog.Logger) *ReconciliationEngine {
	if cfg.BufferMinutes < 0 {
		cfg.BufferMinutes = DefaultBufferMinutes
	}
	if cfg.LiveMarginMinutes < 0 {
		cfg.LiveMarginMinutes = DefaultLiveMarginMinutes
	}
	if log == nil {
		log = slog.Default()
	}
	return &ReconciliationEngine{travel: travel, cfg: cfg, log: log}
}

// BufferMinutes is the fixed gap used when live travel is off.
func (e *ReconciliationEngine) BufferMinutes() int { return e.cfg.BufferMinutes }

// Reconcile never fails. Leg lookups degrade to local estimates inside TravelTimeService.
func (e *ReconciliationEngine) Reconcile(ctx context.Context, stops []domain.Stop, req ReconcileRequest) []domain.Stop {
	opts := RescheduleOptions{
		EnableTimeShift: req.EnableTimeShift,
		BufferMinutes:   e.cfg.BufferMinutes,
		PinManual:       req.PinManual,
	}

	if req.LiveTravel && req.EnableTimeShift && e.travel != nil && len(stops) > 1 {
		ordered := SortByStart(stops)
		legs := e.travel.GetLegTimes(ctx, ordered, req.Mode)
		opts.LegMinutes = make([]int, len(legs))
		for i, l := range legs {
			opts.LegMinutes[i] = l.Minutes
		}
		opts.LegMarginMinutes = e.cfg.LiveMarginMinutes
		e.log.DebugContext(ctx, "reconcile with live legs", "stops", len(stops), "mode", string(req.Mode))
	}

	return Reschedule(stops, opts)
}
