package services

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"itinerary-service/internal/domain"
	"itinerary-service/internal/platform/obs"
	"itinerary-service/internal/ports"

	"github.com/google/uuid"
)

// ErrNoSuggestion means the suggestion source had nothing usable to offer.
var ErrNoSuggestion = errors.New("no suggestion available")

const (
	defaultManualStart    = domain.Clock(10 * 60)
	defaultManualDuration = 60
	defaultCandidateLimit = 6
	defaultDayStart       = domain.Clock(9 * 60)
	rebuildStyleHint      = " (suggest a different itinerary)"
)

// NewStop is a manually entered stop. Zero times take defaults from the day.
type NewStop struct {
	Name         string
	Address      string
	CategoryTags []string
	Coordinates  *domain.Coordinates
	Start        *domain.Clock
	End          *domain.Clock
}

// ItineraryPlanner composes suggestion parsing, ordering and reconciliation
// with the version store for edits on a trip's adopted plan.
type ItineraryPlanner struct {
	travel      *TravelTimeService
	engine      *ReconciliationEngine
	versions    *PlanVersionStore
	suggestions ports.SuggestionSource
	log         *slog.Logger
	newID       func() string
}

// NewItineraryPlanner wires the planner. suggestions may be nil.
func NewItineraryPlanner(
	travel *TravelTimeService,
	engine *ReconciliationEngine,
	versions *PlanVersionStore,
	suggestions ports.SuggestionSource,
	log *slog.Logger,
) *ItineraryPlanner {
	if log == nil {
		log = slog.Default()
	}
	return &ItineraryPlanner{
		travel:      travel,
		engine:      engine,
		versions:    versions,
		suggestions: suggestions,
		log:         log,
		newID:       func() string { return uuid.NewString() },
	}
}

func (p *ItineraryPlanner) defaultRequest() ReconcileRequest {
	return ReconcileRequest{EnableTimeShift: true}
}

// Generate asks the suggestion source for a plan and reconciles every day.
// It returns ErrNoSuggestion when the source fails or proposes nothing.
func (p *ItineraryPlanner) Generate(ctx context.Context, region string, days int, style string) (domain.Plan, error) {
	suggested := p.suggest(ctx, region, days, style)
	if len(suggested) == 0 {
		return domain.Plan{}, ErrNoSuggestion
	}
	return p.PlanFromSuggestions(ctx, suggested), nil
}

// PlanFromSuggestions converts suggested days into reconciled day plans.
func (p *ItineraryPlanner) PlanFromSuggestions(ctx context.Context, days []ports.SuggestedDay) domain.Plan {
	plan := domain.Plan{DayPlans: make([]domain.DayPlan, 0, len(days))}
	for i, d := range days {
		if d.Day <= 0 {
			d.Day = i + 1
		}
		plan.DayPlans = append(plan.DayPlans, domain.DayPlan{
			Day:   d.Day,
			Theme: d.Theme,
			Stops: p.engine.Reconcile(ctx, suggestedStops(d, "ai"), p.defaultRequest()),
		})
	}
	slices.SortStableFunc(plan.DayPlans, func(a, b domain.DayPlan) int { return a.Day - b.Day })
	return plan
}

func (p *ItineraryPlanner) suggest(ctx context.Context, region string, days int, style string) []ports.SuggestedDay {
	if p.suggestions == nil {
		return nil
	}
	out, err := p.suggestions.Generate(ctx, region, days, style)
	if err != nil {
		p.log.WarnContext(ctx, "suggestion source failed", "region", region, "days", days, "error", err)
		return nil
	}
	return out
}

// OptimizeDay reorders stops by category tier, lays them out back to back from
// the earliest start with the fixed buffer, then reconciles.
func (p *ItineraryPlanner) OptimizeDay(ctx context.Context, stops []domain.Stop, req ReconcileRequest) []domain.Stop {
	if len(stops) == 0 {
		return []domain.Stop{}
	}

	normalized := SortByStart(stops)
	cursor := normalized[0].Start

	ordered := OptimizeOrder(normalized)
	for i := range ordered {
		d := ordered[i].End - ordered[i].Start
		ordered[i].Start = cursor
		ordered[i].End = cursor + d
		cursor = ordered[i].End + domain.Clock(p.engine.BufferMinutes())
	}

	return p.engine.Reconcile(ctx, ordered, req)
}

// BuildDayFromCandidates ranks catalog places by popularity, keeps the top
// limit distinct ones and schedules them from dayStart in visiting order.
func (p *ItineraryPlanner) BuildDayFromCandidates(ctx context.Context, day int, places []domain.Place, dayStart domain.Clock, limit int) domain.DayPlan {
	if limit <= 0 {
		limit = defaultCandidateLimit
	}
	if dayStart <= 0 {
		dayStart = defaultDayStart
	}

	seen := make(map[string]struct{}, len(places))
	ranked := make([]domain.Place, 0, len(places))
	for _, pl := range places {
		key := pl.ID
		if key == "" {
			key = strings.ToLower(strings.TrimSpace(pl.Name))
		}
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		ranked = append(ranked, pl)
	}
	slices.SortStableFunc(ranked, func(a, b domain.Place) int { return cmp.Compare(b.Popularity(), a.Popularity()) })
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	stops := make([]domain.Stop, len(ranked))
	for i, pl := range ranked {
		id := pl.ID
		if id == "" {
			id = "place-" + p.newID()
		}
		stops[i] = domain.Stop{
			ID:           id,
			Name:         pl.Name,
			Address:      pl.Address,
			CategoryTags: slices.Clone(pl.CategoryTags),
			Coordinates:  pl.Coordinates,
			Start:        dayStart,
			End:          dayStart + domain.Clock(pl.StayMinutes()),
		}
	}

	return domain.DayPlan{Day: day, Stops: p.OptimizeDay(ctx, stops, p.defaultRequest())}
}

// WithLegs returns a copy of day with legs between consecutive stops filled in.
func (p *ItineraryPlanner) WithLegs(ctx context.Context, day domain.DayPlan, mode domain.TravelMode) domain.DayPlan {
	day.Stops = domain.CloneStops(day.Stops)
	day.Legs = p.travel.GetLegTimes(ctx, day.Stops, mode)
	return day
}

// AddManualStop appends a manual stop to a day of the adopted plan, reconciles
// the day and saves the result as a new adopted version.
func (p *ItineraryPlanner) AddManualStop(ctx context.Context, tripID string, day int, in NewStop) (_ domain.AdoptedSnapshot, err error) {
	defer obs.Time(ctx, "planner.AddManualStop")(&err)

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.AdoptedSnapshot{}, fmt.Errorf("add stop: name is required: %w", domain.ErrValidation)
	}

	return p.editDay(ctx, tripID, day, true, func(stops []domain.Stop) ([]domain.Stop, error) {
		start := defaultManualStart
		if len(stops) > 0 {
			start = SortByStart(stops)[len(stops)-1].End
		}
		if in.Start != nil {
			start = *in.Start
		}
		end := start + defaultManualDuration
		if in.End != nil {
			end = *in.End
		}

		s := domain.Stop{
			ID:           "manual-" + p.newID(),
			Name:         name,
			Address:      in.Address,
			CategoryTags: slices.Clone(in.CategoryTags),
			Coordinates:  in.Coordinates,
			Start:        start,
			End:          end,
			IsManual:     true,
		}
		return p.engine.Reconcile(ctx, append(stops, s), p.defaultRequest()), nil
	})
}

// RemoveStop deletes one stop by id from a day of the adopted plan and saves.
func (p *ItineraryPlanner) RemoveStop(ctx context.Context, tripID string, day int, stopID string) (_ domain.AdoptedSnapshot, err error) {
	defer obs.Time(ctx, "planner.RemoveStop")(&err)

	return p.editDay(ctx, tripID, day, false, func(stops []domain.Stop) ([]domain.Stop, error) {
		i := slices.IndexFunc(stops, func(s domain.Stop) bool { return s.ID == stopID })
		if i < 0 {
			return nil, fmt.Errorf("remove stop %q: %w", stopID, domain.ErrNotFound)
		}
		return slices.Delete(stops, i, i+1), nil
	})
}

// RebuildDay regenerates one day from the suggestion source, keeping that day's
// manual stops, and saves the merged day as a new adopted version.
func (p *ItineraryPlanner) RebuildDay(ctx context.Context, tripID string, day int, style string) (_ domain.AdoptedSnapshot, err error) {
	defer obs.Time(ctx, "planner.RebuildDay")(&err)

	if day < 1 {
		return domain.AdoptedSnapshot{}, fmt.Errorf("rebuild day %d: %w", day, domain.ErrValidation)
	}

	snap, err := p.adopted(ctx, tripID)
	if err != nil {
		return domain.AdoptedSnapshot{}, err
	}

	days := max(snap.Meta.Days, len(snap.Plan.DayPlans), day)
	if strings.TrimSpace(style) == "" {
		style = strings.Join(snap.Meta.Tags, ", ")
	}
	suggested := p.suggest(ctx, snap.Meta.Region, days, style+rebuildStyleHint)

	var fresh *ports.SuggestedDay
	for i := range suggested {
		if suggested[i].Day == day {
			fresh = &suggested[i]
			break
		}
	}
	if fresh == nil && day-1 < len(suggested) {
		fresh = &suggested[day-1]
		fresh.Day = day
	}
	if fresh == nil || len(fresh.Places) == 0 {
		return domain.AdoptedSnapshot{}, fmt.Errorf("rebuild day %d: %w", day, ErrNoSuggestion)
	}

	prefix := "ai-new-" + p.newID()[:8]
	return p.editDay(ctx, tripID, day, true, func(stops []domain.Stop) ([]domain.Stop, error) {
		merged := suggestedStops(*fresh, prefix)
		for _, s := range stops {
			if s.IsManual {
				merged = append(merged, s)
			}
		}
		return p.engine.Reconcile(ctx, merged, p.defaultRequest()), nil
	})
}

func (p *ItineraryPlanner) adopted(ctx context.Context, tripID string) (*domain.AdoptedSnapshot, error) {
	snap, err := p.versions.GetAdopted(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, fmt.Errorf("trip %q has no adopted itinerary: %w", tripID, domain.ErrNotFound)
	}
	return snap, nil
}

// editDay applies edit to one day of the adopted plan and saves it as a new
// adopted version. create allows a day that does not exist yet.
func (p *ItineraryPlanner) editDay(
	ctx context.Context,
	tripID string,
	day int,
	create bool,
	edit func(stops []domain.Stop) ([]domain.Stop, error),
) (domain.AdoptedSnapshot, error) {
	if day < 1 {
		return domain.AdoptedSnapshot{}, fmt.Errorf("day %d: %w", day, domain.ErrValidation)
	}

	snap, err := p.adopted(ctx, tripID)
	if err != nil {
		return domain.AdoptedSnapshot{}, err
	}

	plan := snap.Plan.Clone()
	idx := plan.DayIndex(day)
	if idx < 0 {
		if !create {
			return domain.AdoptedSnapshot{}, fmt.Errorf("day %d: %w", day, domain.ErrNotFound)
		}
		plan.DayPlans = append(plan.DayPlans, domain.DayPlan{Day: day, Stops: []domain.Stop{}})
		slices.SortStableFunc(plan.DayPlans, func(a, b domain.DayPlan) int { return a.Day - b.Day })
		idx = plan.DayIndex(day)
	}

	stops, err := edit(domain.CloneStops(plan.DayPlans[idx].Stops))
	if err != nil {
		return domain.AdoptedSnapshot{}, err
	}
	plan.DayPlans[idx].Stops = stops
	plan.DayPlans[idx].Legs = nil

	meta := snap.Meta
	meta.Days = max(meta.Days, len(plan.DayPlans))

	n, err := p.versions.SaveVersion(ctx, tripID, SaveInput{Plan: plan, Meta: meta})
	if err != nil {
		return domain.AdoptedSnapshot{}, err
	}

	out, err := p.adopted(ctx, tripID)
	if err != nil {
		return domain.AdoptedSnapshot{}, err
	}
	if out.Version != n {
		p.log.WarnContext(ctx, "adopted version moved during edit", "trip_id", tripID, "saved", n, "adopted", out.Version)
	}
	return *out, nil
}
