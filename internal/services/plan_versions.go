package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"itinerary-service/internal/domain"
	"itinerary-service/internal/platform/obs"
	"itinerary-service/internal/ports"
)

// Attempts at claiming max+1 before a concurrent writer is reported as a conflict.
const maxSaveAttempts = 3

// SaveInput is the content of one new version.
type SaveInput struct {
	GroupName string
	Plan      domain.Plan
	Meta      domain.Meta
	// Version pins the version number. It must be the next one in sequence.
	// Zero takes the next free one.
	Version int
}

// PlanVersionStore keeps an append-only version history per trip and one adopted snapshot.
type PlanVersionStore struct {
	repo ports.ItineraryRepository
	log  *slog.Logger
	now  func() time.Time
}

func NewPlanVersionStore(repo ports.ItineraryRepository, log *slog.Logger) *PlanVersionStore {
	if log == nil {
		log = slog.Default()
	}
	return &PlanVersionStore{repo: repo, log: log, now: time.Now}
}

// SaveVersion persists a new version and adopts it.
func (s *PlanVersionStore) SaveVersion(ctx context.Context, tripID string, in SaveInput) (int, error) {
	n, err := s.SaveItineraryVersion(ctx, tripID, in)
	if err != nil {
		return 0, err
	}

	if _, err := s.Adopt(ctx, tripID, n); err != nil {
		return n, err
	}
	return n, nil
}

// SaveItineraryVersion persists a new version without adopting it.
// Concurrent writers that collide on max+1 are retried against a fresh max.
// A pinned version number is never retried.
func (s *PlanVersionStore) SaveItineraryVersion(ctx context.Context, tripID string, in SaveInput) (_ int, err error) {
	defer obs.Time(ctx, "versions.Save")(&err)

	tripID = strings.TrimSpace(tripID)
	if tripID == "" {
		return 0, fmt.Errorf("save itinerary version: trip id is required: %w", domain.ErrValidation)
	}
	if in.Version < 0 {
		return 0, fmt.Errorf("save itinerary version: version %d: %w", in.Version, domain.ErrValidation)
	}

	now := s.now().UTC()
	err = s.repo.EnsureTrip(ctx, domain.Trip{
		TripID:    tripID,
		GroupName: in.GroupName,
		Region:    in.Meta.Region,
		Days:      in.Meta.Days,
		Tags:      in.Meta.Tags,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return 0, fmt.Errorf("save itinerary version: ensure trip: %w", err)
	}

	var n int
	for attempt := 1; ; attempt++ {
		latest, err := s.repo.MaxVersion(ctx, tripID)
		if err != nil {
			return 0, fmt.Errorf("save itinerary version: read max version: %w", err)
		}
		n = latest + 1
		if in.Version != 0 && in.Version != n {
			return 0, fmt.Errorf("save itinerary version: version %d is not next (want %d): %w", in.Version, n, domain.ErrVersionConflict)
		}

		err = s.repo.InsertVersion(ctx, domain.Version{
			TripID:    tripID,
			Version:   n,
			Plan:      in.Plan.Clone(),
			Meta:      in.Meta,
			CreatedAt: now,
		})
		if err == nil {
			break
		}
		if !errors.Is(err, domain.ErrVersionConflict) || in.Version != 0 || attempt == maxSaveAttempts {
			return 0, fmt.Errorf("save itinerary version: insert version %d: %w", n, err)
		}
		s.log.WarnContext(ctx, "version number taken, retrying", "trip_id", tripID, "version", n, "attempt", attempt)
	}

	if err := s.repo.RecordSaved(ctx, tripID, n); err != nil {
		return 0, fmt.Errorf("save itinerary version: record saved: %w", err)
	}
	return n, nil
}

// Adopt makes version the trip's current itinerary. A missing version is
// logged and ignored; the returned bool reports whether anything changed.
func (s *PlanVersionStore) Adopt(ctx context.Context, tripID string, version int) (_ bool, err error) {
	defer obs.Time(ctx, "versions.Adopt")(&err)

	v, err := s.repo.GetVersion(ctx, tripID, version)
	if errors.Is(err, domain.ErrNotFound) {
		s.log.WarnContext(ctx, "adopt skipped: version not found", "trip_id", tripID, "version", version)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("adopt version %d: %w", version, err)
	}

	err = s.repo.PutAdopted(ctx, domain.AdoptedSnapshot{
		TripID:    tripID,
		Version:   v.Version,
		Plan:      v.Plan.Clone(),
		Meta:      v.Meta,
		AdoptedAt: s.now().UTC(),
	})
	if err != nil {
		return false, fmt.Errorf("adopt version %d: %w", version, err)
	}
	return true, nil
}

// GetAdopted returns the current snapshot, or nil if the trip never adopted anything.
func (s *PlanVersionStore) GetAdopted(ctx context.Context, tripID string) (*domain.AdoptedSnapshot, error) {
	snap, err := s.repo.GetAdopted(ctx, tripID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get adopted: %w", err)
	}
	return &snap, nil
}

// ListVersions returns every version of the trip, newest first.
func (s *PlanVersionStore) ListVersions(ctx context.Context, tripID string) ([]domain.Version, error) {
	vs, err := s.repo.ListVersions(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	return vs, nil
}

// GetTrip returns the bookkeeping record, or domain.ErrNotFound.
func (s *PlanVersionStore) GetTrip(ctx context.Context, tripID string) (domain.Trip, error) {
	t, err := s.repo.GetTrip(ctx, tripID)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("get trip: %w", err)
	}
	return t, nil
}
