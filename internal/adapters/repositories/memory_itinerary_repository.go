package repositories

import (
	"context"
	"slices"
	"sync"
	"time"

	"itinerary-service/internal/domain"
)

// MemoryItineraryRepository keeps everything in process memory. Safe for concurrent use.
type MemoryItineraryRepository struct {
	mu       sync.Mutex
	trips    map[string]domain.Trip
	versions map[string]map[int]domain.Version
	adopted  map[string]domain.AdoptedSnapshot
}

func NewMemoryItineraryRepository() *MemoryItineraryRepository {
	return &MemoryItineraryRepository{
		trips:    make(map[string]domain.Trip),
		versions: make(map[string]map[int]domain.Version),
		adopted:  make(map[string]domain.AdoptedSnapshot),
	}
}

func (r *MemoryItineraryRepository) EnsureTrip(_ context.Context, trip domain.Trip) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.trips[trip.TripID]
	if !ok {
		cur = domain.Trip{TripID: trip.TripID, CreatedAt: trip.CreatedAt}
	}
	mergeTrip(&cur, trip)
	r.trips[trip.TripID] = cur
	return nil
}

func (r *MemoryItineraryRepository) RecordSaved(_ context.Context, tripID string, version int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.trips[tripID]
	if !ok {
		return domain.ErrNotFound
	}
	t.LastSavedVersion = version
	t.UpdatedAt = time.Now().UTC()
	r.trips[tripID] = t
	return nil
}

func (r *MemoryItineraryRepository) GetTrip(_ context.Context, tripID string) (domain.Trip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.trips[tripID]
	if !ok {
		return domain.Trip{}, domain.ErrNotFound
	}
	t.Tags = slices.Clone(t.Tags)
	return t, nil
}

func (r *MemoryItineraryRepository) MaxVersion(_ context.Context, tripID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for v := range r.versions[tripID] {
		n = max(n, v)
	}
	return n, nil
}

func (r *MemoryItineraryRepository) InsertVersion(_ context.Context, v domain.Version) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	byNum, ok := r.versions[v.TripID]
	if !ok {
		byNum = make(map[int]domain.Version)
		r.versions[v.TripID] = byNum
	}
	if _, taken := byNum[v.Version]; taken {
		return domain.ErrVersionConflict
	}
	v.Plan = v.Plan.Clone()
	byNum[v.Version] = v
	return nil
}

func (r *MemoryItineraryRepository) GetVersion(_ context.Context, tripID string, version int) (domain.Version, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.versions[tripID][version]
	if !ok {
		return domain.Version{}, domain.ErrNotFound
	}
	v.Plan = v.Plan.Clone()
	return v, nil
}

func (r *MemoryItineraryRepository) ListVersions(_ context.Context, tripID string) ([]domain.Version, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.Version, 0, len(r.versions[tripID]))
	for _, v := range r.versions[tripID] {
		v.Plan = v.Plan.Clone()
		out = append(out, v)
	}
	slices.SortFunc(out, func(a, b domain.Version) int { return b.Version - a.Version })
	return out, nil
}

func (r *MemoryItineraryRepository) PutAdopted(_ context.Context, snap domain.AdoptedSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap.Plan = snap.Plan.Clone()
	r.adopted[snap.TripID] = snap

	t := r.trips[snap.TripID]
	t.TripID = snap.TripID
	t.AdoptedVersion = snap.Version
	at := snap.AdoptedAt
	t.AdoptedAt = &at
	t.UpdatedAt = snap.AdoptedAt
	r.trips[snap.TripID] = t
	return nil
}

func (r *MemoryItineraryRepository) GetAdopted(_ context.Context, tripID string) (domain.AdoptedSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap, ok := r.adopted[tripID]
	if !ok {
		return domain.AdoptedSnapshot{}, domain.ErrNotFound
	}
	snap.Plan = snap.Plan.Clone()
	return snap, nil
}

// mergeTrip copies the descriptive fields that are set in src.
func mergeTrip(dst *domain.Trip, src domain.Trip) {
	if src.GroupName != "" {
		dst.GroupName = src.GroupName
	}
	if src.Region != "" {
		dst.Region = src.Region
	}
	if src.Days > 0 {
		dst.Days = src.Days
	}
	if src.Tags != nil {
		dst.Tags = slices.Clone(src.Tags)
	}
	if dst.CreatedAt.IsZero() {
		dst.CreatedAt = src.CreatedAt
	}
	dst.UpdatedAt = src.UpdatedAt
}
