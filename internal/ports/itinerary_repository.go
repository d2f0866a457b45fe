package ports

import (
	"context"
	"itinerary-service/internal/domain"
)

// Port: persistence boundary for the per-trip version history and adopted snapshot.
// All operations are keyed by an opaque trip identifier.
type ItineraryRepository interface {
	// Create the trip record if missing and merge the given descriptive fields.
	EnsureTrip(ctx context.Context, trip domain.Trip) error
	// Record the most recently saved version number on the trip.
	RecordSaved(ctx context.Context, tripID string, version int) error
	// Return trip bookkeeping, or domain.ErrNotFound.
	GetTrip(ctx context.Context, tripID string) (domain.Trip, error)

	// Return the highest version number stored for the trip, 0 when none.
	MaxVersion(ctx context.Context, tripID string) (int, error)
	// Persist a new version. Returns domain.ErrVersionConflict if the number is taken.
	InsertVersion(ctx context.Context, v domain.Version) error
	// Return one version, or domain.ErrNotFound.
	GetVersion(ctx context.Context, tripID string, version int) (domain.Version, error)
	// Return all versions for the trip, newest first.
	ListVersions(ctx context.Context, tripID string) ([]domain.Version, error)

	// Overwrite the trip's single adopted snapshot and mark its adopted version.
	PutAdopted(ctx context.Context, snap domain.AdoptedSnapshot) error
	// Return the adopted snapshot, or domain.ErrNotFound.
	GetAdopted(ctx context.Context, tripID string) (domain.AdoptedSnapshot, error)
}
