package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"itinerary-service/internal/adapters/repositories"
	"itinerary-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// conflictRepo reports a conflict for the first n inserts.
type conflictRepo struct {
	*repositories.MemoryItineraryRepository
	mu        sync.Mutex
	conflicts int
	insertErr error
}

func (r *conflictRepo) InsertVersion(ctx context.Context, v domain.Version) error {
	r.mu.Lock()
	if r.insertErr != nil {
		r.mu.Unlock()
		return r.insertErr
	}
	if r.conflicts > 0 {
		r.conflicts--
		r.mu.Unlock()
		// A competing writer claims the number first.
		_ = r.MemoryItineraryRepository.InsertVersion(ctx, v)
		return domain.ErrVersionConflict
	}
	r.mu.Unlock()
	return r.MemoryItineraryRepository.InsertVersion(ctx, v)
}

func planNamed(name string) domain.Plan {
	return domain.Plan{DayPlans: []domain.DayPlan{{Day: 1, Stops: []domain.Stop{{ID: name, Name: name}}}}}
}

func TestSaveVersionMonotonic(t *testing.T) {
	ctx := context.Background()
	store := NewPlanVersionStore(repositories.NewMemoryItineraryRepository(), nil)

	for want := 1; want <= 5; want++ {
		got, err := store.SaveVersion(ctx, "g1", SaveInput{Plan: planNamed("x"), Meta: domain.Meta{Days: 1}})
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	vs, err := store.ListVersions(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, vs, 5)
	assert.Equal(t, 5, vs[0].Version)
	assert.Equal(t, 1, vs[4].Version)

	trip, err := store.GetTrip(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 5, trip.LastSavedVersion)
	assert.Equal(t, 5, trip.AdoptedVersion)
}

func TestAdoptOlderVersion(t *testing.T) {
	ctx := context.Background()
	store := NewPlanVersionStore(repositories.NewMemoryItineraryRepository(), nil)

	for _, name := range []string{"v1", "v2", "v3"} {
		_, err := store.SaveVersion(ctx, "g1", SaveInput{Plan: planNamed(name)})
		require.NoError(t, err)
	}

	changed, err := store.Adopt(ctx, "g1", 2)
	require.NoError(t, err)
	assert.True(t, changed)

	snap, err := store.GetAdopted(ctx, "g1")
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, 2, snap.Version)
	assert.Equal(t, "v2", snap.Plan.DayPlans[0].Stops[0].Name)
}

func TestAdoptMissingVersionIsNoop(t *testing.T) {
	ctx := context.Background()
	store := NewPlanVersionStore(repositories.NewMemoryItineraryRepository(), nil)

	_, err := store.SaveVersion(ctx, "g1", SaveInput{Plan: planNamed("v1")})
	require.NoError(t, err)

	changed, err := store.Adopt(ctx, "g1", 42)
	require.NoError(t, err)
	assert.False(t, changed)

	snap, err := store.GetAdopted(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Version)
}

func TestGetAdoptedNeverSaved(t *testing.T) {
	store := NewPlanVersionStore(repositories.NewMemoryItineraryRepository(), nil)

	snap, err := store.GetAdopted(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestSaveItineraryVersionDoesNotAdopt(t *testing.T) {
	ctx := context.Background()
	store := NewPlanVersionStore(repositories.NewMemoryItineraryRepository(), nil)

	_, err := store.SaveVersion(ctx, "g1", SaveInput{Plan: planNamed("v1")})
	require.NoError(t, err)
	n, err := store.SaveItineraryVersion(ctx, "g1", SaveInput{Plan: planNamed("v2")})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	snap, err := store.GetAdopted(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Version)
}

func TestSaveExplicitVersionMustBeNext(t *testing.T) {
	ctx := context.Background()
	store := NewPlanVersionStore(repositories.NewMemoryItineraryRepository(), nil)

	_, err := store.SaveItineraryVersion(ctx, "g1", SaveInput{Plan: planNamed("v7"), Version: 7})
	assert.ErrorIs(t, err, domain.ErrVersionConflict, "a new trip starts at 1")

	n, err := store.SaveItineraryVersion(ctx, "g1", SaveInput{Plan: planNamed("v1"), Version: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	for i := 2; i <= 8; i++ {
		_, err := store.SaveItineraryVersion(ctx, "g1", SaveInput{Plan: planNamed("auto")})
		require.NoError(t, err)
	}

	_, err = store.SaveItineraryVersion(ctx, "g1", SaveInput{Plan: planNamed("stale"), Version: 3})
	assert.ErrorIs(t, err, domain.ErrVersionConflict)
	_, err = store.SaveItineraryVersion(ctx, "g1", SaveInput{Plan: planNamed("gap"), Version: 10})
	assert.ErrorIs(t, err, domain.ErrVersionConflict)

	n, err = store.SaveItineraryVersion(ctx, "g1", SaveInput{Plan: planNamed("v9"), Version: 9})
	require.NoError(t, err)
	assert.Equal(t, 9, n)

	vs, err := store.ListVersions(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, vs, 9)
	for i, v := range vs {
		assert.Equal(t, 9-i, v.Version)
	}
}

func TestSaveRetriesOnConflict(t *testing.T) {
	repo := &conflictRepo{MemoryItineraryRepository: repositories.NewMemoryItineraryRepository(), conflicts: 2}
	store := NewPlanVersionStore(repo, nil)

	n, err := store.SaveItineraryVersion(context.Background(), "g1", SaveInput{Plan: planNamed("mine")})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestSaveGivesUpAfterRepeatedConflicts(t *testing.T) {
	repo := &conflictRepo{MemoryItineraryRepository: repositories.NewMemoryItineraryRepository(), conflicts: maxSaveAttempts}
	store := NewPlanVersionStore(repo, nil)

	_, err := store.SaveItineraryVersion(context.Background(), "g1", SaveInput{Plan: planNamed("mine")})
	assert.ErrorIs(t, err, domain.ErrVersionConflict)
}

func TestSavePersistenceFailure(t *testing.T) {
	boom := errors.New("disk full")
	repo := &conflictRepo{MemoryItineraryRepository: repositories.NewMemoryItineraryRepository(), insertErr: boom}
	store := NewPlanVersionStore(repo, nil)

	_, err := store.SaveVersion(context.Background(), "g1", SaveInput{Plan: planNamed("x")})
	assert.ErrorIs(t, err, boom)

	_, err = store.SaveVersion(context.Background(), " ", SaveInput{})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestConcurrentSavesNeverCollide(t *testing.T) {
	ctx := context.Background()
	store := NewPlanVersionStore(repositories.NewMemoryItineraryRepository(), nil)

	var wg sync.WaitGroup
	for range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = store.SaveItineraryVersion(ctx, "g1", SaveInput{Plan: planNamed("c")})
		}()
	}
	wg.Wait()

	vs, err := store.ListVersions(ctx, "g1")
	require.NoError(t, err)
	seen := map[int]bool{}
	for _, v := range vs {
		assert.False(t, seen[v.Version])
		seen[v.Version] = true
	}
}
