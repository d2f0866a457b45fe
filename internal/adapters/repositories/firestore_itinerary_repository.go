package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"itinerary-service/internal/domain"
	"itinerary-service/internal/platform/obs"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Document layout:
//
//	itineraries/{tripID}                    trip bookkeeping
//	itineraries/{tripID}/versions/{n}       one document per version
//	itineraries/{tripID}/snapshots/adopted  the adopted snapshot
const (
	tripsCollection     = "itineraries"
	versionsCollection  = "versions"
	snapshotsCollection = "snapshots"
	adoptedDoc          = "adopted"
)

type fsTrip struct {
	TripID           string    `firestore:"tripId"`
	GroupName        string    `firestore:"groupName"`
	Region           string    `firestore:"region"`
	Days             int       `firestore:"days"`
	Tags             []string  `firestore:"tags"`
	LastSavedVersion int       `firestore:"lastSavedVersion"`
	AdoptedVersion   int       `firestore:"adoptedVersion"`
	CreatedAt        time.Time `firestore:"createdAt"`
	UpdatedAt        time.Time `firestore:"updatedAt"`
	AdoptedAt        time.Time `firestore:"adoptedAt"`
}

type fsVersion struct {
	Version   int            `firestore:"version"`
	Plan      map[string]any `firestore:"plan"`
	Meta      map[string]any `firestore:"meta"`
	CreatedAt time.Time      `firestore:"createdAt"`
}

type fsSnapshot struct {
	Version   int            `firestore:"version"`
	Plan      map[string]any `firestore:"plan"`
	Meta      map[string]any `firestore:"meta"`
	AdoptedAt time.Time      `firestore:"adoptedAt"`
}

// NewFirestoreClient initializes a Firebase app for projectID and returns its
// Firestore client. FIRESTORE_EMULATOR_HOST is honored by the SDK.
func NewFirestoreClient(ctx context.Context, projectID string, opts ...option.ClientOption) (*firestore.Client, error) {
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("get firestore client: %w", err)
	}
	return client, nil
}

// FirestoreItineraryRepository implements ItineraryRepository on Cloud Firestore.
type FirestoreItineraryRepository struct {
	client *firestore.Client
}

func NewFirestoreItineraryRepository(client *firestore.Client) *FirestoreItineraryRepository {
	return &FirestoreItineraryRepository{client: client}
}

func (r *FirestoreItineraryRepository) trip(tripID string) *firestore.DocumentRef {
	return r.client.Collection(tripsCollection).Doc(tripID)
}

func (r *FirestoreItineraryRepository) EnsureTrip(ctx context.Context, trip domain.Trip) (err error) {
	defer obs.Time(ctx, "itinerary.firestore.EnsureTrip")(&err)

	ref := r.trip(trip.TripID)
	fields := map[string]any{
		"tripId":    trip.TripID,
		"updatedAt": trip.UpdatedAt,
	}
	if trip.GroupName != "" {
		fields["groupName"] = trip.GroupName
	}
	if trip.Region != "" {
		fields["region"] = trip.Region
	}
	if trip.Days > 0 {
		fields["days"] = trip.Days
	}
	if trip.Tags != nil {
		fields["tags"] = trip.Tags
	}

	_, err = ref.Get(ctx)
	switch {
	case status.Code(err) == codes.NotFound:
		fields["createdAt"] = trip.CreatedAt
		fields["lastSavedVersion"] = 0
		fields["adoptedVersion"] = 0
	case err != nil:
		return fmt.Errorf("ensure trip %q: %w", trip.TripID, err)
	}

	if _, err := ref.Set(ctx, fields, firestore.MergeAll); err != nil {
		return fmt.Errorf("ensure trip %q: set: %w", trip.TripID, err)
	}
	return nil
}

func (r *FirestoreItineraryRepository) RecordSaved(ctx context.Context, tripID string, version int) error {
	_, err := r.trip(tripID).Set(ctx, map[string]any{
		"lastSavedVersion": version,
		"updatedAt":        time.Now().UTC(),
	}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("record saved %q: %w", tripID, err)
	}
	return nil
}

func (r *FirestoreItineraryRepository) GetTrip(ctx context.Context, tripID string) (domain.Trip, error) {
	snap, err := r.trip(tripID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return domain.Trip{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Trip{}, fmt.Errorf("get trip %q: %w", tripID, err)
	}

	var doc fsTrip
	if err := snap.DataTo(&doc); err != nil {
		return domain.Trip{}, fmt.Errorf("get trip %q: decode: %w", tripID, err)
	}

	t := domain.Trip{
		TripID:           tripID,
		GroupName:        doc.GroupName,
		Region:           doc.Region,
		Days:             doc.Days,
		Tags:             doc.Tags,
		LastSavedVersion: doc.LastSavedVersion,
		AdoptedVersion:   doc.AdoptedVersion,
		CreatedAt:        doc.CreatedAt,
		UpdatedAt:        doc.UpdatedAt,
	}
	if !doc.AdoptedAt.IsZero() {
		at := doc.AdoptedAt
		t.AdoptedAt = &at
	}
	return t, nil
}

func (r *FirestoreItineraryRepository) MaxVersion(ctx context.Context, tripID string) (int, error) {
	iter := r.trip(tripID).Collection(versionsCollection).
		OrderBy("version", firestore.Desc).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if errors.Is(err, iterator.Done) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("max version %q: %w", tripID, err)
	}

	var doc fsVersion
	if err := snap.DataTo(&doc); err != nil {
		return 0, fmt.Errorf("max version %q: decode: %w", tripID, err)
	}
	return doc.Version, nil
}

// InsertVersion uses Create so a taken document id fails instead of overwriting.
func (r *FirestoreItineraryRepository) InsertVersion(ctx context.Context, v domain.Version) (err error) {
	defer obs.Time(ctx, "itinerary.firestore.InsertVersion")(&err)

	plan, meta, err := toDocs(v.Plan, v.Meta)
	if err != nil {
		return fmt.Errorf("insert version: %w", err)
	}

	ref := r.trip(v.TripID).Collection(versionsCollection).Doc(strconv.Itoa(v.Version))
	_, err = ref.Create(ctx, fsVersion{Version: v.Version, Plan: plan, Meta: meta, CreatedAt: v.CreatedAt})
	if status.Code(err) == codes.AlreadyExists {
		return domain.ErrVersionConflict
	}
	if err != nil {
		return fmt.Errorf("insert version %q v%d: %w", v.TripID, v.Version, err)
	}
	return nil
}

func (r *FirestoreItineraryRepository) GetVersion(ctx context.Context, tripID string, version int) (domain.Version, error) {
	snap, err := r.trip(tripID).Collection(versionsCollection).Doc(strconv.Itoa(version)).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return domain.Version{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Version{}, fmt.Errorf("get version %q v%d: %w", tripID, version, err)
	}
	return decodeVersion(tripID, snap)
}

func (r *FirestoreItineraryRepository) ListVersions(ctx context.Context, tripID string) ([]domain.Version, error) {
	iter := r.trip(tripID).Collection(versionsCollection).
		OrderBy("version", firestore.Desc).
		Documents(ctx)
	defer iter.Stop()

	out := make([]domain.Version, 0, 16)
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list versions %q: %w", tripID, err)
		}
		v, err := decodeVersion(tripID, snap)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (r *FirestoreItineraryRepository) PutAdopted(ctx context.Context, s domain.AdoptedSnapshot) (err error) {
	defer obs.Time(ctx, "itinerary.firestore.PutAdopted")(&err)

	plan, meta, err := toDocs(s.Plan, s.Meta)
	if err != nil {
		return fmt.Errorf("put adopted: %w", err)
	}

	tripRef := r.trip(s.TripID)
	snapRef := tripRef.Collection(snapshotsCollection).Doc(adoptedDoc)

	err = r.client.RunTransaction(ctx, func(_ context.Context, tx *firestore.Transaction) error {
		if err := tx.Set(snapRef, fsSnapshot{Version: s.Version, Plan: plan, Meta: meta, AdoptedAt: s.AdoptedAt}); err != nil {
			return err
		}
		return tx.Set(tripRef, map[string]any{
			"adoptedVersion": s.Version,
			"adoptedAt":      s.AdoptedAt,
			"updatedAt":      s.AdoptedAt,
		}, firestore.MergeAll)
	})
	if err != nil {
		return fmt.Errorf("put adopted %q: %w", s.TripID, err)
	}
	return nil
}

func (r *FirestoreItineraryRepository) GetAdopted(ctx context.Context, tripID string) (domain.AdoptedSnapshot, error) {
	snap, err := r.trip(tripID).Collection(snapshotsCollection).Doc(adoptedDoc).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return domain.AdoptedSnapshot{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.AdoptedSnapshot{}, fmt.Errorf("get adopted %q: %w", tripID, err)
	}

	var doc fsSnapshot
	if err := snap.DataTo(&doc); err != nil {
		return domain.AdoptedSnapshot{}, fmt.Errorf("get adopted %q: decode: %w", tripID, err)
	}

	out := domain.AdoptedSnapshot{TripID: tripID, Version: doc.Version, AdoptedAt: doc.AdoptedAt}
	if err := fromDocs(doc.Plan, doc.Meta, &out.Plan, &out.Meta); err != nil {
		return domain.AdoptedSnapshot{}, fmt.Errorf("get adopted %q: %w", tripID, err)
	}
	return out, nil
}

func decodeVersion(tripID string, snap *firestore.DocumentSnapshot) (domain.Version, error) {
	var doc fsVersion
	if err := snap.DataTo(&doc); err != nil {
		return domain.Version{}, fmt.Errorf("decode version %q/%s: %w", tripID, snap.Ref.ID, err)
	}

	v := domain.Version{TripID: tripID, Version: doc.Version, CreatedAt: doc.CreatedAt}
	if err := fromDocs(doc.Plan, doc.Meta, &v.Plan, &v.Meta); err != nil {
		return domain.Version{}, fmt.Errorf("decode version %q/%s: %w", tripID, snap.Ref.ID, err)
	}
	return v, nil
}

// toDocs maps plan and meta onto Firestore maps through their JSON form so the
// stored field names match the HTTP API.
func toDocs(plan domain.Plan, meta domain.Meta) (map[string]any, map[string]any, error) {
	p, m, err := encodeDocs(plan, meta)
	if err != nil {
		return nil, nil, err
	}

	var pm, mm map[string]any
	if err := json.Unmarshal([]byte(p), &pm); err != nil {
		return nil, nil, fmt.Errorf("plan to map: %w", err)
	}
	if err := json.Unmarshal([]byte(m), &mm); err != nil {
		return nil, nil, fmt.Errorf("meta to map: %w", err)
	}
	return pm, mm, nil
}

func fromDocs(pm, mm map[string]any, plan *domain.Plan, meta *domain.Meta) error {
	p, err := json.Marshal(pm)
	if err != nil {
		return fmt.Errorf("plan from map: %w", err)
	}
	m, err := json.Marshal(mm)
	if err != nil {
		return fmt.Errorf("meta from map: %w", err)
	}
	return decodeDocs(p, m, plan, meta)
}
