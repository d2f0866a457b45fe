package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"itinerary-service/internal/domain"
	"itinerary-service/internal/platform/db"
	"itinerary-service/internal/platform/obs"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const pgUniqueViolation = "23505"

// SQLItineraryRepository implements ItineraryRepository on SQLite or Postgres.
// Plans and metadata are stored as JSON documents.
type SQLItineraryRepository struct {
	DB      *sql.DB
	Dialect db.Dialect
}

func NewSQLItineraryRepository(conn *sql.DB, dialect db.Dialect) *SQLItineraryRepository {
	return &SQLItineraryRepository{DB: conn, Dialect: dialect}
}

func (r *SQLItineraryRepository) q(query string) string { return r.Dialect.Rebind(query) }

func (r *SQLItineraryRepository) EnsureTrip(ctx context.Context, trip domain.Trip) (err error) {
	defer obs.Time(ctx, "itinerary.sql.EnsureTrip")(&err)

	if r.DB == nil {
		return errors.New("sql itinerary repository: DB is nil")
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ensure trip: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	cur, err := scanTrip(tx.QueryRowContext(ctx, r.q(selectTrip), trip.TripID))
	switch {
	case errors.Is(err, domain.ErrNotFound):
		cur = domain.Trip{TripID: trip.TripID, CreatedAt: trip.CreatedAt}
	case err != nil:
		return fmt.Errorf("ensure trip: load %q: %w", trip.TripID, err)
	}
	mergeTrip(&cur, trip)

	tags, err := json.Marshal(nonNilTags(cur.Tags))
	if err != nil {
		return fmt.Errorf("ensure trip: marshal tags: %w", err)
	}

	_, err = tx.ExecContext(ctx, r.q(`
	INSERT INTO trips (trip_id, group_name, region, days, tags, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (trip_id) DO UPDATE
	SET group_name = excluded.group_name,
		region = excluded.region,
		days = excluded.days,
		tags = excluded.tags,
		updated_at = excluded.updated_at;
	`), cur.TripID, cur.GroupName, cur.Region, cur.Days, string(tags), cur.CreatedAt.UTC(), cur.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("ensure trip: upsert %q: %w", trip.TripID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ensure trip: commit tx: %w", err)
	}
	return nil
}

func (r *SQLItineraryRepository) RecordSaved(ctx context.Context, tripID string, version int) error {
	res, err := r.DB.ExecContext(ctx, r.q(`
	UPDATE trips SET last_saved_version = ?, updated_at = ? WHERE trip_id = ?;
	`), version, time.Now().UTC(), tripID)
	if err != nil {
		return fmt.Errorf("record saved: update trip %q: %w", tripID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("record saved: trip %q: %w", tripID, domain.ErrNotFound)
	}
	return nil
}

const selectTrip = `
	SELECT trip_id, group_name, region, days, CAST(tags AS TEXT),
		last_saved_version, adopted_version, created_at, updated_at, adopted_at
	FROM trips
	WHERE trip_id = ?;
	`

func (r *SQLItineraryRepository) GetTrip(ctx context.Context, tripID string) (domain.Trip, error) {
	t, err := scanTrip(r.DB.QueryRowContext(ctx, r.q(selectTrip), tripID))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("get trip %q: %w", tripID, err)
	}
	return t, nil
}

func scanTrip(row *sql.Row) (domain.Trip, error) {
	var (
		t                domain.Trip
		tags             []byte
		created, updated db.Time
		adoptedAt        db.Time
	)
	err := row.Scan(&t.TripID, &t.GroupName, &t.Region, &t.Days, &tags,
		&t.LastSavedVersion, &t.AdoptedVersion, &created, &updated, &adoptedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Trip{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Trip{}, err
	}

	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &t.Tags); err != nil {
			return domain.Trip{}, fmt.Errorf("decode tags: %w", err)
		}
	}
	t.CreatedAt = created.Time
	t.UpdatedAt = updated.Time
	if adoptedAt.Valid {
		at := adoptedAt.Time
		t.AdoptedAt = &at
	}
	return t, nil
}

func (r *SQLItineraryRepository) MaxVersion(ctx context.Context, tripID string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, r.q(`
	SELECT COALESCE(MAX(version), 0) FROM itinerary_versions WHERE trip_id = ?;
	`), tripID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("max version %q: %w", tripID, err)
	}
	return n, nil
}

// InsertVersion never overwrites: a taken (trip_id, version) key is reported
// as domain.ErrVersionConflict.
func (r *SQLItineraryRepository) InsertVersion(ctx context.Context, v domain.Version) (err error) {
	defer obs.Time(ctx, "itinerary.sql.InsertVersion")(&err)

	plan, meta, err := encodeDocs(v.Plan, v.Meta)
	if err != nil {
		return fmt.Errorf("insert version: %w", err)
	}

	_, err = r.DB.ExecContext(ctx, r.q(`
	INSERT INTO itinerary_versions (trip_id, version, plan, meta, created_at)
	VALUES (?, ?, ?, ?, ?);
	`), v.TripID, v.Version, plan, meta, v.CreatedAt.UTC())
	if isUniqueViolation(err) {
		return domain.ErrVersionConflict
	}
	if err != nil {
		return fmt.Errorf("insert version %q v%d: %w", v.TripID, v.Version, err)
	}
	return nil
}

func (r *SQLItineraryRepository) GetVersion(ctx context.Context, tripID string, version int) (domain.Version, error) {
	var (
		v          = domain.Version{TripID: tripID, Version: version}
		plan, meta []byte
		created    db.Time
	)
	err := r.DB.QueryRowContext(ctx, r.q(`
	SELECT CAST(plan AS TEXT), CAST(meta AS TEXT), created_at
	FROM itinerary_versions
	WHERE trip_id = ? AND version = ?;
	`), tripID, version).Scan(&plan, &meta, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Version{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Version{}, fmt.Errorf("get version %q v%d: %w", tripID, version, err)
	}

	if err := decodeDocs(plan, meta, &v.Plan, &v.Meta); err != nil {
		return domain.Version{}, fmt.Errorf("get version %q v%d: %w", tripID, version, err)
	}
	v.CreatedAt = created.Time
	return v, nil
}

func (r *SQLItineraryRepository) ListVersions(ctx context.Context, tripID string) ([]domain.Version, error) {
	rows, err := r.DB.QueryContext(ctx, r.q(`
	SELECT version, CAST(plan AS TEXT), CAST(meta AS TEXT), created_at
	FROM itinerary_versions
	WHERE trip_id = ?
	ORDER BY version DESC;
	`), tripID)
	if err != nil {
		return nil, fmt.Errorf("list versions: query itinerary_versions table: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Version, 0, 16)
	for rows.Next() {
		var (
			v          = domain.Version{TripID: tripID}
			plan, meta []byte
			created    db.Time
		)
		if err := rows.Scan(&v.Version, &plan, &meta, &created); err != nil {
			return nil, fmt.Errorf("list versions: scan row: %w", err)
		}
		if err := decodeDocs(plan, meta, &v.Plan, &v.Meta); err != nil {
			return nil, fmt.Errorf("list versions: v%d: %w", v.Version, err)
		}
		v.CreatedAt = created.Time
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list versions: row iteration: %w", err)
	}

	return out, nil
}

// PutAdopted overwrites the snapshot and the trip's adopted marker in one transaction.
func (r *SQLItineraryRepository) PutAdopted(ctx context.Context, snap domain.AdoptedSnapshot) (err error) {
	defer obs.Time(ctx, "itinerary.sql.PutAdopted")(&err)

	plan, meta, err := encodeDocs(snap.Plan, snap.Meta)
	if err != nil {
		return fmt.Errorf("put adopted: %w", err)
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("put adopted: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	at := snap.AdoptedAt.UTC()
	_, err = tx.ExecContext(ctx, r.q(`
	INSERT INTO adopted_snapshots (trip_id, version, plan, meta, adopted_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT (trip_id) DO UPDATE
	SET version = excluded.version,
		plan = excluded.plan,
		meta = excluded.meta,
		adopted_at = excluded.adopted_at;
	`), snap.TripID, snap.Version, plan, meta, at)
	if err != nil {
		return fmt.Errorf("put adopted: upsert snapshot %q: %w", snap.TripID, err)
	}

	_, err = tx.ExecContext(ctx, r.q(`
	UPDATE trips SET adopted_version = ?, adopted_at = ?, updated_at = ? WHERE trip_id = ?;
	`), snap.Version, at, at, snap.TripID)
	if err != nil {
		return fmt.Errorf("put adopted: update trip %q: %w", snap.TripID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("put adopted: commit tx: %w", err)
	}
	return nil
}

func (r *SQLItineraryRepository) GetAdopted(ctx context.Context, tripID string) (domain.AdoptedSnapshot, error) {
	var (
		s          = domain.AdoptedSnapshot{TripID: tripID}
		plan, meta []byte
		at         db.Time
	)
	err := r.DB.QueryRowContext(ctx, r.q(`
	SELECT version, CAST(plan AS TEXT), CAST(meta AS TEXT), adopted_at
	FROM adopted_snapshots
	WHERE trip_id = ?;
	`), tripID).Scan(&s.Version, &plan, &meta, &at)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.AdoptedSnapshot{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.AdoptedSnapshot{}, fmt.Errorf("get adopted %q: %w", tripID, err)
	}

	if err := decodeDocs(plan, meta, &s.Plan, &s.Meta); err != nil {
		return domain.AdoptedSnapshot{}, fmt.Errorf("get adopted %q: %w", tripID, err)
	}
	s.AdoptedAt = at.Time
	return s, nil
}

func encodeDocs(plan domain.Plan, meta domain.Meta) (string, string, error) {
	p, err := json.Marshal(plan)
	if err != nil {
		return "", "", fmt.Errorf("marshal plan: %w", err)
	}
	m, err := json.Marshal(meta)
	if err != nil {
		return "", "", fmt.Errorf("marshal meta: %w", err)
	}
	return string(p), string(m), nil
}

func decodeDocs(planJSON, metaJSON []byte, plan *domain.Plan, meta *domain.Meta) error {
	if err := json.Unmarshal(planJSON, plan); err != nil {
		return fmt.Errorf("decode plan: %w", err)
	}
	if err := json.Unmarshal(metaJSON, meta); err != nil {
		return fmt.Errorf("decode meta: %w", err)
	}
	return nil
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

// isUniqueViolation recognizes duplicate-key errors from both drivers.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}

	var sqErr *sqlite.Error
	if errors.As(err, &sqErr) {
		switch sqErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}

	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
