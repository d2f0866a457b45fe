package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"itinerary-service/internal/domain"
	"itinerary-service/internal/platform/db"
	"itinerary-service/internal/platform/obs"
	"itinerary-service/internal/ports"
)

type cellKey struct {
	origin, destination string
}

type cachedCell struct {
	seconds, meters float64
}

// SQLTravelCache wraps a TravelMatrixProvider with a SQL-backed cell cache.
// A block is served from the cache only when every cell is present; otherwise
// the whole block is fetched and the answered cells are written back.
// Cache failures are logged and never fail the lookup.
type SQLTravelCache struct {
	DB      *sql.DB
	Dialect db.Dialect
	Next    ports.TravelMatrixProvider

	log *slog.Logger
	now func() time.Time
}

func NewSQLTravelCache(conn *sql.DB, dialect db.Dialect, next ports.TravelMatrixProvider, log *slog.Logger) *SQLTravelCache {
	if log == nil {
		log = slog.Default()
	}
	return &SQLTravelCache{DB: conn, Dialect: dialect, Next: next, log: log, now: time.Now}
}

// Keys are rounded to about one meter so nearby lookups share rows.
func coordKey(c domain.Coordinates) string {
	return fmt.Sprintf("%.5f,%.5f", c.Lat, c.Lon)
}

func (c *SQLTravelCache) FetchMatrix(
	ctx context.Context,
	origins []domain.Coordinates,
	destinations []domain.Coordinates,
	mode domain.TravelMode,
) (ports.MatrixBlock, error) {
	if c.Next == nil {
		return ports.MatrixBlock{}, ports.ErrNoProvider
	}
	if len(origins) == 0 || len(destinations) == 0 {
		return c.Next.FetchMatrix(ctx, origins, destinations, mode)
	}

	hits, err := c.getMany(ctx, origins, destinations, mode)
	if err != nil {
		c.log.WarnContext(ctx, "travel cache read failed", "error", err)
	} else if block, ok := assemble(hits, origins, destinations); ok {
		return block, nil
	}

	block, err := c.Next.FetchMatrix(ctx, origins, destinations, mode)
	if err != nil {
		return block, err
	}

	if err := c.putMany(ctx, block, origins, destinations, mode); err != nil {
		c.log.WarnContext(ctx, "travel cache write failed", "error", err)
	}
	return block, nil
}

func assemble(hits map[cellKey]cachedCell, origins, destinations []domain.Coordinates) (ports.MatrixBlock, bool) {
	rows := make([][]ports.MatrixCell, len(origins))
	for i, o := range origins {
		rows[i] = make([]ports.MatrixCell, len(destinations))
		for j, d := range destinations {
			hit, ok := hits[cellKey{coordKey(o), coordKey(d)}]
			if !ok {
				return ports.MatrixBlock{}, false
			}
			s, m := hit.seconds, hit.meters
			rows[i][j] = ports.MatrixCell{DurationSeconds: &s, DistanceMeters: &m}
		}
	}
	return ports.MatrixBlock{Rows: rows}, true
}

func uniqueKeys(coords []domain.Coordinates) []any {
	seen := make(map[string]struct{}, len(coords))
	out := make([]any, 0, len(coords))
	for _, c := range coords {
		k := coordKey(c)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

func (c *SQLTravelCache) getMany(
	ctx context.Context,
	origins, destinations []domain.Coordinates,
	mode domain.TravelMode,
) (_ map[cellKey]cachedCell, err error) {
	defer obs.Time(ctx, "travel.cache.GetMany")(&err)

	if c.DB == nil {
		return nil, errors.New("travel cache: db is nil")
	}

	originKeys := uniqueKeys(origins)
	destKeys := uniqueKeys(destinations)

	q := fmt.Sprintf(`
	SELECT origin, destination, duration_seconds, distance_meters
	FROM travel_cache
	WHERE mode = %s
		AND origin IN (%s)
		AND destination IN (%s);
	`,
		c.Dialect.Placeholder(1),
		c.Dialect.Placeholders(2, len(originKeys)),
		c.Dialect.Placeholders(2+len(originKeys), len(destKeys)),
	)

	args := make([]any, 0, 1+len(originKeys)+len(destKeys))
	args = append(args, string(mode))
	args = append(args, originKeys...)
	args = append(args, destKeys...)

	rows, err := c.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("get travel cache: query travel_cache table: %w", err)
	}
	defer rows.Close()

	out := make(map[cellKey]cachedCell, len(originKeys)*len(destKeys))
	for rows.Next() {
		var k cellKey
		var v cachedCell
		if err := rows.Scan(&k.origin, &k.destination, &v.seconds, &v.meters); err != nil {
			return nil, fmt.Errorf("get travel cache: scan rows: %w", err)
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get travel cache: row iteration: %w", err)
	}

	return out, nil
}

// putMany stores every cell that carries both a duration and a distance.
func (c *SQLTravelCache) putMany(
	ctx context.Context,
	block ports.MatrixBlock,
	origins, destinations []domain.Coordinates,
	mode domain.TravelMode,
) (err error) {
	defer obs.Time(ctx, "travel.cache.PutMany")(&err)

	if c.DB == nil {
		return errors.New("travel cache: db is nil")
	}

	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert travel cache: db begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, c.Dialect.Rebind(`
	INSERT INTO travel_cache (origin, destination, mode, duration_seconds, distance_meters, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT (origin, destination, mode) DO UPDATE
	SET duration_seconds = EXCLUDED.duration_seconds,
		distance_meters = EXCLUDED.distance_meters,
		updated_at = EXCLUDED.updated_at;
	`))
	if err != nil {
		return fmt.Errorf("insert travel cache: db prepare: %w", err)
	}
	defer stmt.Close()

	now := c.now().UTC()
	for i, row := range block.Rows {
		if i >= len(origins) {
			break
		}
		for j, cell := range row {
			if j >= len(destinations) || cell.DurationSeconds == nil || cell.DistanceMeters == nil {
				continue
			}
			o, d := coordKey(origins[i]), coordKey(destinations[j])
			if _, err := stmt.ExecContext(ctx, o, d, string(mode), *cell.DurationSeconds, *cell.DistanceMeters, now); err != nil {
				return fmt.Errorf("insert travel cache %s->%s: %w", o, d, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert travel cache commit: %w", err)
	}
	return nil
}
