package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"itinerary-service/internal/domain"
	"itinerary-service/internal/platform/db"
	"itinerary-service/internal/ports"
	"itinerary-service/migrations"

	"github.com/pressly/goose/v3"
)

// newMigrator builds a goose provider over the embedded migrations for dialect.
func newMigrator(conn *sql.DB, dialect db.Dialect) (*goose.Provider, error) {
	if conn == nil {
		return nil, errors.New("migrate: DB is nil")
	}

	gd := goose.DialectSQLite3
	if dialect == db.Postgres {
		gd = goose.DialectPostgres
	}

	fsys, err := fs.Sub(migrations.FS, string(dialect))
	if err != nil {
		return nil, fmt.Errorf("migrate: open %s migrations: %w", dialect, err)
	}

	p, err := goose.NewProvider(gd, conn, fsys)
	if err != nil {
		return nil, fmt.Errorf("migrate: create provider: %w", err)
	}
	return p, nil
}

// Migrate applies every pending migration and returns how many ran.
func Migrate(ctx context.Context, conn *sql.DB, dialect db.Dialect) (int, error) {
	p, err := newMigrator(conn, dialect)
	if err != nil {
		return 0, err
	}

	results, err := p.Up(ctx)
	if err != nil {
		return 0, fmt.Errorf("migrate: up: %w", err)
	}
	return len(results), nil
}

// Reset rolls every migration back.
func Reset(ctx context.Context, conn *sql.DB, dialect db.Dialect) error {
	p, err := newMigrator(conn, dialect)
	if err != nil {
		return err
	}

	if _, err := p.DownTo(ctx, 0); err != nil {
		return fmt.Errorf("migrate: reset: %w", err)
	}
	return nil
}

// TripSeed is one entry of a seed file. Each entry becomes the trip's next
// version and, when Adopt is set, its adopted snapshot.
type TripSeed struct {
	TripID    string      `json:"trip_id"`
	GroupName string      `json:"group_name"`
	Plan      domain.Plan `json:"plan"`
	Meta      domain.Meta `json:"meta"`
	Adopt     bool        `json:"adopt"`
}

// SeedFromJSON loads demo trips from a JSON file into any itinerary repository.
// It returns the number of versions written.
func SeedFromJSON(ctx context.Context, repo ports.ItineraryRepository, jsonPath string) (int, error) {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return 0, fmt.Errorf("seed trips: read %q: %w", jsonPath, err)
	}

	var data []TripSeed
	if err := json.Unmarshal(bytes, &data); err != nil {
		return 0, fmt.Errorf("seed trips: parse json: %w", err)
	}

	for i, item := range data {
		if strings.TrimSpace(item.TripID) == "" {
			return 0, fmt.Errorf("seed trips: item at index %d: trip_id cannot be empty", i+1)
		}
	}

	now := time.Now().UTC()
	for _, item := range data {
		tripID := strings.TrimSpace(item.TripID)

		err := repo.EnsureTrip(ctx, domain.Trip{
			TripID:    tripID,
			GroupName: item.GroupName,
			Region:    item.Meta.Region,
			Days:      item.Meta.Days,
			Tags:      item.Meta.Tags,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return 0, fmt.Errorf("seed trips: ensure trip %q: %w", tripID, err)
		}

		latest, err := repo.MaxVersion(ctx, tripID)
		if err != nil {
			return 0, fmt.Errorf("seed trips: max version %q: %w", tripID, err)
		}

		v := domain.Version{TripID: tripID, Version: latest + 1, Plan: item.Plan, Meta: item.Meta, CreatedAt: now}
		if err := repo.InsertVersion(ctx, v); err != nil {
			return 0, fmt.Errorf("seed trips: insert %q v%d: %w", tripID, v.Version, err)
		}
		if err := repo.RecordSaved(ctx, tripID, v.Version); err != nil {
			return 0, fmt.Errorf("seed trips: record saved %q: %w", tripID, err)
		}

		if item.Adopt {
			snap := domain.AdoptedSnapshot{TripID: tripID, Version: v.Version, Plan: v.Plan, Meta: v.Meta, AdoptedAt: now}
			if err := repo.PutAdopted(ctx, snap); err != nil {
				return 0, fmt.Errorf("seed trips: adopt %q v%d: %w", tripID, v.Version, err)
			}
		}
	}

	return len(data), nil
}
