package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"itinerary-service/internal/adapters/repositories"
	"itinerary-service/internal/config"
	"itinerary-service/internal/platform/db"

	"github.com/joho/godotenv"
)

const usage = `usage: dbtool [migrate|reset|seed]

  migrate  apply pending migrations (default)
  reset    roll every migration back, then apply them again
  seed     apply migrations, then load SEED_PATH

STORE selects sqlite (DB_PATH) or postgres (DATABASE_URL).`

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()

	cmd := flag.Arg(0)
	if cmd == "" {
		cmd = "migrate"
	}

	if err := run(context.Background(), cmd); err != nil {
		slog.Error("dbtool failed", "command", cmd, "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd string) error {
	conn, dialect, err := open()
	if err != nil {
		return err
	}
	defer conn.Close()

	switch cmd {
	case "migrate":
		return migrate(ctx, conn, dialect)

	case "reset":
		slog.Info("rolling back schema")
		if err := repositories.Reset(ctx, conn, dialect); err != nil {
			return err
		}
		return migrate(ctx, conn, dialect)

	case "seed":
		if err := migrate(ctx, conn, dialect); err != nil {
			return err
		}
		seedPath := config.Get("SEED_PATH", "data/seeds/trips.json")
		n, err := repositories.SeedFromJSON(ctx, repositories.NewSQLItineraryRepository(conn, dialect), seedPath)
		if err != nil {
			return err
		}
		slog.Info("seeding complete", "path", seedPath, "versions", n)
		return nil
	}

	flag.Usage()
	return fmt.Errorf("unknown command %q", cmd)
}

func migrate(ctx context.Context, conn *sql.DB, dialect db.Dialect) error {
	n, err := repositories.Migrate(ctx, conn, dialect)
	if err != nil {
		return err
	}
	slog.Info("schema ready", "dialect", string(dialect), "migrations_applied", n)
	return nil
}

func open() (*sql.DB, db.Dialect, error) {
	switch store := config.Get("STORE", config.StoreSQLite); store {
	case config.StorePostgres:
		url := config.Get("DATABASE_URL", "")
		if url == "" {
			return nil, "", fmt.Errorf("DATABASE_URL is required")
		}
		conn, err := db.Open(url)
		return conn, db.Postgres, err
	case config.StoreSQLite:
		conn, err := db.OpenSQLite(config.Get("DB_PATH", "data/app.db"))
		return conn, db.SQLite, err
	default:
		return nil, "", fmt.Errorf("dbtool supports sqlite and postgres stores, got %q", store)
	}
}
