package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"itinerary-service/internal/adapters/cache"
	"itinerary-service/internal/adapters/repositories"
	"itinerary-service/internal/adapters/suggestions"
	"itinerary-service/internal/adapters/travel"
	"itinerary-service/internal/api"
	"itinerary-service/internal/config"
	"itinerary-service/internal/platform/db"
	"itinerary-service/internal/ports"
	"itinerary-service/internal/services"

	"github.com/joho/godotenv"
	"google.golang.org/api/option"
)

// main is the application composition root.
// It wires concrete adapters behind ports and starts the HTTP server.
func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, conn, dialect, closer, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	provider, err := openProvider(cfg, conn, dialect, logger)
	if err != nil {
		return err
	}

	var source ports.SuggestionSource
	if cfg.OpenAIAPIKey != "" {
		source = suggestions.NewOpenAISuggestionSource(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL, nil)
	} else {
		logger.Info("OPENAI_API_KEY not set, plan generation disabled")
	}

	tts := services.NewTravelTimeService(provider, services.TravelTimeOptions{
		BatchSize: cfg.TravelBatchSize,
		Timeout:   cfg.TravelTimeout,
	}, logger)
	engine := services.NewReconciliationEngine(tts, services.ReconcileConfig{
		BufferMinutes:     cfg.RescheduleBufferMinutes,
		LiveMarginMinutes: cfg.LiveTravelMarginMinutes,
	}, logger)
	versions := services.NewPlanVersionStore(repo, logger)
	planner := services.NewItineraryPlanner(tts, engine, versions, source, logger)

	router := api.NewRouter(api.Deps{
		Travel:      tts,
		Engine:      engine,
		Versions:    versions,
		Planner:     planner,
		Log:         logger,
		CORSOrigins: cfg.CORSOrigins,
	})

	// Write timeout leaves room for a cold provider call plus a suggestion round trip.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr, "store", cfg.Store, "travel_provider", cfg.TravelProvider)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openStore returns the itinerary repository for cfg.Store. conn is nil unless
// the store is SQL-backed.
func openStore(ctx context.Context, cfg config.Config) (ports.ItineraryRepository, *sql.DB, db.Dialect, io.Closer, error) {
	switch cfg.Store {
	case config.StoreMemory:
		return repositories.NewMemoryItineraryRepository(), nil, "", nopCloser{}, nil

	case config.StoreFirestore:
		var opts []option.ClientOption
		if path := config.Get("FIRESTORE_CREDENTIALS_FILE", ""); path != "" {
			opts = append(opts, option.WithCredentialsFile(path))
		}
		client, err := repositories.NewFirestoreClient(ctx, cfg.FirestoreProjectID, opts...)
		if err != nil {
			return nil, nil, "", nil, err
		}
		return repositories.NewFirestoreItineraryRepository(client), nil, "", client, nil
	}

	var (
		conn    *sql.DB
		dialect db.Dialect
		err     error
	)
	if cfg.Store == config.StorePostgres {
		conn, err = db.Open(cfg.DatabaseURL)
		dialect = db.Postgres
	} else {
		if dir := dirOf(cfg.DBPath); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, "", nil, fmt.Errorf("open store: create %q: %w", dir, err)
			}
		}
		conn, err = db.OpenSQLite(cfg.DBPath)
		dialect = db.SQLite
	}
	if err != nil {
		return nil, nil, "", nil, err
	}

	n, err := repositories.Migrate(ctx, conn, dialect)
	if err != nil {
		conn.Close()
		return nil, nil, "", nil, err
	}
	slog.Info("database ready", "dialect", string(dialect), "migrations_applied", n)

	return repositories.NewSQLItineraryRepository(conn, dialect), conn, dialect, conn, nil
}

// openProvider returns the remote matrix provider, wrapped in the SQL travel
// cache when enabled. A nil provider keeps estimates local.
func openProvider(cfg config.Config, conn *sql.DB, dialect db.Dialect, logger *slog.Logger) (ports.TravelMatrixProvider, error) {
	var (
		provider ports.TravelMatrixProvider
		err      error
	)
	switch cfg.TravelProvider {
	case config.ProviderGoogle:
		provider, err = travel.NewGoogleMatrixProvider(cfg.GoogleMapsAPIKey, nil)
	case config.ProviderORS:
		provider, err = travel.NewORSMatrixProvider(cfg.ORSAPIKey, nil)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open travel provider %q: %w", cfg.TravelProvider, err)
	}

	if cfg.TravelCache && cfg.UsesSQL() && conn != nil {
		return cache.NewSQLTravelCache(conn, dialect, provider, logger), nil
	}
	return provider, nil
}

func dirOf(path string) string {
	if path == ":memory:" {
		return ""
	}
	if dir := filepath.Dir(path); dir != "." {
		return dir
	}
	return ""
}
