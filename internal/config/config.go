// Package config loads and validates application configuration from environment variables.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends selectable with STORE.
const (
	StoreMemory    = "memory"
	StoreSQLite    = "sqlite"
	StorePostgres  = "postgres"
	StoreFirestore = "firestore"
)

// Travel providers selectable with TRAVEL_PROVIDER.
const (
	ProviderNone   = "none"
	ProviderGoogle = "google"
	ProviderORS    = "ors"
)

// Config holds all configuration values for the API server.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// LogLevel controls the minimum log level. Defaults to "info".
	LogLevel string

	// CORSOrigins is the list of allowed cross-origin request origins.
	CORSOrigins []string

	// Store picks the itinerary repository. Defaults to sqlite.
	Store              string
	DBPath             string
	DatabaseURL        string
	FirestoreProjectID string

	// TravelProvider picks the remote matrix API. "none" keeps estimates local.
	TravelProvider   string
	GoogleMapsAPIKey string
	ORSAPIKey        string
	TravelBatchSize  int
	TravelTimeout    time.Duration
	// TravelCache puts the SQL travel cache in front of the provider when the store is SQL.
	TravelCache bool

	RescheduleBufferMinutes int
	LiveTravelMarginMinutes int

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string
}

// Load reads configuration from environment variables and returns a Config.
// Returns an error listing any required variables that are not set or malformed.
func Load() (Config, error) {
	cfg := Config{
		Port:               Get("PORT", "8080"),
		LogLevel:           Get("LOG_LEVEL", "info"),
		CORSOrigins:        splitCSV(Get("CORS_ORIGINS", "http://localhost:5173")),
		Store:              strings.ToLower(Get("STORE", StoreSQLite)),
		DBPath:             Get("DB_PATH", "data/app.db"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		FirestoreProjectID: os.Getenv("FIRESTORE_PROJECT_ID"),
		TravelProvider:     strings.ToLower(Get("TRAVEL_PROVIDER", ProviderNone)),
		GoogleMapsAPIKey:   os.Getenv("GOOGLE_MAPS_API_KEY"),
		ORSAPIKey:          os.Getenv("ORS_API_KEY"),
		OpenAIAPIKey:       os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:        Get("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:      Get("OPENAI_BASE_URL", "https://api.openai.com/v1"),
	}

	var missing, invalid []string

	switch cfg.Store {
	case StoreMemory, StoreSQLite:
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
	case StoreFirestore:
		if cfg.FirestoreProjectID == "" {
			missing = append(missing, "FIRESTORE_PROJECT_ID")
		}
	default:
		invalid = append(invalid, "STORE")
	}

	switch cfg.TravelProvider {
	case ProviderNone:
	case ProviderGoogle:
		if cfg.GoogleMapsAPIKey == "" {
			missing = append(missing, "GOOGLE_MAPS_API_KEY")
		}
	case ProviderORS:
		if cfg.ORSAPIKey == "" {
			missing = append(missing, "ORS_API_KEY")
		}
	default:
		invalid = append(invalid, "TRAVEL_PROVIDER")
	}

	var err error
	if cfg.TravelBatchSize, err = getInt("TRAVEL_BATCH_SIZE", 25); err != nil || cfg.TravelBatchSize <= 0 {
		invalid = append(invalid, "TRAVEL_BATCH_SIZE")
	}
	if cfg.TravelTimeout, err = time.ParseDuration(Get("TRAVEL_TIMEOUT", "10s")); err != nil {
		invalid = append(invalid, "TRAVEL_TIMEOUT")
	}
	if cfg.TravelCache, err = strconv.ParseBool(Get("TRAVEL_CACHE", "true")); err != nil {
		invalid = append(invalid, "TRAVEL_CACHE")
	}
	if cfg.RescheduleBufferMinutes, err = getInt("RESCHEDULE_BUFFER_MINUTES", 15); err != nil || cfg.RescheduleBufferMinutes < 0 {
		invalid = append(invalid, "RESCHEDULE_BUFFER_MINUTES")
	}
	if cfg.LiveTravelMarginMinutes, err = getInt("LIVE_TRAVEL_MARGIN_MINUTES", 10); err != nil || cfg.LiveTravelMarginMinutes < 0 {
		invalid = append(invalid, "LIVE_TRAVEL_MARGIN_MINUTES")
	}

	var problems []string
	if len(missing) > 0 {
		problems = append(problems, "required environment variables not set: "+strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		problems = append(problems, "invalid environment variables: "+strings.Join(invalid, ", "))
	}
	if len(problems) > 0 {
		return Config{}, errors.New(strings.Join(problems, "; "))
	}

	return cfg, nil
}

// UsesSQL reports whether the configured store is backed by database/sql.
func (c Config) UsesSQL() bool {
	return c.Store == StoreSQLite || c.Store == StorePostgres
}

// Get returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func Get(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := Get(key, "")
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
