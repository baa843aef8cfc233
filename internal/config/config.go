// Package config loads and validates application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the API server.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// DatabaseURL is the Postgres connection string for the local durable
	// store. Required.
	DatabaseURL string

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Defaults to ["http://localhost:5173"].
	CORSOrigins []string

	// EventSourceURL is the base URL of the realtime database holding the
	// event records, e.g. https://scene.firebaseio.com. Required.
	EventSourceURL string

	// EventSourceAuth is an optional auth token appended to every request.
	EventSourceAuth string

	// KafkaBrokers lists the brokers of the live feed. Empty disables it.
	KafkaBrokers []string

	// KafkaUpdateTopic carries "event list changed" notifications.
	KafkaUpdateTopic string

	// KafkaCounterTopic carries live numberAttending values.
	KafkaCounterTopic string

	// KafkaGroupID is the consumer group for both topics.
	KafkaGroupID string

	// RefreshCron is the cron schedule of the periodic bulk refresh.
	// Empty disables it. Defaults to every 15 minutes.
	RefreshCron string

	// Location is the time zone used for "today" and calendar entries.
	// Defaults to America/New_York.
	Location *time.Location

	// CalendarPath is the iCalendar file the calendar collaborator writes.
	CalendarPath string

	// FavoriteDebounce is how long favorite toggles are locked after one
	// succeeds. Defaults to 550ms.
	FavoriteDebounce time.Duration

	// InitialWeeks is the number of weeks loaded at startup. Defaults to 4.
	InitialWeeks int

	// MaxBodyBytes caps request body sizes. Defaults to 1 MiB.
	MaxBodyBytes int64
}

// Load reads configuration from environment variables and returns a Config.
// A .env file in the working directory, if present, seeds variables that
// are not already set.
// Returns an error listing any required variables that are not set, or the
// first optional value that fails to parse.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		Port:              getEnv("PORT", "8080"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		CORSOrigins:       splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		EventSourceAuth:   os.Getenv("EVENT_SOURCE_AUTH"),
		KafkaBrokers:      splitCSV(os.Getenv("KAFKA_BROKERS")),
		KafkaUpdateTopic:  getEnv("KAFKA_UPDATE_TOPIC", "event-updates"),
		KafkaCounterTopic: getEnv("KAFKA_COUNTER_TOPIC", "event-counters"),
		KafkaGroupID:      getEnv("KAFKA_GROUP_ID", "scene-api"),
		RefreshCron:       lookupEnv("REFRESH_CRON", "*/15 * * * *"),
		CalendarPath:      getEnv("CALENDAR_PATH", "calendar.ics"),
	}

	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	cfg.EventSourceURL = strings.TrimRight(os.Getenv("EVENT_SOURCE_URL"), "/")
	if cfg.EventSourceURL == "" {
		missing = append(missing, "EVENT_SOURCE_URL")
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}

	var err error
	if cfg.Location, err = time.LoadLocation(getEnv("TIMEZONE", "America/New_York")); err != nil {
		return Config{}, fmt.Errorf("TIMEZONE: %w", err)
	}
	if cfg.FavoriteDebounce, err = time.ParseDuration(getEnv("FAVORITE_DEBOUNCE", "550ms")); err != nil {
		return Config{}, fmt.Errorf("FAVORITE_DEBOUNCE: %w", err)
	}
	if cfg.InitialWeeks, err = strconv.Atoi(getEnv("INITIAL_WEEKS", "4")); err != nil {
		return Config{}, fmt.Errorf("INITIAL_WEEKS: %w", err)
	}
	if cfg.InitialWeeks < 1 || cfg.InitialWeeks > 20 {
		return Config{}, fmt.Errorf("INITIAL_WEEKS: must be between 1 and 20, got %d", cfg.InitialWeeks)
	}
	if cfg.MaxBodyBytes, err = strconv.ParseInt(getEnv("MAX_BODY_BYTES", "1048576"), 10, 64); err != nil {
		return Config{}, fmt.Errorf("MAX_BODY_BYTES: %w", err)
	}

	return cfg, nil
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// lookupEnv is like getEnv but an explicitly empty variable stays empty,
// which lets operators switch a feature off.
func lookupEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
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
