package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendMemory    = "memory"
	BackendPostgres  = "postgres"
	BackendFirestore = "firestore"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName string
	HTTPPort    string

	Backend               string
	PostgresDSN           string
	FirestoreProjectID    string
	GoogleCredentialsJSON string

	OutboxRelayInterval time.Duration
	OutboxBatchSize     int

	EnableOutboxRelay    bool
	EnableSessionStreams bool
}

func Load() (Config, error) {
	// Local development reads a .env file; a missing file is fine.
	_ = godotenv.Load()

	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "overlap"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	backend := strings.TrimSpace(strings.ToLower(os.Getenv("CONSENSUS_BACKEND")))
	switch backend {
	case BackendPostgres, BackendFirestore, BackendMemory:
	default:
		backend = BackendMemory
	}

	return Config{
		ServiceName: service,
		HTTPPort:    port,

		Backend:               backend,
		PostgresDSN:           os.Getenv("POSTGRES_DSN"),
		FirestoreProjectID:    os.Getenv("FIRESTORE_PROJECT_ID"),
		GoogleCredentialsJSON: os.Getenv("GOOGLE_CREDENTIALS"),

		OutboxRelayInterval: envDuration("OUTBOX_RELAY_INTERVAL", 500*time.Millisecond),
		OutboxBatchSize:     envInt("OUTBOX_BATCH_SIZE", 64),

		EnableOutboxRelay:    envBool("ENABLE_OUTBOX_RELAY", true),
		EnableSessionStreams: envBool("ENABLE_SESSION_STREAMS", true),
	}, nil
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envInt(name string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func envDuration(name string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
