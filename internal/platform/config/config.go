package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends for audit records.
const (
	StoreMemory   = "memory"
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
)

// database/sql driver names for the postgres store.
const (
	DriverPgx = "pgx"
	DriverPq  = "postgres"
)

// Config is the full process configuration.
type Config struct {
	Server   Server
	Log      Log
	Audit    Audit
	Mongo    Mongo
	Postgres Postgres
	Redis    RedisConfig
	Kafka    Kafka
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	Environment   string
	JWTSigningKey string
	JWTIssuer     string
	// AdminToken guards manual record ingestion; empty disables it.
	AdminToken   string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type Log struct {
	Level  string
	Format string
}

// Audit controls the audit trail pipeline.
type Audit struct {
	Store string
	// SubscriptionsEnabled decides whether the dispatch handler is attached
	// to the bus at all.
	SubscriptionsEnabled bool
	BusWorkers           int
	BusBuffer            int
	CacheTTL             time.Duration
}

type Mongo struct {
	URI      string
	Database string
}

type Postgres struct {
	URL    string
	Driver string
}

// RedisConfig is optional; an empty URL disables the record cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka is optional; with no brokers events stay in-process.
type Kafka struct {
	Brokers []string
	Topic   string
	Group   string
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	cfg := Config{
		Server: Server{
			Addr:          getenv("HRDMS_ADDR", ":8080"),
			Environment:   getenv("ENVIRONMENT", "development"),
			JWTSigningKey: getenv("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			JWTIssuer:     os.Getenv("JWT_ISSUER"),
			AdminToken:    os.Getenv("ADMIN_API_TOKEN"),
		},
		Log: Log{
			Level:  getenv("LOG_LEVEL", "info"),
			Format: getenv("LOG_FORMAT", "json"),
		},
		Audit: Audit{
			Store: strings.ToLower(getenv("AUDIT_STORE", StoreMemory)),
		},
		Mongo: Mongo{
			URI:      getenv("MONGO_URI", "mongodb://localhost:27017"),
			Database: getenv("MONGO_DATABASE", "hrdms"),
		},
		Postgres: Postgres{
			URL:    os.Getenv("DATABASE_URL"),
			Driver: strings.ToLower(getenv("POSTGRES_DRIVER", DriverPgx)),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: Kafka{
			Brokers: splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:   getenv("KAFKA_TOPIC", "hrdms.domain-events"),
			Group:   getenv("KAFKA_GROUP", "hrdms-audit"),
		},
	}

	switch cfg.Audit.Store {
	case StoreMemory, StoreMongo, StorePostgres:
	default:
		return Config{}, fmt.Errorf("AUDIT_STORE: unsupported store %q", cfg.Audit.Store)
	}
	if cfg.Audit.Store == StorePostgres && cfg.Postgres.URL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required when AUDIT_STORE=postgres")
	}
	switch cfg.Postgres.Driver {
	case DriverPgx, DriverPq:
	default:
		return Config{}, fmt.Errorf("POSTGRES_DRIVER: unsupported driver %q", cfg.Postgres.Driver)
	}

	var err error
	// off by default for the memory store
	if cfg.Audit.SubscriptionsEnabled, err = getbool("AUDIT_SUBSCRIPTIONS_ENABLED", cfg.Audit.Store != StoreMemory); err != nil {
		return Config{}, err
	}
	if cfg.Audit.BusWorkers, err = getint("AUDIT_BUS_WORKERS", 4); err != nil {
		return Config{}, err
	}
	if cfg.Audit.BusBuffer, err = getint("AUDIT_BUS_BUFFER", 1024); err != nil {
		return Config{}, err
	}
	if cfg.Audit.CacheTTL, err = getduration("AUDIT_CACHE_TTL", 10*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.Server.ReadTimeout, err = getduration("HTTP_READ_TIMEOUT", 15*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.Server.WriteTimeout, err = getduration("HTTP_WRITE_TIMEOUT", 30*time.Second); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getbool(key string, fallback bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func getint(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s: must be a positive integer", key)
	}
	return n, nil
}

func getduration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
