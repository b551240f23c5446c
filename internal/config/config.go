package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App       AppConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Auth      AuthConfig
	SLA       SLAConfig
	Duplicate DuplicateConfig
	Workflow  WorkflowConfig
	Ticket    TicketConfig
	Activity  ActivityConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines bearer token parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
}

// SLAConfig defines the default business calendar.
type SLAConfig struct {
	BusinessStartHour int
	BusinessEndHour   int
	WorkDays          []int
	Timezone          string
	CalendarFile      string
}

// DuplicateConfig tunes duplicate candidate search.
type DuplicateConfig struct {
	Window       int
	DefaultLimit int
	MaxLimit     int
}

// WorkflowConfig toggles workflow integration.
type WorkflowConfig struct {
	AutoAssign bool
}

// TicketConfig controls ticket number allocation.
type TicketConfig struct {
	Prefix          string
	SequenceBackend string
}

// ActivityConfig controls the activity feed sink.
type ActivityConfig struct {
	FeedLength int64
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	workDays, err := parseIntList(getEnv("SLA_WORK_DAYS", "1,2,3,4,5"))
	if err != nil {
		return nil, fmt.Errorf("invalid SLA_WORK_DAYS: %w", err)
	}

	backend := strings.ToLower(getEnv("TICKET_SEQUENCE_BACKEND", "postgres"))
	if backend != "postgres" && backend != "redis" {
		return nil, fmt.Errorf("invalid TICKET_SEQUENCE_BACKEND %q", backend)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "incident-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
		},
		SLA: SLAConfig{
			BusinessStartHour: getEnvAsInt("SLA_BUSINESS_START_HOUR", 9),
			BusinessEndHour:   getEnvAsInt("SLA_BUSINESS_END_HOUR", 17),
			WorkDays:          workDays,
			Timezone:          getEnv("SLA_TIMEZONE", "UTC"),
			CalendarFile:      os.Getenv("SLA_CALENDAR_FILE"),
		},
		Duplicate: DuplicateConfig{
			Window:       getEnvAsInt("DUPLICATE_WINDOW", 80),
			DefaultLimit: getEnvAsInt("DUPLICATE_DEFAULT_LIMIT", 5),
			MaxLimit:     getEnvAsInt("DUPLICATE_MAX_LIMIT", 20),
		},
		Workflow: WorkflowConfig{
			AutoAssign: getEnvAsBool("WORKFLOW_AUTO_ASSIGN", true),
		},
		Ticket: TicketConfig{
			Prefix:          getEnv("TICKET_PREFIX", "INC"),
			SequenceBackend: backend,
		},
		Activity: ActivityConfig{
			FeedLength: int64(getEnvAsInt("ACTIVITY_FEED_LENGTH", 1000)),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Enabled reports whether a Redis address was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.Addr) != ""
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseIntList(val string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(val, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
