package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// App holds core runtime configuration shared across services.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"examgen"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`

	Postgres   Postgres
	Redis      Redis
	Generator  Generator
	RateLimit  RateLimit
	Generation Generation
	Extract    Extract
	CORS       CORS
}

// Postgres captures connection info for the SQL database. Leaving Host empty
// disables persistence entirely; the service then runs generation-only.
type Postgres struct {
	Host     string `env:"PG_HOST"`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER"`
	Password string `env:"PG_PASSWORD"`
	Database string `env:"PG_DATABASE"`
	SSLMode  string `env:"PG_SSL_MODE" envDefault:"disable"`
}

// Enabled reports whether a database was configured at all.
func (p Postgres) Enabled() bool { return p.Host != "" }

// Redis holds exam cache configuration. An empty Addr disables caching.
type Redis struct {
	Addr     string        `env:"REDIS_ADDR"`
	DB       int           `env:"REDIS_DB" envDefault:"0"`
	PoolSize int           `env:"REDIS_POOL_SIZE" envDefault:"20"`
	ExamTTL  time.Duration `env:"REDIS_EXAM_TTL" envDefault:"30m"`
}

// Enabled reports whether the exam cache was configured.
func (r Redis) Enabled() bool { return r.Addr != "" }

// Generator configures the upstream question generation service.
type Generator struct {
	URL         string        `env:"GENERATOR_URL,notEmpty"`
	APIKey      string        `env:"GENERATOR_API_KEY"`
	HTTPTimeout time.Duration `env:"GENERATOR_HTTP_TIMEOUT" envDefault:"90s"`
}

// RateLimit bounds outbound generator calls.
type RateLimit struct {
	CallsPerMinute int `env:"RATE_CALLS_PER_MINUTE" envDefault:"12"`
	CallsPerDay    int `env:"RATE_CALLS_PER_DAY" envDefault:"1200"`
}

// Generation tunes orchestration timing and validation strictness.
type Generation struct {
	BatchStagger    time.Duration `env:"GEN_BATCH_STAGGER" envDefault:"200ms"`
	RetryBaseDelay  time.Duration `env:"GEN_RETRY_BASE_DELAY" envDefault:"1s"`
	MaxAttempts     int           `env:"GEN_MAX_ATTEMPTS" envDefault:"3"`
	RateWaitCeiling time.Duration `env:"GEN_RATE_WAIT_CEILING" envDefault:"2m"`
	StrictSource    bool          `env:"GEN_STRICT_SOURCE" envDefault:"false"`
}

// Extract confines source-file reads to a root directory.
type Extract struct {
	Root     string `env:"EXTRACT_ROOT" envDefault:"./uploads"`
	MaxBytes int64  `env:"EXTRACT_MAX_BYTES" envDefault:"4194304"`
}

// CORS holds Cross-Origin Resource Sharing configuration.
type CORS struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://127.0.0.1:3000"`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS" envSeparator:"," envDefault:"GET,POST,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS" envSeparator:"," envDefault:"Content-Type,Authorization"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS" envDefault:"true"`
	MaxAge           int      `env:"CORS_MAX_AGE" envDefault:"3600"`
}

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.ParseWithOptions(cfg, env.Options{RequiredIfNoDef: true}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
