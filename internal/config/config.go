package config

import (
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
)

// Config holds all runtime configuration loaded from environment variables.
// Every field has a default except DATABASE_URL.
type Config struct {
	// Server
	HTTPPort        string        `env:"HTTP_PORT"        envDefault:"8080"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT"     envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT"    envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
	LogLevel        string        `env:"LOG_LEVEL"        envDefault:"info"`

	// Database
	DatabaseURL          string `env:"DATABASE_URL,notEmpty"`
	DBMaxConns           int32  `env:"DB_MAX_CONNS"            envDefault:"10"`
	DBMinConns           int32  `env:"DB_MIN_CONNS"            envDefault:"2"`
	RunMigrationsOnStart bool   `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`

	Email EmailConfig `envPrefix:"EMAIL_"`

	// AppBaseURL is used to build links in emails when a payload omits them.
	AppBaseURL string `env:"APP_BASE_URL" envDefault:"http://localhost:3000"`

	// Processing trigger
	ProcessorEnabled bool          `env:"PROCESSOR_ENABLED" envDefault:"true"`
	ProcessInterval  time.Duration `env:"PROCESS_INTERVAL"  envDefault:"1m"`

	Redis RedisConfig `envPrefix:"REDIS_"`

	// AuthJWTSecret verifies bearer tokens issued by the identity provider.
	// Empty disables API authentication (local development only).
	AuthJWTSecret string `env:"AUTH_JWT_SECRET"`
}

// EmailConfig configures the outbound email API.
type EmailConfig struct {
	APIBaseURL string        `env:"API_BASE_URL" envDefault:"https://api.resend.com"`
	APIKey     string        `env:"API_KEY"`
	From       string        `env:"FROM"         envDefault:"ForgeSpace <notifications@forgespace.app>"`
	ReplyTo    string        `env:"REPLY_TO"`
	Timeout    time.Duration `env:"TIMEOUT"      envDefault:"10s"`
	// RateLimit is the maximum number of API calls per second.
	RateLimit int `env:"RATE_LIMIT" envDefault:"2"`
}

// RedisConfig configures the optional run lock. An empty Addr disables it.
type RedisConfig struct {
	Addr     string        `env:"ADDR"`
	Password string        `env:"PASSWORD"`
	DB       int           `env:"DB"       envDefault:"0"`
	LockTTL  time.Duration `env:"LOCK_TTL" envDefault:"2m"`
}

// Load reads a .env file when present, then parses the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return nil, errors.Wrap(err, "load .env file")
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	cfg.Sanitize()
	return &cfg, nil
}

// Sanitize applies guardrails to values loaded from the environment.
func (c *Config) Sanitize() {
	if c.DBMaxConns < 1 {
		c.DBMaxConns = 1
	}
	if c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		c.DBMinConns = 0
	}
	if c.ProcessInterval < time.Second {
		c.ProcessInterval = time.Second
	}
	if c.Email.RateLimit < 1 {
		c.Email.RateLimit = 1
	}
	if c.Email.Timeout <= 0 {
		c.Email.Timeout = 10 * time.Second
	}
	if c.Redis.LockTTL < time.Second {
		c.Redis.LockTTL = time.Second
	}
	c.Email.APIBaseURL = strings.TrimRight(c.Email.APIBaseURL, "/")
	c.AppBaseURL = strings.TrimRight(c.AppBaseURL, "/")
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
}
