package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"

	"github.com/xenking/warishayday/internal/domain/auth"
)

const defaultAddr = "0.0.0.0:8080"

// Storage backends.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config holds the complete server configuration, loadable from WSD_
// environment variables, flags or YAML files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	Storage     string `default:"postgres" usage:"Storage backend: postgres or memory"`
	DatabaseURL string `usage:"PostgreSQL connection URL (WSD_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	AdminPIN    string `usage:"Shared admin PIN" flag:"admin-pin"`
	TokenPepper string `usage:"Secret mixed into admin session tokens" flag:"token-pepper"`
	TimeZone    string `default:"Asia/Bangkok" usage:"Zone for order ids and dashboards" flag:"time-zone"`
	// Images travel inside the configuration document.
	MaxBodyBytes   int64 `default:"10485760" usage:"Maximum request body size" flag:"max-body-bytes"`
	RateLimit      RateLimitConfig
	LoginRateLimit LoginRateLimitConfig
	CORS           CORSConfig
	Graceful       GracefulConfig
}

// RateLimitConfig controls the per-client limiter on every route.
type RateLimitConfig struct {
	Max    int           `default:"120" usage:"Max requests per window"`
	Window time.Duration `default:"1m" usage:"Rate limit window duration"`
}

// LoginRateLimitConfig throttles PIN guessing on the login route.
type LoginRateLimitConfig struct {
	Max    int           `default:"5" usage:"Max login attempts per window"`
	Window time.Duration `default:"1m" usage:"Login rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins []string `default:"*" usage:"Allowed CORS origins"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s" usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables and YAML files,
// then applies platform defaults and validates the result.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "WSD",
		Files:     []string{"config.yaml", "/etc/warishayday/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings that have no usable default.
func (c *Config) Validate() error {
	switch c.Storage {
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return errors.New("database URL is required: set WSD_DATABASE_URL or DATABASE_URL")
		}
	case StorageMemory:
	default:
		return errors.Errorf("unknown storage %q", c.Storage)
	}
	if c.AdminPIN == "" {
		return errors.New("admin PIN is required: set WSD_ADMIN_PIN")
	}
	if err := auth.CheckPIN(c.AdminPIN); err != nil {
		return errors.Wrap(err, "admin PIN")
	}
	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		return errors.Wrapf(err, "time zone %q", c.TimeZone)
	}
	return nil
}

// applyPlatformDefaults maps the DATABASE_URL and PORT variables set by
// hosting platforms onto the WSD_ configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}
