package intake

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/gobeaver/beaver-kit/config"
)

// Config holds the settings of an intake deployment.
type Config struct {
	// Storage driver for accepted files (local, memory, none)
	Driver string `env:"INTAKE_DRIVER,default:none"`

	// Local driver configuration
	LocalBasePath string `env:"INTAKE_LOCAL_BASE_PATH,default:./storage"`

	// Deduplication store (memory, postgres, redis)
	DedupStore string `env:"INTAKE_DEDUP_STORE,default:memory"`

	// Upload record store for bulk orders (memory, postgres)
	BulkStore string `env:"INTAKE_BULK_STORE,default:memory"`

	// PostgreSQL connection string, required by the postgres stores
	DatabaseURL string `env:"INTAKE_DATABASE_URL"`

	// Redis configuration
	RedisHost       string `env:"INTAKE_REDIS_HOST,default:localhost"`
	RedisPort       int    `env:"INTAKE_REDIS_PORT,default:6379"`
	RedisPassword   string `env:"INTAKE_REDIS_PASSWORD"`
	RedisDB         int    `env:"INTAKE_REDIS_DB,default:0"`
	RedisTTLSeconds int    `env:"INTAKE_REDIS_TTL_SECONDS,default:0"` // 0 keeps reservations forever

	// Positive cache in front of the dedup store
	DedupCacheSize       int `env:"INTAKE_DEDUP_CACHE_SIZE,default:4096"`
	DedupCacheTTLSeconds int `env:"INTAKE_DEDUP_CACHE_TTL_SECONDS,default:600"`

	// TOML file with [[policy]] tables replacing default upload policies
	PolicyFile string `env:"INTAKE_POLICY_FILE"`

	// Files checked at once per batch; 0 uses GOMAXPROCS
	MaxConcurrency int `env:"INTAKE_MAX_CONCURRENCY,default:0"`

	// HTTP server
	HTTPPort                int `env:"INTAKE_HTTP_PORT,default:8080"`
	HTTPReadTimeoutSeconds  int `env:"INTAKE_HTTP_READ_TIMEOUT_SECONDS,default:30"`
	HTTPWriteTimeoutSeconds int `env:"INTAKE_HTTP_WRITE_TIMEOUT_SECONDS,default:60"`

	// Logging
	LogLevel  string `env:"INTAKE_LOG_LEVEL,default:info"`
	LogFormat string `env:"INTAKE_LOG_FORMAT,default:text"` // text or json

	// Hot folder
	WatchDir      string `env:"INTAKE_WATCH_DIR"`
	WatchPattern  string `env:"INTAKE_WATCH_PATTERN,default:*"`
	WatchOwner    string `env:"INTAKE_WATCH_OWNER,default:vendor"`
	WatchOwnerID  string `env:"INTAKE_WATCH_OWNER_ID,default:hot-folder"`
	WatchCategory string `env:"INTAKE_WATCH_CATEGORY,default:product-image"`
}

// GetConfig returns config loaded from environment
func GetConfig() (*Config, error) {
	cfg := &Config{}
	if err := config.Load(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// GetConfigWithPrefix loads config from environment variables carrying prefix
// instead of the default BEAVER_ prefix.
func GetConfigWithPrefix(prefix string) (*Config, error) {
	cfg := &Config{}
	if err := config.Load(cfg, config.LoadOptions{Prefix: prefix}); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	switch c.Driver {
	case "", "none", "memory":
	case "local":
		if c.LocalBasePath == "" {
			return errors.New("local base path is required for local driver")
		}
	default:
		return fmt.Errorf("unknown driver: %s", c.Driver)
	}

	switch c.DedupStore {
	case "memory":
	case "postgres":
		if c.DatabaseURL == "" {
			return errors.New("database url is required for postgres dedup store")
		}
	case "redis":
		if c.RedisHost == "" {
			return errors.New("redis host is required for redis dedup store")
		}
	default:
		return fmt.Errorf("unknown dedup store: %s", c.DedupStore)
	}

	switch c.BulkStore {
	case "memory":
	case "postgres":
		if c.DatabaseURL == "" {
			return errors.New("database url is required for postgres bulk store")
		}
	default:
		return fmt.Errorf("unknown bulk store: %s", c.BulkStore)
	}

	if c.MaxConcurrency < 0 {
		return fmt.Errorf("max concurrency must not be negative: %d", c.MaxConcurrency)
	}
	return nil
}

// StorageEnabled reports whether accepted files are written to a driver.
func (c *Config) StorageEnabled() bool {
	return c.Driver != "" && c.Driver != "none"
}

// DedupCacheTTL returns the dedup cache lifetime.
func (c *Config) DedupCacheTTL() time.Duration {
	return time.Duration(c.DedupCacheTTLSeconds) * time.Second
}

// RedisAddr returns the host:port of the redis server.
func (c *Config) RedisAddr() string {
	return net.JoinHostPort(c.RedisHost, strconv.Itoa(c.RedisPort))
}

// HTTPAddr returns the listen address of the HTTP server.
func (c *Config) HTTPAddr() string {
	return ":" + strconv.Itoa(c.HTTPPort)
}

// RedisTTL returns the lifetime of redis reservations.
func (c *Config) RedisTTL() time.Duration {
	return time.Duration(c.RedisTTLSeconds) * time.Second
}
