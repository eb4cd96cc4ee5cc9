// Package config provides configuration management for the application.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Cache backend identifiers.
const (
	CacheMemory = "memory"
	CacheFile   = "file"
	CacheRedis  = "redis"
)

// State store backend identifiers.
const (
	StateFile   = "file"
	StateSQLite = "sqlite"
)

// Config holds the application configuration.
type Config struct {
	API   APIConfig   `mapstructure:"api"`
	Cache CacheConfig `mapstructure:"cache"`
	State StateConfig `mapstructure:"state"`

	// Dev enables development mode: debug-level request/response logging
	// with a colorized handler. Production builds keep this off.
	Dev bool `mapstructure:"dev"`
}

// APIConfig holds catalog API client configuration.
type APIConfig struct {
	// BaseURL is the catalog service origin.
	BaseURL string `mapstructure:"base_url"`

	// Timeout is the per-request client deadline.
	Timeout time.Duration `mapstructure:"timeout"`

	// Retries is the total number of attempts for transient failures.
	Retries int `mapstructure:"retries"`

	// RetryBaseDelay is the backoff delay before the second attempt;
	// it doubles for every attempt after that.
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay"`

	// RateLimit caps outbound requests per second. Zero disables limiting.
	RateLimit float64 `mapstructure:"rate_limit"`

	// RateBurst is the limiter burst size when RateLimit is set.
	RateBurst int `mapstructure:"rate_burst"`
}

// CacheConfig holds entity cache configuration.
type CacheConfig struct {
	// Backend selects the cache implementation: "memory", "file" or "redis".
	Backend string `mapstructure:"backend"`

	// Dir is the cache directory for the file backend.
	Dir string `mapstructure:"dir"`

	// RedisURL is the Redis connection URL for the redis backend.
	RedisURL string `mapstructure:"redis_url"`

	// RedisKeyPrefix namespaces cache keys in Redis.
	RedisKeyPrefix string `mapstructure:"redis_key_prefix"`

	// ProductsTTL is the freshness window for the product list.
	ProductsTTL time.Duration `mapstructure:"products_ttl"`

	// ProductTTL is the freshness window for a single product.
	ProductTTL time.Duration `mapstructure:"product_ttl"`

	// CategoriesTTL is the freshness window for the category list.
	CategoriesTTL time.Duration `mapstructure:"categories_ttl"`
}

// StateConfig holds persisted client-state configuration.
type StateConfig struct {
	// Backend selects the persistence implementation: "file" or "sqlite".
	Backend string `mapstructure:"backend"`

	// Dir is the directory holding per-store JSON files (file backend).
	Dir string `mapstructure:"dir"`

	// SQLitePath is the database file path (sqlite backend).
	SQLitePath string `mapstructure:"sqlite_path"`
}

// Defaults mirrored from the catalog client contract.
const (
	DefaultBaseURL        = "https://fakestoreapi.com"
	DefaultTimeout        = 10 * time.Second
	DefaultRetries        = 3
	DefaultRetryBaseDelay = 1 * time.Second
	DefaultProductsTTL    = 5 * time.Minute
	DefaultProductTTL     = 5 * time.Minute
	DefaultCategoriesTTL  = 10 * time.Minute
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", DefaultBaseURL)
	v.SetDefault("api.timeout", DefaultTimeout)
	v.SetDefault("api.retries", DefaultRetries)
	v.SetDefault("api.retry_base_delay", DefaultRetryBaseDelay)
	v.SetDefault("api.rate_limit", 0.0)
	v.SetDefault("api.rate_burst", 1)

	v.SetDefault("cache.backend", CacheMemory)
	v.SetDefault("cache.dir", ".shopwise/cache")
	v.SetDefault("cache.redis_key_prefix", "shopwise:catalog")
	v.SetDefault("cache.products_ttl", DefaultProductsTTL)
	v.SetDefault("cache.product_ttl", DefaultProductTTL)
	v.SetDefault("cache.categories_ttl", DefaultCategoriesTTL)

	v.SetDefault("state.backend", StateFile)
	v.SetDefault("state.dir", ".shopwise/state")
	v.SetDefault("state.sqlite_path", ".shopwise/state.db")

	v.SetDefault("dev", false)
}

// Load reads configuration from an optional .env file, an optional
// config.yaml in the working directory, and SHOPWISE_* environment
// variables (e.g. SHOPWISE_API_BASE_URL), in increasing precedence.
func Load() (*Config, error) {
	// .env is optional; missing files are not an error.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("SHOPWISE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks invariants that would otherwise surface as confusing
// runtime failures deep inside the client.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url must not be empty")
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive, got %s", c.API.Timeout)
	}
	if c.API.Retries < 1 {
		return fmt.Errorf("api.retries must be at least 1, got %d", c.API.Retries)
	}
	if c.API.RetryBaseDelay < 0 {
		return fmt.Errorf("api.retry_base_delay must not be negative, got %s", c.API.RetryBaseDelay)
	}
	switch c.Cache.Backend {
	case CacheMemory, CacheFile:
	case CacheRedis:
		if c.Cache.RedisURL == "" {
			return fmt.Errorf("cache.redis_url is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	for name, ttl := range map[string]time.Duration{
		"cache.products_ttl":   c.Cache.ProductsTTL,
		"cache.product_ttl":    c.Cache.ProductTTL,
		"cache.categories_ttl": c.Cache.CategoriesTTL,
	} {
		if ttl <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, ttl)
		}
	}
	switch c.State.Backend {
	case StateFile, StateSQLite:
	default:
		return fmt.Errorf("unknown state backend %q", c.State.Backend)
	}
	return nil
}
