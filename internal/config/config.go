// Package config loads tmdb-proxy configuration from defaults, an optional
// config file and TMDB_PROXY_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Sternrassler/tmdb-film-client/pkg/logging"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g.
// TMDB_PROXY_TMDB_API_KEY or TMDB_PROXY_CACHE_BACKEND.
const EnvPrefix = "TMDB_PROXY"

// Cache backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// ErrMissingAPIKey is returned when no TMDB api key is configured.
var ErrMissingAPIKey = errors.New("tmdb.api_key is required")

// Config is the complete runtime configuration.
type Config struct {
	TMDB   TMDBConfig
	Cache  CacheConfig
	Log    LogConfig
	Server ServerConfig
}

// TMDBConfig configures the upstream client.
type TMDBConfig struct {
	BaseURL   string
	APIKey    string
	Timeout   time.Duration
	RateLimit int // Requests per second, 0 disables limiting
	UserAgent string
}

// CacheConfig configures both cache regions.
type CacheConfig struct {
	Backend    string
	TTL        time.Duration
	MaxEntries int
	RedisAddr  string
	RedisDB    int
	SQLitePath string
}

// LogConfig configures zerolog.
type LogConfig struct {
	Level  string
	Pretty bool
}

// ServerConfig configures the serve command.
type ServerConfig struct {
	Addr string
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("tmdb.base_url", "https://api.themoviedb.org/3")
	v.SetDefault("tmdb.api_key", "")
	v.SetDefault("tmdb.timeout", "10s")
	v.SetDefault("tmdb.rate_limit", 4)
	v.SetDefault("tmdb.user_agent", "tmdb-film-client/0.1.0")

	v.SetDefault("cache.backend", BackendMemory)
	v.SetDefault("cache.ttl", "1h")
	v.SetDefault("cache.max_entries", 1000)
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.sqlite_path", "./tmdb-cache.db")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetDefault("server.addr", ":8080")
}

// New returns a viper instance with defaults and environment binding.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configFile (optional) and the environment and validates the result.
func Load(configFile string) (*Config, error) {
	v := New()
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}
	return FromViper(v)
}

// FromViper decodes and validates the configuration held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		TMDB: TMDBConfig{
			BaseURL:   v.GetString("tmdb.base_url"),
			APIKey:    v.GetString("tmdb.api_key"),
			Timeout:   v.GetDuration("tmdb.timeout"),
			RateLimit: v.GetInt("tmdb.rate_limit"),
			UserAgent: v.GetString("tmdb.user_agent"),
		},
		Cache: CacheConfig{
			Backend:    strings.ToLower(strings.TrimSpace(v.GetString("cache.backend"))),
			TTL:        v.GetDuration("cache.ttl"),
			MaxEntries: v.GetInt("cache.max_entries"),
			RedisAddr:  v.GetString("cache.redis_addr"),
			RedisDB:    v.GetInt("cache.redis_db"),
			SQLitePath: v.GetString("cache.sqlite_path"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Pretty: v.GetBool("log.pretty"),
		},
		Server: ServerConfig{
			Addr: v.GetString("server.addr"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required values and ranges.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.TMDB.APIKey) == "" {
		return ErrMissingAPIKey
	}
	u, err := url.Parse(c.TMDB.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("tmdb.base_url must be an absolute URL (got %q)", c.TMDB.BaseURL)
	}
	if c.TMDB.Timeout <= 0 {
		return fmt.Errorf("tmdb.timeout must be > 0 (got %s)", c.TMDB.Timeout)
	}
	if c.TMDB.RateLimit < 0 {
		return fmt.Errorf("tmdb.rate_limit must be >= 0 (got %d)", c.TMDB.RateLimit)
	}

	switch c.Cache.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("cache.redis_addr is required for the redis backend")
		}
	case BackendSQLite:
		if c.Cache.SQLitePath == "" {
			return fmt.Errorf("cache.sqlite_path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("cache.backend must be one of memory, redis, sqlite (got %q)", c.Cache.Backend)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be > 0 (got %s)", c.Cache.TTL)
	}
	if c.Cache.MaxEntries <= 0 {
		return fmt.Errorf("cache.max_entries must be > 0 (got %d)", c.Cache.MaxEntries)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}
