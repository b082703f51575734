// Package config handles application configuration from defaults, an
// optional YAML file and environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/briangreenhill/photofeed/cache"
	"github.com/briangreenhill/photofeed/client"
	"github.com/briangreenhill/photofeed/transport"
)

// FileEnv names the environment variable pointing at a YAML config file.
const FileEnv = "PHOTOFEED_CONFIG"

// Config holds all application configuration
type Config struct {
	Feed  FeedConfig  `yaml:"feed"`
	Cache CacheConfig `yaml:"cache"`
	HTTP  HTTPConfig  `yaml:"http"`
	Log   LogConfig   `yaml:"log"`

	Port            string        `env:"PORT" yaml:"port"`
	DatabaseURL     string        `env:"DATABASE_URL" yaml:"database_url"`
	RedisAddr       string        `env:"REDIS_ADDR" yaml:"redis_addr"`
	RefreshInterval time.Duration `env:"REFRESH_INTERVAL" yaml:"refresh_interval"`
}

// FeedConfig locates the feed origin.
type FeedConfig struct {
	BaseURL string `env:"FEED_BASE_URL" yaml:"base_url"`
	// OnePath is the single-item resource; empty means unsupported.
	OnePath string `env:"FEED_ONE_PATH" yaml:"one_path"`
}

// CacheConfig sizes the response cache.
type CacheConfig struct {
	MemoryBytes int64  `env:"CACHE_MEMORY_BYTES" yaml:"memory_bytes"`
	DiskBytes   int64  `env:"CACHE_DISK_BYTES" yaml:"disk_bytes"`
	Dir         string `env:"CACHE_DIR" yaml:"dir"`
	Namespace   string `env:"CACHE_NAMESPACE" yaml:"namespace"`
	Backend     string `env:"CACHE_BACKEND" yaml:"backend"`
}

// HTTPConfig bounds outbound requests.
type HTTPConfig struct {
	RequestTimeout  time.Duration `env:"HTTP_REQUEST_TIMEOUT" yaml:"request_timeout"`
	ResourceTimeout time.Duration `env:"HTTP_RESOURCE_TIMEOUT" yaml:"resource_timeout"`
	MaxConcurrent   int64         `env:"HTTP_MAX_CONCURRENT" yaml:"max_concurrent"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL" yaml:"level"`
	Pretty bool   `env:"LOG_PRETTY" yaml:"pretty"`
}

// Default returns the built-in configuration.
func Default() Config {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return Config{
		Feed: FeedConfig{BaseURL: "http://jsonplaceholder.typicode.com/"},
		Cache: CacheConfig{
			MemoryBytes: cache.DefaultCapacity,
			DiskBytes:   cache.DefaultCapacity,
			Dir:         dir,
			Namespace:   cache.DefaultNamespace,
			Backend:     cache.BackendBolt,
		},
		HTTP: HTTPConfig{
			RequestTimeout:  transport.DefaultRequestTimeout,
			ResourceTimeout: transport.DefaultResourceTimeout,
			MaxConcurrent:   client.DefaultMaxConcurrent,
		},
		Log:             LogConfig{Level: "info"},
		Port:            "8080",
		RedisAddr:       "localhost:6379",
		RefreshInterval: 15 * time.Minute,
	}
}

// Load reads configuration: defaults, then the file named by
// PHOTOFEED_CONFIG, then environment variables.
func Load() (*Config, error) {
	cfg := Default()
	if path := os.Getenv(FileEnv); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return nil, err
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config: environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

// Validate rejects settings the cache and transport cannot run with.
func (c *Config) Validate() error {
	var errs []error
	u, err := url.Parse(c.Feed.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("FEED_BASE_URL must be an absolute URL, got %q", c.Feed.BaseURL))
	}
	if c.Cache.MemoryBytes <= 0 {
		errs = append(errs, fmt.Errorf("CACHE_MEMORY_BYTES must be positive, got %d", c.Cache.MemoryBytes))
	}
	switch c.Cache.Backend {
	case cache.BackendNone:
	case cache.BackendBolt, cache.BackendFile:
		if c.Cache.DiskBytes <= 0 {
			errs = append(errs, fmt.Errorf("CACHE_DISK_BYTES must be positive, got %d", c.Cache.DiskBytes))
		}
		if c.Cache.Dir == "" {
			errs = append(errs, errors.New("CACHE_DIR is required for a disk backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("CACHE_BACKEND must be bolt, file or none, got %q", c.Cache.Backend))
	}
	if c.HTTP.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("HTTP_REQUEST_TIMEOUT must be positive, got %s", c.HTTP.RequestTimeout))
	}
	if c.HTTP.ResourceTimeout <= 0 {
		errs = append(errs, fmt.Errorf("HTTP_RESOURCE_TIMEOUT must be positive, got %s", c.HTTP.ResourceTimeout))
	}
	if c.HTTP.MaxConcurrent <= 0 {
		errs = append(errs, fmt.Errorf("HTTP_MAX_CONCURRENT must be positive, got %d", c.HTTP.MaxConcurrent))
	}
	if c.RefreshInterval < 0 {
		errs = append(errs, fmt.Errorf("REFRESH_INTERVAL must not be negative, got %s", c.RefreshInterval))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// CacheOptions converts the cache settings for cache.New.
func (c *Config) CacheOptions() cache.Options {
	return cache.Options{
		MemoryBytes: c.Cache.MemoryBytes,
		DiskBytes:   c.Cache.DiskBytes,
		Dir:         c.Cache.Dir,
		Namespace:   c.Cache.Namespace,
		Backend:     c.Cache.Backend,
	}
}
