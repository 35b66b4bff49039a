// Package config defines service configuration structures and loading hooks.
//
// Conventions:
//   - New(ctx) returns a Config populated with defaults.
//   - Load(ctx) layers a YAML file and GAZE_* environment variables on top.
//   - Validation failures wrap ErrInvalidConfig.
package config

import (
	"context"
	"time"

	"github.com/okian/gazecluster/internal/adapters/repository"
	"github.com/okian/gazecluster/pkg/logger"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9000".
	Addr string `koanf:"addr"`

	// ShutdownTimeout bounds graceful HTTP shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	Log      LogConfig      `koanf:"log"`
	Store    StoreConfig    `koanf:"store"`
	Eviction EvictionConfig `koanf:"eviction"`
	Cluster  ClusterConfig  `koanf:"cluster"`
}

// LogConfig selects the log encoder and sink.
type LogConfig struct {
	Format     string `koanf:"format"` // json or console
	Output     string `koanf:"output"` // stdout or file
	FilePath   string `koanf:"file_path"`
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days"`
	Compress   bool   `koanf:"compress"`
}

// StoreConfig selects the session store backend.
type StoreConfig struct {
	Type  string      `koanf:"type"` // memory or redis
	Redis RedisConfig `koanf:"redis"`
}

// RedisConfig configures the Redis session store.
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
	Prefix   string `koanf:"prefix"`
}

// EvictionConfig controls the stale-session sweep.
type EvictionConfig struct {
	Interval time.Duration `koanf:"interval"`
	TTL      time.Duration `koanf:"ttl"`
}

// ClusterConfig tunes the spectral clusterer.
type ClusterConfig struct {
	Beta           float64 `koanf:"beta"`
	MaxPoints      int     `koanf:"max_points"`
	KMeansRestarts int     `koanf:"kmeans_restarts"`
	KMeansMaxIter  int     `koanf:"kmeans_max_iter"`
	Seed           uint64  `koanf:"seed"`

	// Timeout bounds one aggregation request. Keep it below the HTTP write timeout.
	Timeout time.Duration `koanf:"timeout"`
}

// New creates a Config with defaults. Context is accepted first to
// satisfy the project-wide convention.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:        "info",
		Addr:            ":9000",
		ShutdownTimeout: 30 * time.Second,
		Log: LogConfig{
			Format:     "json",
			Output:     "stdout",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
		Store: StoreConfig{
			Type: string(repository.TypeMemory),
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "gaze:",
			},
		},
		Eviction: EvictionConfig{
			Interval: 5 * time.Second,
			TTL:      5 * time.Second,
		},
		Cluster: ClusterConfig{
			Beta:           25,
			MaxPoints:      150,
			KMeansRestarts: 4,
			KMeansMaxIter:  100,
			Seed:           42,
			Timeout:        20 * time.Second,
		},
	}
}

// LoggerOptions maps the log settings onto logger options.
func (c *Config) LoggerOptions() logger.Options {
	return logger.Options{
		Level:      c.LogLevel,
		Format:     c.Log.Format,
		Output:     c.Log.Output,
		FilePath:   c.Log.FilePath,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAgeDays: c.Log.MaxAgeDays,
		Compress:   c.Log.Compress,
	}
}

// RepositoryConfig maps the store settings onto the repository factory config.
func (c *Config) RepositoryConfig() repository.Config {
	return repository.Config{
		Type: c.Store.Type,
		Redis: repository.RedisConfig{
			Addr:     c.Store.Redis.Addr,
			Username: c.Store.Redis.Username,
			Password: c.Store.Redis.Password,
			DB:       c.Store.Redis.DB,
			Prefix:   c.Store.Redis.Prefix,
		},
	}
}
