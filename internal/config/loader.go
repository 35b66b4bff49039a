package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/gazecluster/internal/adapters/repository"
)

// Environment variable names.
const (
	envPrefix     = "GAZE_"
	envConfigFile = "GAZE_CONFIG"
	envNestDelim  = "__"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if GAZE_CONFIG is set
//  3. env (prefix GAZE_, nested keys joined by "__", e.g. GAZE_EVICTION__TTL)
func Load(ctx context.Context) (*Config, error) {
	base := New(ctx)

	k := koanf.New(".")

	if path := os.Getenv(envConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: file %s: %v", ErrLoadConfig, path, err)
		}
	}

	envProvider := env.Provider(envPrefix, ".", envKey)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %v", ErrLoadConfig, err)
	}

	// Unmarshal over a copy of the defaults so unset keys keep them.
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps GAZE_EVICTION__TTL to eviction.ttl and GAZE_LOG_LEVEL to log_level.
func envKey(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	s = strings.ToLower(s)
	return strings.ReplaceAll(s, envNestDelim, ".")
}

// Validate checks the values Load cannot catch by type alone.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.Eviction.Interval <= 0:
		return fmt.Errorf("%w: eviction.interval must be positive", ErrInvalidConfig)
	case c.Eviction.TTL <= 0:
		return fmt.Errorf("%w: eviction.ttl must be positive", ErrInvalidConfig)
	case c.Cluster.Beta <= 0:
		return fmt.Errorf("%w: cluster.beta must be positive", ErrInvalidConfig)
	case c.Cluster.KMeansRestarts <= 0:
		return fmt.Errorf("%w: cluster.kmeans_restarts must be positive", ErrInvalidConfig)
	case c.Cluster.KMeansMaxIter <= 0:
		return fmt.Errorf("%w: cluster.kmeans_max_iter must be positive", ErrInvalidConfig)
	case c.Cluster.Timeout <= 0:
		return fmt.Errorf("%w: cluster.timeout must be positive", ErrInvalidConfig)
	}

	switch repository.Type(c.Store.Type) {
	case repository.TypeMemory:
	case repository.TypeRedis:
		if c.Store.Redis.Addr == "" {
			return fmt.Errorf("%w: store.redis.addr must be set for the redis store", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store.type %q", ErrInvalidConfig, c.Store.Type)
	}

	switch c.Log.Output {
	case "stdout":
	case "file":
		if c.Log.FilePath == "" {
			return fmt.Errorf("%w: log.file_path must be set when log.output is file", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown log.output %q", ErrInvalidConfig, c.Log.Output)
	}
	return nil
}
