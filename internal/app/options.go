package service

import (
	"time"

	"github.com/okian/gazecluster/internal/adapters/repository"
	"github.com/okian/gazecluster/internal/domain/cluster"
	"github.com/okian/gazecluster/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStore injects a ready store. The caller keeps ownership and closes it.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithStoreConfig selects the backend Start builds when no store was injected.
func WithStoreConfig(cfg repository.Config) Option {
	return func(s *Service) {
		s.storeConfig = cfg
	}
}

// WithClusterer replaces the spectral clusterer.
func WithClusterer(c cluster.Clusterer) Option {
	return func(s *Service) {
		if c != nil {
			s.clusterer = c
		}
	}
}

// WithClusterOptions configures the default spectral clusterer.
func WithClusterOptions(opts ...cluster.Option) Option {
	return func(s *Service) {
		s.clusterOpts = append(s.clusterOpts, opts...)
	}
}

// WithAggregationTimeout bounds each AggregateAndCluster call.
func WithAggregationTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.aggrTimeout = d
		}
	}
}

// WithEviction sets the sweep interval and the staleness bound.
func WithEviction(interval, ttl time.Duration) Option {
	return func(s *Service) {
		if interval > 0 {
			s.evictInterval = interval
		}
		if ttl > 0 {
			s.evictTTL = ttl
		}
	}
}

// WithClock replaces time.Now for submission timestamps and sweeps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
