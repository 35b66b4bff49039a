package cluster

import "github.com/okian/gazecluster/pkg/logger"

// Option applies a configuration option to the Spectral clusterer.
type Option func(*Spectral)

// WithBeta sets the affinity sharpness. Larger values make distant points
// less similar.
func WithBeta(beta float64) Option {
	return func(s *Spectral) {
		if beta > 0 {
			s.beta = beta
		}
	}
}

// WithMaxPoints caps the number of points accepted by Cluster.
// A non-positive value removes the cap.
func WithMaxPoints(n int) Option {
	return func(s *Spectral) {
		s.maxPoints = n
	}
}

// WithRestarts sets how many k-means initialisations are tried per candidate k.
func WithRestarts(n int) Option {
	return func(s *Spectral) {
		if n > 0 {
			s.restarts = n
		}
	}
}

// WithMaxIterations bounds Lloyd iterations per k-means run.
func WithMaxIterations(n int) Option {
	return func(s *Spectral) {
		if n > 0 {
			s.maxIter = n
		}
	}
}

// WithSeed fixes the k-means++ random source.
func WithSeed(seed uint64) Option {
	return func(s *Spectral) {
		s.seed = seed
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Spectral) {
		if l != nil {
			s.logger = l
		}
	}
}
