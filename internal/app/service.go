// Package service provides the aggregation service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/gazecluster/internal/adapters/evictor"
	"github.com/okian/gazecluster/internal/adapters/repository"
	"github.com/okian/gazecluster/internal/domain/cluster"
	"github.com/okian/gazecluster/internal/domain/model"
	"github.com/okian/gazecluster/pkg/logger"
	"github.com/okian/gazecluster/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultEvictInterval    = 5 * time.Second
	defaultEvictTTL         = 5 * time.Second
	defaultAggrTimeout      = 20 * time.Second
	evictorShutdownTimeout  = 5 * time.Second
	minAggregationFixations = 2
)

// Role identifies who is talking to the service.
type Role string

// Known roles.
const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

// Submission is one student batch. It replaces whatever the session sent before.
// Fixations and Saccades must be non-nil; an empty list clears the session.
type Submission struct {
	Role      Role
	SessionID string
	Fixations []model.Fixation
	Saccades  []model.Saccade
}

// Ack confirms a stored submission.
type Ack struct {
	LoggedAt time.Time
}

// Aggregate is every stored fixation and saccade plus a cluster label per fixation.
type Aggregate struct {
	Fixations  []model.Fixation
	Saccades   []model.Saccade
	Labels     []int
	K          int
	SpectralK  int
	Silhouette float64
	Sessions   int
}

// aggregationStats describes the last successful aggregation.
type aggregationStats struct {
	at         time.Time
	points     int
	k          int
	spectralK  int
	silhouette float64
	duration   time.Duration
}

// Service implements the API dependencies for gaze aggregation.
type Service struct {
	mu sync.RWMutex

	// Core components
	store     repository.Store
	clusterer cluster.Clusterer
	evictor   *evictor.Evictor

	// Configuration
	storeConfig   repository.Config
	clusterOpts   []cluster.Option
	evictInterval time.Duration
	evictTTL      time.Duration
	aggrTimeout   time.Duration
	now           func() time.Time

	// State
	started   bool
	ownsStore bool
	cancel    context.CancelFunc
	lastAggr  aggregationStats
	statsMu   sync.Mutex

	// Logging
	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		storeConfig:   repository.Config{Type: string(repository.TypeMemory)},
		evictInterval: defaultEvictInterval,
		evictTTL:      defaultEvictTTL,
		aggrTimeout:   defaultAggrTimeout,
		now:           time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start builds the store and clusterer if none were injected and starts the evictor.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting aggregation service...")

	if s.store == nil {
		store, err := repository.NewStore(ctx, s.storeConfig)
		if err != nil {
			return fmt.Errorf("failed to create session store: %w", err)
		}
		s.store = store
		s.ownsStore = true
	}
	if s.clusterer == nil {
		opts := append([]cluster.Option{cluster.WithLogger(s.logger.Named("cluster"))}, s.clusterOpts...)
		s.clusterer = cluster.NewSpectral(opts...)
	}

	s.evictor = evictor.New(s.store,
		evictor.WithInterval(s.evictInterval),
		evictor.WithTTL(s.evictTTL),
		evictor.WithClock(s.now),
		evictor.WithLogger(s.logger.Named("evictor")),
	)
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	go s.evictor.Run(runCtx)

	s.started = true
	s.logger.Info(ctx, "aggregation service started",
		logger.String("store", s.storeConfig.Type),
		logger.String("evictInterval", s.evictInterval.String()),
		logger.String("evictTTL", s.evictTTL.String()),
	)

	return nil
}

// Stop shuts down the evictor and closes the store if Start built it.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping aggregation service...")

	shutdownCtx, cancel := context.WithTimeout(ctx, evictorShutdownTimeout)
	defer cancel()
	if err := s.evictor.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn(ctx, "evictor did not stop cleanly", logger.Error(err))
	}
	s.cancel()

	if s.ownsStore {
		if err := s.store.Close(); err != nil {
			s.logger.Warn(ctx, "failed to close session store", logger.Error(err))
		}
		// A restart builds a fresh store from config.
		s.store = nil
		s.ownsStore = false
	}

	s.started = false
	s.logger.Info(ctx, "aggregation service stopped")
}

// storeIfStarted returns the store, or ErrNotStarted.
func (s *Service) storeIfStarted() (repository.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.store, nil
}

// Submit validates a student batch and replaces the session's entry with it.
// Malformed input leaves the store untouched.
func (s *Service) Submit(ctx context.Context, sub Submission) (Ack, error) {
	store, err := s.storeIfStarted()
	if err != nil {
		return Ack{}, err
	}

	if err := validate(sub); err != nil {
		metrics.RecordSubmissionRejected(rejectReason(sub))
		return Ack{}, err
	}

	now := s.now()
	if err := store.Upsert(ctx, sub.SessionID, sub.Fixations, sub.Saccades, now); err != nil {
		metrics.RecordErrorByComponent("service", "store_error")
		s.logger.Error(ctx, "failed to store submission",
			logger.String("sessionID", sub.SessionID),
			logger.Error(err),
		)
		return Ack{}, fmt.Errorf("store submission: %w", err)
	}

	metrics.RecordSubmission(string(sub.Role))
	metrics.RecordFixationsPerSubmission(len(sub.Fixations))
	s.logger.Debug(ctx, "submission stored",
		logger.String("sessionID", sub.SessionID),
		logger.Int("fixations", len(sub.Fixations)),
		logger.Int("saccades", len(sub.Saccades)),
	)
	return Ack{LoggedAt: now}, nil
}

func validate(sub Submission) error {
	if sub.Role != RoleStudent {
		return fmt.Errorf("%w: role %q cannot submit", model.ErrMalformedInput, sub.Role)
	}
	if sub.SessionID == "" {
		return fmt.Errorf("%w: missing session id", model.ErrMalformedInput)
	}
	if sub.Fixations == nil {
		return fmt.Errorf("%w: missing fixations", model.ErrMalformedInput)
	}
	if sub.Saccades == nil {
		return fmt.Errorf("%w: missing saccades", model.ErrMalformedInput)
	}
	for i, f := range sub.Fixations {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("fixation %d: %w", i, err)
		}
	}
	return nil
}

func rejectReason(sub Submission) string {
	switch {
	case sub.Role != RoleStudent:
		return "role"
	case sub.SessionID == "":
		return "session_id"
	case sub.Fixations == nil || sub.Saccades == nil:
		return "batch"
	default:
		return "fixation"
	}
}

// AggregateAndCluster snapshots every live session and clusters all of
// their fixations together. No store lock is held while clustering.
func (s *Service) AggregateAndCluster(ctx context.Context) (Aggregate, error) {
	store, err := s.storeIfStarted()
	if err != nil {
		return Aggregate{}, err
	}

	start := time.Now()
	entries, err := store.Snapshot(ctx)
	if err != nil {
		metrics.RecordAggregation("store_error")
		return Aggregate{}, fmt.Errorf("snapshot sessions: %w", err)
	}

	fixations, saccades := model.Flatten(entries)
	if len(fixations) < minAggregationFixations {
		metrics.RecordAggregation("insufficient_data")
		return Aggregate{}, fmt.Errorf("%w: %d fixations across %d sessions",
			cluster.ErrInsufficientData, len(fixations), len(entries))
	}

	clusterCtx, cancel := context.WithTimeout(ctx, s.aggrTimeout)
	defer cancel()
	res, err := s.clusterer.Cluster(clusterCtx, model.Points(fixations))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			metrics.RecordAggregation("timeout")
			s.logger.Warn(ctx, "aggregation deadline exceeded",
				logger.Int("points", len(fixations)),
				logger.String("timeout", s.aggrTimeout.String()),
			)
			return Aggregate{}, fmt.Errorf("%w after %s: %w", ErrAggregationTimeout, s.aggrTimeout, err)
		}
		metrics.RecordAggregation("cluster_error")
		return Aggregate{}, fmt.Errorf("cluster fixations: %w", err)
	}

	elapsed := time.Since(start)
	metrics.RecordAggregation("ok")
	metrics.RecordAggregationLatency(float64(elapsed.Microseconds()) / 1000)

	s.statsMu.Lock()
	s.lastAggr = aggregationStats{
		at:         s.now(),
		points:     len(fixations),
		k:          res.K,
		spectralK:  res.SpectralK,
		silhouette: res.Silhouette,
		duration:   elapsed,
	}
	s.statsMu.Unlock()

	return Aggregate{
		Fixations:  fixations,
		Saccades:   saccades,
		Labels:     res.Labels,
		K:          res.K,
		SpectralK:  res.SpectralK,
		Silhouette: res.Silhouette,
		Sessions:   len(entries),
	}, nil
}

// Session returns the stored entry for one session.
func (s *Service) Session(ctx context.Context, sessionID string) (model.SessionEntry, error) {
	store, err := s.storeIfStarted()
	if err != nil {
		return model.SessionEntry{}, err
	}
	return store.Get(ctx, sessionID)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":       s.started,
		"storeType":     s.storeConfig.Type,
		"evictInterval": s.evictInterval.String(),
		"evictTTL":      s.evictTTL.String(),
		"aggrTimeout":   s.aggrTimeout.String(),
	}

	if s.started {
		sessions := s.store.Count(context.Background())
		stats["sessions"] = sessions
		metrics.UpdateSessionCount(sessions)
	}

	s.statsMu.Lock()
	last := s.lastAggr
	s.statsMu.Unlock()
	if !last.at.IsZero() {
		stats["lastAggregation"] = map[string]interface{}{
			"at":         last.at.UTC().Format(time.RFC3339),
			"points":     last.points,
			"k":          last.k,
			"spectralK":  last.spectralK,
			"silhouette": last.silhouette,
			"durationMs": float64(last.duration.Microseconds()) / 1000,
		}
	}

	return stats
}
