// Package loadtest drives a running gaze aggregator with simulated students
// and teachers and reports per-role latency.
package loadtest

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is returned when a Config cannot drive a run.
var ErrInvalidConfig = errors.New("invalid load test config")

// Config holds configuration for a load test run.
type Config struct {
	BaseURL     string        // Base URL of the service
	Students    int           // Number of simulated students
	Teachers    int           // Number of simulated teachers
	Rounds      int           // Requests issued by each participant
	Interval    time.Duration // Pause between a participant's requests
	Fixations   int           // Fixations per student batch
	Clusters    int           // Gaze hot spots the generator draws from
	Timeout     time.Duration // HTTP request timeout
	ResultsFile string        // Summary lines are appended here when set
	Seed        uint64        // Generator seed
	Verbose     bool          // Log every request
}

// Validate checks that every count is usable.
func (c *Config) Validate() error {
	switch {
	case c.BaseURL == "":
		return fmt.Errorf("%w: base url must not be empty", ErrInvalidConfig)
	case c.Students < 0 || c.Teachers < 0 || c.Students+c.Teachers == 0:
		return fmt.Errorf("%w: need at least one student or teacher", ErrInvalidConfig)
	case c.Rounds <= 0:
		return fmt.Errorf("%w: rounds must be positive", ErrInvalidConfig)
	case c.Interval < 0:
		return fmt.Errorf("%w: interval must not be negative", ErrInvalidConfig)
	case c.Fixations <= 0:
		return fmt.Errorf("%w: fixations must be positive", ErrInvalidConfig)
	case c.Clusters <= 0:
		return fmt.Errorf("%w: clusters must be positive", ErrInvalidConfig)
	case c.Timeout <= 0:
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	}
	return nil
}

// Fixation is the wire form of one generated fixation.
type Fixation struct {
	XPer     float64 `json:"x_per"`
	YPer     float64 `json:"y_per"`
	Duration float64 `json:"duration"`
}

// Saccade is the wire form of one generated saccade.
type Saccade struct {
	XFrom    float64 `json:"x_from"`
	YFrom    float64 `json:"y_from"`
	XTo      float64 `json:"x_to"`
	YTo      float64 `json:"y_to"`
	Duration float64 `json:"duration"`
}

// Batch is a student submission.
type Batch struct {
	Role      string     `json:"role"`
	SessionID string     `json:"session_id"`
	Fixations []Fixation `json:"fixations"`
	Saccades  []Saccade  `json:"saccades"`
}

// AggregateResult is the subset of a teacher response the runner checks.
type AggregateResult struct {
	Fixations  []Fixation `json:"fixations"`
	Result     []int      `json:"result"`
	K          int        `json:"k"`
	SpectralK  int        `json:"spectral_k"`
	Silhouette float64    `json:"silhouette"`
}
