package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted = errors.New("service not started")

	// ErrAggregationTimeout is returned when clustering outlives the aggregation deadline.
	ErrAggregationTimeout = errors.New("aggregation timed out")
)
