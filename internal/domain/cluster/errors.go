package cluster

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	// ErrInsufficientData is returned for fewer than two points or when every
	// pairwise distance is identical, leaving the affinity scale undefined.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrTooManyPoints bounds the O(N) candidate search.
	ErrTooManyPoints = errors.New("too many points to cluster")

	errSilhouetteUndefined = errors.New("silhouette undefined")
)
