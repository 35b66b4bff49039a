// Package cluster groups aggregated fixation points without being told how
// many groups to look for.
//
// The clusterer builds a dense similarity graph over the points, inspects the
// spectrum of its random-walk Laplacian for a gap-based estimate of k, then
// searches k in [2, N-1] (capped at the number of distinct positions) with k-means on the raw coordinates and keeps the
// labelling with the best silhouette score.
//
// The spectral estimate and the eigenvector embedding are diagnostics only;
// the final partition is computed on raw (x, y). Silhouette ties go to the
// larger k.
package cluster

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/okian/gazecluster/internal/domain/model"
	"github.com/okian/gazecluster/pkg/logger"
	"github.com/okian/gazecluster/pkg/metrics"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Default clustering configuration constants.
const (
	defaultBeta       = 25.0
	defaultMaxPoints  = 150
	defaultRestarts   = 4
	defaultMaxIter    = 100
	defaultSeed       = 42
	embeddingDims     = 3
	imagTolerance     = 1e-8
	minClusterPoints  = 2
	trivialPairPoints = 2
)

// Result is a labelling of the input points plus the diagnostics gathered
// while computing it.
type Result struct {
	// Labels has one entry per input point, in input order, with values in [0, K-1].
	Labels []int
	// K is the selected cluster count.
	K int
	// SpectralK is the eigengap estimate. Reported, never used to partition.
	SpectralK int
	// Silhouette is the score of the selected labelling (0 for trivial cases).
	Silhouette float64
	// Embedding holds the real parts of the leading eigenvectors, one row per point.
	Embedding [][]float64
}

// Clusterer labels a set of 2-D points.
type Clusterer interface {
	// Cluster honours ctx for cancellation between candidate cluster counts.
	Cluster(ctx context.Context, points []model.Point) (Result, error)
}

// Spectral implements Clusterer.
type Spectral struct {
	beta      float64
	maxPoints int
	restarts  int
	maxIter   int
	seed      uint64

	logger logger.Logger
}

var _ Clusterer = (*Spectral)(nil)

// NewSpectral creates a clusterer with configuration options.
func NewSpectral(opts ...Option) *Spectral {
	s := &Spectral{
		beta:      defaultBeta,
		maxPoints: defaultMaxPoints,
		restarts:  defaultRestarts,
		maxIter:   defaultMaxIter,
		seed:      defaultSeed,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("cluster")
	}
	return s
}

// Cluster implements Clusterer.
func (s *Spectral) Cluster(ctx context.Context, points []model.Point) (Result, error) {
	start := time.Now()
	defer func() {
		metrics.RecordClusteringLatency(float64(time.Since(start).Milliseconds()))
	}()

	n := len(points)
	if n < minClusterPoints {
		return Result{}, fmt.Errorf("%w: need at least %d points, got %d", ErrInsufficientData, minClusterPoints, n)
	}
	if s.maxPoints > 0 && n > s.maxPoints {
		return Result{}, fmt.Errorf("%w: %d points exceeds limit of %d", ErrTooManyPoints, n, s.maxPoints)
	}
	metrics.RecordClusteringPoints(n)

	coords := make([][]float64, n)
	for i, p := range points {
		coords[i] = []float64{p.X, p.Y}
	}

	dist := pairwiseDistances(coords)
	spread := stat.PopStdDev(dist.RawMatrix().Data, nil)
	if spread == 0 || math.IsNaN(spread) {
		return Result{}, fmt.Errorf("%w: pairwise distances have no spread", ErrInsufficientData)
	}

	spectralK, embedding := s.spectrum(ctx, dist, spread)

	res := Result{SpectralK: spectralK, Embedding: embedding}
	if n == trivialPairPoints {
		// The candidate range [2, N-1] is empty; each point is its own cluster.
		res.Labels = []int{0, 1}
		res.K = 2
		metrics.UpdateSelectedClusterCount(res.K)
		return res, nil
	}

	// Duplicated positions cannot be split, so k stops at the distinct count.
	maxK := min(n-1, distinctCount(coords))

	bestSil := -1.0
	found := false
	for k := 2; k <= maxK; k++ {
		if err := ctx.Err(); err != nil {
			return Result{}, fmt.Errorf("clustering cancelled at k=%d: %w", k, err)
		}

		labels := s.partition(coords, k)
		sil, err := silhouette(dist, labels)
		if err != nil {
			metrics.RecordNumericWarning("silhouette_undefined")
			s.logger.Warn(ctx, "skipping cluster count", logger.Int("k", k), logger.Error(err))
			continue
		}
		s.logger.Debug(ctx, "candidate scored", logger.Int("k", k), logger.Float64("silhouette", sil))

		if sil >= bestSil {
			bestSil = sil
			res.K = k
			res.Labels = labels
			found = true
		}
	}

	if !found {
		res.Labels = make([]int, n)
		res.K = 1
		res.Silhouette = 0
		s.logger.Warn(ctx, "no scorable cluster count; returning a single cluster", logger.Int("points", n))
	} else {
		res.Silhouette = bestSil
	}

	metrics.UpdateSelectedClusterCount(res.K)
	s.logger.Info(ctx, "clustering complete",
		logger.Int("points", n),
		logger.Int("k", res.K),
		logger.Int("spectralK", res.SpectralK),
		logger.Float64("silhouette", res.Silhouette),
	)
	return res, nil
}

// distinctCount returns how many different positions coords holds.
func distinctCount(coords [][]float64) int {
	seen := make(map[[2]float64]struct{}, len(coords))
	for _, c := range coords {
		seen[[2]float64{c[0], c[1]}] = struct{}{}
	}
	return len(seen)
}

// pairwiseDistances returns the symmetric N×N Euclidean distance matrix.
func pairwiseDistances(coords [][]float64) *mat.Dense {
	n := len(coords)
	d := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			v := floats.Distance(coords[i], coords[j], 2)
			d.Set(i, j, v)
			d.Set(j, i, v)
		}
	}
	return d
}

// spectrum builds the affinity graph and its random-walk Laplacian, then
// returns the eigengap estimate of k and the leading-eigenvector embedding.
// Failures are logged, not returned.
func (s *Spectral) spectrum(ctx context.Context, dist *mat.Dense, spread float64) (int, [][]float64) {
	n, _ := dist.Dims()

	lap := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		row := make([]float64, n)
		for j := 0; j < n; j++ {
			row[j] = math.Exp(-s.beta * dist.At(i, j) / spread)
		}
		degree := floats.Sum(row)
		for j := 0; j < n; j++ {
			v := -row[j] / degree
			if i == j {
				v += 1
			}
			lap.Set(i, j, v)
		}
	}

	var eig mat.Eigen
	if ok := eig.Factorize(lap, mat.EigenRight); !ok {
		metrics.RecordNumericWarning("eigen_failed")
		s.logger.Warn(ctx, "laplacian eigendecomposition did not converge", logger.Int("points", n))
		return 0, nil
	}
	values := eig.Values(nil)
	var vectors mat.CDense
	eig.VectorsTo(&vectors)

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		va, vb := values[order[a]], values[order[b]]
		if real(va) != real(vb) {
			return real(va) < real(vb)
		}
		return imag(va) < imag(vb)
	})

	maxImag := 0.0
	sorted := make([]float64, n)
	for i, idx := range order {
		sorted[i] = real(values[idx])
		maxImag = math.Max(maxImag, math.Abs(imag(values[idx])))
	}
	if maxImag > imagTolerance {
		metrics.RecordNumericWarning("complex_eigenvalues")
		s.logger.Warn(ctx, "laplacian has complex eigenvalues; using real parts",
			logger.Float64("maxImag", maxImag))
	}

	// No more than half the points (plus one) are considered as classes.
	m := n/2 + 1
	gaps := make([]float64, m-1)
	floats.SubTo(gaps, sorted[1:m], sorted[:m-1])
	spectralK := floats.MaxIdx(gaps) + 1
	s.logger.Debug(ctx, "spectral estimate", logger.Int("k", spectralK))

	dims := embeddingDims
	if n < dims {
		dims = n
	}
	embedding := make([][]float64, n)
	for i := 0; i < n; i++ {
		embedding[i] = make([]float64, dims)
		for c := 0; c < dims; c++ {
			embedding[i][c] = real(vectors.At(i, order[c]))
		}
	}
	return spectralK, embedding
}
