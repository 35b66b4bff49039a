package cluster

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// silhouette returns the mean silhouette coefficient of labels over the
// precomputed distance matrix. Points alone in their cluster score 0.
// The score is undefined unless 2 <= distinct labels <= N-1.
func silhouette(dist *mat.Dense, labels []int) (float64, error) {
	n := len(labels)
	sizes := make(map[int]int)
	for _, l := range labels {
		sizes[l]++
	}
	if len(sizes) < 2 || len(sizes) > n-1 {
		return 0, fmt.Errorf("%w: %d distinct labels for %d points", errSilhouetteUndefined, len(sizes), n)
	}

	total := 0.0
	sums := make(map[int]float64, len(sizes))
	for i := 0; i < n; i++ {
		own := labels[i]
		if sizes[own] == 1 {
			continue
		}
		clear(sums)
		for j := 0; j < n; j++ {
			if i != j {
				sums[labels[j]] += dist.At(i, j)
			}
		}

		a := sums[own] / float64(sizes[own]-1)
		b := math.Inf(1)
		for l, sum := range sums {
			if l == own {
				continue
			}
			b = math.Min(b, sum/float64(sizes[l]))
		}

		if denom := math.Max(a, b); denom > 0 {
			total += (b - a) / denom
		}
	}
	return total / float64(n), nil
}
