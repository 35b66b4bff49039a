package cluster

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
)

// partition runs k-means on coords s.restarts times and returns the
// canonical labelling of the run with the lowest inertia.
func (s *Spectral) partition(coords [][]float64, k int) []int {
	rng := rand.New(rand.NewPCG(s.seed, uint64(k))) //nolint:gosec // deterministic seed for reproducible labels

	var best []int
	bestInertia := math.Inf(1)
	for r := 0; r < s.restarts; r++ {
		labels, inertia := kmeans(coords, k, s.maxIter, rng)
		if inertia < bestInertia {
			bestInertia = inertia
			best = labels
		}
	}
	return canonical(best)
}

// kmeans is Lloyd's algorithm with k-means++ seeding. Empty clusters are
// refilled with the point farthest from its centroid.
func kmeans(coords [][]float64, k, maxIter int, rng *rand.Rand) ([]int, float64) {
	n := len(coords)
	centers := seedPlusPlus(coords, k, rng)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = -1
	}

	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i, p := range coords {
			c := nearest(p, centers)
			if labels[i] != c {
				labels[i] = c
				changed = true
			}
		}

		sizes := make([]int, k)
		sums := make([][]float64, k)
		for c := range sums {
			sums[c] = make([]float64, len(coords[0]))
		}
		for i, p := range coords {
			sizes[labels[i]]++
			floats.Add(sums[labels[i]], p)
		}

		for c := 0; c < k; c++ {
			if sizes[c] > 0 {
				floats.ScaleTo(centers[c], 1/float64(sizes[c]), sums[c])
				continue
			}
			far := farthest(coords, labels, centers)
			sizes[labels[far]]--
			labels[far] = c
			sizes[c] = 1
			copy(centers[c], coords[far])
			changed = true
		}

		if !changed {
			break
		}
	}

	inertia := 0.0
	for i, p := range coords {
		inertia += sqDist(p, centers[labels[i]])
	}
	return labels, inertia
}

// seedPlusPlus picks k initial centers, each new one drawn with probability
// proportional to its squared distance from the closest existing center.
func seedPlusPlus(coords [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(coords)
	centers := make([][]float64, 0, k)
	chosen := make([]bool, n)

	first := rng.IntN(n)
	chosen[first] = true
	centers = append(centers, append([]float64(nil), coords[first]...))

	weights := make([]float64, n)
	for len(centers) < k {
		for i, p := range coords {
			weights[i] = sqDist(p, centers[nearest(p, centers)])
		}
		total := floats.Sum(weights)

		next := -1
		if total > 0 {
			target := rng.Float64() * total
			acc := 0.0
			for i, w := range weights {
				acc += w
				if w > 0 && acc >= target {
					next = i
					break
				}
			}
		}
		if next < 0 {
			// Every point sits on a center already; take any unused one.
			for i := range coords {
				if !chosen[i] {
					next = i
					break
				}
			}
		}
		chosen[next] = true
		centers = append(centers, append([]float64(nil), coords[next]...))
	}
	return centers
}

func nearest(p []float64, centers [][]float64) int {
	best, bestD := 0, math.Inf(1)
	for c, center := range centers {
		if d := sqDist(p, center); d < bestD {
			best, bestD = c, d
		}
	}
	return best
}

// farthest returns the point farthest from its own center among clusters
// holding more than one point.
func farthest(coords [][]float64, labels []int, centers [][]float64) int {
	sizes := make(map[int]int, len(centers))
	for _, l := range labels {
		sizes[l]++
	}
	best, bestD := 0, -1.0
	for i, p := range coords {
		if sizes[labels[i]] < 2 {
			continue
		}
		if d := sqDist(p, centers[labels[i]]); d > bestD {
			best, bestD = i, d
		}
	}
	return best
}

func sqDist(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}

// canonical renumbers labels by order of first appearance so the first
// point is always in cluster 0.
func canonical(labels []int) []int {
	remap := make(map[int]int)
	out := make([]int, len(labels))
	for i, l := range labels {
		id, ok := remap[l]
		if !ok {
			id = len(remap)
			remap[l] = id
		}
		out[i] = id
	}
	return out
}
