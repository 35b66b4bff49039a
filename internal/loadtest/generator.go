package loadtest

import (
	"math"
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"
)

const (
	clusterSpread  = 0.03
	minDurationMs  = 80
	durationRange  = 420
	centerMargin   = 0.1
	saccadeDivisor = 1000
)

// Generator produces synthetic gaze batches around fixed hot spots, so the
// aggregate has real cluster structure to find.
type Generator struct {
	mu      sync.Mutex
	rng     *rand.Rand
	centers [][2]float64
}

// NewGenerator places clusters hot spots uniformly inside the screen margins.
func NewGenerator(seed uint64, clusters int) *Generator {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	centers := make([][2]float64, clusters)
	for i := range centers {
		centers[i] = [2]float64{
			centerMargin + rng.Float64()*(1-2*centerMargin),
			centerMargin + rng.Float64()*(1-2*centerMargin),
		}
	}
	return &Generator{rng: rng, centers: centers}
}

// Centers returns a copy of the hot spots.
func (g *Generator) Centers() [][2]float64 {
	out := make([][2]float64, len(g.centers))
	copy(out, g.centers)
	return out
}

// SessionID returns a fresh random session id.
func (g *Generator) SessionID() string {
	return uuid.New().String()
}

// Batch builds n fixations and the n-1 saccades between them.
func (g *Generator) Batch(sessionID string, n int) Batch {
	g.mu.Lock()
	defer g.mu.Unlock()

	fix := make([]Fixation, n)
	for i := range fix {
		c := g.centers[g.rng.IntN(len(g.centers))]
		fix[i] = Fixation{
			XPer:     clamp01(c[0] + g.rng.NormFloat64()*clusterSpread),
			YPer:     clamp01(c[1] + g.rng.NormFloat64()*clusterSpread),
			Duration: minDurationMs + g.rng.Float64()*durationRange,
		}
	}

	sac := make([]Saccade, 0, max(n-1, 0))
	for i := 1; i < n; i++ {
		from, to := fix[i-1], fix[i]
		sac = append(sac, Saccade{
			XFrom:    from.XPer,
			YFrom:    from.YPer,
			XTo:      to.XPer,
			YTo:      to.YPer,
			Duration: math.Hypot(to.XPer-from.XPer, to.YPer-from.YPer) * saccadeDivisor,
		})
	}

	return Batch{Role: "student", SessionID: sessionID, Fixations: fix, Saccades: sac}
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}
