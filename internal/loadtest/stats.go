package loadtest

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

const p95 = 0.95

// Recorder collects request outcomes for one role. Safe for concurrent use.
type Recorder struct {
	role string

	mu        sync.Mutex
	latencies []float64 // milliseconds, successful requests only
	failed    int
	empty     int
}

// NewRecorder creates a recorder for role.
func NewRecorder(role string) *Recorder {
	return &Recorder{role: role}
}

// Success records one successful request.
func (r *Recorder) Success(took time.Duration) {
	r.mu.Lock()
	r.latencies = append(r.latencies, float64(took.Microseconds())/1000)
	r.mu.Unlock()
}

// Failure records one failed request.
func (r *Recorder) Failure() {
	r.mu.Lock()
	r.failed++
	r.mu.Unlock()
}

// Empty records a teacher poll that found nothing to aggregate.
func (r *Recorder) Empty() {
	r.mu.Lock()
	r.empty++
	r.mu.Unlock()
}

// Summary is the per-role outcome of a run.
type Summary struct {
	Role      string
	Succeeded int
	Failed    int
	Empty     int
	MeanMs    float64
	P95Ms     float64
}

// Summary computes mean and 95th percentile over successful requests.
func (r *Recorder) Summary() Summary {
	r.mu.Lock()
	lat := slices.Clone(r.latencies)
	s := Summary{Role: r.role, Succeeded: len(lat), Failed: r.failed, Empty: r.empty}
	r.mu.Unlock()

	if len(lat) == 0 {
		return s
	}
	slices.Sort(lat)
	s.MeanMs = stat.Mean(lat, nil)
	s.P95Ms = stat.Quantile(p95, stat.Empirical, lat, nil)
	return s
}

// String renders the summary as one results-file line.
func (s Summary) String() string {
	return fmt.Sprintf("role: %s, ok: %d, failed: %d, empty: %d, mean: %.2fms, p95: %.2fms",
		s.Role, s.Succeeded, s.Failed, s.Empty, s.MeanMs, s.P95Ms)
}
