package api

import (
	"maps"
	"net/http"
	"time"
)

// StatsProvider reports a snapshot of service state for GET /stats.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// StatsHandler serves the service snapshot as JSON.
type StatsHandler struct {
	provider StatsProvider
	now      func() time.Time
}

// NewStatsHandler creates a stats handler over provider.
func NewStatsHandler(provider StatsProvider) *StatsHandler {
	return &StatsHandler{provider: provider, now: time.Now}
}

// HandleStats handles GET /stats. The payload is stamped with the
// generation time and the request id when one is set.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	payload := maps.Clone(h.provider.GetStats())
	if payload == nil {
		payload = make(map[string]interface{}, 2)
	}
	payload["generatedAt"] = h.now().UTC().Format(time.RFC3339Nano)
	if id := RequestIDFrom(r.Context()); id != "" {
		payload["requestId"] = id
	}
	writeJSON(w, http.StatusOK, payload)
}
