// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	service "github.com/okian/gazecluster/internal/app"
	"github.com/okian/gazecluster/internal/domain/model"
)

// Route paths.
const (
	pathLegacyGaze = "/gazeData/teacher"
	pathGaze       = "/gaze"
	pathHealth     = "/healthz"
	pathStats      = "/stats"
	pathSession    = "/sessions/{id}"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Submit stores a student batch.
	Submit(ctx context.Context, sub service.Submission) (service.Ack, error)
	// AggregateAndCluster clusters every live fixation.
	AggregateAndCluster(ctx context.Context) (service.Aggregate, error)
	// Session returns one session's stored batch.
	Session(ctx context.Context, sessionID string) (model.SessionEntry, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	gazeHandler    *GazeHandler
	sessionHandler *SessionHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		gazeHandler:    NewGazeHandler(deps),
		sessionHandler: NewSessionHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc(pathHealth, MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc(pathStats, MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc(pathLegacyGaze, MetricsMiddleware(s.gazeHandler.HandleGaze, "gaze_legacy"))
	mux.HandleFunc(pathGaze, MetricsMiddleware(s.gazeHandler.HandleGaze, "gaze"))
	mux.HandleFunc("GET "+pathSession, MetricsMiddleware(s.sessionHandler.HandleSession, "session"))
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError reports err with the status statusFor assigns to it.
func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Error: msg})
}
