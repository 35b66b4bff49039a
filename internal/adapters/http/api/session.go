package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/okian/gazecluster/internal/domain/model"
)

type sessionResponse struct {
	SessionID string           `json:"session_id"`
	Fixations []model.Fixation `json:"fixations"`
	Saccades  []model.Saccade  `json:"saccades"`
	LastSeen  string           `json:"last_seen"`
}

// SessionHandler serves one session's stored batch.
type SessionHandler struct {
	deps Dependencies
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(deps Dependencies) *SessionHandler {
	return &SessionHandler{deps: deps}
}

// HandleSession handles GET /sessions/{id}.
func (h *SessionHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	const op = "api.session"
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, NewKind(op, ErrNoSession))
		return
	}

	entry, err := h.deps.Session(r.Context(), id)
	if err != nil {
		writeError(w, fmt.Errorf("%s: %w", op, err))
		return
	}

	resp := sessionResponse{
		SessionID: entry.SessionID,
		Fixations: entry.Fixations,
		Saccades:  entry.Saccades,
		LastSeen:  entry.LastSeen.UTC().Format(time.RFC3339Nano),
	}
	if resp.Fixations == nil {
		resp.Fixations = []model.Fixation{}
	}
	if resp.Saccades == nil {
		resp.Saccades = []model.Saccade{}
	}
	writeJSON(w, http.StatusOK, resp)
}
