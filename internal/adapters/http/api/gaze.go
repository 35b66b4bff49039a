package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	service "github.com/okian/gazecluster/internal/app"
	"github.com/okian/gazecluster/internal/domain/model"
)

const (
	// legacyTeacherRole is the numeric role the original clients send for teachers.
	// Any other integer is a student whose number doubles as its session id.
	legacyTeacherRole = 2

	headerSessionID = "X-Session-ID"
	maxBodyBytes    = 8 << 20

	livenessPage = "<h1>Gaze aggregation server, page /gazeData/teacher</h1>"
)

// gazeRequest mirrors the OpenAPI schema for POST /gaze. The batch fields
// are pointers so an absent or null key differs from an empty list.
type gazeRequest struct {
	Role      json.RawMessage   `json:"role"`
	SessionID string            `json:"session_id"`
	Fixations *[]model.Fixation `json:"fixations"`
	Saccades  *[]model.Saccade  `json:"saccades"`
}

type ackResponse struct {
	Result string `json:"result"`
}

type aggregateResponse struct {
	Fixations  []model.Fixation `json:"fixations"`
	Saccades   []model.Saccade  `json:"saccades"`
	Result     []int            `json:"result"`
	K          int              `json:"k"`
	SpectralK  int              `json:"spectral_k"`
	Silhouette float64          `json:"silhouette"`
}

// GazeHandler handles student submissions and teacher aggregation requests.
type GazeHandler struct {
	deps Dependencies
}

// NewGazeHandler creates a new gaze handler.
func NewGazeHandler(deps Dependencies) *GazeHandler {
	return &GazeHandler{deps: deps}
}

// HandleGaze handles POST /gaze and the legacy POST /gazeData/teacher.
// A GET returns a plain liveness page.
func (h *GazeHandler) HandleGaze(w http.ResponseWriter, r *http.Request) {
	const op = "api.gaze"
	switch r.Method {
	case http.MethodGet:
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(livenessPage))
		return
	case http.MethodPost:
	default:
		http.NotFound(w, r)
		return
	}

	var req gazeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}

	role, sessionID, err := resolveRole(req, r.Header.Get(headerSessionID))
	if err != nil {
		writeError(w, WrapKind(op, ErrBadRole, err))
		return
	}

	if role == service.RoleTeacher {
		h.aggregate(w, r)
		return
	}
	if sessionID == "" {
		writeError(w, NewKind(op, ErrNoSession))
		return
	}
	if err := requireBatch(req); err != nil {
		writeError(w, fmt.Errorf("%s: %w", op, err))
		return
	}

	ack, err := h.deps.Submit(r.Context(), service.Submission{
		Role:      role,
		SessionID: sessionID,
		Fixations: *req.Fixations,
		Saccades:  *req.Saccades,
	})
	if err != nil {
		writeError(w, fmt.Errorf("%s: %w", op, err))
		return
	}
	writeJSON(w, http.StatusOK, ackResponse{Result: "Fixations and saccades are logged @ " + unixSeconds(ack.LoggedAt)})
}

func (h *GazeHandler) aggregate(w http.ResponseWriter, r *http.Request) {
	const op = "api.aggregate"
	agg, err := h.deps.AggregateAndCluster(r.Context())
	if err != nil {
		writeError(w, fmt.Errorf("%s: %w", op, err))
		return
	}
	if agg.Fixations == nil {
		agg.Fixations = []model.Fixation{}
	}
	if agg.Saccades == nil {
		agg.Saccades = []model.Saccade{}
	}
	writeJSON(w, http.StatusOK, aggregateResponse{
		Fixations:  agg.Fixations,
		Saccades:   agg.Saccades,
		Result:     agg.Labels,
		K:          agg.K,
		SpectralK:  agg.SpectralK,
		Silhouette: agg.Silhouette,
	})
}

// requireBatch rejects a student body that omits fixations or saccades.
func requireBatch(req gazeRequest) error {
	switch {
	case req.Fixations == nil:
		return fmt.Errorf("%w: missing fixations", model.ErrMalformedInput)
	case req.Saccades == nil:
		return fmt.Errorf("%w: missing saccades", model.ErrMalformedInput)
	}
	return nil
}

// resolveRole accepts either a role name or a legacy integer role.
// For students the session id comes from the body, then the header, then
// the legacy integer.
func resolveRole(req gazeRequest, headerSession string) (service.Role, string, error) {
	raw := bytes.TrimSpace(req.Role)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", "", fmt.Errorf("missing role")
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = strings.TrimSpace(headerSession)
	}

	if raw[0] == '"' {
		var name string
		if err := json.Unmarshal(raw, &name); err != nil {
			return "", "", fmt.Errorf("role: %w", err)
		}
		switch service.Role(strings.ToLower(strings.TrimSpace(name))) {
		case service.RoleTeacher:
			return service.RoleTeacher, "", nil
		case service.RoleStudent:
			return service.RoleStudent, sessionID, nil
		}
		return "", "", fmt.Errorf("unknown role %q", name)
	}

	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return "", "", fmt.Errorf("role must be a name or an integer, got %s", raw)
	}
	if n == legacyTeacherRole {
		return service.RoleTeacher, "", nil
	}
	if sessionID == "" {
		sessionID = strconv.FormatInt(n, 10)
	}
	return service.RoleStudent, sessionID, nil
}

func unixSeconds(t time.Time) string {
	return strconv.FormatFloat(float64(t.UnixMicro())/1e6, 'f', 6, 64)
}
