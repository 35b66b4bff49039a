package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/gazecluster/internal/adapters/repository"
	service "github.com/okian/gazecluster/internal/app"
	"github.com/okian/gazecluster/internal/domain/cluster"
	"github.com/okian/gazecluster/internal/domain/model"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
	ErrBadRole    = errors.New("invalid role")
	ErrNoSession  = errors.New("missing session id")
)

// KindError tags an error with the operation that produced it and a
// sentinel kind, while keeping the underlying cause reachable.
type KindError struct {
	Op   string
	Kind error
	Err  error
}

func (e *KindError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is.
func (e *KindError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// WrapKind wraps err under op and kind.
func WrapKind(op string, kind, err error) error {
	return &KindError{Op: op, Kind: kind, Err: err}
}

// NewKind returns an error carrying only op and kind.
func NewKind(op string, kind error) error {
	return &KindError{Op: op, Kind: kind}
}

// statusFor maps an error to the HTTP status it is reported with.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, ErrBadRole),
		errors.Is(err, ErrNoSession),
		errors.Is(err, model.ErrMalformedInput):
		return http.StatusBadRequest
	case errors.Is(err, cluster.ErrInsufficientData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, cluster.ErrTooManyPoints):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrNotStarted),
		errors.Is(err, service.ErrAggregationTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
