package api

import (
	"errors"
	"net/http"

	"github.com/Clinico01/ranking-de-clientes3/internal/domain/dedupe"
	"github.com/Clinico01/ranking-de-clientes3/internal/domain/model"
	"github.com/Clinico01/ranking-de-clientes3/internal/domain/session"
	"github.com/Clinico01/ranking-de-clientes3/internal/domain/types"
	"github.com/Clinico01/ranking-de-clientes3/pkg/logger"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest    = errors.New("bad request")
	ErrLimitExceeded = errors.New("limit exceeded")
	ErrUnauthorized  = errors.New("session required")
	ErrForbidden     = errors.New("admin session required")
)

// OpError records the handler operation that failed, the API kind used to
// pick a status code and the underlying cause.
type OpError struct {
	Op   string
	Kind error
	Err  error
}

func (e *OpError) Error() string {
	switch {
	case e.Err != nil && e.Kind != nil && e.Kind != e.Err:
		return e.Op + ": " + e.Kind.Error() + ": " + e.Err.Error()
	case e.Err != nil:
		return e.Op + ": " + e.Err.Error()
	case e.Kind != nil:
		return e.Op + ": " + e.Kind.Error()
	default:
		return e.Op
	}
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *OpError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// Wrap annotates err with op. A nil err stays nil.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Err: err}
}

// WrapKind annotates err with op and an API kind.
func WrapKind(op string, kind, err error) error {
	return &OpError{Op: op, Kind: kind, Err: err}
}

// NewKind returns an error of the given kind with no further cause.
func NewKind(op string, kind error) error {
	return &OpError{Op: op, Kind: kind}
}

// classify maps an error to a status and a machine-readable code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrLimitExceeded):
		return http.StatusBadRequest, "limit_exceeded"
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, model.ErrInvalidRecord),
		errors.Is(err, model.ErrInvalidContact),
		errors.Is(err, model.ErrInvalidNotice):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, ErrUnauthorized), errors.Is(err, session.ErrNotFound):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, session.ErrInvalidKey):
		return http.StatusForbidden, "invalid_key"
	case errors.Is(err, session.ErrUnlockDisabled):
		return http.StatusForbidden, "unlock_disabled"
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, dedupe.ErrInFlight):
		return http.StatusConflict, "in_flight"
	case errors.Is(err, types.ErrNoBoard):
		return http.StatusServiceUnavailable, "not_ready"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// errorLog answers failed requests for the handlers that embed it. A zero
// value logs nowhere.
type errorLog struct {
	logger logger.Logger
}

// respondError writes err with the status its kind maps to. Internal
// failures are logged and answered without detail.
func (e errorLog) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		l := e.logger
		if l == nil {
			l = logger.Nop()
		}
		l.Error(r.Context(), "request failed",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Error(err),
		)
		writeError(w, status, code, nil)
		return
	}
	writeError(w, status, code, err)
}
