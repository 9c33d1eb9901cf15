package api

import (
	"errors"
	"fmt"
	"net/http"

	service "github.com/okian/hotpath/internal/app"
	"github.com/okian/hotpath/internal/domain/model"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest    = errors.New("bad request")
	ErrLimitExceeded = errors.New("limit exceeded")
	ErrBackpressure  = errors.New("backpressure")
	ErrEngineFault   = errors.New("engine fault")

	ErrEmptyBody         = fmt.Errorf("%w: empty body", ErrBadRequest)
	ErrMissingCandidates = fmt.Errorf("%w: missing candidates", ErrBadRequest)
)

// Error records the operation that failed, the kind used to pick a status
// code and the underlying cause.
type Error struct {
	Op   string
	Kind error
	Err  error
}

// NewKind returns an error of the given kind with no further cause.
func NewKind(op string, kind error) *Error {
	return &Error{Op: op, Kind: kind}
}

// WrapKind attaches a kind to err.
func WrapKind(op string, kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// Wrap classifies err by the service and domain sentinels it carries.
func Wrap(op string, err error) *Error {
	return &Error{Op: op, Kind: kindOf(err), Err: err}
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Kind != nil {
		msg += ": " + e.Kind.Error()
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	var errs []error
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func kindOf(err error) error {
	switch {
	case errors.Is(err, model.ErrInvalidTask):
		return ErrBadRequest
	case errors.Is(err, service.ErrBackpressure), errors.Is(err, service.ErrNotStarted):
		return ErrBackpressure
	case errors.Is(err, service.ErrEngineFault):
		return ErrEngineFault
	default:
		return nil
	}
}

// statusFor maps an error kind to the HTTP status and response code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, ErrLimitExceeded):
		return http.StatusRequestEntityTooLarge, "limit_exceeded"
	case errors.Is(err, ErrBackpressure):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, ErrEngineFault):
		return http.StatusInternalServerError, "engine_fault"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
