package usecase

import (
	"errors"
	"fmt"

	"weather-agent/internal/domain"
)

type ErrorCode string

const (
	ErrorInvalidInput ErrorCode = "INVALID_INPUT"
	ErrorNotFound     ErrorCode = "NOT_FOUND"
	ErrorConflict     ErrorCode = "CONFLICT"
	ErrorInternal     ErrorCode = "INTERNAL_ERROR"

	// Lookup chain failures. These never leave a Session; they are logged.
	ErrorTransport        ErrorCode = "TRANSPORT_ERROR"
	ErrorProtocol         ErrorCode = "PROTOCOL_ERROR"
	ErrorMalformedPayload ErrorCode = "MALFORMED_PAYLOAD"
)

type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

// stageError classifies a failed lookup stage. Reasons read "<stage>_<kind>",
// e.g. "points_protocol_error".
func stageError(stage string, err error) *Error {
	var statusErr httpStatusCoder
	switch {
	case errors.Is(err, domain.ErrMalformedPayload):
		return newError(ErrorMalformedPayload, stage+"_malformed_payload", err)
	case errors.As(err, &statusErr):
		return newError(ErrorProtocol, stage+"_protocol_error", err)
	default:
		return newError(ErrorTransport, stage+"_transport_error", err)
	}
}
