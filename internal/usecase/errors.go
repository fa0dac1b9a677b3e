package usecase

import "fmt"

type ErrorCode string

const (
	ErrorInvalidInput ErrorCode = "INVALID_INPUT"
	ErrorProvider     ErrorCode = "PROVIDER_ERROR"
	ErrorTransport    ErrorCode = "TRANSPORT_ERROR"
	ErrorConfig       ErrorCode = "CONFIG_ERROR"
	ErrorInternal     ErrorCode = "INTERNAL_ERROR"
)

// Error is the tagged failure returned by RelayService. Message is the text
// safe to show the widget; Status is the upstream HTTP status for
// ErrorProvider and zero otherwise.
type Error struct {
	Code    ErrorCode
	Reason  string
	Message string
	Status  int
	Err     error
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

func newError(code ErrorCode, reason, message string, err error) *Error {
	return &Error{Code: code, Reason: reason, Message: message, Err: err}
}
