package security

import "errors"

// Code classifies why an input was rejected. Codes are stable strings so
// front ends can map them to inline messages.
type Code string

const (
	CodeInvalidUsername Code = "INVALID_USERNAME"
	CodeEmptyMessage    Code = "EMPTY_MESSAGE"
	CodeMessageTooLong  Code = "MESSAGE_TOO_LONG"
	CodeUnsafeContent   Code = "UNSAFE_CONTENT"
	CodeRateLimited     Code = "RATE_LIMITED"
	CodeInvalidFormat   Code = "INVALID_FORMAT"
	CodeUserBlocked     Code = "USER_BLOCKED"
)

// ValidationError is a user-correctable rejection from the validation gate.
type ValidationError struct {
	Code    Code
	Message string
}

func (e *ValidationError) Error() string {
	return string(e.Code) + ": " + e.Message
}

func newValidationError(code Code, message string) error {
	return &ValidationError{Code: code, Message: message}
}

// IsCode reports whether err is a ValidationError carrying the given code.
func IsCode(err error, code Code) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Code == code
	}
	return false
}
