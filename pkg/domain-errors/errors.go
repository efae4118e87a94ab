// Package derrors defines the coded error taxonomy shared by services,
// stores, and the HTTP layer. Handlers translate codes to status codes in
// one place so transports never inspect error strings.
package derrors

import (
	"errors"
	"net/http"
)

// Code identifies a class of failure.
type Code string

const (
	// CodeInvalidInput covers malformed or missing caller input. Expected,
	// never logged as a system fault.
	CodeInvalidInput Code = "invalid_input"

	// CodeDuplicateEmail is the business-rule conflict on registration.
	CodeDuplicateEmail Code = "duplicate_email"

	// CodeNotFound covers unresolved registrant or applicant ids.
	CodeNotFound Code = "not_found"

	// CodeUpstreamFailure covers failed calls to the verification provider
	// (network, timeout, non-2xx). Detail stays server-side.
	CodeUpstreamFailure Code = "upstream_failure"

	// CodeSignatureInvalid marks an inbound webhook that failed the
	// authenticity check. Logged as a security event, never mutates state.
	CodeSignatureInvalid Code = "signature_invalid"

	// CodeInternal is the fallback for unexpected failures.
	CodeInternal Code = "internal"
)

// Error is a domain error with a stable code and a caller-safe message.
type Error struct {
	Code    Code
	Message string
	wrapped error
}

func (e *Error) Error() string {
	if e.wrapped != nil {
		return e.Message + ": " + e.wrapped.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.wrapped }

// New creates a coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates a coded error that preserves the underlying cause for
// server-side logging while keeping Message caller-safe.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, wrapped: err}
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from an error, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code onto the HTTP status the transport should emit.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidInput, CodeDuplicateEmail:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeSignatureInvalid:
		return http.StatusUnauthorized
	case CodeUpstreamFailure, CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
