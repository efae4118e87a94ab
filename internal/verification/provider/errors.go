package provider

import (
	"errors"
	"fmt"
)

// ErrorCategory normalizes upstream failure modes so callers can decide on
// retries without parsing provider responses.
type ErrorCategory string

const (
	// ErrorTimeout indicates the provider took too long to respond.
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorAuthentication indicates credential or signature issues.
	ErrorAuthentication ErrorCategory = "authentication"

	// ErrorOutage indicates the provider is unavailable (5xx, connect
	// failures).
	ErrorOutage ErrorCategory = "outage"

	// ErrorBadData indicates the provider rejected or returned malformed
	// data.
	ErrorBadData ErrorCategory = "bad_data"

	// ErrorNotFound indicates the applicant does not exist upstream.
	ErrorNotFound ErrorCategory = "not_found"

	// ErrorRateLimited indicates too many requests.
	ErrorRateLimited ErrorCategory = "rate_limited"
)

// UpstreamError wraps provider failures with normalized categorization.
type UpstreamError struct {
	Category   ErrorCategory
	Operation  string
	Underlying error
	Retryable  bool
}

func (e *UpstreamError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("provider %s [%s]: %v", e.Operation, e.Category, e.Underlying)
	}
	return fmt.Sprintf("provider %s [%s]", e.Operation, e.Category)
}

func (e *UpstreamError) Unwrap() error { return e.Underlying }

func newUpstreamError(category ErrorCategory, operation string, underlying error) *UpstreamError {
	retryable := category == ErrorTimeout ||
		category == ErrorOutage ||
		category == ErrorRateLimited

	return &UpstreamError{
		Category:   category,
		Operation:  operation,
		Underlying: underlying,
		Retryable:  retryable,
	}
}

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Retryable
	}
	return false
}

// CategoryOf extracts the error category, defaulting to outage.
func CategoryOf(err error) ErrorCategory {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Category
	}
	return ErrorOutage
}
