// Package errors provides the standardized error taxonomy for the messaging engine.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeBookingNotFound  ErrorCode = "BOOKING_NOT_FOUND"
	ErrCodeMissingRecipient ErrorCode = "MISSING_RECIPIENT"
	ErrCodeTemplateNotFound ErrorCode = "TEMPLATE_NOT_FOUND"
	ErrCodeMessageNotFound  ErrorCode = "MESSAGE_NOT_FOUND"

	// ErrCodeConflict is raised by the booking CRUD layer on date overlap. It
	// stays in the taxonomy so callers share one vocabulary, but nothing in
	// the messaging core produces it.
	ErrCodeConflict ErrorCode = "CONFLICT"

	ErrCodeTransportFailure   ErrorCode = "TRANSPORT_FAILURE"
	ErrCodePersistenceFailure ErrorCode = "PERSISTENCE_FAILURE"

	// ErrCodeAlreadySent marks an idempotency-key uniqueness violation. It is
	// a success signal, not an error: the losing writer of a dispatch race is
	// told the message was already sent.
	ErrCodeAlreadySent ErrorCode = "ALREADY_SENT"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Retryable bool      `json:"retryable"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// NewBookingNotFoundError creates a non-retryable lookup error.
func NewBookingNotFoundError(bookingID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeBookingNotFound,
		Message:   "Booking not found",
		Details:   fmt.Sprintf("bookingId: %s", bookingID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewMissingRecipientError creates a terminal error for bookings without a
// guest email. Retrying can never succeed.
func NewMissingRecipientError(bookingID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMissingRecipient,
		Message:   "Guest email not provided",
		Details:   fmt.Sprintf("bookingId: %s", bookingID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTemplateNotFoundError creates a non-retryable template lookup error.
func NewTemplateNotFoundError(templateID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeTemplateNotFound,
		Message:   "Template not found",
		Details:   fmt.Sprintf("templateId: %s", templateID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewMessageNotFoundError creates a non-retryable sent-message lookup error.
func NewMessageNotFoundError(sentMessageID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMessageNotFound,
		Message:   "Message not found",
		Details:   fmt.Sprintf("sentMessageId: %s", sentMessageID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTransportFailureError creates a retryable email transport error. Every
// transport outcome short of an accepted send maps here, regardless of cause.
func NewTransportFailureError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTransportFailure,
		Message:   "Email delivery failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewPersistenceFailureError creates a retryable backing-store error.
func NewPersistenceFailureError(op string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePersistenceFailure,
		Message:   "Backing store rejected a write",
		Details:   fmt.Sprintf("op: %s, error: %s", op, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewAlreadySentError creates the success-signal sentinel for a lost
// idempotency race.
func NewAlreadySentError(bookingID, triggerID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAlreadySent,
		Message:   "Message already sent for this booking and trigger",
		Details:   fmt.Sprintf("bookingId: %s, triggerId: %s", bookingID, triggerID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewConflictError creates a non-retryable booking-overlap error.
func NewConflictError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeConflict,
		Message:   "Booking dates conflict with an existing booking",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// CodeOf extracts the ErrorCode from err, or "" when err is not a StandardError.
func CodeOf(err error) ErrorCode {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Code
	}
	return ""
}

// IsRetryable reports whether err is a StandardError marked retryable.
func IsRetryable(err error) bool {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Retryable
	}
	return false
}

// IsAlreadySent reports whether err is the already-sent success signal.
func IsAlreadySent(err error) bool {
	return CodeOf(err) == ErrCodeAlreadySent
}
