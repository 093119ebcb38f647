package domain

import "errors"

var (
	// ErrQueueUnavailable is returned when the broker cannot be reached or rejects an operation
	ErrQueueUnavailable = errors.New("queue unavailable")

	// ErrMalformedJob is returned when a queued payload or its image cannot be decoded
	ErrMalformedJob = errors.New("malformed job")

	// ErrDetectionFailed is returned when the detection capability fails or returns an invalid count
	ErrDetectionFailed = errors.New("detection failed")

	// ErrNotificationFailed is returned when the downstream service rejects or misses a result
	ErrNotificationFailed = errors.New("notification failed")

	// ErrValidation is returned when an ingress request is incomplete
	ErrValidation = errors.New("validation error")

	// ErrCameraNotFound is returned when a camera is not present in the registry
	ErrCameraNotFound = errors.New("camera not found")

	// ErrCameraInactive is returned when a registered camera has been disabled
	ErrCameraInactive = errors.New("camera inactive")
)

// ValidationError describes which ingress field was rejected
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError creates a new validation error for field
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
