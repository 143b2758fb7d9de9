package lifecycle

import "errors"

// Failure taxonomy. Handlers map these to HTTP statuses; every failure leaves
// the record unchanged.
var (
	ErrValidation         = errors.New("validation failed")
	ErrSchedulingConflict = errors.New("scheduled time must be in the future")
	ErrNotFound           = errors.New("interview not found")
	ErrAccessDenied       = errors.New("access denied")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrAlreadyAssigned    = errors.New("interviewer already assigned")
)
