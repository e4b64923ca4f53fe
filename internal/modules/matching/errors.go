package matching

import "errors"

// Errors raised for a malformed new request. Per-candidate problems never
// surface as errors; the candidate is dropped instead.
var (
	ErrInvalidStation   = errors.New("invalid station")
	ErrInvalidWindow    = errors.New("invalid time window")
	ErrMissingSpeedData = errors.New("missing speed data")
)

// Service-level errors.
var (
	ErrNotFound     = errors.New("trip not found")
	ErrConflict     = errors.New("trip already matched")
	ErrNotSuggested = errors.New("candidate was not suggested for this trip")
	ErrLocked       = errors.New("trip is being matched")
	ErrForbidden    = errors.New("trip belongs to another rider")
)
