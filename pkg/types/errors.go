package types

import "errors"

// Taxonomy roots. Concrete errors wrap one of these with fmt.Errorf and %w so
// callers classify with errors.Is without depending on exact messages.
//
// Propagation policy: validation and permission failures are rejected
// synchronously and never retried; transient failures are safe to retry
// because all core writes are idempotent patches or guarded creates; a
// conflict on a choice submit is surfaced so the client can treat the
// already-recorded vote as success.
var (
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
	ErrNotFound   = errors.New("not found")
	ErrPermission = errors.New("permission denied")
	ErrTransient  = errors.New("transient failure")
)

// Field-level validation errors.
var (
	ErrInvalidUserID      = errors.New("user ID must be 1-50 characters, alphanumeric + underscore/hyphen only")
	ErrInvalidClassroomID = errors.New("classroom ID must be 1-50 characters, alphanumeric + underscore/hyphen only")
	ErrInvalidScenarioID  = errors.New("scenario ID must be 1-50 characters, alphanumeric + underscore/hyphen only")
	ErrInvalidSceneID     = errors.New("scene ID must be 1-100 characters")
	ErrInvalidChoiceID    = errors.New("choice ID must be 1-100 characters")
	ErrInvalidDisplayName = errors.New("display name must be 1-100 characters")
	ErrInvalidRole        = errors.New("invalid role: must be 'student' or 'teacher'")
	ErrInvalidStatus      = errors.New("invalid session status")
)
