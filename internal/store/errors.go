package store

import (
	"fmt"

	"github.com/SaranshG2501/LifePath-sub000/pkg/types"
)

// Store error values. Each wraps a taxonomy root from pkg/types so callers
// classify with errors.Is.
var (
	ErrSessionNotFound      = fmt.Errorf("%w: session", types.ErrNotFound)
	ErrNotificationNotFound = fmt.Errorf("%w: notification", types.ErrNotFound)
	ErrClassroomBusy        = fmt.Errorf("%w: classroom already has an active session", types.ErrConflict)
	ErrSessionEnded         = fmt.Errorf("%w: session has ended", types.ErrConflict)
	ErrNotParticipant       = fmt.Errorf("%w: student has not joined this session", types.ErrPermission)
	ErrEmptyPatch           = fmt.Errorf("%w: patch mutates nothing", types.ErrValidation)
	ErrStoreClosed          = fmt.Errorf("%w: store is closed", types.ErrTransient)
)
