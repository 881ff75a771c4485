package interfaces

import (
	"context"
	"fmt"

	"github.com/SaranshG2501/LifePath-sub000/pkg/types"
)

// Guard is an optional precondition evaluated against the current session
// value inside the store's write path, before a patch is applied. Returning an
// error aborts the patch without mutating anything.
type Guard func(*types.Session) error

// SceneGuard aborts a write when the session has moved past the scene the
// write targets. Because the guard runs inside the store's write path, the
// check and the patch are one atomic step: a vote that lost the race against
// a scene change is rejected instead of leaking into the new scene.
func SceneGuard(sceneID string) Guard {
	return func(session *types.Session) error {
		if session.CurrentSceneID != sceneID {
			return fmt.Errorf("%w: scene %q is no longer current", types.ErrConflict, sceneID)
		}
		return nil
	}
}

// SessionStore is the durable record of live sessions. Implementations must
// apply each patch atomically and enforce the single-active-session-per-
// classroom invariant inside the create operation itself.
type SessionStore interface {
	// CreateSession persists a new active session. It fails with a conflict
	// error if the session's classroom already references an active session;
	// check and set happen within one atomic operation.
	CreateSession(ctx context.Context, session *types.Session) error

	// GetSession returns a snapshot (deep copy) of a session.
	GetSession(ctx context.Context, sessionID string) (*types.Session, error)

	// PatchSession atomically applies a multi-field patch and returns the
	// resulting snapshot. A nil guard means unconditional.
	PatchSession(ctx context.Context, sessionID string, patch types.SessionPatch, guard Guard) (*types.Session, error)

	// ListActiveSessions returns snapshots of all active sessions.
	ListActiveSessions(ctx context.Context) ([]*types.Session, error)
}

// NotificationStore persists fire-once student notifications so they survive
// reconnects until acted upon.
type NotificationStore interface {
	CreateNotifications(ctx context.Context, notifications []*types.Notification) error
	PendingNotifications(ctx context.Context, studentID string) ([]*types.Notification, error)
	ConsumeNotification(ctx context.Context, notificationID string) error
}
