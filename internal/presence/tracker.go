// Package presence applies advisory, best-effort presence hints to the
// session record. Presence is never part of the consistency guarantees:
// failures are swallowed, writes are throttled, nothing is retried.
package presence

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/SaranshG2501/LifePath-sub000/pkg/interfaces"
	"github.com/SaranshG2501/LifePath-sub000/pkg/types"
)

// Tracker throttles per-student presence writes so typing indicators cannot
// flood the store's write path.
type Tracker struct {
	store       interfaces.SessionStore
	minInterval time.Duration

	mu        sync.Mutex
	lastWrite map[string]time.Time // sessionID|studentID -> last accepted write
}

// NewTracker creates a tracker. minInterval of zero disables throttling.
func NewTracker(store interfaces.SessionStore, minInterval time.Duration) *Tracker {
	return &Tracker{
		store:       store,
		minInterval: minInterval,
		lastWrite:   make(map[string]time.Time),
	}
}

// Update records a presence hint. Fire-and-forget: throttled updates and
// write failures are dropped without surfacing an error to the caller.
func (t *Tracker) Update(ctx context.Context, sessionID, studentID, sceneID string, isTyping bool) {
	if !t.allow(sessionID, studentID) {
		return
	}

	_, err := t.store.PatchSession(ctx, sessionID, types.SessionPatch{
		SetPresence: &types.PresenceUpdate{
			StudentID: studentID,
			SceneID:   sceneID,
			IsTyping:  isTyping,
		},
	}, nil)
	if err != nil {
		log.Printf("presence: dropped update session=%s student=%s: %v", sessionID, studentID, err)
	}
}

// MarkInactive flips a participant's active flag on disconnect. The student's
// vote stays in place; only the next scene advance clears votes.
func (t *Tracker) MarkInactive(ctx context.Context, sessionID, studentID string) {
	_, err := t.store.PatchSession(ctx, sessionID, types.SessionPatch{
		SetActivity: &types.ParticipantActivity{
			StudentID: studentID,
			IsActive:  false,
		},
	}, nil)
	if err != nil {
		log.Printf("presence: failed to mark inactive session=%s student=%s: %v", sessionID, studentID, err)
	}
}

// allow implements a per-student minimum interval between accepted writes.
func (t *Tracker) allow(sessionID, studentID string) bool {
	if t.minInterval <= 0 {
		return true
	}

	key := sessionID + "|" + studentID
	now := time.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	if last, ok := t.lastWrite[key]; ok && now.Sub(last) < t.minInterval {
		return false
	}
	t.lastWrite[key] = now

	// Prune stale entries so long-running processes do not grow the map
	// unbounded across many sessions.
	if len(t.lastWrite) > 4096 {
		horizon := now.Add(-10 * time.Minute)
		for k, ts := range t.lastWrite {
			if ts.Before(horizon) {
				delete(t.lastWrite, k)
			}
		}
	}

	return true
}
