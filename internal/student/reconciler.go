package student

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/SaranshG2501/LifePath-sub000/pkg/interfaces"
	"github.com/SaranshG2501/LifePath-sub000/pkg/types"
)

// pendingSubmit is the explicit record of an optimistic vote in flight: a
// correlation id for tracing and the state to roll back to if the write
// fails. Making it a record (instead of implicit UI state) is what lets
// rollback be tested without any rendering harness.
type pendingSubmit struct {
	CorrelationID string
	SceneID       string
	ChoiceID      string
	Rollback      State
}

// Reconciler drives one student's local state from change-feed snapshots and
// submits votes optimistically. All transitions flow through the pure Reduce
// function; the reconciler only adds locking, the pending-submit record, and
// the change callback.
type Reconciler struct {
	studentID string
	sessionID string
	submitter interfaces.Submitter
	onChange  func(State)

	mu      sync.Mutex
	state   State
	pending *pendingSubmit
	unsub   func()
}

// NewReconciler creates a detached reconciler in the Disconnected phase.
// onChange, if non-nil, fires after every observable state change.
func NewReconciler(sessionID, studentID string, submitter interfaces.Submitter, onChange func(State)) *Reconciler {
	return &Reconciler{
		studentID: studentID,
		sessionID: sessionID,
		submitter: submitter,
		onChange:  onChange,
		state:     InitialState(),
	}
}

// Attach subscribes the reconciler to a change feed. On reconnect after
// missed advances, the first snapshot carries the current scene, so the
// state machine lands directly on it with no flicker through skipped scenes.
func (r *Reconciler) Attach(feed interfaces.ChangeFeed) error {
	r.mu.Lock()
	if r.unsub != nil {
		r.mu.Unlock()
		return ErrAlreadyAttached
	}
	r.mu.Unlock()

	unsub, err := feed.Subscribe(r.sessionID, r.HandleSnapshot)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.unsub = unsub
	r.mu.Unlock()
	return nil
}

// Detach unsubscribes and returns the reconciler to Disconnected unless the
// session already ended. Local vote state survives a detach; the next
// snapshot after re-attach rebuilds it from authoritative data anyway.
func (r *Reconciler) Detach() {
	r.mu.Lock()
	unsub := r.unsub
	r.unsub = nil
	if r.state.Phase != PhaseSessionEnded {
		r.setStateLocked(State{Phase: PhaseDisconnected, SceneID: r.state.SceneID})
	}
	r.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}

// HandleSnapshot feeds one authoritative snapshot through Reduce.
// Idempotent: redelivery of a snapshot that already settled the state changes
// nothing and fires no callback.
func (r *Reconciler) HandleSnapshot(snapshot *types.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := Reduce(r.state, snapshot, r.studentID)
	// A scene-mismatch pass resets to WaitingForScene without reading the
	// choice map. The advance patch cleared choices in the same write that
	// moved the scene, so this snapshot's choice map is already the
	// authoritative post-reset state; a second application settles the new
	// scene immediately instead of waiting for a later write that a quiet
	// session may never produce. Settled states are Reduce fixpoints, so
	// this is a no-op everywhere else.
	next = Reduce(next, snapshot, r.studentID)

	// A snapshot confirming our optimistic choice settles the pending
	// submit; one that moved the scene on (or ended the session) makes it
	// moot. A redelivered pre-vote snapshot for the same scene must not
	// reopen voting while our write is still in flight.
	if r.pending != nil {
		switch {
		case next.Phase == PhaseVoted && next.SelectedChoiceID == r.pending.ChoiceID:
			r.pending = nil
		case next.Phase == PhaseSessionEnded, next.SceneID != r.pending.SceneID:
			r.pending = nil
		case next.Phase == PhaseVoting:
			return
		}
	}

	r.setStateLocked(next)
}

// State returns the current local state.
func (r *Reconciler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// SubmitChoice optimistically records a vote and pushes it to the store. Only
// valid while Voting; a stale UI event after a scene advance is rejected
// before any network call. On a write failure the optimistic state rolls back
// and a retryable error surfaces. A conflict (vote already recorded
// server-side) counts as success: the already-recorded vote stands.
func (r *Reconciler) SubmitChoice(ctx context.Context, choiceID string) error {
	r.mu.Lock()
	if r.state.Phase != PhaseVoting {
		r.mu.Unlock()
		return ErrNotVoting
	}

	pending := &pendingSubmit{
		CorrelationID: uuid.New().String(),
		SceneID:       r.state.SceneID,
		ChoiceID:      choiceID,
		Rollback:      r.state,
	}
	r.pending = pending
	r.setStateLocked(State{
		Phase:            PhaseVoted,
		SceneID:          r.state.SceneID,
		HasVoted:         true,
		SelectedChoiceID: choiceID,
	})
	r.mu.Unlock()

	err := r.submitter.SubmitChoice(ctx, r.sessionID, r.studentID, pending.SceneID, choiceID)
	if err == nil {
		r.mu.Lock()
		if r.pending == pending {
			r.pending = nil
		}
		r.mu.Unlock()
		return nil
	}

	if errors.Is(err, types.ErrConflict) {
		log.Printf("student: submit conflict treated as recorded correlation=%s: %v",
			pending.CorrelationID, err)
		r.mu.Lock()
		if r.pending == pending {
			r.pending = nil
		}
		r.mu.Unlock()
		return nil
	}

	r.mu.Lock()
	// A snapshot may have settled or superseded this submit while the write
	// was in flight; only an unsettled pending rolls back.
	if r.pending == pending {
		r.pending = nil
		r.setStateLocked(pending.Rollback)
	}
	r.mu.Unlock()

	log.Printf("student: submit failed correlation=%s: %v", pending.CorrelationID, err)
	return errors.Join(ErrSubmitUnavailable, err)
}

// UpdatePresence is fire-and-forget: never retried, never blocking snapshot
// processing, errors swallowed.
func (r *Reconciler) UpdatePresence(ctx context.Context, isTyping bool) {
	r.mu.Lock()
	sceneID := r.state.SceneID
	r.mu.Unlock()

	if err := r.submitter.UpdatePresence(ctx, r.sessionID, r.studentID, sceneID, isTyping); err != nil {
		log.Printf("student: presence update dropped session=%s: %v", r.sessionID, err)
	}
}

// setStateLocked swaps state and fires the change callback. Caller holds mu.
func (r *Reconciler) setStateLocked(next State) {
	if next == r.state {
		return
	}
	r.state = next
	if r.onChange != nil {
		r.onChange(next)
	}
}
