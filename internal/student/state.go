// Package student implements the per-student client state machine that
// consumes change-feed snapshots and drives vote submission.
package student

import (
	"github.com/SaranshG2501/LifePath-sub000/pkg/types"
)

// Phase is the reconciler's position in the session lifecycle.
type Phase string

const (
	PhaseDisconnected    Phase = "disconnected"
	PhaseWaitingForScene Phase = "waiting_for_scene"
	PhaseVoting          Phase = "voting"
	PhaseVoted           Phase = "voted"
	PhaseSessionEnded    Phase = "session_ended"
)

// State is the student's local view, derived entirely from authoritative
// snapshots. All fields are comparable so equality is a plain ==.
type State struct {
	Phase            Phase
	SceneID          string
	HasVoted         bool
	SelectedChoiceID string
}

// InitialState is the pre-connection state.
func InitialState() State {
	return State{Phase: PhaseDisconnected}
}

// Reduce derives the next local state from an authoritative snapshot. It is
// pure: no I/O, no side effects, independently testable.
//
// Branch order matters and short-circuits:
//
//  1. An ended session is terminal; nothing else is inspected.
//  2. A scene mismatch means the teacher advanced. Local vote state resets
//     to WaitingForScene without reading CurrentChoices; the caller applies
//     Reduce again with the same snapshot to settle the new scene, since the
//     advance patch cleared choices in the same atomic write.
//  3. Scenes match: the student's own entry in CurrentChoices decides
//     between Voted and Voting.
//
// Re-applying the same snapshot to a settled state returns the identical
// state, which is what makes at-least-once delivery safe.
func Reduce(prev State, snapshot *types.Session, studentID string) State {
	if prev.Phase == PhaseSessionEnded {
		return prev
	}

	if snapshot.IsEnded() {
		return State{Phase: PhaseSessionEnded, SceneID: prev.SceneID}
	}

	if snapshot.CurrentSceneID != prev.SceneID {
		return State{
			Phase:   PhaseWaitingForScene,
			SceneID: snapshot.CurrentSceneID,
		}
	}

	if choiceID, ok := snapshot.CurrentChoices[studentID]; ok {
		return State{
			Phase:            PhaseVoted,
			SceneID:          prev.SceneID,
			HasVoted:         true,
			SelectedChoiceID: choiceID,
		}
	}

	return State{Phase: PhaseVoting, SceneID: prev.SceneID}
}
