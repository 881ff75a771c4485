package student

import (
	"context"
	"fmt"

	"github.com/SaranshG2501/LifePath-sub000/internal/presence"
	"github.com/SaranshG2501/LifePath-sub000/pkg/interfaces"
	"github.com/SaranshG2501/LifePath-sub000/pkg/types"
)

// StoreSubmitter backs a reconciler directly with the session store: votes as
// guarded patches, presence through the best-effort tracker. Over the wire
// the same interface is implemented by an HTTP client instead.
type StoreSubmitter struct {
	store   interfaces.SessionStore
	tracker *presence.Tracker
}

func NewStoreSubmitter(store interfaces.SessionStore, tracker *presence.Tracker) *StoreSubmitter {
	return &StoreSubmitter{store: store, tracker: tracker}
}

// SubmitChoice writes one vote, guarded against the scene it targets. A vote
// against an ended session comes back as a conflict from the store; so does a
// vote for a scene the teacher already left, so a stale submit can never land
// in the new scene's choice map.
func (s *StoreSubmitter) SubmitChoice(ctx context.Context, sessionID, studentID, sceneID, choiceID string) error {
	if !types.IsValidSceneID(sceneID) {
		return fmt.Errorf("%w: %s", types.ErrValidation, types.ErrInvalidSceneID)
	}
	if !types.IsValidChoiceID(choiceID) {
		return fmt.Errorf("%w: %s", types.ErrValidation, types.ErrInvalidChoiceID)
	}

	_, err := s.store.PatchSession(ctx, sessionID, types.SessionPatch{
		SetChoice: &types.ChoiceSubmission{
			StudentID: studentID,
			ChoiceID:  choiceID,
		},
	}, interfaces.SceneGuard(sceneID))
	return err
}

// UpdatePresence forwards to the throttled tracker; it cannot fail.
func (s *StoreSubmitter) UpdatePresence(ctx context.Context, sessionID, studentID, sceneID string, isTyping bool) error {
	s.tracker.Update(ctx, sessionID, studentID, sceneID, isTyping)
	return nil
}

var _ interfaces.Submitter = (*StoreSubmitter)(nil)
