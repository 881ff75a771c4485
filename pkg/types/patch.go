package types

// SessionPatch describes an atomic multi-field mutation of a session. All set
// fields are applied together or not at all; a subscriber can never observe a
// scene change with stale choices or vice versa.
//
// Setting CurrentSceneID to a value different from the stored one is a scene
// transition: the store unconditionally clears CurrentChoices and every
// IsTyping flag in the same patch. That coupling lives in the store, not in
// callers, so the invariant holds by construction.
type SessionPatch struct {
	CurrentSceneID *string
	RevealVotes    *bool
	Status         *string
	Result         map[string]any

	SetChoice      *ChoiceSubmission
	AddParticipant *Participant
	SetActivity    *ParticipantActivity
	SetPresence    *PresenceUpdate
}

// ChoiceSubmission records one student's vote for the current scene.
type ChoiceSubmission struct {
	StudentID string
	ChoiceID  string
}

// ParticipantActivity flips a participant's active flag, typically on
// disconnect. It never removes the participant or their vote.
type ParticipantActivity struct {
	StudentID string
	IsActive  bool
}

// PresenceUpdate is an advisory presence write for one student.
type PresenceUpdate struct {
	StudentID string
	SceneID   string
	IsTyping  bool
}

// IsZero reports whether the patch mutates nothing.
func (p SessionPatch) IsZero() bool {
	return p.CurrentSceneID == nil &&
		p.RevealVotes == nil &&
		p.Status == nil &&
		p.Result == nil &&
		p.SetChoice == nil &&
		p.AddParticipant == nil &&
		p.SetActivity == nil &&
		p.SetPresence == nil
}

// TouchesOnlyResult reports whether the patch writes nothing beyond the result
// payload. Ended sessions accept exactly these patches.
func (p SessionPatch) TouchesOnlyResult() bool {
	return p.Result != nil &&
		p.CurrentSceneID == nil &&
		p.RevealVotes == nil &&
		p.Status == nil &&
		p.SetChoice == nil &&
		p.AddParticipant == nil &&
		p.SetActivity == nil &&
		p.SetPresence == nil
}
