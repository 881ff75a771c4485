package types

import (
	"time"
)

// User roles supplied by the external identity provider.
const (
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// Session lifecycle states.
const (
	SessionStatusActive = "active"
	SessionStatusEnded  = "ended"
)

// NotificationTypeLiveSessionStarted is the only notification kind the engine
// emits: a fire-once signal that a classroom session went live.
const NotificationTypeLiveSessionStarted = "live_session_started"

// Identity is the caller identity stamped on every command. It comes from the
// external identity provider and is trusted as-is; the engine only enforces
// role checks on top of it.
type Identity struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

// Participant is one student enrolled in a live session.
type Participant struct {
	StudentID   string    `json:"student_id"`
	StudentName string    `json:"student_name"`
	JoinedAt    time.Time `json:"joined_at"`
	IsActive    bool      `json:"is_active"`
}

// PresenceInfo is an advisory, best-effort activity hint for one student.
// It is never part of the consistency guarantees.
type PresenceInfo struct {
	CurrentSceneID string `json:"current_scene_id"`
	IsTyping       bool   `json:"is_typing"`
}

// Session is the authoritative record of one live classroom run.
//
// CurrentChoices is scoped to the current scene only: every transition of
// CurrentSceneID clears it (and all IsTyping flags) in the same atomic patch.
// Once Status is "ended" only Result may still be written.
type Session struct {
	ID                   string                  `json:"id"`
	ClassroomID          string                  `json:"classroom_id"`
	TeacherID            string                  `json:"teacher_id"`
	TeacherName          string                  `json:"teacher_name"`
	ScenarioID           string                  `json:"scenario_id"`
	CurrentSceneID       string                  `json:"current_scene_id"`
	Status               string                  `json:"status"`
	Participants         map[string]Participant  `json:"participants"`
	CurrentChoices       map[string]string       `json:"current_choices"`
	Presence             map[string]PresenceInfo `json:"presence"`
	RevealVotes          bool                    `json:"reveal_votes"`
	MirrorMomentsEnabled bool                    `json:"mirror_moments_enabled"`
	CreatedAt            time.Time               `json:"created_at"`
	LastUpdated          time.Time               `json:"last_updated"`
	Result               map[string]any          `json:"result,omitempty"`
}

// Clone returns a deep copy. Snapshots handed to subscribers are always
// clones so no caller can mutate the store's authoritative state.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	dup := *s
	dup.Participants = make(map[string]Participant, len(s.Participants))
	for id, p := range s.Participants {
		dup.Participants[id] = p
	}
	dup.CurrentChoices = make(map[string]string, len(s.CurrentChoices))
	for id, c := range s.CurrentChoices {
		dup.CurrentChoices[id] = c
	}
	dup.Presence = make(map[string]PresenceInfo, len(s.Presence))
	for id, p := range s.Presence {
		dup.Presence[id] = p
	}
	if s.Result != nil {
		dup.Result = make(map[string]any, len(s.Result))
		for k, v := range s.Result {
			dup.Result[k] = v
		}
	}
	return &dup
}

// IsEnded reports whether the session has reached its terminal state.
func (s *Session) IsEnded() bool {
	return s.Status == SessionStatusEnded
}

// TallyChoices counts votes per choice id for the current scene. Reveal counts
// are always derived from CurrentChoices so they cannot drift from it.
func TallyChoices(s *Session) map[string]int {
	tally := make(map[string]int, len(s.CurrentChoices))
	for _, choiceID := range s.CurrentChoices {
		tally[choiceID]++
	}
	return tally
}

// Notification is a fire-once signal consumed (or locally dismissed) by
// exactly one student client. It survives reconnect until acted upon.
type Notification struct {
	ID            string    `json:"id"`
	StudentID     string    `json:"student_id"`
	SessionID     string    `json:"session_id"`
	TeacherName   string    `json:"teacher_name"`
	ScenarioTitle string    `json:"scenario_title"`
	Type          string    `json:"type"`
	CreatedAt     time.Time `json:"created_at"`
}

// Choice is one selectable option within a scene.
type Choice struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	NextSceneID string `json:"next_scene_id"`
}

// Scene is a node in a scenario's choice graph.
type Scene struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Choices     []Choice `json:"choices"`
}

// Scenario is a read-only scene graph served by the external content store.
type Scenario struct {
	ID     string           `json:"id"`
	Title  string           `json:"title"`
	Scenes map[string]Scene `json:"scenes"`
}

// RosterEntry is one student on a classroom roster.
type RosterEntry struct {
	StudentID   string `json:"student_id"`
	StudentName string `json:"student_name"`
}
