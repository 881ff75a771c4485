package types

import (
	"regexp"
)

// Compiled once at package initialization; id validation sits on every write
// path.
var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// IsValidID checks the shared id format used for user, classroom and
// scenario ids.
func IsValidID(id string) bool {
	if len(id) < 1 || len(id) > 50 {
		return false
	}
	return idRegex.MatchString(id)
}

// IsValidSceneID checks a scene id. Scene ids come from scenario content and
// allow freer naming than account-style ids.
func IsValidSceneID(sceneID string) bool {
	return len(sceneID) >= 1 && len(sceneID) <= 100
}

// IsValidChoiceID checks a choice id.
func IsValidChoiceID(choiceID string) bool {
	return len(choiceID) >= 1 && len(choiceID) <= 100
}

// IsValidRole checks a role string from the identity provider.
func IsValidRole(role string) bool {
	return role == RoleTeacher || role == RoleStudent
}

// Validate ensures an identity is usable for stamping writes.
func (id Identity) Validate() error {
	if !IsValidID(id.UserID) {
		return ErrInvalidUserID
	}
	if len(id.DisplayName) < 1 || len(id.DisplayName) > 100 {
		return ErrInvalidDisplayName
	}
	if !IsValidRole(id.Role) {
		return ErrInvalidRole
	}
	return nil
}

// Validate ensures a session record meets all structural requirements.
func (s *Session) Validate() error {
	if !IsValidID(s.ClassroomID) {
		return ErrInvalidClassroomID
	}
	if !IsValidID(s.TeacherID) {
		return ErrInvalidUserID
	}
	if len(s.TeacherName) < 1 || len(s.TeacherName) > 100 {
		return ErrInvalidDisplayName
	}
	if !IsValidID(s.ScenarioID) {
		return ErrInvalidScenarioID
	}
	if !IsValidSceneID(s.CurrentSceneID) {
		return ErrInvalidSceneID
	}
	if s.Status != SessionStatusActive && s.Status != SessionStatusEnded {
		return ErrInvalidStatus
	}
	return nil
}
