package interfaces

import (
	"context"

	"github.com/SaranshG2501/LifePath-sub000/pkg/types"
)

// ScenarioStore is the external, read-only scenario content store.
type ScenarioStore interface {
	// GetScenario returns a scenario by id.
	GetScenario(ctx context.Context, scenarioID string) (*types.Scenario, error)

	// GetScene returns one scene of a scenario's choice graph.
	GetScene(ctx context.Context, scenarioID, sceneID string) (*types.Scene, error)
}

// RosterProvider enumerates the students enrolled in a classroom. Rosters are
// owned by the external classroom system; this is the adapter seam.
type RosterProvider interface {
	Roster(ctx context.Context, classroomID string) ([]types.RosterEntry, error)
}

// Submitter is the write surface a student client drives: vote submission and
// advisory presence pings. In-process it is backed by the session store; over
// the wire it is backed by the HTTP command surface.
type Submitter interface {
	// SubmitChoice records a vote targeting one specific scene. A submit that
	// loses the race against a scene change is dropped as a conflict rather
	// than landing in the new scene's choice map.
	SubmitChoice(ctx context.Context, sessionID, studentID, sceneID, choiceID string) error
	UpdatePresence(ctx context.Context, sessionID, studentID, sceneID string, isTyping bool) error
}
