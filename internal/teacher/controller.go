// Package teacher implements the single writer authorized to create sessions,
// advance scenes, reveal results, and end sessions. The single-writer rule on
// scene and status fields is what makes "clear choices atomically with scene
// change" sufficient for consistency: no other actor can race it.
package teacher

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/SaranshG2501/LifePath-sub000/internal/observability"
	"github.com/SaranshG2501/LifePath-sub000/pkg/interfaces"
	"github.com/SaranshG2501/LifePath-sub000/pkg/types"
)

// Dispatcher is the notification fan-out consumed on session start.
type Dispatcher interface {
	Dispatch(ctx context.Context, session *types.Session, scenarioTitle string, roster []types.RosterEntry) error
}

// Controller drives live sessions on behalf of an authenticated teacher.
type Controller struct {
	store      interfaces.SessionStore
	scenarios  interfaces.ScenarioStore
	roster     interfaces.RosterProvider
	dispatcher Dispatcher
	metrics    *observability.Metrics
}

// StartSessionRequest carries the teacher's start command.
type StartSessionRequest struct {
	ClassroomID          string `json:"classroom_id"`
	ScenarioID           string `json:"scenario_id"`
	InitialSceneID       string `json:"initial_scene_id"`
	MirrorMomentsEnabled bool   `json:"mirror_moments_enabled"`
}

func NewController(store interfaces.SessionStore, scenarios interfaces.ScenarioStore,
	roster interfaces.RosterProvider, dispatcher Dispatcher, metrics *observability.Metrics) *Controller {
	return &Controller{
		store:      store,
		scenarios:  scenarios,
		roster:     roster,
		dispatcher: dispatcher,
		metrics:    metrics,
	}
}

// StartSession creates a live session for a classroom and notifies the
// roster. Fails with a conflict if the classroom already has one; the store
// checks and sets the active-session pointer atomically.
func (c *Controller) StartSession(ctx context.Context, id types.Identity, req StartSessionRequest) (*types.Session, error) {
	if err := requireTeacher(id); err != nil {
		return nil, err
	}
	if err := id.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", types.ErrValidation, err)
	}

	scenario, err := c.scenarios.GetScenario(ctx, req.ScenarioID)
	if err != nil {
		return nil, err
	}
	if _, err := c.scenarios.GetScene(ctx, req.ScenarioID, req.InitialSceneID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	session := &types.Session{
		ID:                   uuid.New().String(),
		ClassroomID:          req.ClassroomID,
		TeacherID:            id.UserID,
		TeacherName:          id.DisplayName,
		ScenarioID:           req.ScenarioID,
		CurrentSceneID:       req.InitialSceneID,
		Status:               types.SessionStatusActive,
		Participants:         make(map[string]types.Participant),
		CurrentChoices:       make(map[string]string),
		Presence:             make(map[string]types.PresenceInfo),
		MirrorMomentsEnabled: req.MirrorMomentsEnabled,
		CreatedAt:            now,
		LastUpdated:          now,
	}

	if err := c.store.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	c.metrics.SessionEvent("started")

	// Notification failures never roll the session back; enrolled students
	// can still join through the classroom view.
	roster, err := c.roster.Roster(ctx, req.ClassroomID)
	if err != nil {
		log.Printf("teacher: roster lookup failed classroom=%s: %v", req.ClassroomID, err)
	} else if err := c.dispatcher.Dispatch(ctx, session, scenario.Title, roster); err != nil {
		log.Printf("teacher: notification dispatch failed session=%s: %v", session.ID, err)
	}

	log.Printf("teacher: started session id=%s classroom=%s scenario=%s scene=%s",
		session.ID, session.ClassroomID, session.ScenarioID, session.CurrentSceneID)
	return session.Clone(), nil
}

// AdvanceScene moves the session to the next scene, clearing the choice map
// and typing flags in the same patch. Advancing to the current scene is a
// no-op so a double-click never wipes the votes already cast.
func (c *Controller) AdvanceScene(ctx context.Context, id types.Identity, sessionID, nextSceneID string) (*types.Session, error) {
	session, err := c.authorize(ctx, id, sessionID)
	if err != nil {
		return nil, err
	}

	if session.CurrentSceneID == nextSceneID {
		return session, nil
	}

	if _, err := c.scenarios.GetScene(ctx, session.ScenarioID, nextSceneID); err != nil {
		return nil, err
	}

	snap, err := c.store.PatchSession(ctx, sessionID, types.SessionPatch{
		CurrentSceneID: &nextSceneID,
	}, nil)
	if err != nil {
		return nil, err
	}
	c.metrics.SessionEvent("scene_advanced")

	log.Printf("teacher: advanced session=%s scene=%s", sessionID, nextSceneID)
	return snap, nil
}

// SetRevealVotes toggles the display-only reveal flag, independent of scene
// state.
func (c *Controller) SetRevealVotes(ctx context.Context, id types.Identity, sessionID string, reveal bool) (*types.Session, error) {
	if _, err := c.authorize(ctx, id, sessionID); err != nil {
		return nil, err
	}

	snap, err := c.store.PatchSession(ctx, sessionID, types.SessionPatch{
		RevealVotes: &reveal,
	}, nil)
	if err != nil {
		return nil, err
	}
	c.metrics.SessionEvent("reveal_toggled")
	return snap, nil
}

// EndSession moves the session to its terminal state and records the result
// payload. The store detaches the classroom's active-session pointer in the
// same transaction, so a new session can start immediately after.
func (c *Controller) EndSession(ctx context.Context, id types.Identity, sessionID string, result map[string]any) (*types.Session, error) {
	if _, err := c.authorize(ctx, id, sessionID); err != nil {
		return nil, err
	}

	ended := types.SessionStatusEnded
	if result == nil {
		result = map[string]any{}
	}
	snap, err := c.store.PatchSession(ctx, sessionID, types.SessionPatch{
		Status: &ended,
		Result: result,
	}, nil)
	if err != nil {
		return nil, err
	}
	c.metrics.SessionEvent("ended")

	log.Printf("teacher: ended session=%s", sessionID)
	return snap, nil
}

// authorize loads the session and verifies the caller is its teacher.
func (c *Controller) authorize(ctx context.Context, id types.Identity, sessionID string) (*types.Session, error) {
	if err := requireTeacher(id); err != nil {
		return nil, err
	}

	session, err := c.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.TeacherID != id.UserID {
		return nil, ErrNotOwner
	}
	return session, nil
}

func requireTeacher(id types.Identity) error {
	if id.Role != types.RoleTeacher {
		return ErrNotTeacher
	}
	return nil
}
