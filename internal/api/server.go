// Package api is the HTTP command surface: pure transport between external
// clients and the engine, no business logic beyond parameter checks.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/SaranshG2501/LifePath-sub000/internal/classroom"
	"github.com/SaranshG2501/LifePath-sub000/internal/observability"
	"github.com/SaranshG2501/LifePath-sub000/internal/presence"
	"github.com/SaranshG2501/LifePath-sub000/internal/reflection"
	"github.com/SaranshG2501/LifePath-sub000/internal/teacher"
	ws "github.com/SaranshG2501/LifePath-sub000/internal/websocket"
	"github.com/SaranshG2501/LifePath-sub000/pkg/interfaces"
	"github.com/SaranshG2501/LifePath-sub000/pkg/types"
)

// Server wires the command surface onto a chi router.
type Server struct {
	controller *teacher.Controller
	store      interfaces.SessionStore
	scenarios  interfaces.ScenarioStore
	rosters    *classroom.RosterStore
	tracker    *presence.Tracker
	gate       *reflection.Gate
	wsHandler  *ws.Handler
	metrics    *observability.Metrics
	router     chi.Router
}

func NewServer(controller *teacher.Controller, store interfaces.SessionStore,
	scenarios interfaces.ScenarioStore, rosters *classroom.RosterStore,
	tracker *presence.Tracker, gate *reflection.Gate,
	wsHandler *ws.Handler, metrics *observability.Metrics) *Server {

	s := &Server{
		controller: controller,
		store:      store,
		scenarios:  scenarios,
		rosters:    rosters,
		tracker:    tracker,
		gate:       gate,
		wsHandler:  wsHandler,
		metrics:    metrics,
		router:     chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Route("/api", func(r chi.Router) {
		r.Post("/sessions", s.startSession)
		r.Get("/sessions/{sessionID}", s.getSession)
		r.Get("/sessions/{sessionID}/summary", s.getSummary)
		r.Post("/sessions/{sessionID}/advance", s.advanceScene)
		r.Post("/sessions/{sessionID}/reveal", s.setRevealVotes)
		r.Delete("/sessions/{sessionID}", s.endSession)
		r.Post("/sessions/{sessionID}/join", s.joinSession)
		r.Post("/sessions/{sessionID}/choice", s.submitChoice)
		r.Post("/sessions/{sessionID}/presence", s.updatePresence)
		r.Put("/classrooms/{classroomID}/roster", s.setRoster)
	})
	s.router.Get("/ws/session", s.wsHandler.HandleSession)
	s.router.Get("/ws/notifications", s.wsHandler.HandleNotifications)
	s.router.Get("/health", s.health)
	s.router.Method(http.MethodGet, "/metrics", s.metrics.Handler())
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// identity reads the caller identity stamped by the external identity
// provider. The engine trusts it and only enforces role checks downstream.
func identityFrom(r *http.Request) types.Identity {
	return types.Identity{
		UserID:      r.Header.Get("X-User-Id"),
		DisplayName: r.Header.Get("X-User-Name"),
		Role:        r.Header.Get("X-User-Role"),
	}
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request) {
	var req teacher.StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	session, err := s.controller.StartSession(r.Context(), identityFrom(r), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"session": session})
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.store.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": session})
}

// getSummary returns the session plus derived vote counts for the current
// scene. Counts are derived at read time so they never drift from the
// choice map.
func (s *Server) getSummary(w http.ResponseWriter, r *http.Request) {
	session, err := s.store.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session": session,
		"tally":   types.TallyChoices(session),
	})
}

func (s *Server) advanceScene(w http.ResponseWriter, r *http.Request) {
	var req struct {
		NextSceneID string `json:"next_scene_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	session, err := s.controller.AdvanceScene(r.Context(), identityFrom(r),
		chi.URLParam(r, "sessionID"), req.NextSceneID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": session})
}

func (s *Server) setRevealVotes(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reveal bool `json:"reveal"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	session, err := s.controller.SetRevealVotes(r.Context(), identityFrom(r),
		chi.URLParam(r, "sessionID"), req.Reveal)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": session})
}

func (s *Server) endSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Result map[string]any `json:"result"`
	}
	// An empty body ends the session with an empty result payload.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	session, err := s.controller.EndSession(r.Context(), identityFrom(r),
		chi.URLParam(r, "sessionID"), req.Result)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": session})
}

func (s *Server) joinSession(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r)
	if id.Role != types.RoleStudent {
		writeError(w, http.StatusForbidden, "only students join sessions")
		return
	}
	if err := id.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	session, err := s.store.PatchSession(r.Context(), chi.URLParam(r, "sessionID"),
		types.SessionPatch{
			AddParticipant: &types.Participant{
				StudentID:   id.UserID,
				StudentName: id.DisplayName,
			},
		}, nil)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": session})
}

func (s *Server) submitChoice(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r)
	if id.Role != types.RoleStudent {
		writeError(w, http.StatusForbidden, "only students vote")
		return
	}

	var req struct {
		SceneID  string `json:"scene_id"`
		ChoiceID string `json:"choice_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !types.IsValidSceneID(req.SceneID) {
		writeError(w, http.StatusBadRequest, types.ErrInvalidSceneID.Error())
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	session, err := s.store.GetSession(r.Context(), sessionID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	// The choice must belong to the scene the vote targets.
	scene, err := s.scenarios.GetScene(r.Context(), session.ScenarioID, req.SceneID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !sceneHasChoice(scene, req.ChoiceID) {
		writeError(w, http.StatusNotFound, "choice not in requested scene")
		return
	}

	// The guard runs inside the store's write path, so a vote racing a scene
	// advance is rejected atomically instead of landing in the new scene.
	snap, err := s.store.PatchSession(r.Context(), sessionID, types.SessionPatch{
		SetChoice: &types.ChoiceSubmission{
			StudentID: id.UserID,
			ChoiceID:  req.ChoiceID,
		},
	}, interfaces.SceneGuard(req.SceneID))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.metrics.VoteAccepted()

	// Mirror moments ride along as presentation advice; the vote above is
	// already committed and is never gated or reverted by this.
	reflect := snap.MirrorMomentsEnabled && s.gate.Offer()

	writeJSON(w, http.StatusOK, map[string]any{
		"session":           snap,
		"reflection_prompt": reflect,
	})
}

func (s *Server) updatePresence(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r)
	if id.Role != types.RoleStudent {
		writeError(w, http.StatusForbidden, "only students report presence")
		return
	}

	var req struct {
		SceneID  string `json:"scene_id"`
		IsTyping bool   `json:"is_typing"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	// Best effort: the tracker swallows failures, the client never retries.
	s.tracker.Update(r.Context(), chi.URLParam(r, "sessionID"), id.UserID, req.SceneID, req.IsTyping)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) setRoster(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r)
	if id.Role != types.RoleTeacher {
		writeError(w, http.StatusForbidden, "only teachers manage rosters")
		return
	}

	var req struct {
		Students []types.RosterEntry `json:"students"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.rosters.SetRoster(chi.URLParam(r, "classroomID"), req.Students); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func sceneHasChoice(scene *types.Scene, choiceID string) bool {
	for _, c := range scene.Choices {
		if c.ID == choiceID {
			return true
		}
	}
	return false
}

// writeDomainError maps taxonomy roots onto HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, types.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, types.ErrPermission):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, types.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, types.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, types.ErrTransient):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		log.Printf("api: internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: failed to encode response: %v", err)
	}
}
