package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/SaranshG2501/LifePath-sub000/internal/config"
	"github.com/SaranshG2501/LifePath-sub000/internal/notify"
	"github.com/SaranshG2501/LifePath-sub000/internal/presence"
	"github.com/SaranshG2501/LifePath-sub000/pkg/interfaces"
	"github.com/SaranshG2501/LifePath-sub000/pkg/types"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Origin checks belong to the deployment's edge; the engine trusts the
	// external identity provider for who is calling.
	CheckOrigin:      func(r *http.Request) bool { return true },
	HandshakeTimeout: 10 * time.Second,
}

// snapshotEnvelope frames a full-state session snapshot on the wire.
type snapshotEnvelope struct {
	Type    string         `json:"type"`
	Session *types.Session `json:"session"`
}

// notificationEnvelope frames one notification on the wire.
type notificationEnvelope struct {
	Type         string              `json:"type"`
	Notification *types.Notification `json:"notification"`
}

// inboundMessage is the only client-to-server traffic the socket accepts:
// advisory presence pings and notification acks.
type inboundMessage struct {
	Type           string `json:"type"`
	SceneID        string `json:"scene_id,omitempty"`
	IsTyping       bool   `json:"is_typing,omitempty"`
	NotificationID string `json:"notification_id,omitempty"`
}

// Handler upgrades subscription requests and bridges them onto the change
// feed and the notification dispatcher.
type Handler struct {
	store      interfaces.SessionStore
	feed       interfaces.ChangeFeed
	dispatcher *notify.Dispatcher
	tracker    *presence.Tracker
	cfg        *config.WebSocketConfig
}

func NewHandler(store interfaces.SessionStore, feed interfaces.ChangeFeed,
	dispatcher *notify.Dispatcher, tracker *presence.Tracker, cfg *config.WebSocketConfig) *Handler {
	return &Handler{
		store:      store,
		feed:       feed,
		dispatcher: dispatcher,
		tracker:    tracker,
		cfg:        cfg,
	}
}

// HandleSession serves GET /ws/session?session_id=&user_id=&role=.
// Validation happens before the upgrade so bad requests get proper HTTP
// status codes instead of a dead socket.
func (h *Handler) HandleSession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	userID := r.URL.Query().Get("user_id")
	role := r.URL.Query().Get("role")

	if sessionID == "" || userID == "" || role == "" {
		http.Error(w, "Missing required query parameters: session_id, user_id, role", http.StatusBadRequest)
		return
	}
	if !types.IsValidID(userID) {
		http.Error(w, "Invalid user_id format", http.StatusBadRequest)
		return
	}
	if !types.IsValidRole(role) {
		http.Error(w, "Invalid role: must be 'student' or 'teacher'", http.StatusBadRequest)
		return
	}

	session, err := h.store.GetSession(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			http.Error(w, "Session not found", http.StatusNotFound)
		} else {
			http.Error(w, "Session lookup failed", http.StatusInternalServerError)
		}
		return
	}

	// The teacher watches their own session; students must have joined.
	// An ended session is still viewable for its summary.
	if role == types.RoleTeacher && session.TeacherID != userID {
		http.Error(w, "Not the session's teacher", http.StatusForbidden)
		return
	}
	if role == types.RoleStudent {
		if _, ok := session.Participants[userID]; !ok {
			http.Error(w, "Join the session before subscribing", http.StatusForbidden)
			return
		}
	}

	raw, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket: upgrade failed: %v", err)
		return
	}
	conn := NewConnection(raw, h.cfg.WriteTimeout)

	// The first frame is the current snapshot, so a reconnecting client
	// lands directly on the live scene with no replay of skipped states.
	if err := conn.WriteJSON(snapshotEnvelope{Type: "snapshot", Session: session}); err != nil {
		log.Printf("websocket: initial snapshot failed user=%s: %v", userID, err)
		_ = conn.Close()
		return
	}

	unsubscribe, err := h.feed.Subscribe(sessionID, func(snapshot *types.Session) {
		if err := conn.WriteJSON(snapshotEnvelope{Type: "snapshot", Session: snapshot}); err != nil {
			log.Printf("websocket: snapshot push failed user=%s: %v", userID, err)
		}
	})
	if err != nil {
		log.Printf("websocket: feed subscribe failed user=%s: %v", userID, err)
		_ = conn.Close()
		return
	}

	log.Printf("websocket: session subscriber connected session=%s user=%s role=%s",
		sessionID, userID, role)

	go h.pingLoop(conn)
	go func() {
		defer func() {
			unsubscribe()
			_ = conn.Close()
			if role == types.RoleStudent {
				// Leaving flips the active flag; the vote stays until the
				// next scene advance clears it. The request context is gone
				// by now, so the write gets a fresh one.
				h.tracker.MarkInactive(context.Background(), sessionID, userID)
			}
			log.Printf("websocket: session subscriber disconnected session=%s user=%s", sessionID, userID)
		}()
		h.readLoop(conn, sessionID, userID, role)
	}()
}

// HandleNotifications serves GET /ws/notifications?user_id=. Pending
// notifications replay first, then live pushes follow.
func (h *Handler) HandleNotifications(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if !types.IsValidID(userID) {
		http.Error(w, "Invalid user_id format", http.StatusBadRequest)
		return
	}

	raw, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket: upgrade failed: %v", err)
		return
	}
	conn := NewConnection(raw, h.cfg.WriteTimeout)

	unsubscribe, err := h.dispatcher.Subscribe(r.Context(), userID, func(n *types.Notification) {
		if err := conn.WriteJSON(notificationEnvelope{Type: "notification", Notification: n}); err != nil {
			log.Printf("websocket: notification push failed user=%s: %v", userID, err)
		}
	})
	if err != nil {
		log.Printf("websocket: notification subscribe failed user=%s: %v", userID, err)
		_ = conn.Close()
		return
	}

	go h.pingLoop(conn)
	go func() {
		defer func() {
			unsubscribe()
			_ = conn.Close()
		}()
		h.readLoop(conn, "", userID, types.RoleStudent)
	}()
}

// readLoop consumes inbound frames until the peer goes away. Presence pings
// are applied best-effort; notification acks consume the durable row;
// anything else is ignored.
func (h *Handler) readLoop(conn *Connection, sessionID, userID, role string) {
	_ = conn.conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
	conn.conn.SetPongHandler(func(string) error {
		return conn.conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
	})

	for {
		_, data, err := conn.conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))

		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case "presence":
			if sessionID != "" && role == types.RoleStudent {
				h.tracker.Update(conn.Context(), sessionID, userID, msg.SceneID, msg.IsTyping)
			}
		case "ack":
			if msg.NotificationID != "" {
				if err := h.dispatcher.Consume(conn.Context(), msg.NotificationID); err != nil {
					log.Printf("websocket: notification ack failed id=%s: %v", msg.NotificationID, err)
				}
			}
		}
	}
}

// pingLoop keeps the connection alive until it closes.
func (h *Handler) pingLoop(conn *Connection) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := conn.Ping(); err != nil {
				_ = conn.Close()
				return
			}
		case <-conn.Done():
			return
		}
	}
}
