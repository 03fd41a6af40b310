package core

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-dispatch/internal/metrics"
)

// Registry maps identities and rooms to live sessions.
// Every read returns a snapshot; emits never block.
type Registry interface {
	// SessionsOf returns every live session of a user (empty when offline).
	SessionsOf(userID string) []SessionID
	// SessionsOfRoom returns every session joined to room. An absent room is empty, not an error.
	SessionsOfRoom(room string) []SessionID
	// Emit delivers an event to one session, fire and forget.
	Emit(id SessionID, event *Event)
	// JoinRoom adds a session to a room.
	JoinRoom(id SessionID, room string)
}

// Hub is the in-memory Registry. Sessions are registered by the transport
// layer and automatically join the room named after their user's identity.
type Hub struct {
	mu       sync.RWMutex
	sessions map[SessionID]*Session
	rooms    map[string]*Room
	log      *zerolog.Logger
}

// NewHub creates an empty registry.
func NewHub(logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Hub{
		sessions: make(map[SessionID]*Session),
		rooms:    make(map[string]*Room),
		log:      logger,
	}
}

// Register adds a session and joins it to its identity room.
func (h *Hub) Register(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sessions[s.ID] = s
	h.joinLocked(s, s.UserID)
	metrics.SessionsConnected.Inc()
	h.log.Debug().Str("session_id", string(s.ID)).Str("user_id", s.UserID).Msg("session registered")
}

// Unregister removes a session from every room and closes its event channel.
// It reports whether the user has no sessions left.
func (h *Hub) Unregister(s *Session) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sessions[s.ID]; !ok {
		return false
	}
	delete(h.sessions, s.ID)

	for _, name := range s.roomNames() {
		room, ok := h.rooms[name]
		if !ok {
			continue
		}
		room.RemoveSession(s.ID)
		if room.Empty() {
			delete(h.rooms, name)
		}
	}
	// Emit sends under the read lock, so nothing can write to Events past this point.
	close(s.Events)
	metrics.SessionsConnected.Dec()
	h.log.Debug().Str("session_id", string(s.ID)).Str("user_id", s.UserID).Msg("session unregistered")

	_, online := h.rooms[s.UserID]
	return !online
}

// SessionsOf returns every live session of a user.
func (h *Hub) SessionsOf(userID string) []SessionID {
	return h.SessionsOfRoom(userID)
}

// SessionsOfRoom returns every session joined to room.
func (h *Hub) SessionsOfRoom(room string) []SessionID {
	h.mu.RLock()
	defer h.mu.RUnlock()

	r, ok := h.rooms[room]
	if !ok {
		return nil
	}
	return r.IDs()
}

// Emit delivers an event to one session. Unknown sessions and full buffers drop the event.
func (h *Hub) Emit(id SessionID, event *Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	s, ok := h.sessions[id]
	if !ok {
		metrics.EventsDropped.WithLabelValues("gone").Inc()
		return
	}
	if !s.deliver(event) {
		// Drop if slow consumer.
		metrics.EventsDropped.WithLabelValues("slow_consumer").Inc()
		h.log.Warn().Str("session_id", string(id)).Msg("event dropped: session buffer full")
		return
	}
	metrics.EventsEmitted.Inc()
}

// JoinRoom adds a session to a room. Unknown sessions are ignored.
func (h *Hub) JoinRoom(id SessionID, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.sessions[id]
	if !ok {
		return
	}
	h.joinLocked(s, room)
}

func (h *Hub) joinLocked(s *Session, name string) {
	room, ok := h.rooms[name]
	if !ok {
		room = NewRoom(name)
		h.rooms[name] = room
	}
	room.AddSession(s)
	s.addRoom(name)
}

// Ensure Hub implements Registry
var _ Registry = (*Hub)(nil)
