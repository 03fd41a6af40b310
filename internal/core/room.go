package core

// ServerRoom returns the room key of a server.
func ServerRoom(serverID string) string {
	return "server:" + serverID
}

// Room groups sessions addressed together: one per server, one per user identity.
type Room struct {
	Name     string
	sessions map[SessionID]*Session
}

// NewRoom constructs a room with no sessions.
func NewRoom(name string) *Room {
	return &Room{
		Name:     name,
		sessions: make(map[SessionID]*Session),
	}
}

// AddSession inserts a session into the room. Returns true if newly added.
func (r *Room) AddSession(s *Session) bool {
	if _, exists := r.sessions[s.ID]; exists {
		return false
	}
	r.sessions[s.ID] = s
	return true
}

// RemoveSession deletes a session from the room. Returns true if removed.
func (r *Room) RemoveSession(id SessionID) bool {
	if _, exists := r.sessions[id]; !exists {
		return false
	}
	delete(r.sessions, id)
	return true
}

// IDs returns a snapshot of the session ids in the room.
func (r *Room) IDs() []SessionID {
	ids := make([]SessionID, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Empty returns true if no sessions are in the room.
func (r *Room) Empty() bool {
	return len(r.sessions) == 0
}
