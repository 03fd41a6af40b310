package core

import "sync"

// SessionID identifies one live client connection.
type SessionID string

// Session is one connected device of a user as seen by the core layer.
type Session struct {
	ID     SessionID
	UserID string // unique id of the owning user; also the identity room key
	Events chan *Event

	mu    sync.Mutex
	rooms map[string]struct{}
}

// NewSession constructs a session with an initialized event buffer.
func NewSession(id SessionID, userID string) *Session {
	return &Session{
		ID:     id,
		UserID: userID,
		Events: make(chan *Event, 64),
		rooms:  make(map[string]struct{}),
	}
}

func (s *Session) addRoom(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[name]; ok {
		return false
	}
	s.rooms[name] = struct{}{}
	return true
}

func (s *Session) roomNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.rooms))
	for name := range s.rooms {
		names = append(names, name)
	}
	return names
}

// deliver hands an event to the session without blocking. Returns false when
// the buffer is full and the event was dropped.
func (s *Session) deliver(event *Event) bool {
	select {
	case s.Events <- event:
		return true
	default:
		return false
	}
}
