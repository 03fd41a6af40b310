package presence

import (
	"context"
	"sync"
)

// MemoryStore is a process-local Store used when no Redis is configured.
type MemoryStore struct {
	mu       sync.RWMutex
	presence map[string]Status
	custom   map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		presence: make(map[string]Status),
		custom:   make(map[string]string),
	}
}

func (s *MemoryStore) SetPresence(_ context.Context, userID string, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.presence[userID] = status
	return nil
}

func (s *MemoryStore) ClearPresence(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.presence, userID)
	return nil
}

func (s *MemoryStore) Presences(_ context.Context, userIDs []string) (map[string]Status, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Status, len(userIDs))
	for _, id := range userIDs {
		if st, ok := s.presence[id]; ok {
			out[id] = st
		}
	}
	return out, nil
}

func (s *MemoryStore) SetCustomStatus(_ context.Context, userID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if text == "" {
		delete(s.custom, userID)
		return nil
	}
	s.custom[userID] = text
	return nil
}

func (s *MemoryStore) CustomStatuses(_ context.Context, userIDs []string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(userIDs))
	for _, id := range userIDs {
		if text, ok := s.custom[id]; ok {
			out[id] = text
		}
	}
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
