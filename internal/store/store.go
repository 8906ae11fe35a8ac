// internal/store/store.go
package store

import (
	"sync"

	"github.com/google/uuid"

	"github.com/pidr-game/pidr-engine/internal/engine"
)

// MatchStore keeps every in-memory match session, keyed by match id.
type MatchStore struct {
	mu      sync.Mutex
	matches map[uuid.UUID]*engine.MatchSession
}

func NewMatchStore() *MatchStore {
	return &MatchStore{
		matches: make(map[uuid.UUID]*engine.MatchSession),
	}
}

func (s *MatchStore) AddMatch(m *engine.MatchSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matches[m.ID] = m
}

func (s *MatchStore) GetMatch(id uuid.UUID) (*engine.MatchSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, exists := s.matches[id]
	return m, exists
}

func (s *MatchStore) DeleteMatch(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.matches, id)
}

// MatchIDs lists every stored match, for admin listings.
func (s *MatchStore) MatchIDs() []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(s.matches))
	for id := range s.matches {
		ids = append(ids, id)
	}
	return ids
}

// FindBySeat returns the match a seat participates in, or nil.
func (s *MatchStore) FindBySeat(seatID uuid.UUID) *engine.MatchSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.matches {
		for _, seat := range m.Seats {
			if seat.ID == seatID {
				return m
			}
		}
	}
	return nil
}
