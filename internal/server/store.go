package server

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/astralis-game/server/internal/match"
)

// finishedMatchRetention is how long a finished match stays in memory so
// late clients can still read the final state.
const finishedMatchRetention = 5 * time.Minute

// MatchStore holds every live match instance keyed by match id. It is the
// only place a *match.Match is handed out; one instance per match id.
type MatchStore struct {
	mu      sync.RWMutex
	matches map[uuid.UUID]*match.Match
}

func NewMatchStore() *MatchStore {
	return &MatchStore{matches: make(map[uuid.UUID]*match.Match)}
}

// Add registers a live match and wires its end-of-match eviction.
func (s *MatchStore) Add(m *match.Match) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matches[m.State.ID] = m

	userEnd := m.OnMatchEnd
	m.OnMatchEnd = func(matchID uuid.UUID, winner uuid.UUID, scores map[uuid.UUID]int) {
		if userEnd != nil {
			userEnd(matchID, winner, scores)
		}
		time.AfterFunc(finishedMatchRetention, func() {
			s.Remove(matchID)
			logrus.WithField("match", matchID).Debug("finished match evicted")
		})
	}
}

// Get returns the live match for an id, or nil.
func (s *MatchStore) Get(id uuid.UUID) *match.Match {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.matches[id]
}

// Remove drops a match from the registry.
func (s *MatchStore) Remove(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.matches, id)
}

// Len reports how many matches are live.
func (s *MatchStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.matches)
}
