// Package registry is the in-memory store of active coalitions. It is the
// engine's only shared mutable state: an explicit store injected where
// needed, never an ambient global. All access is guarded by one mutex, and
// per-agent membership indexing enforces the concurrent-coalition policy so
// two parallel formations cannot double-commit the same agent.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/ghogue02/living-economy-arena-sub000/internal/model"
)

// Store holds active coalitions, keyed by coalition ID and indexed by member.
type Store struct {
	maxPerAgent int

	mu         sync.RWMutex
	coalitions map[uuid.UUID]model.Coalition
	byAgent    map[model.AgentID]map[uuid.UUID]struct{}
}

// New creates a store enforcing at most maxPerAgent concurrent active
// coalitions per member.
func New(maxPerAgent int) *Store {
	return &Store{
		maxPerAgent: maxPerAgent,
		coalitions:  make(map[uuid.UUID]model.Coalition),
		byAgent:     make(map[model.AgentID]map[uuid.UUID]struct{}),
	}
}

// Activate registers a newly activated coalition. The per-agent limit is
// checked and the indexes updated under one lock, so concurrent activations
// cannot both slip past the limit.
func (s *Store) Activate(c model.Coalition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range c.Members {
		if len(s.byAgent[a]) >= s.maxPerAgent {
			return fmt.Errorf("%w: %s already in %d coalitions", model.ErrAgentOvercommitted, a, len(s.byAgent[a]))
		}
	}

	s.coalitions[c.ID] = c
	for _, a := range c.Members {
		if s.byAgent[a] == nil {
			s.byAgent[a] = make(map[uuid.UUID]struct{})
		}
		s.byAgent[a][c.ID] = struct{}{}
	}
	return nil
}

// Get returns a copy of the coalition.
func (s *Store) Get(id uuid.UUID) (model.Coalition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.coalitions[id]
	if !ok {
		return model.Coalition{}, model.ErrCoalitionNotFound
	}
	return c, nil
}

// List returns all active coalitions, ordered by formation time then ID for
// a stable listing.
func (s *Store) List() []model.Coalition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Coalition, 0, len(s.coalitions))
	for _, c := range s.coalitions {
		out = append(out, c)
	}
	sortCoalitions(out)
	return out
}

// ActiveCount reports how many active coalitions the agent belongs to.
func (s *Store) ActiveCount(a model.AgentID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byAgent[a])
}

// UpdateProfitSharing replaces a coalition's profit sharing map.
func (s *Store) UpdateProfitSharing(id uuid.UUID, sharing map[model.AgentID]float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.coalitions[id]
	if !ok {
		return model.ErrCoalitionNotFound
	}
	c.ProfitSharing = sharing
	s.coalitions[id] = c
	return nil
}

// Dissolve removes the coalition from the active set and returns its final
// record with status dissolved. The monitoring history for it is the
// caller's to discard or export.
func (s *Store) Dissolve(id uuid.UUID) (model.Coalition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.coalitions[id]
	if !ok {
		return model.Coalition{}, model.ErrCoalitionNotFound
	}
	delete(s.coalitions, id)
	for _, a := range c.Members {
		delete(s.byAgent[a], id)
		if len(s.byAgent[a]) == 0 {
			delete(s.byAgent, a)
		}
	}
	c.Status = model.StatusDissolved
	return c, nil
}

func sortCoalitions(cs []model.Coalition) {
	sort.Slice(cs, func(i, j int) bool {
		if !cs[i].FormedAt.Equal(cs[j].FormedAt) {
			return cs[i].FormedAt.Before(cs[j].FormedAt)
		}
		return cs[i].ID.String() < cs[j].ID.String()
	})
}
