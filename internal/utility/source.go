// Package utility computes agent and coalition utilities and formation
// costs. A Model is built once per formation request over the oracle
// snapshot, so the hot evaluation paths never touch an external source.
package utility

import (
	"context"
	"sync"

	"github.com/ghogue02/living-economy-arena-sub000/internal/model"
)

// Source supplies the externally-owned utility inputs: an agent's base
// utility for a purpose, and the agent's skills.
type Source interface {
	BaseUtility(ctx context.Context, a model.AgentID, purpose model.PurposeTag) (float64, error)
	Skills(ctx context.Context, a model.AgentID) ([]model.Skill, error)
}

// StaticSource is an in-memory Source for tests and the demo binary.
type StaticSource struct {
	mu     sync.RWMutex
	base   map[model.AgentID]map[model.PurposeTag]float64
	skills map[model.AgentID][]model.Skill

	// DefaultBase is returned for agents with no explicit entry.
	DefaultBase float64
}

// NewStaticSource creates an empty source with the given default base utility.
func NewStaticSource(defaultBase float64) *StaticSource {
	return &StaticSource{
		base:        make(map[model.AgentID]map[model.PurposeTag]float64),
		skills:      make(map[model.AgentID][]model.Skill),
		DefaultBase: defaultBase,
	}
}

// SetBase assigns an agent's base utility for a purpose.
func (s *StaticSource) SetBase(a model.AgentID, purpose model.PurposeTag, v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.base[a] == nil {
		s.base[a] = make(map[model.PurposeTag]float64)
	}
	s.base[a][purpose] = v
}

// SetSkills assigns an agent's skill set.
func (s *StaticSource) SetSkills(a model.AgentID, skills ...model.Skill) {
	s.mu.Lock()
	s.skills[a] = append([]model.Skill(nil), skills...)
	s.mu.Unlock()
}

// BaseUtility implements Source.
func (s *StaticSource) BaseUtility(_ context.Context, a model.AgentID, purpose model.PurposeTag) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if m, ok := s.base[a]; ok {
		if v, ok := m[purpose]; ok {
			return v, nil
		}
	}
	return s.DefaultBase, nil
}

// Skills implements Source.
func (s *StaticSource) Skills(_ context.Context, a model.AgentID) ([]model.Skill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Skill(nil), s.skills[a]...), nil
}
