package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Constraints bound which coalitions a formation request may produce.
type Constraints struct {
	MaxSize             uint           `json:"max_size"`
	MinTrustLevel       float64        `json:"min_trust_level"`      // [0,100]
	RequiredSkills      []Skill        `json:"required_skills,omitempty"`
	ReputationThreshold float64        `json:"reputation_threshold"` // [0,100]
	BudgetLimit         *float64       `json:"budget_limit,omitempty"`
	TimeLimit           *time.Duration `json:"time_limit,omitempty"`
}

// Validate checks constraint invariants. All violations wrap ErrInvalidConstraint.
func (c Constraints) Validate() error {
	if c.MaxSize < 1 {
		return fmt.Errorf("%w: max_size must be >= 1, got %d", ErrInvalidConstraint, c.MaxSize)
	}
	if c.MinTrustLevel < 0 || c.MinTrustLevel > 100 {
		return fmt.Errorf("%w: min_trust_level must be in [0,100], got %g", ErrInvalidConstraint, c.MinTrustLevel)
	}
	if c.ReputationThreshold < 0 || c.ReputationThreshold > 100 {
		return fmt.Errorf("%w: reputation_threshold must be in [0,100], got %g", ErrInvalidConstraint, c.ReputationThreshold)
	}
	if c.BudgetLimit != nil && *c.BudgetLimit < 0 {
		return fmt.Errorf("%w: budget_limit must be non-negative, got %g", ErrInvalidConstraint, *c.BudgetLimit)
	}
	if c.TimeLimit != nil && *c.TimeLimit <= 0 {
		return fmt.Errorf("%w: time_limit must be positive, got %s", ErrInvalidConstraint, *c.TimeLimit)
	}
	return nil
}

// FormationRequest asks the engine to assemble a coalition around an
// initiator for a purpose. AvailableAgents excludes the initiator.
type FormationRequest struct {
	ID              uuid.UUID   `json:"id"`
	Initiator       AgentID     `json:"initiator"`
	Purpose         PurposeTag  `json:"purpose"`
	AvailableAgents []AgentID   `json:"available_agents"`
	Constraints     Constraints `json:"constraints"`
}

// Validate checks the request. Violations wrap ErrInvalidConstraint.
func (r FormationRequest) Validate() error {
	if err := ValidateAgentID(r.Initiator); err != nil {
		return fmt.Errorf("%w: initiator: %v", ErrInvalidConstraint, err)
	}
	if !r.Purpose.IsValid() {
		return fmt.Errorf("%w: unknown purpose %q", ErrInvalidConstraint, r.Purpose)
	}
	seen := make(map[AgentID]struct{}, len(r.AvailableAgents))
	for _, a := range r.AvailableAgents {
		if err := ValidateAgentID(a); err != nil {
			return fmt.Errorf("%w: available agent: %v", ErrInvalidConstraint, err)
		}
		if a == r.Initiator {
			return fmt.Errorf("%w: available_agents must not contain the initiator", ErrInvalidConstraint)
		}
		if _, dup := seen[a]; dup {
			return fmt.Errorf("%w: duplicate agent %q in available_agents", ErrInvalidConstraint, a)
		}
		seen[a] = struct{}{}
	}
	return r.Constraints.Validate()
}

// AllAgents returns {initiator} ∪ available_agents with the initiator first.
func (r FormationRequest) AllAgents() []AgentID {
	all := make([]AgentID, 0, len(r.AvailableAgents)+1)
	all = append(all, r.Initiator)
	all = append(all, r.AvailableAgents...)
	return all
}
