package model

import (
	"time"

	"github.com/google/uuid"
)

// CoalitionStatus is the lifecycle status of a coalition record.
type CoalitionStatus string

const (
	StatusForming   CoalitionStatus = "forming"
	StatusActive    CoalitionStatus = "active"
	StatusDissolved CoalitionStatus = "dissolved"
)

// Coalition is an activated, purpose-bound group of agents with agreed
// profit sharing. The engine owns it until it is explicitly dissolved.
type Coalition struct {
	ID            uuid.UUID           `json:"id"`
	Members       []AgentID           `json:"members"`
	Purpose       PurposeTag          `json:"purpose"`
	Strategy      StrategyTag         `json:"strategy_used"`
	FormedAt      time.Time           `json:"formation_timestamp"`
	Status        CoalitionStatus     `json:"status"`
	ProfitSharing map[AgentID]float64 `json:"profit_sharing"` // fractions, sum 1.0
	Trust         TrustAnalysis       `json:"trust_analysis"`
}

// Initiator is the first member by construction.
func (c Coalition) Initiator() AgentID {
	if len(c.Members) == 0 {
		return ""
	}
	return c.Members[0]
}

// FormationResult is the engine's answer to a FormationRequest.
type FormationResult struct {
	Coalition          *Coalition          `json:"recommended_coalition,omitempty"`
	Strategy           StrategyTag         `json:"strategy"`
	Trust              TrustAnalysis       `json:"trust_analysis"`
	SuccessProbability float64             `json:"success_probability"` // [0,1]
	Risks              []string            `json:"risks,omitempty"`
	Plan               []AgentID           `json:"plan"`
	Skipped            []StrategySkip      `json:"skipped_strategies,omitempty"`
	Execution          ExecutionState      `json:"execution"`
	GameTheory         *GameTheorySolution `json:"game_theory,omitempty"`
}
