package model

import (
	"time"

	"github.com/google/uuid"
)

// Phase is a stage of the formation lifecycle.
type Phase string

const (
	PhaseInvitation   Phase = "invitation"
	PhaseNegotiation  Phase = "negotiation"
	PhaseFinalization Phase = "finalization"
	PhaseActivation   Phase = "activation"
	PhaseActive       Phase = "active" // terminal success
	PhaseFailed       Phase = "failed" // terminal failure
)

// IsTerminal returns true for the two terminal phases.
func (p Phase) IsTerminal() bool {
	return p == PhaseActive || p == PhaseFailed
}

// Next returns the phase that follows p on the success path.
// Terminal phases return themselves.
func (p Phase) Next() Phase {
	switch p {
	case PhaseInvitation:
		return PhaseNegotiation
	case PhaseNegotiation:
		return PhaseFinalization
	case PhaseFinalization:
		return PhaseActivation
	case PhaseActivation:
		return PhaseActive
	default:
		return p
	}
}

// IsValid returns true if the phase is a recognized lifecycle phase.
func (p Phase) IsValid() bool {
	switch p {
	case PhaseInvitation, PhaseNegotiation, PhaseFinalization,
		PhaseActivation, PhaseActive, PhaseFailed:
		return true
	default:
		return false
	}
}

// PhaseResult records the outcome of one lifecycle phase.
type PhaseResult struct {
	Completed      bool          `json:"completed"`
	Detail         string        `json:"detail,omitempty"`
	AcceptanceRate float64       `json:"acceptance_rate,omitempty"`
	Elapsed        time.Duration `json:"elapsed"`
}

// ExecutionState tracks a coalition's progress through formation.
// On failure CurrentPhase is PhaseFailed and LastCompleted holds the last
// phase that finished successfully, for diagnostics.
type ExecutionState struct {
	CoalitionID   uuid.UUID             `json:"coalition_id"`
	CurrentPhase  Phase                 `json:"current_phase"`
	LastCompleted Phase                 `json:"last_completed_phase,omitempty"`
	PhaseResults  map[Phase]PhaseResult `json:"phase_results"`
}
