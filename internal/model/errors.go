package model

import "errors"

// Engine error taxonomy. Nothing here is fatal to the host process:
// failures degrade to "no coalition formed" or a flagged coalition.
var (
	// ErrInvalidConstraint reports a malformed FormationRequest, e.g. max_size < 1.
	ErrInvalidConstraint = errors.New("invalid formation constraint")

	// ErrInsufficientCandidates means no feasible subset exists above the
	// request's thresholds. Surfaced, never retried.
	ErrInsufficientCandidates = errors.New("no feasible coalition candidates")

	// ErrSearchInfeasible means an exhaustive evaluator was skipped because
	// the agent count exceeds the enumeration ceiling. Non-fatal: the other
	// strategies still run.
	ErrSearchInfeasible = errors.New("search space infeasible")

	// ErrFormationTimeout means a lifecycle phase exceeded the request's
	// time limit. The execution state records the last completed phase.
	ErrFormationTimeout = errors.New("formation phase timed out")

	// ErrVerificationFailed is warning-grade: the winning candidate fell
	// below the minimum viable trust floor even though every individual
	// constraint passed. The coalition is still returned, flagged high-risk.
	ErrVerificationFailed = errors.New("trust verification below viable floor")

	// ErrCoalitionNotFound is returned by the registry for unknown IDs.
	ErrCoalitionNotFound = errors.New("coalition not found")

	// ErrAgentOvercommitted means activating the coalition would push a
	// member past the per-agent concurrent coalition limit.
	ErrAgentOvercommitted = errors.New("agent exceeds concurrent coalition limit")
)
