package coalition

import (
	"context"

	"github.com/google/uuid"
)

// TrustOracle reports directional trust between agents on a [0,100] scale.
// When provided via WithTrustOracle, replaces the built-in demo oracle.
// Trust(A, B) and Trust(B, A) may differ; the engine averages the two
// directions for pairwise analysis.
type TrustOracle interface {
	Trust(ctx context.Context, from, to string) (float64, error)
}

// ReputationOracle reports agent reputation scores and histories on a
// [0,100] scale. When provided via WithReputationOracle, replaces the
// built-in demo oracle.
type ReputationOracle interface {
	Reputation(ctx context.Context, agent string) (float64, error)
	History(ctx context.Context, agent string) ([]float64, error)
}

// UtilitySource supplies per-agent base utilities and skill inventories.
// When provided via WithUtilitySource, replaces the built-in demo source.
type UtilitySource interface {
	BaseUtility(ctx context.Context, agent, purpose string) (float64, error)
	Skills(ctx context.Context, agent string) ([]string, error)
}

// Director answers for proposed members during the formation lifecycle.
// When provided via WithDirector, replaces the default auto-accepting
// director. Calls are synchronous; the engine applies phase deadlines
// around them.
type Director interface {
	Invite(ctx context.Context, coalitionID uuid.UUID, agent, purpose string) (bool, error)
	Negotiate(ctx context.Context, coalitionID uuid.UUID, agent string, share float64) (bool, error)
	Commit(ctx context.Context, coalitionID uuid.UUID, agent string) (bool, error)
}

// EventHook receives async notifications for coalition lifecycle events.
// Multiple hooks may be registered via multiple WithEventHook calls.
// Hook methods run in goroutines — they must not block indefinitely.
// Failures are logged but do not fail the originating request.
type EventHook interface {
	OnCoalitionEvent(ctx context.Context, ev Event) error
}
