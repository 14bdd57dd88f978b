// Package oracle defines the external trust and reputation oracles and a
// per-request snapshot that memoises their answers.
package oracle

import (
	"context"

	"github.com/ghogue02/living-economy-arena-sub000/internal/model"
)

// TrustOracle answers pairwise trust lookups in [0,100]. Trust may be
// asymmetric: Trust(a,b) and Trust(b,a) are independent values.
type TrustOracle interface {
	Trust(ctx context.Context, a, b model.AgentID) (float64, error)
}

// ReputationOracle answers per-agent reputation scores in [0,100] and a
// bounded history of past scores for consistency checks.
type ReputationOracle interface {
	Reputation(ctx context.Context, a model.AgentID) (float64, error)
	History(ctx context.Context, a model.AgentID) ([]float64, error)
}

type pair struct{ from, to model.AgentID }
