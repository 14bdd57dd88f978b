package strategy

import (
	"context"
	"fmt"
	"sort"

	"github.com/ghogue02/living-economy-arena-sub000/internal/model"
)

// optimalEvaluator enumerates every feasible subset containing the
// initiator and returns the net-value maximum. Hard-gated by the
// enumeration ceiling: unguarded 2^n search is a denial-of-service risk,
// so past the ceiling it reports a skip instead of silently truncating.
//
// Observes the context deadline cooperatively: on expiry it returns the
// best subset found so far rather than blocking the selector barrier.
type optimalEvaluator struct{}

func (optimalEvaluator) Tag() model.StrategyTag { return model.StrategyOptimal }

func (optimalEvaluator) Evaluate(ctx context.Context, in Input) (Result, error) {
	agents, ok := enumerationAgents(in)
	if !ok {
		return Result{}, fmt.Errorf("%w: initiator below reputation threshold", model.ErrInsufficientCandidates)
	}
	if len(agents) > in.EnumerationCeiling {
		return Result{}, fmt.Errorf("%w: %d agents exceeds enumeration ceiling %d",
			model.ErrSearchInfeasible, len(agents), in.EnumerationCeiling)
	}

	pairOK := pairTrustMatrix(in, agents)

	var (
		found   bool
		best    []model.AgentID
		bestNet float64
	)
	complete := forEachFeasibleSubset(ctx, in, agents, pairOK, func(_ uint32, members []model.AgentID) {
		net := in.Util.NetValue(members)
		if !found || net > bestNet {
			found = true
			bestNet = net
			best = append(best[:0], members...)
		}
	})

	if !found {
		return Result{}, fmt.Errorf("%w: no subset passes pairwise trust", model.ErrInsufficientCandidates)
	}
	c := finishCandidate(in, model.StrategyOptimal, orderForPlan(in, best))
	_ = complete // partial results are still the best found so far
	return Result{Candidate: c}, nil
}

// orderForPlan orders a subset for the approach plan: initiator first, then
// descending initiator trust, ties by agent ID. Subset search has no
// natural admission order, so the plan approaches the most trusted first.
func orderForPlan(in Input, members []model.AgentID) []model.AgentID {
	out := make([]model.AgentID, 0, len(members))
	var rest []model.AgentID
	for _, a := range members {
		if a == in.Request.Initiator {
			out = append(out, a)
		} else {
			rest = append(rest, a)
		}
	}
	sortByInitiatorTrust(in, rest)
	return append(out, rest...)
}

func sortByInitiatorTrust(in Input, agents []model.AgentID) {
	trust := func(a model.AgentID) float64 {
		t, _ := in.Snap.Trust(in.Request.Initiator, a)
		return t
	}
	sort.Slice(agents, func(i, j int) bool {
		ti, tj := trust(agents[i]), trust(agents[j])
		if ti != tj {
			return ti > tj
		}
		return agents[i] < agents[j]
	})
}
