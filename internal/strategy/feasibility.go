package strategy

import (
	"context"
	"math/bits"

	"github.com/ghogue02/living-economy-arena-sub000/internal/model"
)

// Feasibility policy, fixed across the engine: a subset is feasible iff it
// contains the initiator, respects max_size, every member's reputation
// meets the threshold, and — for the exhaustive evaluators — every
// unordered pair's mean trust meets min_trust_level (full pairwise
// enforcement). The admission-driven evaluators (greedy, trust-graph,
// reputation-weighted) enforce trust against the initiator only, per their
// definitions.

// eligible reports whether an agent clears the reputation threshold.
func eligible(in Input, a model.AgentID) bool {
	rep, ok := in.Snap.Reputation(a)
	return ok && rep >= in.Request.Constraints.ReputationThreshold
}

// initiatorTrusts reports whether the initiator's directional trust in a
// clears min_trust_level.
func initiatorTrusts(in Input, a model.AgentID) bool {
	t, ok := in.Snap.Trust(in.Request.Initiator, a)
	return ok && t >= in.Request.Constraints.MinTrustLevel
}

// enumerationAgents returns the agents eligible for subset enumeration:
// the initiator first, then every available agent that survived the oracle
// snapshot and clears the reputation threshold. Returns false if the
// initiator itself is ineligible (no feasible subset can exist).
func enumerationAgents(in Input) ([]model.AgentID, bool) {
	if !eligible(in, in.Request.Initiator) {
		return nil, false
	}
	agents := []model.AgentID{in.Request.Initiator}
	for _, a := range in.Snap.Agents() {
		if a == in.Request.Initiator {
			continue
		}
		if eligible(in, a) {
			agents = append(agents, a)
		}
	}
	return agents, true
}

// pairTrustMatrix precomputes, for the enumeration agent ordering, whether
// each unordered pair clears min_trust_level on mean trust.
func pairTrustMatrix(in Input, agents []model.AgentID) [][]bool {
	n := len(agents)
	ok := make([][]bool, n)
	for i := range ok {
		ok[i] = make([]bool, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			t, found := in.Snap.PairTrust(agents[i], agents[j])
			if found && t >= in.Request.Constraints.MinTrustLevel {
				ok[i][j], ok[j][i] = true, true
			}
		}
	}
	return ok
}

// forEachFeasibleSubset enumerates every bitmask over agents (bit 0 =
// initiator) that contains the initiator, has popcount <= max_size, and
// passes full pairwise trust. fn receives the mask and the member slice
// (valid only for the duration of the call). The walk checks the context
// every 1024 masks; complete is false when the deadline cut the search
// short, in which case callers report best-found-so-far.
func forEachFeasibleSubset(ctx context.Context, in Input, agents []model.AgentID, pairOK [][]bool, fn func(mask uint32, members []model.AgentID)) (complete bool) {
	n := len(agents)
	maxSize := int(in.Request.Constraints.MaxSize)
	members := make([]model.AgentID, 0, n)

	total := uint32(1) << n
	for mask := uint32(1); mask < total; mask += 2 { // odd masks: initiator always in
		if mask&1023 == 1 && ctx.Err() != nil {
			return false
		}
		if bits.OnesCount32(mask) > maxSize {
			continue
		}
		if !pairwiseOK(mask, pairOK) {
			continue
		}
		members = members[:0]
		for i := 0; i < n; i++ {
			if mask&(1<<i) != 0 {
				members = append(members, agents[i])
			}
		}
		fn(mask, members)
	}
	return true
}

// pairwiseOK checks every pair inside the mask against the trust matrix.
func pairwiseOK(mask uint32, pairOK [][]bool) bool {
	n := len(pairOK)
	for i := 0; i < n; i++ {
		if mask&(1<<i) == 0 {
			continue
		}
		for j := i + 1; j < n; j++ {
			if mask&(1<<j) == 0 {
				continue
			}
			if !pairOK[i][j] {
				return false
			}
		}
	}
	return true
}
