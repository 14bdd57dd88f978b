package strategy

import (
	"context"
	"fmt"
	"math"
	"math/bits"
	"math/rand"
	"sort"

	"github.com/ghogue02/living-economy-arena-sub000/internal/model"
)

// coreCheckLimit bounds how many top-net-value subsets get the full core
// stability check. Only the best core-stable subset matters for selection,
// so checking beyond the top slice buys nothing.
const coreCheckLimit = 64

// shapleyEps is the tolerance for core and rationality comparisons.
const shapleyEps = 1e-9

// gameTheoreticEvaluator treats formation as a cooperative game: it builds
// the characteristic function over feasible subsets, computes Shapley
// values, and prefers the best core-stable subset — one no sub-coalition
// can improve on by defecting — falling back to the best subset overall.
//
// The characteristic function reuses the exhaustive enumeration under the
// ceiling; above it a bounded number of seeded random subsets is sampled
// instead (masks cap the population at 32 agents). Shapley values are exact
// for coalitions up to the configured cutoff and seeded Monte-Carlo beyond,
// so results are reproducible for a fixed seed.
//
// The core check is bounded the same way: only the top coreCheckLimit
// subsets by net value are tested, and coalitions above 16 members count as
// unproven. A core-stable subset outside either bound loses to the
// best-ranked subset overall.
type gameTheoreticEvaluator struct{}

func (gameTheoreticEvaluator) Tag() model.StrategyTag { return model.StrategyGameTheoretic }

func (gameTheoreticEvaluator) Evaluate(ctx context.Context, in Input) (Result, error) {
	agents, ok := enumerationAgents(in)
	if !ok {
		return Result{}, fmt.Errorf("%w: initiator below reputation threshold", model.ErrInsufficientCandidates)
	}
	n := len(agents)
	if n > 32 {
		return Result{}, fmt.Errorf("%w: %d agents exceeds mask width", model.ErrSearchInfeasible, n)
	}
	pairOK := pairTrustMatrix(in, agents)

	cf := make(map[uint32]float64)
	if n <= in.EnumerationCeiling {
		forEachFeasibleSubset(ctx, in, agents, pairOK, func(mask uint32, members []model.AgentID) {
			cf[mask] = in.Util.CoalitionUtility(members)
		})
	} else {
		sampleCharacteristic(ctx, in, agents, pairOK, cf)
	}
	if len(cf) == 0 {
		return Result{}, fmt.Errorf("%w: no subset passes pairwise trust", model.ErrInsufficientCandidates)
	}

	// Rank feasible subsets by net value.
	type scored struct {
		mask uint32
		net  float64
	}
	ranked := make([]scored, 0, len(cf))
	for mask, v := range cf {
		members := maskMembers(agents, mask)
		ranked = append(ranked, scored{mask: mask, net: v - in.Util.FormationCost(members)})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].net != ranked[j].net {
			return ranked[i].net > ranked[j].net
		}
		return ranked[i].mask < ranked[j].mask
	})

	// Core check the top slice; the first core-stable subset wins.
	var (
		coreMembers []uint32
		winnerMask  = ranked[0].mask
		winnerCore  bool
		shapley     map[model.AgentID]float64
	)
	limit := coreCheckLimit
	if limit > len(ranked) {
		limit = len(ranked)
	}
	for _, s := range ranked[:limit] {
		members := maskMembers(agents, s.mask)
		phi := shapleyWithin(in, members)
		if coreStable(in, members, phi) {
			coreMembers = append(coreMembers, s.mask)
			if !winnerCore {
				winnerMask = s.mask
				winnerCore = true
				shapley = phi
			}
		}
	}

	winner := maskMembers(agents, winnerMask)
	if shapley == nil {
		shapley = shapleyWithin(in, winner)
	}

	sol := &model.GameTheorySolution{
		CharacteristicFunction: cf,
		ShapleyValues:          shapley,
		CoreMembers:            coreMembers,
	}
	if individuallyRational(in, winner, shapley) {
		mask := winnerMask
		sol.NashCandidate = &mask
	}

	c := finishCandidate(in, model.StrategyGameTheoretic, orderForPlan(in, winner))
	return Result{Candidate: c, GameTheory: sol}, nil
}

// sampleCharacteristic fills cf with a bounded number of seeded random
// feasible subsets. The initiator's singleton is always included so the
// evaluator can fall back to it. Stops early when ctx is done; callers
// work with whatever was sampled by then.
func sampleCharacteristic(ctx context.Context, in Input, agents []model.AgentID, pairOK [][]bool, cf map[uint32]float64) {
	rng := rand.New(rand.NewSource(in.Seed))
	n := len(agents)
	maxSize := int(in.Request.Constraints.MaxSize)
	if maxSize > n {
		// max_size may exceed the candidate pool; the size draw must not,
		// or the bit-filling loop below could never hit its target.
		maxSize = n
	}

	cf[1] = in.Util.CoalitionUtility(agents[:1])
	for i := 0; i < in.ShapleySamples; i++ {
		if i&255 == 0 && ctx.Err() != nil {
			return
		}
		size := 1 + rng.Intn(maxSize)
		mask := uint32(1)
		for bits.OnesCount32(mask) < size {
			mask |= 1 << uint(rng.Intn(n))
		}
		if _, seen := cf[mask]; seen {
			continue
		}
		if !pairwiseOK(mask, pairOK) {
			continue
		}
		cf[mask] = in.Util.CoalitionUtility(maskMembers(agents, mask))
	}
}

// shapleyWithin computes Shapley values for the game restricted to members.
// Exact subset-weighted computation up to the configured cutoff, seeded
// Monte-Carlo permutation sampling beyond. Both preserve efficiency: the
// values sum to the member set's coalition utility.
func shapleyWithin(in Input, members []model.AgentID) map[model.AgentID]float64 {
	m := len(members)
	if m == 0 {
		return nil
	}
	if m <= in.ShapleyExactMax {
		return shapleyExact(in, members)
	}
	return shapleyMonteCarlo(in, members)
}

func shapleyExact(in Input, members []model.AgentID) map[model.AgentID]float64 {
	m := len(members)
	// Value table over all 2^m subsets of members.
	values := make([]float64, 1<<m)
	scratch := make([]model.AgentID, 0, m)
	for mask := 1; mask < 1<<m; mask++ {
		scratch = scratch[:0]
		for i := 0; i < m; i++ {
			if mask&(1<<i) != 0 {
				scratch = append(scratch, members[i])
			}
		}
		values[mask] = in.Util.CoalitionUtility(scratch)
	}

	// Precompute ordering weights w(s) = s!(m-1-s)!/m!.
	weights := make([]float64, m)
	for s := 0; s < m; s++ {
		weights[s] = 1 / (float64(m) * binomial(m-1, s))
	}

	phi := make(map[model.AgentID]float64, m)
	for i := 0; i < m; i++ {
		bit := 1 << i
		sum := 0.0
		for mask := 0; mask < 1<<m; mask++ {
			if mask&bit != 0 {
				continue
			}
			s := bits.OnesCount32(uint32(mask))
			sum += weights[s] * (values[mask|bit] - values[mask])
		}
		phi[members[i]] = sum
	}
	return phi
}

func shapleyMonteCarlo(in Input, members []model.AgentID) map[model.AgentID]float64 {
	rng := rand.New(rand.NewSource(in.Seed))
	m := len(members)
	phi := make(map[model.AgentID]float64, m)

	perm := make([]model.AgentID, m)
	copy(perm, members)
	prefix := make([]model.AgentID, 0, m)
	for s := 0; s < in.ShapleySamples; s++ {
		rng.Shuffle(m, func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })
		prefix = prefix[:0]
		prev := 0.0
		for _, a := range perm {
			prefix = append(prefix, a)
			v := in.Util.CoalitionUtility(prefix)
			phi[a] += v - prev
			prev = v
		}
	}
	for a := range phi {
		phi[a] /= float64(in.ShapleySamples)
	}
	return phi
}

// coreStable reports whether no strict sub-coalition's standalone value
// exceeds the sum of its members' Shapley shares.
func coreStable(in Input, members []model.AgentID, phi map[model.AgentID]float64) bool {
	m := len(members)
	if m > 16 {
		// Sub-coalition enumeration would be unbounded; treat as unproven.
		return false
	}
	scratch := make([]model.AgentID, 0, m)
	full := (1 << m) - 1
	for mask := 1; mask < full; mask++ {
		scratch = scratch[:0]
		share := 0.0
		for i := 0; i < m; i++ {
			if mask&(1<<i) != 0 {
				scratch = append(scratch, members[i])
				share += phi[members[i]]
			}
		}
		if in.Util.CoalitionUtility(scratch) > share+shapleyEps+math.Abs(share)*1e-12 {
			return false
		}
	}
	return true
}

// individuallyRational reports whether every member's Shapley share covers
// what the member could earn alone.
func individuallyRational(in Input, members []model.AgentID, phi map[model.AgentID]float64) bool {
	single := make([]model.AgentID, 1)
	for _, a := range members {
		single[0] = a
		if in.Util.CoalitionUtility(single) > phi[a]+shapleyEps {
			return false
		}
	}
	return true
}

func maskMembers(agents []model.AgentID, mask uint32) []model.AgentID {
	out := make([]model.AgentID, 0, bits.OnesCount32(mask))
	for i := 0; i < len(agents); i++ {
		if mask&(1<<i) != 0 {
			out = append(out, agents[i])
		}
	}
	return out
}

// binomial computes C(n, k) as a float.
func binomial(n, k int) float64 {
	if k < 0 || k > n {
		return 0
	}
	out := 1.0
	for i := 1; i <= k; i++ {
		out = out * float64(n-k+i) / float64(i)
	}
	return out
}
