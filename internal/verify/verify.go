// Package verify computes the full pairwise trust analysis for a chosen
// coalition: weak links, strong bonds, redundancy, and an aggregate
// stability risk.
package verify

import (
	"fmt"
	"math"

	"github.com/ghogue02/living-economy-arena-sub000/internal/model"
	"github.com/ghogue02/living-economy-arena-sub000/internal/oracle"
)

// Verifier analyzes member sets against an oracle snapshot.
type Verifier struct {
	// StrongBondThreshold marks pairs above it as strong bonds (default 80).
	StrongBondThreshold float64
	// ViableFloor is the absolute minimum average trust; below it the
	// analysis passes but the coalition is flagged high-risk.
	ViableFloor float64
}

// New creates a Verifier with the given thresholds.
func New(strongBond, viableFloor float64) *Verifier {
	return &Verifier{StrongBondThreshold: strongBond, ViableFloor: viableFloor}
}

// Analyze computes the TrustAnalysis for members. weakThreshold is the
// request's min trust level. The returned error is model.ErrVerificationFailed
// (warning-grade) when average trust sits below the viable floor; the
// analysis is valid and returned either way.
func (v *Verifier) Analyze(snap *oracle.Snapshot, members []model.AgentID, weakThreshold float64) (model.TrustAnalysis, error) {
	ta := model.TrustAnalysis{
		PairwiseTrust: make(map[model.PairKey]float64),
		MinTrust:      math.Inf(1),
		MaxTrust:      math.Inf(-1),
	}
	if len(members) < 2 {
		// A singleton has no pairs: full redundancy, no risk from trust.
		ta.MinTrust, ta.MaxTrust = 100, 100
		ta.AvgTrust = 100
		ta.Redundancy = 1
		ta.StabilityRisk = 0
		return ta, nil
	}

	var values []float64
	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			t, ok := snap.PairTrust(members[i], members[j])
			if !ok {
				t = 0
			}
			key := model.NewPairKey(members[i], members[j])
			ta.PairwiseTrust[key] = t
			values = append(values, t)

			if t < ta.MinTrust {
				ta.MinTrust = t
			}
			if t > ta.MaxTrust {
				ta.MaxTrust = t
			}
			if t < weakThreshold {
				ta.WeakLinks = append(ta.WeakLinks, key)
			}
			if t > v.StrongBondThreshold {
				ta.StrongBonds = append(ta.StrongBonds, key)
			}
		}
	}

	ta.AvgTrust = mean(values)
	ta.TrustVariance = varianceOf(values, ta.AvgTrust)
	ta.Redundancy = redundancy(snap, members, weakThreshold)
	ta.StabilityRisk = stabilityRisk(ta)

	if ta.AvgTrust < v.ViableFloor {
		return ta, fmt.Errorf("%w: average trust %.1f below floor %.1f",
			model.ErrVerificationFailed, ta.AvgTrust, v.ViableFloor)
	}
	return ta, nil
}

// stabilityRisk combines low average trust, trust variance, and missing
// redundancy into [0,100].
func stabilityRisk(ta model.TrustAnalysis) float64 {
	varTerm := math.Min(ta.TrustVariance/25, 100) // variance 2500 (max possible) -> 100
	risk := 0.4*(100-ta.AvgTrust) + 0.3*varTerm + 0.3*(1-ta.Redundancy)*100
	return clamp(risk, 0, 100)
}

// redundancy is the fraction of member pairs connected by at least two
// vertex-disjoint paths in the above-threshold trust graph. The two-path
// check removes each candidate intermediate in turn and re-runs reachability,
// which is quadratic but cheap at coalition sizes.
func redundancy(snap *oracle.Snapshot, members []model.AgentID, threshold float64) float64 {
	n := len(members)
	if n < 2 {
		return 1
	}

	adj := make([][]bool, n)
	for i := range adj {
		adj[i] = make([]bool, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if t, ok := snap.PairTrust(members[i], members[j]); ok && t >= threshold {
				adj[i][j], adj[j][i] = true, true
			}
		}
	}

	pairs, redundant := 0, 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			pairs++
			if twoDisjointPaths(adj, i, j) {
				redundant++
			}
		}
	}
	return float64(redundant) / float64(pairs)
}

// twoDisjointPaths reports whether i and j stay connected after removing
// any single intermediate vertex. A direct edge plus any path, or two
// fully disjoint paths, both qualify.
func twoDisjointPaths(adj [][]bool, i, j int) bool {
	if !reachable(adj, i, j, -1) {
		return false
	}
	if adj[i][j] {
		// Direct edge is one path; any indirect connection is the second.
		return reachableIndirect(adj, i, j)
	}
	for skip := range adj {
		if skip == i || skip == j {
			continue
		}
		if !reachable(adj, i, j, skip) {
			return false
		}
	}
	return true
}

// reachable runs BFS from i to j, optionally skipping one vertex.
func reachable(adj [][]bool, i, j, skip int) bool {
	n := len(adj)
	seen := make([]bool, n)
	queue := []int{i}
	seen[i] = true
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == j {
			return true
		}
		for next := 0; next < n; next++ {
			if adj[cur][next] && !seen[next] && next != skip {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	return false
}

// reachableIndirect checks for a path from i to j that does not use the
// direct i-j edge.
func reachableIndirect(adj [][]bool, i, j int) bool {
	adj[i][j], adj[j][i] = false, false
	ok := reachable(adj, i, j, -1)
	adj[i][j], adj[j][i] = true, true
	return ok
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	s := 0.0
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}

func varianceOf(xs []float64, mean float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	v := 0.0
	for _, x := range xs {
		d := x - mean
		v += d * d
	}
	return v / float64(len(xs))
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
