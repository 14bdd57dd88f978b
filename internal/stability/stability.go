// Package stability scores how likely a coalition is to hold together and
// proposes improvements for coalitions that score poorly.
package stability

import (
	"math"
	"sort"

	"github.com/ghogue02/living-economy-arena-sub000/internal/model"
	"github.com/ghogue02/living-economy-arena-sub000/internal/oracle"
	"github.com/ghogue02/living-economy-arena-sub000/internal/utility"
)

// defaultExternalPressure is the baseline outside-pressure term used when
// the caller has no live signal (e.g. at formation time, before monitoring).
const defaultExternalPressure = 20.0

// Breakdown shows how a stability score was computed. Every sub-term is in
// [0,100]; Total is the weighted combination, also in [0,100].
type Breakdown struct {
	AvgTrust         float64 `json:"avg_trust"`
	UtilityBalance   float64 `json:"utility_balance"`
	ConflictRisk     float64 `json:"conflict_risk"`
	ExternalPressure float64 `json:"external_pressure"`
	Total            float64 `json:"total"`
}

// Score computes the formation-time stability of a member set:
// 0.4·avg_trust + 0.3·utility_balance + 0.2·(100−conflict_risk) +
// 0.1·(100−external_pressure).
func Score(snap *oracle.Snapshot, util *utility.Model, members []model.AgentID, weakThreshold float64) Breakdown {
	return ScoreWithPressure(snap, util, members, weakThreshold, -1, defaultExternalPressure)
}

// ScoreWithPressure is Score with caller-supplied conflict risk and external
// pressure (the monitor feeds live values). A negative conflictRisk means
// "derive it from trust variance and weak links".
func ScoreWithPressure(snap *oracle.Snapshot, util *utility.Model, members []model.AgentID, weakThreshold, conflictRisk, externalPressure float64) Breakdown {
	b := Breakdown{
		AvgTrust:         avgPairTrust(snap, members),
		UtilityBalance:   utilityBalance(util, members),
		ExternalPressure: clamp(externalPressure, 0, 100),
	}
	if conflictRisk < 0 {
		conflictRisk = derivedConflictRisk(snap, members, weakThreshold)
	}
	b.ConflictRisk = clamp(conflictRisk, 0, 100)

	b.Total = clamp(
		0.4*b.AvgTrust+
			0.3*b.UtilityBalance+
			0.2*(100-b.ConflictRisk)+
			0.1*(100-b.ExternalPressure),
		0, 100)
	return b
}

// avgPairTrust is the mean pairwise trust across members, 100 for singletons.
func avgPairTrust(snap *oracle.Snapshot, members []model.AgentID) float64 {
	if len(members) < 2 {
		return 100
	}
	sum, n := 0.0, 0
	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			t, ok := snap.PairTrust(members[i], members[j])
			if !ok {
				t = 0
			}
			sum += t
			n++
		}
	}
	return clamp(sum/float64(n), 0, 100)
}

// utilityBalance penalizes uneven individual contributions with an inverted
// Gini-like measure: perfectly equal contributions score 100.
func utilityBalance(util *utility.Model, members []model.AgentID) float64 {
	if len(members) < 2 {
		return 100
	}
	contribs := make([]float64, len(members))
	for i, a := range members {
		contribs[i] = math.Max(util.AgentUtility(a, members), 0)
	}
	return clamp(100*(1-gini(contribs)), 0, 100)
}

// derivedConflictRisk estimates conflict pressure from trust variance and
// the fraction of weak links.
func derivedConflictRisk(snap *oracle.Snapshot, members []model.AgentID, weakThreshold float64) float64 {
	if len(members) < 2 {
		return 0
	}
	var values []float64
	weak, pairs := 0, 0
	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			t, ok := snap.PairTrust(members[i], members[j])
			if !ok {
				t = 0
			}
			values = append(values, t)
			pairs++
			if t < weakThreshold {
				weak++
			}
		}
	}
	varTerm := math.Min(utility.Variance(values)/25, 60)
	weakTerm := 40 * float64(weak) / float64(pairs)
	return clamp(varTerm+weakTerm, 0, 100)
}

// gini computes the Gini coefficient of non-negative values, in [0,1].
func gini(xs []float64) float64 {
	n := len(xs)
	if n == 0 {
		return 0
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)

	sum := 0.0
	for _, x := range sorted {
		sum += x
	}
	if sum == 0 {
		return 0
	}
	// Gini via the sorted-rank formula.
	weighted := 0.0
	for i, x := range sorted {
		weighted += float64(2*(i+1)-n-1) * x
	}
	return weighted / (float64(n) * sum)
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
