package utility

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/ghogue02/living-economy-arena-sub000/internal/model"
	"github.com/ghogue02/living-economy-arena-sub000/internal/oracle"
)

// Tuning constants for the utility surface. Synergy and bonus terms are
// capped so no single term can dominate the base utilities.
const (
	pairSynergyWeight = 1.2
	pairSynergyCap    = 4.0
	agentSynergyCap   = 20.0
	skillMatchWeight  = 3.0
	reputationWeight  = 0.1

	sharedBonusWeight = 0.5
	sharedBonusCap    = 25.0
	diversityWeight   = 0.8
	diversityCap      = 12.0

	optimumSize    = 4
	sizeRampWeight = 1.5
	sizeDragWeight = 2.5

	memberBaseCost        = 10.0
	pairCommCost          = 2.0
	defaultConsistencyFee = 2.0
)

// Model evaluates utilities for one formation request. It is immutable
// after construction and safe for concurrent use by the evaluators.
type Model struct {
	purpose  model.PurposeTag
	required map[model.Skill]struct{}
	base     map[model.AgentID]float64
	skills   map[model.AgentID]map[model.Skill]struct{}
	snap     *oracle.Snapshot
}

// NewModel pre-loads base utilities and skills for every snapshot agent.
func NewModel(ctx context.Context, src Source, snap *oracle.Snapshot, purpose model.PurposeTag, required []model.Skill) (*Model, error) {
	m := &Model{
		purpose:  purpose,
		required: make(map[model.Skill]struct{}, len(required)),
		base:     make(map[model.AgentID]float64),
		skills:   make(map[model.AgentID]map[model.Skill]struct{}),
		snap:     snap,
	}
	for _, s := range required {
		m.required[s] = struct{}{}
	}
	for _, a := range snap.Agents() {
		b, err := src.BaseUtility(ctx, a, purpose)
		if err != nil {
			return nil, fmt.Errorf("utility: base utility for %s: %w", a, err)
		}
		m.base[a] = b

		skills, err := src.Skills(ctx, a)
		if err != nil {
			return nil, fmt.Errorf("utility: skills for %s: %w", a, err)
		}
		set := make(map[model.Skill]struct{}, len(skills))
		for _, s := range skills {
			set[s] = struct{}{}
		}
		m.skills[a] = set
	}
	return m, nil
}

// AgentUtility is the agent's utility for the purpose when serving alongside
// members. Members are the final coalition set, not an incremental prefix;
// the agent itself may or may not appear in members.
func (m *Model) AgentUtility(a model.AgentID, members []model.AgentID) float64 {
	u := m.base[a]

	// Pairwise complementarity: the size of the skill symmetric difference,
	// capped per pair. Symmetric by construction.
	synergy := 0.0
	for _, b := range members {
		if b == a {
			continue
		}
		synergy += pairSynergyWeight * math.Min(float64(m.symmetricDiff(a, b)), pairSynergyCap)
	}
	u += math.Min(synergy, agentSynergyCap)

	for s := range m.required {
		if _, ok := m.skills[a][s]; ok {
			u += skillMatchWeight
		}
	}

	if rep, ok := m.snap.Reputation(a); ok {
		u += reputationWeight * rep
	}
	return u
}

// CoalitionUtility is the total utility of the member set acting together.
// Guaranteed non-negative for a singleton.
func (m *Model) CoalitionUtility(members []model.AgentID) float64 {
	total := 0.0
	for _, a := range members {
		total += m.AgentUtility(a, members)
	}
	total += m.sharedSkillBonus(members)
	total += sizeEffect(len(members))
	total += m.diversityBonus(members)
	return total
}

// FormationCost is the cost of assembling the member set: per-member
// coordination, O(n²) pairwise communication, trust building (inverse in
// existing trust), and negotiation (inverse in reputation consistency).
// Monotonically non-decreasing in member count.
func (m *Model) FormationCost(members []model.AgentID) float64 {
	n := float64(len(members))
	cost := memberBaseCost*n + pairCommCost*n*(n-1)

	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			trust, ok := m.snap.PairTrust(members[i], members[j])
			if !ok {
				trust = 0
			}
			cost += (100 - trust) / 10
		}
	}

	for _, a := range members {
		cost += consistencyFee(m.snap.History(a))
	}
	return cost
}

// NetValue is coalition utility minus formation cost.
func (m *Model) NetValue(members []model.AgentID) float64 {
	return m.CoalitionUtility(members) - m.FormationCost(members)
}

// HasSkill reports whether the agent holds the given skill.
func (m *Model) HasSkill(a model.AgentID, s model.Skill) bool {
	_, ok := m.skills[a][s]
	return ok
}

func (m *Model) symmetricDiff(a, b model.AgentID) int {
	sa, sb := m.skills[a], m.skills[b]
	n := 0
	for s := range sa {
		if _, ok := sb[s]; !ok {
			n++
		}
	}
	for s := range sb {
		if _, ok := sa[s]; !ok {
			n++
		}
	}
	return n
}

// sharedSkillBonus rewards skills held by two or more members,
// superlinearly in the holder count, capped.
func (m *Model) sharedSkillBonus(members []model.AgentID) float64 {
	counts := m.skillCounts(members)
	bonus := 0.0
	for _, kv := range counts {
		if kv.n >= 2 {
			bonus += sharedBonusWeight * float64(kv.n) * float64(kv.n)
		}
	}
	return math.Min(bonus, sharedBonusCap)
}

// diversityBonus rewards skill heterogeneity across the member set, capped.
func (m *Model) diversityBonus(members []model.AgentID) float64 {
	return math.Min(diversityWeight*float64(len(m.skillCounts(members))), diversityCap)
}

type skillCount struct {
	skill model.Skill
	n     int
}

// skillCounts returns per-skill holder counts in sorted skill order, so
// float accumulation order is deterministic.
func (m *Model) skillCounts(members []model.AgentID) []skillCount {
	counts := make(map[model.Skill]int)
	for _, a := range members {
		for s := range m.skills[a] {
			counts[s]++
		}
	}
	out := make([]skillCount, 0, len(counts))
	for s, n := range counts {
		out = append(out, skillCount{skill: s, n: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].skill < out[j].skill })
	return out
}

// sizeEffect ramps gently up to the optimum size, then drags quadratically.
// Zero for a singleton, which keeps singleton coalitions non-negative.
func sizeEffect(n int) float64 {
	if n <= optimumSize {
		return sizeRampWeight * float64(n-1)
	}
	over := float64(n - optimumSize)
	return sizeRampWeight*float64(optimumSize-1) - sizeDragWeight*over*over
}

// consistencyFee prices negotiation friction from an inconsistent
// reputation record. No history costs the default fee.
func consistencyFee(history []float64) float64 {
	if len(history) < 2 {
		return defaultConsistencyFee
	}
	return math.Sqrt(math.Min(Variance(history), 2500)) / 5
}

// Variance is the population variance of xs. Zero for empty input.
func Variance(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	v := 0.0
	for _, x := range xs {
		d := x - mean
		v += d * d
	}
	return v / float64(len(xs))
}
