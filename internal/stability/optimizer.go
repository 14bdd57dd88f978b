package stability

import (
	"sort"

	"github.com/ghogue02/living-economy-arena-sub000/internal/model"
	"github.com/ghogue02/living-economy-arena-sub000/internal/oracle"
	"github.com/ghogue02/living-economy-arena-sub000/internal/utility"
)

// TrustAction targets one weak link with a concrete trust-building step.
type TrustAction struct {
	Pair         model.PairKey `json:"pair"`
	CurrentTrust float64       `json:"current_trust"`
	Action       string        `json:"action"`
}

// Replacement suggests swapping a member for an outside agent with a higher
// projected net-value contribution.
type Replacement struct {
	Remove  model.AgentID `json:"remove"`
	Add     model.AgentID `json:"add"`
	NetGain float64       `json:"net_gain"`
}

// Proposal bundles the optimizer's suggested improvements.
type Proposal struct {
	Score         Breakdown                 `json:"score"`
	TrustActions  []TrustAction             `json:"trust_actions,omitempty"`
	Replacements  []Replacement             `json:"replacements,omitempty"`
	ProfitSharing map[model.AgentID]float64 `json:"profit_sharing,omitempty"`
}

// Optimizer proposes improvements for coalitions scoring below Threshold.
type Optimizer struct {
	Threshold float64
}

// NewOptimizer creates an optimizer with the given score threshold.
func NewOptimizer(threshold float64) *Optimizer {
	return &Optimizer{Threshold: threshold}
}

// Improve scores the coalition and, when it falls below the threshold,
// proposes trust-building actions for each weak link, member replacements
// with positive projected net gain, and a profit-sharing rebalance toward
// under-incentivized high contributors. Above the threshold only the score
// is returned.
func (o *Optimizer) Improve(snap *oracle.Snapshot, util *utility.Model, c model.Coalition, weakThreshold float64) Proposal {
	p := Proposal{Score: Score(snap, util, c.Members, weakThreshold)}
	if p.Score.Total >= o.Threshold {
		return p
	}

	p.TrustActions = trustActions(snap, c.Members, weakThreshold)
	p.Replacements = replacements(snap, util, c.Members)
	p.ProfitSharing = rebalance(util, c.Members, c.ProfitSharing)
	return p
}

func trustActions(snap *oracle.Snapshot, members []model.AgentID, weakThreshold float64) []TrustAction {
	var actions []TrustAction
	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			t, ok := snap.PairTrust(members[i], members[j])
			if !ok {
				t = 0
			}
			if t >= weakThreshold {
				continue
			}
			action := "schedule joint low-stakes task"
			if t < weakThreshold/2 {
				action = "mediated introduction via mutual high-trust member"
			}
			actions = append(actions, TrustAction{
				Pair:         model.NewPairKey(members[i], members[j]),
				CurrentTrust: t,
				Action:       action,
			})
		}
	}
	return actions
}

// replacements re-runs the utility model with each member swapped for each
// outside snapshot agent, keeping swaps that strictly improve net value.
// The initiator (members[0]) is never replaced.
func replacements(snap *oracle.Snapshot, util *utility.Model, members []model.AgentID) []Replacement {
	inSet := make(map[model.AgentID]struct{}, len(members))
	for _, m := range members {
		inSet[m] = struct{}{}
	}
	var outside []model.AgentID
	for _, a := range snap.Agents() {
		if _, ok := inSet[a]; !ok {
			outside = append(outside, a)
		}
	}
	if len(outside) == 0 {
		return nil
	}

	baseline := util.NetValue(members)
	swapped := make([]model.AgentID, len(members))
	var out []Replacement
	for i := 1; i < len(members); i++ {
		for _, candidate := range outside {
			copy(swapped, members)
			swapped[i] = candidate
			if gain := util.NetValue(swapped) - baseline; gain > 0 {
				out = append(out, Replacement{Remove: members[i], Add: candidate, NetGain: gain})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].NetGain != out[j].NetGain {
			return out[i].NetGain > out[j].NetGain
		}
		return out[i].Add < out[j].Add
	})
	return out
}

// rebalance shifts profit sharing halfway toward each member's actual
// contribution share, then renormalizes to sum to 1.
func rebalance(util *utility.Model, members []model.AgentID, current map[model.AgentID]float64) map[model.AgentID]float64 {
	contribs := make(map[model.AgentID]float64, len(members))
	total := 0.0
	for _, a := range members {
		c := util.AgentUtility(a, members)
		if c < 0 {
			c = 0
		}
		contribs[a] = c
		total += c
	}
	out := make(map[model.AgentID]float64, len(members))
	if total == 0 {
		for _, a := range members {
			out[a] = 1 / float64(len(members))
		}
		return out
	}

	sum := 0.0
	for _, a := range members {
		share := 0.5*current[a] + 0.5*contribs[a]/total
		out[a] = share
		sum += share
	}
	for a := range out {
		out[a] /= sum
	}
	return out
}
