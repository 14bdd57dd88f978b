package strategy

import (
	"context"
	"fmt"
	"sort"

	"github.com/ghogue02/living-economy-arena-sub000/internal/model"
	"github.com/ghogue02/living-economy-arena-sub000/internal/utility"
)

// reputationEvaluator scores candidates by a reputation-heavy blend and
// admits the best scorers that clear both thresholds plus a reputation
// consistency check (bounded variance of the agent's history).
type reputationEvaluator struct{}

func (reputationEvaluator) Tag() model.StrategyTag { return model.StrategyReputationWeighted }

type repCandidate struct {
	agent model.AgentID
	score float64
}

func (reputationEvaluator) Evaluate(_ context.Context, in Input) (Result, error) {
	req := in.Request
	if !eligible(in, req.Initiator) {
		return Result{}, fmt.Errorf("%w: initiator below reputation threshold", model.ErrInsufficientCandidates)
	}

	seed := []model.AgentID{req.Initiator}
	var pool []repCandidate
	for _, a := range in.Snap.Agents() {
		if a == req.Initiator {
			continue
		}
		if !eligible(in, a) || !initiatorTrusts(in, a) {
			continue
		}
		// Consistency check: erratic reputation history blocks admission
		// even when the current score clears the threshold.
		if hist := in.Snap.History(a); len(hist) >= 2 && utility.Variance(hist) > in.ReputationVarianceMax {
			continue
		}
		rep, _ := in.Snap.Reputation(a)
		trust, _ := in.Snap.Trust(req.Initiator, a)
		pool = append(pool, repCandidate{
			agent: a,
			score: 0.4*rep + 0.3*trust + 0.3*in.Util.AgentUtility(a, seed),
		})
	}

	sort.Slice(pool, func(i, j int) bool {
		if pool[i].score != pool[j].score {
			return pool[i].score > pool[j].score
		}
		return pool[i].agent < pool[j].agent
	})

	members := seed
	for _, c := range pool {
		if uint(len(members)) >= req.Constraints.MaxSize {
			break
		}
		members = append(members, c.agent)
	}
	return Result{Candidate: finishCandidate(in, model.StrategyReputationWeighted, members)}, nil
}
