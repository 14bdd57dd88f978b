package strategy

import (
	"context"
	"fmt"
	"sort"

	"github.com/ghogue02/living-economy-arena-sub000/internal/model"
)

// greedyEvaluator admits the highest-utility agents one at a time, gated on
// initiator trust, reputation, and a strict coalition utility increase.
// O(n log n); deterministic for fixed oracle answers.
type greedyEvaluator struct{}

func (greedyEvaluator) Tag() model.StrategyTag { return model.StrategyGreedy }

type greedyCandidate struct {
	agent   model.AgentID
	utility float64
	rep     float64
	trust   float64
	order   int // insertion order, the final tie-break for determinism
}

func (greedyEvaluator) Evaluate(_ context.Context, in Input) (Result, error) {
	req := in.Request
	if !eligible(in, req.Initiator) {
		return Result{}, fmt.Errorf("%w: initiator below reputation threshold", model.ErrInsufficientCandidates)
	}

	seed := []model.AgentID{req.Initiator}
	var pool []greedyCandidate
	for i, a := range in.Snap.Agents() {
		if a == req.Initiator {
			continue
		}
		if !eligible(in, a) || !initiatorTrusts(in, a) {
			continue
		}
		rep, _ := in.Snap.Reputation(a)
		trust, _ := in.Snap.Trust(req.Initiator, a)
		pool = append(pool, greedyCandidate{
			agent:   a,
			utility: in.Util.AgentUtility(a, seed),
			rep:     rep,
			trust:   trust,
			order:   i,
		})
	}

	// Utility descending; ties by reputation, then initiator trust, then
	// insertion order.
	sort.SliceStable(pool, func(i, j int) bool {
		if pool[i].utility != pool[j].utility {
			return pool[i].utility > pool[j].utility
		}
		if pool[i].rep != pool[j].rep {
			return pool[i].rep > pool[j].rep
		}
		if pool[i].trust != pool[j].trust {
			return pool[i].trust > pool[j].trust
		}
		return pool[i].order < pool[j].order
	})

	members := seed
	curUtility := in.Util.CoalitionUtility(members)
	curNet := curUtility - in.Util.FormationCost(members)
	for _, c := range pool {
		if uint(len(members)) >= req.Constraints.MaxSize {
			break
		}
		next := append(members, c.agent)
		nextUtility := in.Util.CoalitionUtility(next)
		nextNet := nextUtility - in.Util.FormationCost(next)
		// Admit only on a strict utility increase that doesn't erode net
		// value; this keeps net value monotone across admissions.
		if nextUtility > curUtility && nextNet >= curNet {
			members = next
			curUtility, curNet = nextUtility, nextNet
		}
	}

	return Result{Candidate: finishCandidate(in, model.StrategyGreedy, members)}, nil
}
