package strategy

import (
	"fmt"

	"github.com/ghogue02/living-economy-arena-sub000/internal/model"
)

// Select is the fan-in barrier: given every evaluator result that survived,
// it picks the winner by net value, breaking ties by stability score and
// then by fixed strategy priority (optimal > game-theoretic >
// reputation-weighted > trust-graph > greedy). The winner's member order
// becomes the formation plan: the ordered list of members to approach.
func Select(results []Result) (Result, []model.AgentID, error) {
	if len(results) == 0 {
		return Result{}, nil, fmt.Errorf("%w: every strategy was skipped", model.ErrInsufficientCandidates)
	}

	best := results[0]
	for _, r := range results[1:] {
		if better(r.Candidate, best.Candidate) {
			best = r
		}
	}

	plan := append([]model.AgentID(nil), best.Candidate.Members...)
	return best, plan, nil
}

func better(a, b model.CoalitionCandidate) bool {
	if a.NetValue != b.NetValue {
		return a.NetValue > b.NetValue
	}
	if a.StabilityScore != b.StabilityScore {
		return a.StabilityScore > b.StabilityScore
	}
	return a.Strategy.Priority() > b.Strategy.Priority()
}
