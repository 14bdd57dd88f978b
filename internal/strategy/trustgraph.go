package strategy

import (
	"context"
	"fmt"
	"sort"

	"github.com/ghogue02/living-economy-arena-sub000/internal/model"
)

// trustGraphEvaluator breadth-first traverses the trust graph from the
// initiator, admitting agents while the accumulated path trust (product of
// normalized edge trusts along the discovery chain) stays above the
// request's minimum. It favors well-connected high-trust chains over raw
// utility.
type trustGraphEvaluator struct{}

func (trustGraphEvaluator) Tag() model.StrategyTag { return model.StrategyTrustGraph }

type trustNode struct {
	agent     model.AgentID
	pathTrust float64 // product of normalized trust along the discovery path
}

func (trustGraphEvaluator) Evaluate(_ context.Context, in Input) (Result, error) {
	req := in.Request
	if !eligible(in, req.Initiator) {
		return Result{}, fmt.Errorf("%w: initiator below reputation threshold", model.ErrInsufficientCandidates)
	}

	minPath := req.Constraints.MinTrustLevel / 100
	members := []model.AgentID{req.Initiator}
	visited := map[model.AgentID]bool{req.Initiator: true}
	queue := []trustNode{{agent: req.Initiator, pathTrust: 1}}

	for len(queue) > 0 && uint(len(members)) < req.Constraints.MaxSize {
		cur := queue[0]
		queue = queue[1:]

		for _, next := range neighbors(in, cur.agent, visited) {
			if uint(len(members)) >= req.Constraints.MaxSize {
				break
			}
			pathTrust := cur.pathTrust * next.trust / 100
			if pathTrust < minPath {
				continue
			}
			if !eligible(in, next.agent) {
				continue
			}
			visited[next.agent] = true
			members = append(members, next.agent)
			queue = append(queue, trustNode{agent: next.agent, pathTrust: pathTrust})
		}
	}

	// A singleton result is still a valid coalition; the selector will
	// prefer richer candidates when other strategies find them.
	return Result{Candidate: finishCandidate(in, model.StrategyTrustGraph, members)}, nil
}

type edge struct {
	agent model.AgentID
	trust float64
}

// neighbors returns unvisited agents the current node trusts (> 0),
// strongest edges first, ties by agent ID for determinism.
func neighbors(in Input, from model.AgentID, visited map[model.AgentID]bool) []edge {
	var out []edge
	for _, a := range in.Snap.Agents() {
		if visited[a] {
			continue
		}
		if t, ok := in.Snap.Trust(from, a); ok && t > 0 {
			out = append(out, edge{agent: a, trust: t})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].trust != out[j].trust {
			return out[i].trust > out[j].trust
		}
		return out[i].agent < out[j].agent
	})
	return out
}
