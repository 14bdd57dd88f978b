// Package strategy implements the five coalition formation evaluators and
// the selector that merges their candidates.
//
// All evaluators are pure functions over the same request, oracle snapshot,
// and utility model. They share no mutable state, so EvaluateAll runs them
// concurrently and the selector acts as the synchronization barrier.
package strategy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/ghogue02/living-economy-arena-sub000/internal/model"
	"github.com/ghogue02/living-economy-arena-sub000/internal/oracle"
	"github.com/ghogue02/living-economy-arena-sub000/internal/stability"
	"github.com/ghogue02/living-economy-arena-sub000/internal/utility"
)

// Input is everything one evaluation run needs. Immutable during the fan-out.
type Input struct {
	Request model.FormationRequest
	Snap    *oracle.Snapshot
	Util    *utility.Model

	// EnumerationCeiling gates exhaustive subset search; above it the
	// Optimal evaluator is skipped and Game-Theoretic falls back to
	// sampling.
	EnumerationCeiling int

	// Shapley settings: exact up to ShapleyExactMax agents, seeded
	// Monte-Carlo with ShapleySamples permutations beyond.
	ShapleyExactMax int
	ShapleySamples  int
	Seed            int64

	// ReputationVarianceMax bounds the history variance the
	// reputation-weighted evaluator tolerates at admission.
	ReputationVarianceMax float64
}

// Result is one evaluator's output. GameTheory is populated only by the
// game-theoretic evaluator.
type Result struct {
	Candidate  model.CoalitionCandidate
	GameTheory *model.GameTheorySolution
}

// Evaluator produces one coalition candidate for a request.
type Evaluator interface {
	Tag() model.StrategyTag
	Evaluate(ctx context.Context, in Input) (Result, error)
}

// ForTag returns the evaluator for a strategy tag. The switch is exhaustive
// over the closed StrategyTag set.
func ForTag(tag model.StrategyTag) (Evaluator, error) {
	switch tag {
	case model.StrategyGreedy:
		return greedyEvaluator{}, nil
	case model.StrategyOptimal:
		return optimalEvaluator{}, nil
	case model.StrategyTrustGraph:
		return trustGraphEvaluator{}, nil
	case model.StrategyGameTheoretic:
		return gameTheoreticEvaluator{}, nil
	case model.StrategyReputationWeighted:
		return reputationEvaluator{}, nil
	default:
		return nil, fmt.Errorf("strategy: unknown tag %q", tag)
	}
}

// EvaluateAll fans the request out to all five evaluators concurrently and
// waits for every one. Evaluators that cannot produce a candidate
// (infeasible search space, nothing admissible, or an internal failure)
// become skips rather than errors: one evaluator never blocks the rest.
func EvaluateAll(ctx context.Context, in Input, logger *slog.Logger) ([]Result, []model.StrategySkip) {
	tags := model.AllStrategies()
	results := make([]*Result, len(tags))
	skips := make([]*model.StrategySkip, len(tags))

	g, gctx := errgroup.WithContext(ctx)
	for i, tag := range tags {
		g.Go(func() error {
			ev, err := ForTag(tag)
			if err != nil {
				skips[i] = &model.StrategySkip{Strategy: tag, Reason: err.Error()}
				return nil
			}
			res, err := ev.Evaluate(gctx, in)
			if err != nil {
				reason := err.Error()
				switch {
				case errors.Is(err, model.ErrSearchInfeasible):
					logger.Info("strategy skipped: infeasible search space", "strategy", tag)
				case errors.Is(err, model.ErrInsufficientCandidates):
					logger.Debug("strategy produced no feasible candidate", "strategy", tag)
				default:
					logger.Warn("strategy failed", "strategy", tag, "error", err)
				}
				skips[i] = &model.StrategySkip{Strategy: tag, Reason: reason}
				return nil
			}
			results[i] = &res
			return nil
		})
	}
	_ = g.Wait() // goroutines only ever return nil; skips carry the failures

	var outResults []Result
	var outSkips []model.StrategySkip
	for i := range tags {
		if results[i] != nil {
			outResults = append(outResults, *results[i])
		}
		if skips[i] != nil {
			outSkips = append(outSkips, *skips[i])
		}
	}
	return outResults, outSkips
}

// finishCandidate fills in the utility, cost, net value, and stability
// score for a chosen member set.
func finishCandidate(in Input, tag model.StrategyTag, members []model.AgentID) model.CoalitionCandidate {
	u := in.Util.CoalitionUtility(members)
	cost := in.Util.FormationCost(members)
	return model.CoalitionCandidate{
		Members:        members,
		Strategy:       tag,
		Utility:        u,
		FormationCost:  cost,
		NetValue:       u - cost,
		StabilityScore: stability.Score(in.Snap, in.Util, members, in.Request.Constraints.MinTrustLevel).Total,
	}
}
