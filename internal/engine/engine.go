// Package engine orchestrates the coalition formation pipeline: oracle
// snapshot, concurrent strategy evaluation, selection, trust verification,
// lifecycle execution, and handoff to the monitor.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ghogue02/living-economy-arena-sub000/internal/config"
	"github.com/ghogue02/living-economy-arena-sub000/internal/executor"
	"github.com/ghogue02/living-economy-arena-sub000/internal/model"
	"github.com/ghogue02/living-economy-arena-sub000/internal/monitor"
	"github.com/ghogue02/living-economy-arena-sub000/internal/oracle"
	"github.com/ghogue02/living-economy-arena-sub000/internal/registry"
	"github.com/ghogue02/living-economy-arena-sub000/internal/stability"
	"github.com/ghogue02/living-economy-arena-sub000/internal/strategy"
	"github.com/ghogue02/living-economy-arena-sub000/internal/telemetry"
	"github.com/ghogue02/living-economy-arena-sub000/internal/utility"
	"github.com/ghogue02/living-economy-arena-sub000/internal/verify"
)

// Engine is the coalition formation engine. All state lives in the injected
// registry; the engine itself is safe for concurrent use.
type Engine struct {
	cfg       config.Config
	loader    *oracle.Loader
	src       utility.Source
	verifier  *verify.Verifier
	optimizer *stability.Optimizer
	exec      *executor.Executor
	store     *registry.Store
	mon       *monitor.Monitor
	metrics   *telemetry.Metrics
	logger    *slog.Logger
	sinks     []Sink
	now       func() time.Time
}

// Deps bundles the engine's collaborators.
type Deps struct {
	Config   config.Config
	Loader   *oracle.Loader
	Source   utility.Source
	Director executor.Director
	Store    *registry.Store
	Monitor  *monitor.Monitor
	Metrics  *telemetry.Metrics
	Logger   *slog.Logger
	Sinks    []Sink
}

// New wires an Engine from its collaborators.
func New(d Deps) *Engine {
	return &Engine{
		cfg:       d.Config,
		loader:    d.Loader,
		src:       d.Source,
		verifier:  verify.New(d.Config.StrongBondThreshold, d.Config.VerificationFloor),
		optimizer: stability.NewOptimizer(d.Config.StabilityThreshold),
		exec:      executor.New(d.Director, d.Store, d.Logger),
		store:     d.Store,
		mon:       d.Monitor,
		metrics:   d.Metrics,
		logger:    d.Logger,
		sinks:     d.Sinks,
		now:       time.Now,
	}
}

// Form runs the full pipeline for one request. Failures past validation
// degrade rather than abort: the result always carries whatever was
// computed (skips, trust analysis, execution diagnostics) alongside the
// error.
func (e *Engine) Form(ctx context.Context, req model.FormationRequest) (model.FormationResult, error) {
	if err := req.Validate(); err != nil {
		return model.FormationResult{}, err
	}
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	start := e.now()
	e.metrics.FormationsStarted.Add(ctx, 1)
	e.logger.Info("formation started",
		"request_id", req.ID, "initiator", req.Initiator, "purpose", req.Purpose,
		"available", len(req.AvailableAgents), "max_size", req.Constraints.MaxSize)

	// The evaluation fan-out shares the request's time limit; the
	// exhaustive evaluators treat its expiry as a cooperative cancellation
	// signal and report best-found-so-far.
	evalCtx := ctx
	if req.Constraints.TimeLimit != nil {
		var cancel context.CancelFunc
		evalCtx, cancel = context.WithTimeout(ctx, *req.Constraints.TimeLimit)
		defer cancel()
	}

	snap, err := e.loader.Load(evalCtx, req.AllAgents())
	if err != nil {
		return model.FormationResult{}, fmt.Errorf("oracle snapshot: %w", err)
	}
	if _, excluded := snap.Excluded()[req.Initiator]; excluded {
		return model.FormationResult{}, fmt.Errorf("%w: initiator's oracle data unavailable", model.ErrInsufficientCandidates)
	}

	util, err := utility.NewModel(evalCtx, e.src, snap, req.Purpose, req.Constraints.RequiredSkills)
	if err != nil {
		return model.FormationResult{}, err
	}

	in := strategy.Input{
		Request:               req,
		Snap:                  snap,
		Util:                  util,
		EnumerationCeiling:    e.cfg.EnumerationCeiling,
		ShapleyExactMax:       e.cfg.ShapleyExactMax,
		ShapleySamples:        e.cfg.ShapleySamples,
		Seed:                  e.cfg.RandSeed,
		ReputationVarianceMax: e.cfg.ReputationVarianceMax,
	}
	results, skips := strategy.EvaluateAll(evalCtx, in, e.logger)
	e.metrics.EvaluatorSkips.Add(ctx, int64(len(skips)))

	winner, plan, err := strategy.Select(results)
	if err != nil {
		e.metrics.FormationsFailed.Add(ctx, 1)
		return model.FormationResult{Skipped: skips}, err
	}
	result := model.FormationResult{
		Strategy:   winner.Candidate.Strategy,
		Plan:       plan,
		Skipped:    skips,
		GameTheory: gameTheoryOf(results),
	}

	trust, verr := e.verifier.Analyze(snap, winner.Candidate.Members, req.Constraints.MinTrustLevel)
	result.Trust = trust
	if verr != nil {
		if !errors.Is(verr, model.ErrVerificationFailed) {
			return result, verr
		}
		result.Risks = append(result.Risks, verr.Error())
		e.logger.Warn("verification flagged winning candidate", "request_id", req.ID, "error", verr)
	}
	if len(trust.WeakLinks) > 0 {
		result.Risks = append(result.Risks, fmt.Sprintf("%d weak trust links below %.0f", len(trust.WeakLinks), req.Constraints.MinTrustLevel))
	}
	result.SuccessProbability = successProbability(winner.Candidate.StabilityScore, trust.StabilityRisk)

	e.emit(Event{Type: EventCoalitionFormed, At: e.now(), Payload: winner.Candidate})

	coalition, state, execErr := e.exec.Execute(ctx, req, winner.Candidate, trust)
	result.Execution = state
	if execErr != nil || coalition == nil {
		e.metrics.FormationsFailed.Add(ctx, 1)
		e.logger.Warn("formation lifecycle failed",
			"request_id", req.ID, "last_completed", state.LastCompleted)
		return result, execErr
	}

	result.Coalition = coalition
	e.metrics.FormationsActivated.Add(ctx, 1)
	e.metrics.ActiveCoalitions.Add(ctx, 1)
	e.metrics.FormationSeconds.Record(ctx, e.now().Sub(start).Seconds())
	e.emit(Event{Type: EventCoalitionActivated, CoalitionID: coalition.ID, At: e.now(), Payload: coalition})
	return result, nil
}

// Check runs a monitoring pass and emits a stability alert when dissolution
// is recommended. The trigger is external: the engine never polls.
func (e *Engine) Check(ctx context.Context, id uuid.UUID) (monitor.Report, error) {
	report, err := e.mon.Check(ctx, id)
	if err != nil {
		return monitor.Report{}, err
	}
	if report.RecommendDissolution {
		e.emit(Event{Type: EventStabilityAlert, CoalitionID: id, At: e.now(), Payload: report})
	}
	return report, nil
}

// Improve scores the coalition and proposes stability improvements.
func (e *Engine) Improve(ctx context.Context, id uuid.UUID) (stability.Proposal, error) {
	c, err := e.store.Get(id)
	if err != nil {
		return stability.Proposal{}, err
	}
	snap, err := e.loader.Load(ctx, c.Members)
	if err != nil {
		return stability.Proposal{}, fmt.Errorf("oracle snapshot: %w", err)
	}
	util, err := utility.NewModel(ctx, e.src, snap, c.Purpose, nil)
	if err != nil {
		return stability.Proposal{}, err
	}
	// The originating request's trust threshold is not retained past
	// formation; the configured monitoring threshold stands in for it.
	return e.optimizer.Improve(snap, util, c, e.cfg.MonitorWeakTrust), nil
}

// Dissolve ends a coalition: defection, completion, or an external
// termination signal all land here. Cancellation after activation is a
// dissolution, not an executor concern.
func (e *Engine) Dissolve(ctx context.Context, id uuid.UUID, reason string) (model.Coalition, error) {
	c, err := e.store.Dissolve(id)
	if err != nil {
		return model.Coalition{}, err
	}
	e.mon.Forget(id)
	e.metrics.ActiveCoalitions.Add(ctx, -1)
	e.logger.Info("coalition dissolved", "coalition_id", id, "reason", reason)
	e.emit(Event{Type: EventCoalitionDissolved, CoalitionID: id, At: e.now(), Payload: map[string]string{"reason": reason}})
	return c, nil
}

// Get returns an active coalition by ID.
func (e *Engine) Get(id uuid.UUID) (model.Coalition, error) { return e.store.Get(id) }

// List returns all active coalitions.
func (e *Engine) List() []model.Coalition { return e.store.List() }

func (e *Engine) emit(ev Event) {
	for _, s := range e.sinks {
		s(ev)
	}
}

// gameTheoryOf surfaces the game-theoretic evaluator's solution when it ran.
func gameTheoryOf(results []strategy.Result) *model.GameTheorySolution {
	for _, r := range results {
		if r.GameTheory != nil {
			return r.GameTheory
		}
	}
	return nil
}

// successProbability blends candidate stability and verified trust risk
// into [0,1].
func successProbability(stabilityScore, trustRisk float64) float64 {
	p := (0.6*stabilityScore + 0.4*(100-trustRisk)) / 100
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
