// Package executor drives a winning coalition candidate through the
// formation lifecycle: invitation, negotiation, finalization, activation.
// Each phase may time out per the request's time limit; a timeout fails the
// phase (recording the last completed phase for diagnostics), never the
// process.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ghogue02/living-economy-arena-sub000/internal/model"
	"github.com/ghogue02/living-economy-arena-sub000/internal/registry"
)

// minAcceptanceRate is the invitation-phase success bar.
const minAcceptanceRate = 0.5

// Director is the external collaborator that answers for proposed members
// during formation. Calls are synchronous; the engine applies phase
// deadlines around them.
type Director interface {
	// Invite asks the agent to join. True means accepted.
	Invite(ctx context.Context, coalitionID uuid.UUID, agent model.AgentID, purpose model.PurposeTag) (bool, error)
	// Negotiate proposes a profit share fraction. True means agreed.
	Negotiate(ctx context.Context, coalitionID uuid.UUID, agent model.AgentID, share float64) (bool, error)
	// Commit asks for a final commitment. True means committed.
	Commit(ctx context.Context, coalitionID uuid.UUID, agent model.AgentID) (bool, error)
}

// AutoAccept is a Director that accepts everything. Used by the demo binary
// and as the default when no director is wired.
type AutoAccept struct{}

func (AutoAccept) Invite(context.Context, uuid.UUID, model.AgentID, model.PurposeTag) (bool, error) {
	return true, nil
}
func (AutoAccept) Negotiate(context.Context, uuid.UUID, model.AgentID, float64) (bool, error) {
	return true, nil
}
func (AutoAccept) Commit(context.Context, uuid.UUID, model.AgentID) (bool, error) {
	return true, nil
}

// Executor runs formation lifecycles against a Director and activates the
// resulting coalitions in the registry.
type Executor struct {
	director Director
	store    *registry.Store
	logger   *slog.Logger
	now      func() time.Time
}

// New creates an Executor.
func New(director Director, store *registry.Store, logger *slog.Logger) *Executor {
	return &Executor{director: director, store: store, logger: logger, now: time.Now}
}

// Execute runs the full lifecycle for the winning candidate. On success the
// returned coalition is active and registered. On failure the coalition is
// nil, the state records the failed phase, and the error wraps
// ErrFormationTimeout for deadline failures.
func (e *Executor) Execute(ctx context.Context, req model.FormationRequest, cand model.CoalitionCandidate, trust model.TrustAnalysis) (*model.Coalition, model.ExecutionState, error) {
	id := uuid.New()
	state := model.ExecutionState{
		CoalitionID:  id,
		CurrentPhase: model.PhaseInvitation,
		PhaseResults: make(map[model.Phase]model.PhaseResult),
	}

	// Invitation: the initiator is in by definition; everyone else on the
	// plan is asked. Decliners are dropped, the rest continue.
	accepted, res, err := e.runInvitation(ctx, req, id, cand.Members)
	state.PhaseResults[model.PhaseInvitation] = res
	if err != nil || !res.Completed {
		return nil, failed(state, model.PhaseInvitation, err), err
	}
	state.LastCompleted = model.PhaseInvitation
	state.CurrentPhase = model.PhaseNegotiation

	// Negotiation: equal shares proposed; all accepting members must agree.
	shares := equalShares(accepted)
	res, err = e.runNegotiation(ctx, req, id, accepted, shares)
	state.PhaseResults[model.PhaseNegotiation] = res
	if err != nil || !res.Completed {
		return nil, failed(state, model.PhaseNegotiation, err), err
	}
	state.LastCompleted = model.PhaseNegotiation
	state.CurrentPhase = model.PhaseFinalization

	// Finalization: every negotiated member must commit.
	res, err = e.runFinalization(ctx, req, id, accepted)
	state.PhaseResults[model.PhaseFinalization] = res
	if err != nil || !res.Completed {
		return nil, failed(state, model.PhaseFinalization, err), err
	}
	state.LastCompleted = model.PhaseFinalization
	state.CurrentPhase = model.PhaseActivation

	// Activation: mint the record and register it. The registry enforces
	// the per-agent concurrency limit atomically.
	start := e.now()
	c := model.Coalition{
		ID:            id,
		Members:       accepted,
		Purpose:       req.Purpose,
		Strategy:      cand.Strategy,
		FormedAt:      start,
		Status:        model.StatusActive,
		ProfitSharing: shares,
		Trust:         trust,
	}
	if err := e.store.Activate(c); err != nil {
		state.PhaseResults[model.PhaseActivation] = model.PhaseResult{Detail: err.Error(), Elapsed: e.now().Sub(start)}
		return nil, failed(state, model.PhaseActivation, err), err
	}
	state.PhaseResults[model.PhaseActivation] = model.PhaseResult{Completed: true, Elapsed: e.now().Sub(start)}
	state.LastCompleted = model.PhaseActivation
	state.CurrentPhase = model.PhaseActive

	e.logger.Info("coalition activated",
		"coalition_id", id, "members", len(accepted), "strategy", cand.Strategy)
	return &c, state, nil
}

func (e *Executor) runInvitation(ctx context.Context, req model.FormationRequest, id uuid.UUID, plan []model.AgentID) ([]model.AgentID, model.PhaseResult, error) {
	start := e.now()
	pctx, cancel := e.phaseContext(ctx, req)
	defer cancel()

	accepted := []model.AgentID{req.Initiator}
	invited := 0
	for _, a := range plan {
		if a == req.Initiator {
			continue
		}
		invited++
		ok, err := e.director.Invite(pctx, id, a, req.Purpose)
		if err != nil {
			if timedOut(pctx, err) {
				return nil, phaseTimeout(start, e.now()), fmt.Errorf("invitation: %w", model.ErrFormationTimeout)
			}
			e.logger.Warn("invitation call failed, treating as decline", "agent", a, "error", err)
			continue
		}
		if ok {
			accepted = append(accepted, a)
		}
	}

	rate := 1.0
	if invited > 0 {
		rate = float64(len(accepted)-1) / float64(invited)
	}
	res := model.PhaseResult{
		Completed:      rate >= minAcceptanceRate,
		AcceptanceRate: rate,
		Elapsed:        e.now().Sub(start),
	}
	if !res.Completed {
		res.Detail = fmt.Sprintf("acceptance rate %.2f below %.2f", rate, minAcceptanceRate)
	}
	return accepted, res, nil
}

func (e *Executor) runNegotiation(ctx context.Context, req model.FormationRequest, id uuid.UUID, members []model.AgentID, shares map[model.AgentID]float64) (model.PhaseResult, error) {
	start := e.now()
	pctx, cancel := e.phaseContext(ctx, req)
	defer cancel()

	for _, a := range members {
		if a == req.Initiator {
			continue
		}
		ok, err := e.director.Negotiate(pctx, id, a, shares[a])
		if err != nil {
			if timedOut(pctx, err) {
				return phaseTimeout(start, e.now()), fmt.Errorf("negotiation: %w", model.ErrFormationTimeout)
			}
			return model.PhaseResult{Detail: "negotiation call failed: " + err.Error(), Elapsed: e.now().Sub(start)}, nil
		}
		if !ok {
			return model.PhaseResult{
				Detail:  fmt.Sprintf("%s rejected the proposed share", a),
				Elapsed: e.now().Sub(start),
			}, nil
		}
	}
	return model.PhaseResult{Completed: true, Elapsed: e.now().Sub(start)}, nil
}

func (e *Executor) runFinalization(ctx context.Context, req model.FormationRequest, id uuid.UUID, members []model.AgentID) (model.PhaseResult, error) {
	start := e.now()
	pctx, cancel := e.phaseContext(ctx, req)
	defer cancel()

	for _, a := range members {
		if a == req.Initiator {
			continue
		}
		ok, err := e.director.Commit(pctx, id, a)
		if err != nil {
			if timedOut(pctx, err) {
				return phaseTimeout(start, e.now()), fmt.Errorf("finalization: %w", model.ErrFormationTimeout)
			}
			return model.PhaseResult{Detail: "commitment call failed: " + err.Error(), Elapsed: e.now().Sub(start)}, nil
		}
		if !ok {
			return model.PhaseResult{
				Detail:  fmt.Sprintf("%s withdrew before commitment", a),
				Elapsed: e.now().Sub(start),
			}, nil
		}
	}
	return model.PhaseResult{Completed: true, Elapsed: e.now().Sub(start)}, nil
}

// phaseContext applies the request's time limit as this phase's deadline.
func (e *Executor) phaseContext(ctx context.Context, req model.FormationRequest) (context.Context, context.CancelFunc) {
	if req.Constraints.TimeLimit == nil {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, *req.Constraints.TimeLimit)
}

func timedOut(ctx context.Context, err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)
}

func phaseTimeout(start, now time.Time) model.PhaseResult {
	return model.PhaseResult{Detail: "phase timed out", Elapsed: now.Sub(start)}
}

func failed(state model.ExecutionState, phase model.Phase, err error) model.ExecutionState {
	state.CurrentPhase = model.PhaseFailed
	if err != nil && state.PhaseResults[phase].Detail == "" {
		res := state.PhaseResults[phase]
		res.Detail = err.Error()
		state.PhaseResults[phase] = res
	}
	return state
}

func equalShares(members []model.AgentID) map[model.AgentID]float64 {
	shares := make(map[model.AgentID]float64, len(members))
	for _, a := range members {
		shares[a] = 1 / float64(len(members))
	}
	return shares
}
