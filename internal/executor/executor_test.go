package executor_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghogue02/living-economy-arena-sub000/internal/executor"
	"github.com/ghogue02/living-economy-arena-sub000/internal/model"
	"github.com/ghogue02/living-economy-arena-sub000/internal/registry"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func request(initiator model.AgentID, timeLimit *time.Duration) model.FormationRequest {
	return model.FormationRequest{
		ID:        uuid.New(),
		Initiator: initiator,
		Purpose:   model.PurposeTrading,
		Constraints: model.Constraints{
			MaxSize:   4,
			TimeLimit: timeLimit,
		},
	}
}

func candidate(members ...model.AgentID) model.CoalitionCandidate {
	return model.CoalitionCandidate{Members: members, Strategy: model.StrategyGreedy}
}

// trackingDirector records which phases were reached and answers per the
// configured responses.
type trackingDirector struct {
	mu         sync.Mutex
	invited    []model.AgentID
	negotiated []model.AgentID
	committed  []model.AgentID

	acceptInvite bool
	acceptShare  bool
	commit       bool
}

func (d *trackingDirector) Invite(_ context.Context, _ uuid.UUID, a model.AgentID, _ model.PurposeTag) (bool, error) {
	d.mu.Lock()
	d.invited = append(d.invited, a)
	d.mu.Unlock()
	return d.acceptInvite, nil
}

func (d *trackingDirector) Negotiate(_ context.Context, _ uuid.UUID, a model.AgentID, _ float64) (bool, error) {
	d.mu.Lock()
	d.negotiated = append(d.negotiated, a)
	d.mu.Unlock()
	return d.acceptShare, nil
}

func (d *trackingDirector) Commit(_ context.Context, _ uuid.UUID, a model.AgentID) (bool, error) {
	d.mu.Lock()
	d.committed = append(d.committed, a)
	d.mu.Unlock()
	return d.commit, nil
}

// blockingDirector parks every call until the context expires.
type blockingDirector struct{}

func (blockingDirector) Invite(ctx context.Context, _ uuid.UUID, _ model.AgentID, _ model.PurposeTag) (bool, error) {
	<-ctx.Done()
	return false, ctx.Err()
}
func (blockingDirector) Negotiate(ctx context.Context, _ uuid.UUID, _ model.AgentID, _ float64) (bool, error) {
	<-ctx.Done()
	return false, ctx.Err()
}
func (blockingDirector) Commit(ctx context.Context, _ uuid.UUID, _ model.AgentID) (bool, error) {
	<-ctx.Done()
	return false, ctx.Err()
}

func TestExecuteFullLifecycle(t *testing.T) {
	store := registry.New(3)
	e := executor.New(executor.AutoAccept{}, store, testLogger())

	c, state, err := e.Execute(context.Background(), request("a", nil), candidate("a", "b", "c"), model.TrustAnalysis{})
	require.NoError(t, err)
	require.NotNil(t, c)

	assert.Equal(t, model.StatusActive, c.Status)
	assert.Equal(t, []model.AgentID{"a", "b", "c"}, c.Members)
	assert.Equal(t, model.PhaseActive, state.CurrentPhase)
	assert.Equal(t, model.PhaseActivation, state.LastCompleted)
	for _, phase := range []model.Phase{model.PhaseInvitation, model.PhaseNegotiation, model.PhaseFinalization, model.PhaseActivation} {
		assert.True(t, state.PhaseResults[phase].Completed, "phase %s", phase)
	}

	sum := 0.0
	for _, share := range c.ProfitSharing {
		sum += share
	}
	assert.InDelta(t, 1.0, sum, 1e-9, "equal shares sum to one")
	assert.Equal(t, c.ProfitSharing["a"], c.ProfitSharing["b"])

	got, err := store.Get(c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, got.Status)
}

// When every invitee declines, the invitation phase fails below the
// acceptance bar and the lifecycle stops there: no negotiation, no
// coalition, no error.
func TestExecuteAllDecline(t *testing.T) {
	store := registry.New(3)
	d := &trackingDirector{acceptInvite: false}
	e := executor.New(d, store, testLogger())

	c, state, err := e.Execute(context.Background(), request("a", nil), candidate("a", "b", "c"), model.TrustAnalysis{})
	require.NoError(t, err, "a failed phase is a diagnostic outcome, not an error")
	assert.Nil(t, c)

	assert.Equal(t, model.PhaseFailed, state.CurrentPhase)
	inv := state.PhaseResults[model.PhaseInvitation]
	assert.False(t, inv.Completed)
	assert.Equal(t, 0.0, inv.AcceptanceRate)
	assert.NotEmpty(t, inv.Detail)

	assert.ElementsMatch(t, []model.AgentID{"b", "c"}, d.invited)
	assert.Empty(t, d.negotiated, "negotiation never starts after a failed invitation")
	assert.Empty(t, d.committed)
	assert.Empty(t, store.List())
}

func TestExecutePartialAcceptanceAboveBar(t *testing.T) {
	store := registry.New(3)
	// Decline exactly one of two invitees: rate 0.5 meets the bar.
	declined := false
	d := pickyDirector{decide: func(a model.AgentID) bool {
		if !declined {
			declined = true
			return false
		}
		return true
	}}
	e := executor.New(d, store, testLogger())

	c, state, err := e.Execute(context.Background(), request("a", nil), candidate("a", "b", "c"), model.TrustAnalysis{})
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Len(t, c.Members, 2, "the decliner is dropped, the rest proceed")
	assert.Equal(t, model.PhaseActive, state.CurrentPhase)
	assert.InDelta(t, 0.5, state.PhaseResults[model.PhaseInvitation].AcceptanceRate, 1e-9)
}

func TestExecuteNegotiationRejection(t *testing.T) {
	store := registry.New(3)
	d := &trackingDirector{acceptInvite: true, acceptShare: false}
	e := executor.New(d, store, testLogger())

	c, state, err := e.Execute(context.Background(), request("a", nil), candidate("a", "b"), model.TrustAnalysis{})
	require.NoError(t, err)
	assert.Nil(t, c)
	assert.Equal(t, model.PhaseFailed, state.CurrentPhase)
	assert.Equal(t, model.PhaseInvitation, state.LastCompleted)
	assert.Contains(t, state.PhaseResults[model.PhaseNegotiation].Detail, "rejected")
}

func TestExecuteTimeout(t *testing.T) {
	store := registry.New(3)
	e := executor.New(blockingDirector{}, store, testLogger())

	limit := 20 * time.Millisecond
	c, state, err := e.Execute(context.Background(), request("a", &limit), candidate("a", "b"), model.TrustAnalysis{})
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrFormationTimeout)
	assert.Nil(t, c)
	assert.Equal(t, model.PhaseFailed, state.CurrentPhase)
}

func TestExecuteOvercommittedAtActivation(t *testing.T) {
	store := registry.New(1)
	e := executor.New(executor.AutoAccept{}, store, testLogger())

	first, _, err := e.Execute(context.Background(), request("a", nil), candidate("a", "b"), model.TrustAnalysis{})
	require.NoError(t, err)
	require.NotNil(t, first)

	c, state, err := e.Execute(context.Background(), request("c", nil), candidate("c", "b"), model.TrustAnalysis{})
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrAgentOvercommitted)
	assert.Nil(t, c)
	assert.Equal(t, model.PhaseFailed, state.CurrentPhase)
	assert.Equal(t, model.PhaseFinalization, state.LastCompleted)
}

// pickyDirector delegates invitation decisions to a closure and accepts
// everything else.
type pickyDirector struct {
	decide func(model.AgentID) bool
}

func (d pickyDirector) Invite(_ context.Context, _ uuid.UUID, a model.AgentID, _ model.PurposeTag) (bool, error) {
	return d.decide(a), nil
}
func (pickyDirector) Negotiate(context.Context, uuid.UUID, model.AgentID, float64) (bool, error) {
	return true, nil
}
func (pickyDirector) Commit(context.Context, uuid.UUID, model.AgentID) (bool, error) {
	return true, nil
}
