package model_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghogue02/living-economy-arena-sub000/internal/model"
)

func TestValidateAgentID(t *testing.T) {
	valid := []model.AgentID{"a", "agent-1", "trader_07", "bot.v2@arena", "A1B2"}
	for _, id := range valid {
		assert.NoError(t, model.ValidateAgentID(id), "id %q", id)
	}

	invalid := []model.AgentID{"", "has space", "semi;colon", "sl/ash", model.AgentID(make([]byte, 256))}
	for _, id := range invalid {
		assert.Error(t, model.ValidateAgentID(id), "id %q", id)
	}
}

func TestConstraintsValidate(t *testing.T) {
	good := model.Constraints{MaxSize: 4, MinTrustLevel: 50, ReputationThreshold: 30}
	require.NoError(t, good.Validate())

	negBudget := -1.0
	zeroLimit := time.Duration(0)
	cases := []model.Constraints{
		{MaxSize: 0, MinTrustLevel: 50},
		{MaxSize: 4, MinTrustLevel: -1},
		{MaxSize: 4, MinTrustLevel: 101},
		{MaxSize: 4, ReputationThreshold: 200},
		{MaxSize: 4, BudgetLimit: &negBudget},
		{MaxSize: 4, TimeLimit: &zeroLimit},
	}
	for i, c := range cases {
		err := c.Validate()
		require.Error(t, err, "case %d", i)
		assert.ErrorIs(t, err, model.ErrInvalidConstraint, "case %d", i)
	}
}

func TestFormationRequestValidate(t *testing.T) {
	base := model.FormationRequest{
		Initiator:       "alice",
		Purpose:         model.PurposeTrading,
		AvailableAgents: []model.AgentID{"bob", "carol"},
		Constraints:     model.Constraints{MaxSize: 3, MinTrustLevel: 50},
	}
	require.NoError(t, base.Validate())

	dup := base
	dup.AvailableAgents = []model.AgentID{"bob", "bob"}
	assert.ErrorIs(t, dup.Validate(), model.ErrInvalidConstraint)

	self := base
	self.AvailableAgents = []model.AgentID{"alice"}
	assert.ErrorIs(t, self.Validate(), model.ErrInvalidConstraint)

	badPurpose := base
	badPurpose.Purpose = "conquest"
	assert.ErrorIs(t, badPurpose.Validate(), model.ErrInvalidConstraint)

	all := base.AllAgents()
	require.Len(t, all, 3)
	assert.Equal(t, model.AgentID("alice"), all[0], "initiator must come first")
}

func TestPurposeAndStrategyTags(t *testing.T) {
	for _, p := range []model.PurposeTag{
		model.PurposeTrading, model.PurposeInformationSharing, model.PurposeDefense,
		model.PurposeExploration, model.PurposeProduction,
	} {
		assert.True(t, p.IsValid())
	}
	assert.False(t, model.PurposeTag("smuggling").IsValid())

	tags := model.AllStrategies()
	require.Len(t, tags, 5)
	for i := 1; i < len(tags); i++ {
		assert.Greater(t, tags[i-1].Priority(), tags[i].Priority(), "AllStrategies must be priority-ordered")
	}
	assert.False(t, model.StrategyTag("psychic").IsValid())
}

func TestPairKeyNormalized(t *testing.T) {
	assert.Equal(t, model.NewPairKey("b", "a"), model.NewPairKey("a", "b"))
	k := model.NewPairKey("zed", "amy")
	assert.Equal(t, model.AgentID("amy"), k.A)
	assert.Equal(t, model.AgentID("zed"), k.B)
}

// PairKey-keyed maps appear in API responses, so the key must serialize as
// a JSON map key and round-trip.
func TestPairKeyJSON(t *testing.T) {
	m := map[model.PairKey]float64{model.NewPairKey("b", "a"): 72.5}
	raw, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a|b": 72.5}`, string(raw))

	var back map[model.PairKey]float64
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, m, back)
}

func TestPhaseTransitions(t *testing.T) {
	assert.Equal(t, model.PhaseNegotiation, model.PhaseInvitation.Next())
	assert.Equal(t, model.PhaseFinalization, model.PhaseNegotiation.Next())
	assert.Equal(t, model.PhaseActivation, model.PhaseFinalization.Next())
	assert.Equal(t, model.PhaseActive, model.PhaseActivation.Next())

	assert.True(t, model.PhaseActive.IsTerminal())
	assert.True(t, model.PhaseFailed.IsTerminal())
	assert.False(t, model.PhaseInvitation.IsTerminal())
	assert.Equal(t, model.PhaseFailed, model.PhaseFailed.Next(), "terminal phases return themselves")
}

func TestCandidateContains(t *testing.T) {
	c := model.CoalitionCandidate{Members: []model.AgentID{"a", "b"}}
	assert.True(t, c.Contains("a"))
	assert.False(t, c.Contains("z"))
}
