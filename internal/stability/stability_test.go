package stability_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghogue02/living-economy-arena-sub000/internal/model"
	"github.com/ghogue02/living-economy-arena-sub000/internal/oracle"
	"github.com/ghogue02/living-economy-arena-sub000/internal/stability"
	"github.com/ghogue02/living-economy-arena-sub000/internal/utility"
)

func buildWorld(t *testing.T, trust *oracle.StaticTrust, src utility.Source, agents ...model.AgentID) (*oracle.Snapshot, *utility.Model) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	loader := oracle.NewLoader(trust, oracle.NewStaticReputation(50), time.Millisecond, logger)
	snap, err := loader.Load(context.Background(), agents)
	require.NoError(t, err)
	util, err := utility.NewModel(context.Background(), src, snap, model.PurposeTrading, nil)
	require.NoError(t, err)
	return snap, util
}

func TestScoreBounds(t *testing.T) {
	members := []model.AgentID{"a", "b", "c"}
	src := utility.NewStaticSource(50)

	for _, trustLevel := range []float64{0, 50, 100} {
		snap, util := buildWorld(t, oracle.NewStaticTrust(trustLevel), src, members...)
		b := stability.Score(snap, util, members, 50)
		assert.GreaterOrEqual(t, b.Total, 0.0)
		assert.LessOrEqual(t, b.Total, 100.0)
		assert.InDelta(t, trustLevel, b.AvgTrust, 1e-9)
	}
}

func TestHigherTrustScoresHigher(t *testing.T) {
	members := []model.AgentID{"a", "b", "c"}
	src := utility.NewStaticSource(50)

	snapLow, utilLow := buildWorld(t, oracle.NewStaticTrust(20), src, members...)
	snapHigh, utilHigh := buildWorld(t, oracle.NewStaticTrust(90), src, members...)

	low := stability.Score(snapLow, utilLow, members, 50)
	high := stability.Score(snapHigh, utilHigh, members, 50)
	assert.Greater(t, high.Total, low.Total)
}

func TestEqualContributionsBalanceFully(t *testing.T) {
	members := []model.AgentID{"a", "b"}
	src := utility.NewStaticSource(50) // identical agents contribute identically
	snap, util := buildWorld(t, oracle.NewStaticTrust(70), src, members...)

	b := stability.Score(snap, util, members, 50)
	assert.InDelta(t, 100.0, b.UtilityBalance, 1e-9)
}

func TestUnevenContributionsLowerBalance(t *testing.T) {
	members := []model.AgentID{"a", "b"}
	src := utility.NewStaticSource(50)
	src.SetBase("a", model.PurposeTrading, 500)
	src.SetBase("b", model.PurposeTrading, 1)
	snap, util := buildWorld(t, oracle.NewStaticTrust(70), src, members...)

	b := stability.Score(snap, util, members, 50)
	assert.Less(t, b.UtilityBalance, 100.0)
}

func TestScoreWithPressure(t *testing.T) {
	members := []model.AgentID{"a", "b"}
	src := utility.NewStaticSource(50)
	snap, util := buildWorld(t, oracle.NewStaticTrust(70), src, members...)

	calm := stability.ScoreWithPressure(snap, util, members, 50, -1, 0)
	squeezed := stability.ScoreWithPressure(snap, util, members, 50, -1, 100)
	assert.Greater(t, calm.Total, squeezed.Total)
	assert.Equal(t, 100.0, squeezed.ExternalPressure)
}

func TestOptimizerQuietAboveThreshold(t *testing.T) {
	members := []model.AgentID{"a", "b", "c"}
	src := utility.NewStaticSource(50)
	snap, util := buildWorld(t, oracle.NewStaticTrust(95), src, members...)

	opt := stability.NewOptimizer(60)
	c := model.Coalition{Members: members, ProfitSharing: equalShares(members)}
	p := opt.Improve(snap, util, c, 50)

	assert.GreaterOrEqual(t, p.Score.Total, 60.0)
	assert.Empty(t, p.TrustActions)
	assert.Empty(t, p.Replacements)
	assert.Empty(t, p.ProfitSharing)
}

func TestOptimizerProposesImprovements(t *testing.T) {
	trust := oracle.NewStaticTrust(15) // everything is weak
	src := utility.NewStaticSource(50)
	members := []model.AgentID{"a", "b", "c"}
	// An outsider with a strong utility profile is available for swaps.
	snap, _ := buildWorld(t, trust, src, "a", "b", "c", "d")
	src.SetBase("d", model.PurposeTrading, 200)
	util2, err := utility.NewModel(context.Background(), src, snap, model.PurposeTrading, nil)
	require.NoError(t, err)

	opt := stability.NewOptimizer(60)
	c := model.Coalition{Members: members, ProfitSharing: equalShares(members)}
	p := opt.Improve(snap, util2, c, 50)

	require.Less(t, p.Score.Total, 60.0)
	assert.Len(t, p.TrustActions, 3, "one action per weak pair")
	for _, a := range p.TrustActions {
		assert.Less(t, a.CurrentTrust, 50.0)
		assert.NotEmpty(t, a.Action)
	}

	require.NotEmpty(t, p.Replacements, "swapping in the high-utility outsider gains net value")
	for _, r := range p.Replacements {
		assert.Greater(t, r.NetGain, 0.0)
		assert.NotEqual(t, model.AgentID("a"), r.Remove, "the initiator is never replaced")
	}

	sum := 0.0
	for _, share := range p.ProfitSharing {
		sum += share
	}
	assert.InDelta(t, 1.0, sum, 1e-9, "rebalanced shares stay normalized")
}

func equalShares(members []model.AgentID) map[model.AgentID]float64 {
	out := make(map[model.AgentID]float64, len(members))
	for _, m := range members {
		out[m] = 1 / float64(len(members))
	}
	return out
}
