package verify_test

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
	"github.com/ghogue02/living-economy-arena-sub000/internal/verify"
)

func buildSnapshot(t *testing.T, trust *oracle.StaticTrust, agents ...model.AgentID) *oracle.Snapshot {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	loader := oracle.NewLoader(trust, oracle.NewStaticReputation(50), time.Millisecond, logger)
	snap, err := loader.Load(context.Background(), agents)
	require.NoError(t, err)
	return snap
}

func TestAnalyzeSingleton(t *testing.T) {
	v := verify.New(80, 30)
	snap := buildSnapshot(t, oracle.NewStaticTrust(0), "solo")

	ta, err := v.Analyze(snap, []model.AgentID{"solo"}, 50)
	require.NoError(t, err)
	assert.Equal(t, 100.0, ta.AvgTrust)
	assert.Equal(t, 1.0, ta.Redundancy)
	assert.Equal(t, 0.0, ta.StabilityRisk)
	assert.Empty(t, ta.WeakLinks)
}

func TestAnalyzeClassifiesLinks(t *testing.T) {
	trust := oracle.NewStaticTrust(50)
	trust.SetBoth("a", "b", 90) // strong bond (> 80)
	trust.SetBoth("a", "c", 30) // weak link (< 50)
	trust.SetBoth("b", "c", 60) // neither
	snap := buildSnapshot(t, trust, "a", "b", "c")

	v := verify.New(80, 30)
	ta, err := v.Analyze(snap, []model.AgentID{"a", "b", "c"}, 50)
	require.NoError(t, err)

	assert.Equal(t, 30.0, ta.MinTrust)
	assert.Equal(t, 90.0, ta.MaxTrust)
	assert.InDelta(t, 60.0, ta.AvgTrust, 1e-9)
	assert.Equal(t, []model.PairKey{model.NewPairKey("a", "c")}, ta.WeakLinks)
	assert.Equal(t, []model.PairKey{model.NewPairKey("a", "b")}, ta.StrongBonds)
	assert.Len(t, ta.PairwiseTrust, 3)
}

// A coalition with one weak link must carry strictly more stability risk
// than the same coalition with that link repaired.
func TestWeakLinkRaisesRisk(t *testing.T) {
	weak := oracle.NewStaticTrust(50)
	weak.SetBoth("a", "b", 90)
	weak.SetBoth("a", "c", 20)
	weak.SetBoth("b", "c", 90)

	strong := oracle.NewStaticTrust(50)
	strong.SetBoth("a", "b", 90)
	strong.SetBoth("a", "c", 90)
	strong.SetBoth("b", "c", 90)

	v := verify.New(80, 30)
	members := []model.AgentID{"a", "b", "c"}

	taWeak, err := v.Analyze(buildSnapshot(t, weak, members...), members, 50)
	require.NoError(t, err)
	taStrong, err := v.Analyze(buildSnapshot(t, strong, members...), members, 50)
	require.NoError(t, err)

	assert.Greater(t, taWeak.StabilityRisk, taStrong.StabilityRisk)
	assert.Less(t, taWeak.Redundancy, taStrong.Redundancy+1e-9)
}

func TestRedundancyTriangleVsChain(t *testing.T) {
	v := verify.New(80, 30)
	members := []model.AgentID{"a", "b", "c"}

	// Full triangle above threshold: every pair has a backup path.
	triangle := oracle.NewStaticTrust(0)
	triangle.SetBoth("a", "b", 80)
	triangle.SetBoth("b", "c", 80)
	triangle.SetBoth("a", "c", 80)
	taTri, err := v.Analyze(buildSnapshot(t, triangle, members...), members, 50)
	require.NoError(t, err)
	assert.Equal(t, 1.0, taTri.Redundancy)

	// Chain a-b-c: removing b disconnects a and c; no pair is redundant.
	chain := oracle.NewStaticTrust(0)
	chain.SetBoth("a", "b", 80)
	chain.SetBoth("b", "c", 80)
	taChain, err := v.Analyze(buildSnapshot(t, chain, members...), members, 50)
	require.NoError(t, err)
	assert.Equal(t, 0.0, taChain.Redundancy)
}

func TestAnalyzeFlagsBelowFloor(t *testing.T) {
	trust := oracle.NewStaticTrust(10)
	snap := buildSnapshot(t, trust, "a", "b")

	v := verify.New(80, 30)
	ta, err := v.Analyze(snap, []model.AgentID{"a", "b"}, 50)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrVerificationFailed)
	// The analysis is still valid and returned alongside the flag.
	assert.InDelta(t, 10.0, ta.AvgTrust, 1e-9)
	assert.NotEmpty(t, ta.WeakLinks)
}

func TestStabilityRiskBounded(t *testing.T) {
	v := verify.New(80, 0)
	members := []model.AgentID{"a", "b", "c"}
	zero := buildSnapshot(t, oracle.NewStaticTrust(0), members...)
	full := buildSnapshot(t, oracle.NewStaticTrust(100), members...)

	taZero, _ := v.Analyze(zero, members, 50)
	taFull, err := v.Analyze(full, members, 50)
	require.NoError(t, err)

	assert.LessOrEqual(t, taZero.StabilityRisk, 100.0)
	assert.GreaterOrEqual(t, taZero.StabilityRisk, 0.0)
	// A uniform full-trust triangle is fully redundant with zero variance.
	assert.Equal(t, 0.0, taFull.StabilityRisk)
}
