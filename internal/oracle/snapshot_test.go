package oracle_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghogue02/living-economy-arena-sub000/internal/model"
	"github.com/ghogue02/living-economy-arena-sub000/internal/oracle"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// flakyTrust fails the first call for every pair, then delegates.
type flakyTrust struct {
	mu       sync.Mutex
	inner    oracle.TrustOracle
	failures map[string]bool
}

func (f *flakyTrust) Trust(ctx context.Context, a, b model.AgentID) (float64, error) {
	key := string(a) + "->" + string(b)
	f.mu.Lock()
	first := !f.failures[key]
	f.failures[key] = true
	f.mu.Unlock()
	if first {
		return 0, errors.New("oracle hiccup")
	}
	return f.inner.Trust(ctx, a, b)
}

// downReputation always fails for one agent.
type downReputation struct {
	inner oracle.ReputationOracle
	down  model.AgentID
}

func (d *downReputation) Reputation(ctx context.Context, a model.AgentID) (float64, error) {
	if a == d.down {
		return 0, errors.New("reputation service unavailable")
	}
	return d.inner.Reputation(ctx, a)
}

func (d *downReputation) History(ctx context.Context, a model.AgentID) ([]float64, error) {
	return d.inner.History(ctx, a)
}

func TestLoaderBuildsSnapshot(t *testing.T) {
	trust := oracle.NewStaticTrust(50)
	trust.Set("a", "b", 90)
	trust.Set("b", "a", 70)
	rep := oracle.NewStaticReputation(60)
	rep.Set("a", 85)
	rep.SetHistory("a", []float64{80, 85, 90})

	loader := oracle.NewLoader(trust, rep, time.Millisecond, testLogger())
	snap, err := loader.Load(context.Background(), []model.AgentID{"a", "b"})
	require.NoError(t, err)

	assert.Equal(t, []model.AgentID{"a", "b"}, snap.Agents())

	ab, ok := snap.Trust("a", "b")
	require.True(t, ok)
	assert.Equal(t, 90.0, ab)

	// PairTrust is the mean of the two directions.
	pt, ok := snap.PairTrust("a", "b")
	require.True(t, ok)
	assert.Equal(t, 80.0, pt)
	rev, ok := snap.PairTrust("b", "a")
	require.True(t, ok)
	assert.Equal(t, pt, rev, "pair trust is direction-independent")

	r, ok := snap.Reputation("a")
	require.True(t, ok)
	assert.Equal(t, 85.0, r)
	assert.Equal(t, []float64{80, 85, 90}, snap.History("a"))
	assert.Empty(t, snap.Excluded())
}

func TestLoaderRetriesOnce(t *testing.T) {
	inner := oracle.NewStaticTrust(75)
	trust := &flakyTrust{inner: inner, failures: make(map[string]bool)}
	rep := oracle.NewStaticReputation(60)

	loader := oracle.NewLoader(trust, rep, time.Millisecond, testLogger())
	snap, err := loader.Load(context.Background(), []model.AgentID{"a", "b"})
	require.NoError(t, err)

	// Every pair failed its first call; the single retry recovered all of them.
	assert.Empty(t, snap.Excluded())
	v, ok := snap.Trust("a", "b")
	require.True(t, ok)
	assert.Equal(t, 75.0, v)
}

func TestLoaderExcludesAgentOnPersistentFailure(t *testing.T) {
	trust := oracle.NewStaticTrust(75)
	rep := &downReputation{inner: oracle.NewStaticReputation(60), down: "broken"}

	loader := oracle.NewLoader(trust, rep, time.Millisecond, testLogger())
	snap, err := loader.Load(context.Background(), []model.AgentID{"a", "broken", "b"})
	require.NoError(t, err, "a failing agent degrades the snapshot, it does not fail the load")

	assert.Equal(t, []model.AgentID{"a", "b"}, snap.Agents())
	require.Contains(t, snap.Excluded(), model.AgentID("broken"))
	_, ok := snap.Reputation("broken")
	assert.False(t, ok)
}

func TestStaticOracleDefaults(t *testing.T) {
	trust := oracle.NewStaticTrust(42)
	v, err := trust.Trust(context.Background(), "x", "y")
	require.NoError(t, err)
	assert.Equal(t, 42.0, v)

	trust.SetBoth("x", "y", 88)
	v, _ = trust.Trust(context.Background(), "y", "x")
	assert.Equal(t, 88.0, v)

	rep := oracle.NewStaticReputation(33)
	r, err := rep.Reputation(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, 33.0, r)
	h, err := rep.History(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, h)
}
