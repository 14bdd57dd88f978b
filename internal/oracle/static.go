package oracle

import (
	"context"
	"sync"

	"github.com/ghogue02/living-economy-arena-sub000/internal/model"
)

// StaticTrust is an in-memory TrustOracle for tests and the demo binary.
// Unset pairs fall back to the default score.
type StaticTrust struct {
	mu      sync.RWMutex
	scores  map[pair]float64
	Default float64
}

// NewStaticTrust creates a trust oracle with the given default score.
func NewStaticTrust(defaultScore float64) *StaticTrust {
	return &StaticTrust{scores: make(map[pair]float64), Default: defaultScore}
}

// Set assigns the directional trust from a to b.
func (o *StaticTrust) Set(a, b model.AgentID, score float64) {
	o.mu.Lock()
	o.scores[pair{from: a, to: b}] = score
	o.mu.Unlock()
}

// SetBoth assigns the same trust in both directions.
func (o *StaticTrust) SetBoth(a, b model.AgentID, score float64) {
	o.Set(a, b, score)
	o.Set(b, a, score)
}

// Trust implements TrustOracle.
func (o *StaticTrust) Trust(_ context.Context, a, b model.AgentID) (float64, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if v, ok := o.scores[pair{from: a, to: b}]; ok {
		return v, nil
	}
	return o.Default, nil
}

// StaticReputation is an in-memory ReputationOracle for tests and the demo
// binary. Unset agents fall back to the default score with empty history.
type StaticReputation struct {
	mu      sync.RWMutex
	scores  map[model.AgentID]float64
	history map[model.AgentID][]float64
	Default float64
}

// NewStaticReputation creates a reputation oracle with the given default score.
func NewStaticReputation(defaultScore float64) *StaticReputation {
	return &StaticReputation{
		scores:  make(map[model.AgentID]float64),
		history: make(map[model.AgentID][]float64),
		Default: defaultScore,
	}
}

// Set assigns an agent's current reputation.
func (o *StaticReputation) Set(a model.AgentID, score float64) {
	o.mu.Lock()
	o.scores[a] = score
	o.mu.Unlock()
}

// SetHistory assigns an agent's reputation history.
func (o *StaticReputation) SetHistory(a model.AgentID, scores []float64) {
	o.mu.Lock()
	o.history[a] = append([]float64(nil), scores...)
	o.mu.Unlock()
}

// Reputation implements ReputationOracle.
func (o *StaticReputation) Reputation(_ context.Context, a model.AgentID) (float64, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if v, ok := o.scores[a]; ok {
		return v, nil
	}
	return o.Default, nil
}

// History implements ReputationOracle.
func (o *StaticReputation) History(_ context.Context, a model.AgentID) ([]float64, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]float64(nil), o.history[a]...), nil
}
