// Package monitor tracks activated coalitions: performance, trust drift,
// defection risk, and dissolution recommendations. Checks are externally
// triggered; the monitor never runs its own timer.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/google/uuid"

	"github.com/ghogue02/living-economy-arena-sub000/internal/model"
	"github.com/ghogue02/living-economy-arena-sub000/internal/oracle"
	"github.com/ghogue02/living-economy-arena-sub000/internal/registry"
	"github.com/ghogue02/living-economy-arena-sub000/internal/stability"
	"github.com/ghogue02/living-economy-arena-sub000/internal/utility"
)

// Report is the outcome of one monitoring pass over a coalition.
type Report struct {
	CoalitionID   uuid.UUID                 `json:"coalition_id"`
	TotalUtility  float64                   `json:"total_utility"`
	Contributions map[model.AgentID]float64 `json:"contributions"`

	// ProfitDrift is the total absolute gap between each member's profit
	// share and its contribution share, in [0,2].
	ProfitDrift float64 `json:"profit_drift"`

	Stability            stability.Breakdown `json:"stability"`
	TrustDrift           float64             `json:"trust_drift"` // initial avg trust minus current
	DefectionProbability float64             `json:"defection_probability"`
	ConflictIndicators   []string            `json:"conflict_indicators,omitempty"`

	RecommendDissolution bool   `json:"recommend_dissolution"`
	Reason               string `json:"reason,omitempty"`
}

// observation is one historical sample per coalition, used for trends.
type observation struct {
	avgTrust  float64
	stability float64
}

// Monitor recomputes coalition health on demand.
type Monitor struct {
	store  *registry.Store
	loader *oracle.Loader
	src    utility.Source
	logger *slog.Logger

	defectionThreshold float64
	stabilityFloor     float64
	historySize        int
	weakThreshold      float64

	mu      sync.Mutex
	history map[uuid.UUID][]observation
}

// New creates a Monitor over the registry and live oracles.
func New(store *registry.Store, loader *oracle.Loader, src utility.Source, defectionThreshold, stabilityFloor, weakThreshold float64, historySize int, logger *slog.Logger) *Monitor {
	return &Monitor{
		store:              store,
		loader:             loader,
		src:                src,
		logger:             logger,
		defectionThreshold: defectionThreshold,
		stabilityFloor:     stabilityFloor,
		historySize:        historySize,
		weakThreshold:      weakThreshold,
		history:            make(map[uuid.UUID][]observation),
	}
}

// Check recomputes the coalition's health against a fresh oracle snapshot.
func (m *Monitor) Check(ctx context.Context, id uuid.UUID) (Report, error) {
	c, err := m.store.Get(id)
	if err != nil {
		return Report{}, err
	}

	snap, err := m.loader.Load(ctx, c.Members)
	if err != nil {
		return Report{}, fmt.Errorf("monitor: oracle snapshot: %w", err)
	}
	util, err := utility.NewModel(ctx, m.src, snap, c.Purpose, nil)
	if err != nil {
		return Report{}, fmt.Errorf("monitor: utility model: %w", err)
	}

	r := Report{
		CoalitionID:   id,
		TotalUtility:  util.CoalitionUtility(c.Members),
		Contributions: make(map[model.AgentID]float64, len(c.Members)),
	}
	contribTotal := 0.0
	for _, a := range c.Members {
		contrib := math.Max(util.AgentUtility(a, c.Members), 0)
		r.Contributions[a] = contrib
		contribTotal += contrib
	}

	// Profit distribution vs plan: how far actual shares sit from
	// contribution-proportional shares.
	if contribTotal > 0 {
		for _, a := range c.Members {
			r.ProfitDrift += math.Abs(c.ProfitSharing[a] - r.Contributions[a]/contribTotal)
		}
	}

	dissatisfaction := math.Min(r.ProfitDrift/2, 1)
	r.TrustDrift = m.trustDrift(id, snap, c.Members)
	r.Stability = stability.ScoreWithPressure(snap, util, c.Members, m.weakThreshold, -1, externalPressure(dissatisfaction))
	r.DefectionProbability = defectionProbability(r.TrustDrift, dissatisfaction)
	r.ConflictIndicators = conflictIndicators(snap, c.Members, m.weakThreshold, r.ProfitDrift)

	m.observe(id, observation{avgTrust: currentAvgTrust(snap, c.Members), stability: r.Stability.Total})

	switch {
	case r.DefectionProbability > m.defectionThreshold:
		r.RecommendDissolution = true
		r.Reason = fmt.Sprintf("defection probability %.2f above threshold %.2f", r.DefectionProbability, m.defectionThreshold)
	case r.Stability.Total < m.stabilityFloor:
		r.RecommendDissolution = true
		r.Reason = fmt.Sprintf("stability %.1f below floor %.1f", r.Stability.Total, m.stabilityFloor)
	}
	if r.RecommendDissolution {
		m.logger.Warn("dissolution recommended", "coalition_id", id, "reason", r.Reason)
	}
	return r, nil
}

// Forget drops a dissolved coalition's monitoring history.
func (m *Monitor) Forget(id uuid.UUID) {
	m.mu.Lock()
	delete(m.history, id)
	m.mu.Unlock()
}

// trustDrift is the first observed average trust minus the current one.
// Positive drift means trust has decayed since activation.
func (m *Monitor) trustDrift(id uuid.UUID, snap *oracle.Snapshot, members []model.AgentID) float64 {
	current := currentAvgTrust(snap, members)
	m.mu.Lock()
	defer m.mu.Unlock()
	hist := m.history[id]
	if len(hist) == 0 {
		return 0
	}
	return hist[0].avgTrust - current
}

func (m *Monitor) observe(id uuid.UUID, obs observation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	hist := append(m.history[id], obs)
	if len(hist) > m.historySize {
		// Keep the first sample (the drift baseline) and the recent window.
		hist = append(hist[:1], hist[len(hist)-m.historySize+1:]...)
	}
	m.history[id] = hist
}

// defectionProbability blends trust decay and profit dissatisfaction.
func defectionProbability(trustDrift, dissatisfaction float64) float64 {
	driftTerm := math.Max(trustDrift, 0) / 100
	p := 0.6*driftTerm + 0.4*dissatisfaction
	return math.Min(math.Max(p, 0), 1)
}

// externalPressure maps dissatisfaction into the stability score's
// external-pressure term.
func externalPressure(dissatisfaction float64) float64 {
	return 20 + 50*dissatisfaction
}

func conflictIndicators(snap *oracle.Snapshot, members []model.AgentID, weakThreshold, profitDrift float64) []string {
	var out []string
	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			t, ok := snap.PairTrust(members[i], members[j])
			if !ok || t < weakThreshold/2 {
				out = append(out, fmt.Sprintf("severe distrust between %s and %s", members[i], members[j]))
			}
		}
	}
	if profitDrift > 0.5 {
		out = append(out, fmt.Sprintf("profit distribution drifted %.2f from contributions", profitDrift))
	}
	return out
}

func currentAvgTrust(snap *oracle.Snapshot, members []model.AgentID) float64 {
	if len(members) < 2 {
		return 100
	}
	sum, n := 0.0, 0
	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			t, ok := snap.PairTrust(members[i], members[j])
			if !ok {
				t = 0
			}
			sum += t
			n++
		}
	}
	return sum / float64(n)
}
