package oracle

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ghogue02/living-economy-arena-sub000/internal/model"
)

// Snapshot is an immutable memo of every oracle answer a formation run
// needs. It is built once, before the strategy fan-out, so all five
// evaluators see identical trust and reputation values — this is what makes
// repeated form_coalition calls deterministic for fixed oracle state.
type Snapshot struct {
	agents  []model.AgentID
	trust   map[pair]float64
	rep     map[model.AgentID]float64
	history map[model.AgentID][]float64

	// excluded holds agents whose oracle reads failed after the retry.
	// They are removed from candidacy rather than failing the request.
	excluded map[model.AgentID]string
}

// Agents returns the snapshot's agent set in request order, minus excluded agents.
func (s *Snapshot) Agents() []model.AgentID {
	out := make([]model.AgentID, 0, len(s.agents))
	for _, a := range s.agents {
		if _, bad := s.excluded[a]; !bad {
			out = append(out, a)
		}
	}
	return out
}

// Excluded returns agents dropped for oracle failures, with reasons.
func (s *Snapshot) Excluded() map[model.AgentID]string { return s.excluded }

// Trust returns the directional trust from a to b.
func (s *Snapshot) Trust(a, b model.AgentID) (float64, bool) {
	v, ok := s.trust[pair{from: a, to: b}]
	return v, ok
}

// PairTrust returns the mean of the two directional trust values for an
// unordered pair. This is the value stored under model.PairKey in analyses.
func (s *Snapshot) PairTrust(a, b model.AgentID) (float64, bool) {
	ab, ok1 := s.Trust(a, b)
	ba, ok2 := s.Trust(b, a)
	if !ok1 || !ok2 {
		return 0, false
	}
	return (ab + ba) / 2, true
}

// Reputation returns the agent's reputation score.
func (s *Snapshot) Reputation(a model.AgentID) (float64, bool) {
	v, ok := s.rep[a]
	return v, ok
}

// History returns the agent's reputation history (may be empty).
func (s *Snapshot) History(a model.AgentID) []float64 { return s.history[a] }

// Loader builds snapshots. Concurrent loads for the same agent set are
// deduplicated so parallel formation requests over the same population only
// hit the oracles once.
type Loader struct {
	trust   TrustOracle
	rep     ReputationOracle
	backoff time.Duration
	logger  *slog.Logger
	group   singleflight.Group
}

// NewLoader wraps the two oracles. backoff is the delay before the single
// retry each failed oracle call gets.
func NewLoader(trust TrustOracle, rep ReputationOracle, backoff time.Duration, logger *slog.Logger) *Loader {
	return &Loader{trust: trust, rep: rep, backoff: backoff, logger: logger}
}

// Load fetches trust for every ordered agent pair and reputation (plus
// history) for every agent. Individual call failures are retried once with
// backoff; an agent whose reads still fail is excluded from the snapshot
// instead of failing the whole request.
func (l *Loader) Load(ctx context.Context, agents []model.AgentID) (*Snapshot, error) {
	key := snapshotKey(agents)
	v, err, _ := l.group.Do(key, func() (any, error) {
		return l.load(ctx, agents)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

func (l *Loader) load(ctx context.Context, agents []model.AgentID) (*Snapshot, error) {
	s := &Snapshot{
		agents:   append([]model.AgentID(nil), agents...),
		trust:    make(map[pair]float64, len(agents)*len(agents)),
		rep:      make(map[model.AgentID]float64, len(agents)),
		history:  make(map[model.AgentID][]float64, len(agents)),
		excluded: make(map[model.AgentID]string),
	}

	for _, a := range agents {
		rep, err := l.withRetry(ctx, func() (float64, error) { return l.rep.Reputation(ctx, a) })
		if err != nil {
			l.logger.Warn("oracle: reputation unavailable, excluding agent", "agent", a, "error", err)
			s.excluded[a] = "reputation oracle failed: " + err.Error()
			continue
		}
		s.rep[a] = rep

		if hist, err := l.rep.History(ctx, a); err == nil {
			s.history[a] = hist
		}
	}

	for _, a := range agents {
		if _, bad := s.excluded[a]; bad {
			continue
		}
		for _, b := range agents {
			if a == b {
				continue
			}
			if _, bad := s.excluded[b]; bad {
				continue
			}
			t, err := l.withRetry(ctx, func() (float64, error) { return l.trust.Trust(ctx, a, b) })
			if err != nil {
				l.logger.Warn("oracle: trust unavailable, excluding agent", "from", a, "to", b, "error", err)
				s.excluded[b] = "trust oracle failed: " + err.Error()
				continue
			}
			s.trust[pair{from: a, to: b}] = t
		}
	}

	return s, ctx.Err()
}

// withRetry runs fn, retrying exactly once after the configured backoff.
func (l *Loader) withRetry(ctx context.Context, fn func() (float64, error)) (float64, error) {
	v, err := fn()
	if err == nil {
		return v, nil
	}
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-time.After(l.backoff):
	}
	return fn()
}

func snapshotKey(agents []model.AgentID) string {
	ids := make([]string, len(agents))
	for i, a := range agents {
		ids[i] = string(a)
	}
	sort.Strings(ids)
	return strings.Join(ids, ",")
}
