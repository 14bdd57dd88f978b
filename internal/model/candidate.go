package model

// StrategyTag names one of the five formation strategies. The set is closed:
// dispatch over it is an exhaustive switch, never a string-keyed lookup.
type StrategyTag string

const (
	StrategyGreedy             StrategyTag = "greedy"
	StrategyOptimal            StrategyTag = "optimal"
	StrategyTrustGraph         StrategyTag = "trust_graph"
	StrategyGameTheoretic      StrategyTag = "game_theoretic"
	StrategyReputationWeighted StrategyTag = "reputation_weighted"
)

// IsValid returns true if the tag is a recognized strategy.
func (s StrategyTag) IsValid() bool {
	switch s {
	case StrategyGreedy, StrategyOptimal, StrategyTrustGraph,
		StrategyGameTheoretic, StrategyReputationWeighted:
		return true
	default:
		return false
	}
}

// Priority ranks strategies for selector tie-breaks. Higher wins.
func (s StrategyTag) Priority() int {
	switch s {
	case StrategyOptimal:
		return 5
	case StrategyGameTheoretic:
		return 4
	case StrategyReputationWeighted:
		return 3
	case StrategyTrustGraph:
		return 2
	case StrategyGreedy:
		return 1
	default:
		return 0
	}
}

// AllStrategies returns every strategy tag in priority order.
func AllStrategies() []StrategyTag {
	return []StrategyTag{
		StrategyOptimal,
		StrategyGameTheoretic,
		StrategyReputationWeighted,
		StrategyTrustGraph,
		StrategyGreedy,
	}
}

// CoalitionCandidate is one evaluator's proposed coalition. Candidates are
// ephemeral: they exist between the evaluator fan-out and selection.
type CoalitionCandidate struct {
	// Members is ordered with the initiator first; the remaining order is
	// the strategy's internal admission order and becomes the approach plan.
	Members        []AgentID   `json:"members"`
	Strategy       StrategyTag `json:"strategy"`
	Utility        float64     `json:"utility"`
	FormationCost  float64     `json:"formation_cost"`
	NetValue       float64     `json:"net_value"`
	StabilityScore float64     `json:"stability_score"` // [0,100]
}

// Contains reports whether the candidate includes the given agent.
func (c CoalitionCandidate) Contains(a AgentID) bool {
	for _, m := range c.Members {
		if m == a {
			return true
		}
	}
	return false
}

// StrategySkip records an evaluator that could not produce a candidate.
type StrategySkip struct {
	Strategy StrategyTag `json:"strategy"`
	Reason   string      `json:"reason"`
}
