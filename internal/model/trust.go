package model

import (
	"fmt"
	"strings"
)

// PairKey is an unordered agent pair. The key is normalized so that
// A <= B lexicographically; the trust stored under it is the mean of the
// two directional scores (trust may be asymmetric at the oracle).
type PairKey struct {
	A AgentID
	B AgentID
}

// NewPairKey normalizes the pair ordering.
func NewPairKey(a, b AgentID) PairKey {
	if b < a {
		a, b = b, a
	}
	return PairKey{A: a, B: b}
}

// MarshalText renders the pair as "a|b" so PairKey-keyed maps serialize.
// "|" is not a legal agent ID character, so the encoding is unambiguous.
func (k PairKey) MarshalText() ([]byte, error) {
	return []byte(string(k.A) + "|" + string(k.B)), nil
}

// UnmarshalText parses the "a|b" form.
func (k *PairKey) UnmarshalText(text []byte) error {
	a, b, ok := strings.Cut(string(text), "|")
	if !ok {
		return fmt.Errorf("pair key %q: missing separator", text)
	}
	*k = NewPairKey(AgentID(a), AgentID(b))
	return nil
}

// TrustAnalysis is the full pairwise trust picture for a member set.
type TrustAnalysis struct {
	PairwiseTrust map[PairKey]float64 `json:"pairwise_trust"`
	MinTrust      float64             `json:"min_trust"`
	MaxTrust      float64             `json:"max_trust"`
	AvgTrust      float64             `json:"avg_trust"`
	TrustVariance float64             `json:"trust_variance"`

	// WeakLinks are pairs below the verification threshold (the request's
	// min trust level); StrongBonds are pairs above the fixed bond threshold.
	WeakLinks   []PairKey `json:"weak_links"`
	StrongBonds []PairKey `json:"strong_bonds"`

	// Redundancy is the fraction of member pairs connected by at least two
	// vertex-disjoint above-threshold trust paths, in [0,1].
	Redundancy float64 `json:"redundancy"`

	// StabilityRisk aggregates low average trust, high variance, and low
	// redundancy into a single [0,100] risk score.
	StabilityRisk float64 `json:"stability_risk"`
}

// GameTheorySolution captures the cooperative-game view of one request.
// Subsets are bitmasks over the request's agent ordering, bit 0 = initiator.
type GameTheorySolution struct {
	CharacteristicFunction map[uint32]float64  `json:"characteristic_function"`
	ShapleyValues          map[AgentID]float64 `json:"shapley_values"`
	CoreMembers            []uint32            `json:"core_members"`
	NashCandidate          *uint32             `json:"nash_candidate,omitempty"`
}
