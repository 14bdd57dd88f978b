package model

import "fmt"

// AgentID identifies an agent in the arena. The engine treats agents as
// opaque identifiers; skills and utility inputs come from external sources.
type AgentID string

// PurposeTag classifies what a coalition is formed to do.
type PurposeTag string

const (
	PurposeTrading            PurposeTag = "trading"
	PurposeInformationSharing PurposeTag = "information_sharing"
	PurposeDefense            PurposeTag = "defense"
	PurposeExploration        PurposeTag = "exploration"
	PurposeProduction         PurposeTag = "production"
)

// IsValid returns true if the purpose is a recognized tag.
func (p PurposeTag) IsValid() bool {
	switch p {
	case PurposeTrading, PurposeInformationSharing, PurposeDefense,
		PurposeExploration, PurposeProduction:
		return true
	default:
		return false
	}
}

// Skill is a capability an agent offers to a coalition.
type Skill string

// ValidateAgentID checks that an agent ID conforms to the allowed format.
// Agent IDs must be 1-255 ASCII characters: alphanumeric, dots, hyphens,
// underscores, and @ signs.
func ValidateAgentID(id AgentID) error {
	if len(id) == 0 {
		return fmt.Errorf("agent id is required")
	}
	if len(id) > 255 {
		return fmt.Errorf("agent id must be at most 255 characters")
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') && (c < '0' || c > '9') &&
			c != '.' && c != '-' && c != '_' && c != '@' {
			return fmt.Errorf("agent id contains invalid character at position %d: %q", i, c)
		}
	}
	return nil
}
