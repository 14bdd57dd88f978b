package coalition

import (
	"time"

	"github.com/google/uuid"
)

// Event types delivered to EventHook implementations and the SSE stream.
const (
	EventCoalitionFormed    = "coalition_formed"
	EventCoalitionActivated = "coalition_activated"
	EventCoalitionDissolved = "coalition_dissolved"
	EventStabilityAlert     = "stability_alert"
)

// Event is a coalition lifecycle notification. Payload carries the
// event-specific body (winning candidate, coalition record, or monitoring
// report) and is JSON-marshalable.
type Event struct {
	Type        string    `json:"type"`
	CoalitionID uuid.UUID `json:"coalition_id"`
	At          time.Time `json:"at"`
	Payload     any       `json:"payload,omitempty"`
}
