package engine

import (
	"time"

	"github.com/google/uuid"
)

// EventType names an outbound engine event.
type EventType string

const (
	EventCoalitionFormed    EventType = "coalition_formed"
	EventCoalitionActivated EventType = "coalition_activated"
	EventCoalitionDissolved EventType = "coalition_dissolved"
	EventStabilityAlert     EventType = "stability_alert"
)

// Event is an outbound notification for collaborators (reporting,
// analytics, dashboards).
type Event struct {
	Type        EventType `json:"type"`
	CoalitionID uuid.UUID `json:"coalition_id"`
	At          time.Time `json:"at"`
	Payload     any       `json:"payload,omitempty"`
}

// Sink receives engine events. Sinks must not block: slow consumers are
// expected to buffer or drop.
type Sink func(Event)
