package server_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghogue02/living-economy-arena-sub000/internal/engine"
	"github.com/ghogue02/living-economy-arena-sub000/internal/server"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBrokerDeliversFormattedEvents(t *testing.T) {
	b := server.NewBroker(4, discardLogger())
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)
	assert.Equal(t, 1, b.SubscriberCount())

	ev := engine.Event{Type: engine.EventCoalitionActivated, CoalitionID: uuid.New(), At: time.Now()}
	b.Publish(ev)

	select {
	case msg := <-ch:
		s := string(msg)
		assert.Contains(t, s, "event: coalition_activated\n")
		assert.Contains(t, s, "data: ")
		assert.True(t, len(s) > 4 && s[len(s)-2:] == "\n\n", "SSE messages end with a blank line")

		// The data line carries the JSON event.
		var decoded engine.Event
		start := len("event: coalition_activated\ndata: ")
		require.NoError(t, json.Unmarshal([]byte(s[start:len(s)-2]), &decoded))
		assert.Equal(t, ev.CoalitionID, decoded.CoalitionID)
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
}

func TestBrokerDropsWhenSubscriberFull(t *testing.T) {
	b := server.NewBroker(1, discardLogger())
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Two publishes into a one-slot buffer: the second is dropped, and
	// Publish never blocks.
	b.Publish(engine.Event{Type: engine.EventCoalitionFormed})
	b.Publish(engine.Event{Type: engine.EventCoalitionDissolved})

	first := <-ch
	assert.Contains(t, string(first), "coalition_formed")
	select {
	case extra := <-ch:
		t.Fatalf("expected the second event to be dropped, got %q", extra)
	default:
	}
}

func TestBrokerUnsubscribeClosesChannel(t *testing.T) {
	b := server.NewBroker(4, discardLogger())
	ch := b.Subscribe()
	b.Unsubscribe(ch)
	assert.Equal(t, 0, b.SubscriberCount())

	_, open := <-ch
	assert.False(t, open)

	// Publishing after the last unsubscribe is a no-op.
	b.Publish(engine.Event{Type: engine.EventStabilityAlert})
}

func TestBrokerMultipleSubscribers(t *testing.T) {
	b := server.NewBroker(4, discardLogger())
	a := b.Subscribe()
	c := b.Subscribe()
	defer b.Unsubscribe(a)
	defer b.Unsubscribe(c)

	b.Publish(engine.Event{Type: engine.EventCoalitionFormed})
	for _, ch := range []chan []byte{a, c} {
		select {
		case msg := <-ch:
			assert.Contains(t, string(msg), "coalition_formed")
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive the event")
		}
	}
}
