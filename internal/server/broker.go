package server

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/ghogue02/living-economy-arena-sub000/internal/engine"
)

// Broker fans engine events out to SSE subscribers. The engine publishes
// synchronously from the formation pipeline, so broadcast never blocks:
// subscribers with a full buffer lose the event.
type Broker struct {
	logger  *slog.Logger
	bufSize int

	mu          sync.RWMutex
	subscribers map[chan []byte]struct{}
}

// NewBroker creates an SSE broker whose subscriber channels buffer bufSize
// events.
func NewBroker(bufSize int, logger *slog.Logger) *Broker {
	return &Broker{
		logger:      logger,
		bufSize:     bufSize,
		subscribers: make(map[chan []byte]struct{}),
	}
}

// Publish formats an engine event as SSE and broadcasts it. It is the
// engine.Sink wired into the pipeline.
func (b *Broker) Publish(ev engine.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		b.logger.Warn("broker: marshal event", "type", ev.Type, "error", err)
		return
	}
	b.broadcast(formatSSE(string(ev.Type), data))
}

// Subscribe returns a channel that receives SSE-formatted events.
// The caller must call Unsubscribe when done.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, b.bufSize)
	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber channel and closes it.
func (b *Broker) Unsubscribe(ch chan []byte) {
	b.mu.Lock()
	delete(b.subscribers, ch)
	b.mu.Unlock()
	close(ch)
}

// SubscriberCount reports the number of live subscribers.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// broadcast sends an event to all subscribers. Slow subscribers that have
// a full buffer are skipped (their event is dropped) to prevent one slow
// client from blocking all others.
func (b *Broker) broadcast(event []byte) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			// Subscriber buffer full — drop this event for them.
		}
	}
}

// formatSSE formats a payload as a Server-Sent Events message.
func formatSSE(eventType string, data []byte) []byte {
	// SSE format: "event: <type>\ndata: <payload>\n\n"
	msg := make([]byte, 0, len(eventType)+len(data)+16)
	msg = append(msg, "event: "...)
	msg = append(msg, eventType...)
	msg = append(msg, "\ndata: "...)
	msg = append(msg, data...)
	msg = append(msg, "\n\n"...)
	return msg
}
