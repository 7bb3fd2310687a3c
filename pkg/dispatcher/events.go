package dispatcher

import (
	"sync/atomic"
	"time"

	"github.com/relayforge/taskmesh/pkg/domain/types"
	"github.com/relayforge/taskmesh/pkg/utils/logging"
)

// EventType identifies a lifecycle notification
type EventType string

const (
	EventAgentRegistered   EventType = "agent_registered"
	EventAgentUnregistered EventType = "agent_unregistered"
	EventTaskCompleted     EventType = "task_completed"
	EventTaskFailed        EventType = "task_failed"
	EventTaskCancelled     EventType = "task_cancelled"
)

// Event is one lifecycle notification from the dispatcher
type Event struct {
	Type      EventType     `json:"type"`
	TaskID    types.TaskID  `json:"task_id,omitempty"`
	AgentID   types.AgentID `json:"agent_id,omitempty"`
	Error     string        `json:"error,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// EventHub fans lifecycle events out over a buffered channel. Emission
// never blocks the task pipeline: with no subscriber draining the channel,
// events are dropped and counted. Absence of a listener does not affect
// correctness.
type EventHub struct {
	events  chan Event
	dropped atomic.Uint64
}

// NewEventHub creates a hub with the given buffer size
func NewEventHub(bufferSize int) *EventHub {
	return &EventHub{
		events: make(chan Event, bufferSize),
	}
}

// Emit sends an event without blocking. A full channel drops the event.
func (h *EventHub) Emit(event Event) {
	event.Timestamp = time.Now().UTC()

	select {
	case h.events <- event:
	default:
		count := h.dropped.Add(1)
		if count%100 == 1 {
			logging.Default().Warn("event channel full, dropping events",
				"type", event.Type, "total_dropped", count)
		}
	}
}

// Events returns the read-only subscription channel
func (h *EventHub) Events() <-chan Event {
	return h.events
}

// DroppedCount returns how many events have been dropped so far
func (h *EventHub) DroppedCount() uint64 {
	return h.dropped.Load()
}

// Close closes the subscription channel. Call only after the dispatcher
// has stopped emitting.
func (h *EventHub) Close() {
	close(h.events)
}
