package daemon

import (
	"sync"
	"time"

	"github.com/emty-pyie/Jane/internal/core"
)

const subscriberBuffer = 32

// EventHub fans controller events out to subscribers. It implements
// core.Listener so it can be handed to the controller before any server
// exists. Slow subscribers drop events rather than block the controller.
type EventHub struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
	now  func() time.Time
}

// NewEventHub creates an empty hub.
func NewEventHub() *EventHub {
	return &EventHub{subs: make(map[chan Event]struct{}), now: time.Now}
}

// Subscribe registers a new subscriber. Call the returned func to leave.
func (h *EventHub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Len returns the number of subscribers.
func (h *EventHub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Publish delivers ev to every subscriber without blocking.
func (h *EventHub) Publish(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = h.now()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (h *EventHub) OnApprovalRequired(cmd core.Command) {
	h.Publish(Event{Type: EventApprovalRequired, Command: cmd.View()})
}

func (h *EventHub) OnResult(cmd core.Command, res core.ActionResult) {
	h.Publish(Event{Type: EventResult, Command: cmd.View(), Result: &res})
}

func (h *EventHub) OnDenied(cmd core.Command) {
	h.Publish(Event{Type: EventDenied, Command: cmd.View()})
}
