package workspace

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventType names a workspace event.
type EventType string

const (
	EventLayout    EventType = "layout"
	EventRun       EventType = "run"
	EventAssistant EventType = "assistant"
	EventSource    EventType = "source"
	EventClosed    EventType = "closed"
)

// Event is pushed to subscribers when workspace state changes.
type Event struct {
	Type        EventType `json:"type"`
	WorkspaceID string    `json:"workspace_id"`
	Data        any       `json:"data,omitempty"`
	Time        time.Time `json:"time"`
}

// AssistantExchange is the payload of an assistant event.
type AssistantExchange struct {
	Message string `json:"message"`
	Reply   string `json:"reply"`
}

// Subscribe registers a listener. The returned channel is closed when the
// subscription is cancelled or the workspace closes. Slow subscribers miss
// events rather than block the publisher.
func (w *Workspace) Subscribe() (string, <-chan Event, func()) {
	id := uuid.NewString()
	ch := make(chan Event, w.eventBuffer)

	w.subsMu.Lock()
	if w.subsClosed {
		w.subsMu.Unlock()
		close(ch)
		return id, ch, func() {}
	}
	w.subs[id] = ch
	w.subsMu.Unlock()

	cancel := func() {
		w.subsMu.Lock()
		defer w.subsMu.Unlock()
		if c, ok := w.subs[id]; ok {
			delete(w.subs, id)
			close(c)
		}
	}
	return id, ch, cancel
}

// Subscribers returns the number of active subscriptions.
func (w *Workspace) Subscribers() int {
	w.subsMu.Lock()
	defer w.subsMu.Unlock()
	return len(w.subs)
}

func (w *Workspace) publish(t EventType, data any) {
	ev := Event{Type: t, WorkspaceID: w.ID, Data: data, Time: time.Now()}

	w.subsMu.Lock()
	defer w.subsMu.Unlock()
	for id, ch := range w.subs {
		select {
		case ch <- ev:
		default:
			w.logger.Debug("Dropped event for slow subscriber",
				zap.String("subscriber", id),
				zap.String("type", string(t)))
		}
	}
}

// closeSubscribers sends a final closed event and releases every listener.
func (w *Workspace) closeSubscribers() {
	ev := Event{Type: EventClosed, WorkspaceID: w.ID, Time: time.Now()}

	w.subsMu.Lock()
	defer w.subsMu.Unlock()
	for id, ch := range w.subs {
		select {
		case ch <- ev:
		default:
		}
		close(ch)
		delete(w.subs, id)
	}
	w.subsClosed = true
}
