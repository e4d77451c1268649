package core

import "sync"

// Event names a notification sent after an operation succeeds. Listeners
// are process-wide, run on their own goroutine and cannot alter the result.
type Event string

const (
	EventInsert Event = "insert"
	EventUpdate Event = "update"
	EventDelete Event = "delete" // hard and soft deletes alike
	EventFind   Event = "find"
)

// EventHandler receives one of InsertPayload, UpdatePayload, DeletePayload or
// FindPayload. Records in a payload are copies the handler may keep.
type EventHandler func(payload any)

type eventBus struct {
	mu       sync.RWMutex
	handlers map[Event][]EventHandler
}

var events = &eventBus{handlers: map[Event][]EventHandler{}}

// On subscribes handler to event.
//
//	core.On(core.EventInsert, func(payload any) {
//		if p, ok := payload.(core.InsertPayload); ok {
//			logger.Info("inserted", zap.String("source", p.Source.Name), zap.Any("id", p.ID))
//		}
//	})
func On(event Event, handler EventHandler) {
	events.mu.Lock()
	events.handlers[event] = append(events.handlers[event], handler)
	events.mu.Unlock()
}

// Off drops every subscription to event.
func Off(event Event) {
	events.mu.Lock()
	delete(events.handlers, event)
	events.mu.Unlock()
}

// Emit hands payload to each subscriber of event without waiting for them.
func Emit(event Event, payload any) {
	events.mu.RLock()
	subscribers := events.handlers[event]
	events.mu.RUnlock()

	for _, handler := range subscribers {
		go handler(payload)
	}
}

// InsertPayload is passed to EventInsert handlers.
type InsertPayload struct {
	Source *Source
	Data   Record
	ID     any
}

// UpdatePayload is passed to EventUpdate handlers.
type UpdatePayload struct {
	Source    *Source
	Condition *Condition
	Data      Record
	Affected  int64
}

// DeletePayload is passed to EventDelete handlers. Soft is set when the
// delete was rewritten into a marker update.
type DeletePayload struct {
	Source    *Source
	Condition *Condition
	Affected  int64
	Soft      bool
}

// FindPayload is passed to EventFind handlers.
type FindPayload struct {
	Source  *Source
	Where   *Where
	Records []Record
}
