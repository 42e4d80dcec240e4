package cec

import "sync"

// Handler receives an event payload. Payload types per event name are
// documented on Monitor.
type Handler func(payload any)

// Emitter is a per-monitor publish/subscribe registry keyed by event
// name. Multiple subscribers per name are supported; one-shot
// subscriptions are removed atomically with their first delivery so a
// late Off and a concurrent Emit cannot double-fire them.
type Emitter struct {
	mu     sync.Mutex
	subs   map[string][]*subscription
	nextID uint64
}

type subscription struct {
	id   uint64
	fn   Handler
	once bool
}

// NewEmitter returns an empty event registry.
func NewEmitter() *Emitter {
	return &Emitter{subs: make(map[string][]*subscription)}
}

// On subscribes fn to event and returns a token usable with Off.
func (e *Emitter) On(event string, fn Handler) uint64 {
	return e.subscribe(event, fn, false)
}

// Once subscribes fn to event for a single delivery.
func (e *Emitter) Once(event string, fn Handler) uint64 {
	return e.subscribe(event, fn, true)
}

func (e *Emitter) subscribe(event string, fn Handler, once bool) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	e.subs[event] = append(e.subs[event], &subscription{id: e.nextID, fn: fn, once: once})
	return e.nextID
}

// Off removes the subscription identified by id from event. It reports
// whether a subscription was removed; false means the subscription was
// already consumed or never existed.
func (e *Emitter) Off(event string, id uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	list := e.subs[event]
	for i, s := range list {
		if s.id == id {
			e.subs[event] = append(list[:i], list[i+1:]...)
			return true
		}
	}
	return false
}

// Emit delivers payload to every subscriber of event, in subscription
// order, and returns the number of handlers invoked. One-shot
// subscribers are unregistered before their handler runs.
func (e *Emitter) Emit(event string, payload any) int {
	e.mu.Lock()
	list := e.subs[event]
	fire := make([]Handler, 0, len(list))
	kept := list[:0]
	for _, s := range list {
		fire = append(fire, s.fn)
		if !s.once {
			kept = append(kept, s)
		}
	}
	e.subs[event] = kept
	e.mu.Unlock()

	for _, fn := range fire {
		fn(payload)
	}
	return len(fire)
}
