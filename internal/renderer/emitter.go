// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package renderer

import "sync"

// Emitter fans events out to subscribed handlers. The zero value is ready to use.
type Emitter struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]Handler
}

// Subscribe registers h. The returned function is idempotent.
func (e *Emitter) Subscribe(h Handler) func() {
	if h == nil {
		return func() {}
	}
	e.mu.Lock()
	if e.subs == nil {
		e.subs = make(map[uint64]Handler)
	}
	id := e.nextID
	e.nextID++
	e.subs[id] = h
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.subs, id)
			e.mu.Unlock()
		})
	}
}

// Emit delivers ev to every handler subscribed at the time of the call.
func (e *Emitter) Emit(ev Event) {
	e.mu.RLock()
	hs := make([]Handler, 0, len(e.subs))
	for _, h := range e.subs {
		hs = append(hs, h)
	}
	e.mu.RUnlock()
	for _, h := range hs {
		h(ev)
	}
}

// Len returns the number of live subscriptions.
func (e *Emitter) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.subs)
}

// Clear drops every subscription.
func (e *Emitter) Clear() {
	e.mu.Lock()
	e.subs = nil
	e.mu.Unlock()
}
