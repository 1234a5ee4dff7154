// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package fsm provides a small strict finite state machine.
package fsm

import (
	"errors"
	"fmt"
	"sync"
)

// ErrInvalidTransition is returned when no edge exists for the current state and event.
var ErrInvalidTransition = errors.New("invalid transition")

// Transition describes a single edge in the FSM.
type Transition[S ~string, E ~string] struct {
	From  S
	Event E
	To    S
}

// Observer is notified after every applied transition.
type Observer[S ~string, E ~string] func(from S, to S, event E)

// Machine is a small, test-friendly FSM runner.
// It is intentionally strict: unknown transitions are errors.
type Machine[S ~string, E ~string] struct {
	mu       sync.Mutex
	state    S
	index    map[string]Transition[S, E]
	observer Observer[S, E]
}

// New builds a machine starting in initial. Duplicate edges are rejected.
func New[S ~string, E ~string](initial S, transitions []Transition[S, E]) (*Machine[S, E], error) {
	idx := make(map[string]Transition[S, E], len(transitions))
	for _, t := range transitions {
		k := key(t.From, t.Event)
		if _, exists := idx[k]; exists {
			return nil, fmt.Errorf("duplicate transition: %s -> %s", t.From, t.Event)
		}
		idx[k] = t
	}
	return &Machine[S, E]{state: initial, index: idx}, nil
}

// Observe installs a callback invoked after each successful Fire.
func (m *Machine[S, E]) Observe(o Observer[S, E]) {
	m.mu.Lock()
	m.observer = o
	m.mu.Unlock()
}

// State returns the current state.
func (m *Machine[S, E]) State() S {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Can reports whether event is accepted in the current state.
func (m *Machine[S, E]) Can(event E) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.index[key(m.state, event)]
	return ok
}

// Fire applies an event atomically and returns the new state.
func (m *Machine[S, E]) Fire(event E) (S, error) {
	m.mu.Lock()
	from := m.state
	t, ok := m.index[key(from, event)]
	if !ok {
		m.mu.Unlock()
		return from, fmt.Errorf("%w: state=%s event=%s", ErrInvalidTransition, from, event)
	}
	m.state = t.To
	obs := m.observer
	m.mu.Unlock()

	if obs != nil {
		obs(from, t.To, event)
	}
	return t.To, nil
}

func key[S ~string, E ~string](from S, event E) string {
	return string(from) + "|" + string(event)
}
