// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package fsm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type state string
type event string

func TestMachine_FireFollowsTable(t *testing.T) {
	m, err := New[state, event]("idle", []Transition[state, event]{
		{From: "idle", Event: "start", To: "running"},
		{From: "running", Event: "stop", To: "idle"},
	})
	require.NoError(t, err)

	var seen []string
	m.Observe(func(from, to state, ev event) {
		seen = append(seen, string(from)+">"+string(to)+":"+string(ev))
	})

	require.True(t, m.Can("start"))
	require.False(t, m.Can("stop"))

	to, err := m.Fire("start")
	require.NoError(t, err)
	require.Equal(t, state("running"), to)

	to, err = m.Fire("stop")
	require.NoError(t, err)
	require.Equal(t, state("idle"), to)

	require.Equal(t, []string{"idle>running:start", "running>idle:stop"}, seen)
}

func TestMachine_UnknownTransitionIsError(t *testing.T) {
	m, err := New[state, event]("idle", []Transition[state, event]{
		{From: "idle", Event: "start", To: "running"},
	})
	require.NoError(t, err)

	cur, err := m.Fire("stop")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInvalidTransition))
	require.Equal(t, state("idle"), cur)
	require.Equal(t, state("idle"), m.State())
}

func TestNew_RejectsDuplicateEdges(t *testing.T) {
	_, err := New[state, event]("idle", []Transition[state, event]{
		{From: "idle", Event: "start", To: "running"},
		{From: "idle", Event: "start", To: "done"},
	})
	require.Error(t, err)
}
