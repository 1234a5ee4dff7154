// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package progress

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps progress in process memory. It does not expire entries.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]map[string]struct{})}
}

func (s *MemoryStore) MarkCompleted(_ context.Context, session, breakID string) error {
	if err := checkSession(session); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.sessions[session]
	if !ok {
		set = make(map[string]struct{})
		s.sessions[session] = set
	}
	set[breakID] = struct{}{}
	return nil
}

func (s *MemoryStore) Completed(_ context.Context, session string) ([]string, error) {
	if err := checkSession(session); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.sessions[session]))
	for id := range s.sessions[session] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemoryStore) Reset(_ context.Context, session string) error {
	if err := checkSession(session); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.sessions, session)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
