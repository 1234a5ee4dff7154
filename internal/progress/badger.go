// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package progress

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// BadgerStore persists progress on disk:
// key = "progress:<len(session)>:<session>:<breakID>", empty value, optional TTL.
// The length keeps the prefix of session "a" from matching session "a:b".
type BadgerStore struct {
	db  *badger.DB
	ttl time.Duration
}

// OpenBadgerStore opens (or creates) a store in dir. An empty dir keeps the
// data in memory.
func OpenBadgerStore(dir string, ttl time.Duration) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger %q: %w", dir, err)
	}
	return &BadgerStore{db: db, ttl: ttl}, nil
}

func sessionPrefix(session string) []byte {
	return []byte(fmt.Sprintf("progress:%d:%s:", len(session), session))
}

func (s *BadgerStore) MarkCompleted(_ context.Context, session, breakID string) error {
	if err := checkSession(session); err != nil {
		return err
	}
	key := append(sessionPrefix(session), breakID...)
	return s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(key, nil)
		if s.ttl > 0 {
			e = e.WithTTL(s.ttl)
		}
		return txn.SetEntry(e)
	})
}

func (s *BadgerStore) Completed(_ context.Context, session string) ([]string, error) {
	if err := checkSession(session); err != nil {
		return nil, err
	}
	prefix := sessionPrefix(session)
	out := []string{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			out = append(out, strings.TrimPrefix(string(it.Item().Key()), string(prefix)))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BadgerStore) Reset(_ context.Context, session string) error {
	if err := checkSession(session); err != nil {
		return err
	}
	return s.db.DropPrefix(sessionPrefix(session))
}

func (s *BadgerStore) Close() error { return s.db.Close() }

var _ Store = (*BadgerStore)(nil)
