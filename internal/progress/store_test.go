// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package progress

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	bs, err := OpenBadgerStore(t.TempDir(), 0)
	require.NoError(t, err)

	stores := map[string]Store{
		BackendMemory: NewMemoryStore(),
		BackendRedis:  newRedisStore(client, time.Hour, zerolog.Nop()),
		BackendBadger: bs,
	}
	t.Cleanup(func() {
		for _, s := range stores {
			_ = s.Close()
		}
	})
	return stores
}

func TestStore_Contract(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			got, err := s.Completed(ctx, "viewer-1")
			require.NoError(t, err)
			assert.Empty(t, got)

			require.NoError(t, s.MarkCompleted(ctx, "viewer-1", "midroll-1"))
			require.NoError(t, s.MarkCompleted(ctx, "viewer-1", "preroll"))
			require.NoError(t, s.MarkCompleted(ctx, "viewer-1", "preroll"))
			require.NoError(t, s.MarkCompleted(ctx, "viewer-2", "midroll-2"))

			got, err = s.Completed(ctx, "viewer-1")
			require.NoError(t, err)
			assert.Equal(t, []string{"midroll-1", "preroll"}, got)

			require.NoError(t, s.Reset(ctx, "viewer-1"))
			got, err = s.Completed(ctx, "viewer-1")
			require.NoError(t, err)
			assert.Empty(t, got)

			got, err = s.Completed(ctx, "viewer-2")
			require.NoError(t, err)
			assert.Equal(t, []string{"midroll-2"}, got)

			assert.ErrorIs(t, s.MarkCompleted(ctx, "", "x"), ErrEmptySession)
			_, err = s.Completed(ctx, "")
			assert.ErrorIs(t, err, ErrEmptySession)
		})
	}
}

func TestStore_SessionsSharingAPrefixStayApart(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.MarkCompleted(ctx, "a:b", "c"))
			require.NoError(t, s.MarkCompleted(ctx, "a", "pre"))

			got, err := s.Completed(ctx, "a")
			require.NoError(t, err)
			assert.Equal(t, []string{"pre"}, got)

			require.NoError(t, s.Reset(ctx, "a"))
			got, err = s.Completed(ctx, "a:b")
			require.NoError(t, err)
			assert.Equal(t, []string{"c"}, got)
		})
	}
}

func TestRedisStore_TTLRefreshedOnWrite(t *testing.T) {
	mr := miniredis.RunT(t)
	s := newRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute, zerolog.Nop())
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.MarkCompleted(ctx, "v", "a"))
	assert.Equal(t, time.Minute, mr.TTL(redisKeyPrefix+"v"))

	mr.FastForward(2 * time.Minute)
	got, err := s.Completed(ctx, "v")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestNewRedisStore_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisStore(RedisConfig{Addr: addr}, 0, zerolog.Nop())
	assert.Error(t, err)
}

func TestOpen_Backends(t *testing.T) {
	s, err := Open(Config{}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(Config{Backend: BackendBadger}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &BadgerStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(Config{Backend: "bolt"}, zerolog.Nop())
	assert.Error(t, err)
}
