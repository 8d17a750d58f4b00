package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jwebster45206/anima-narrator/pkg/actor"
	"github.com/jwebster45206/anima-narrator/pkg/chat"
	"github.com/jwebster45206/anima-narrator/pkg/state"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStorage(t *testing.T) (*RedisStorage, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStorageFromClient(client, time.Hour, nil)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func newSQLiteStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	s, err := OpenSQLite(":memory:", time.Hour, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func backends(t *testing.T) map[string]Storage {
	r, _ := newRedisStorage(t)
	return map[string]Storage{
		"redis":  r,
		"sqlite": newSQLiteStorage(t),
		"mock":   NewMockStorage(),
	}
}

func sampleState() *state.GameState {
	gs := state.NewGameState()
	gs.Initialized = true
	gs.Player = actor.Player{Name: "Ilsa", Class: "Warden", Health: actor.Health{Value: 9, Max: 12}}
	gs.AddMessage(chat.ChatMessage{Role: chat.ChatRoleAgent, Content: "You wake in the gatehouse."})
	gs.AppendMemory("look", "Stone walls.")
	return gs
}

func TestStorage_GameStateRoundTrip(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			gs := sampleState()

			require.NoError(t, s.Ping(ctx))
			require.NoError(t, s.SaveGameState(ctx, gs.ID, gs))

			got, err := s.LoadGameState(ctx, gs.ID)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, gs.ID, got.ID)
			assert.Equal(t, gs.Player, got.Player)
			assert.Equal(t, gs.Transcript, got.Transcript)
			assert.Equal(t, gs.RecentMemory, got.RecentMemory)
			assert.True(t, got.Initialized)

			gs.Player.Health.Value = 4
			require.NoError(t, s.SaveGameState(ctx, gs.ID, gs))
			got, err = s.LoadGameState(ctx, gs.ID)
			require.NoError(t, err)
			assert.Equal(t, 4, got.Player.Health.Value)

			require.NoError(t, s.DeleteGameState(ctx, gs.ID))
			got, err = s.LoadGameState(ctx, gs.ID)
			require.NoError(t, err)
			assert.Nil(t, got)
		})
	}
}

func TestStorage_LoadMissing(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			got, err := s.LoadGameState(context.Background(), uuid.New())
			assert.NoError(t, err)
			assert.Nil(t, got)
		})
	}
}

func TestStorage_Locks(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			id := uuid.New()

			ok, err := s.AcquireLock(ctx, id, "a", time.Minute)
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = s.AcquireLock(ctx, id, "b", time.Minute)
			require.NoError(t, err)
			assert.False(t, ok, "second owner must not take a held lock")

			// a stranger cannot release it
			require.NoError(t, s.ReleaseLock(ctx, id, "b"))
			ok, err = s.AcquireLock(ctx, id, "b", time.Minute)
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.ReleaseLock(ctx, id, "a"))
			ok, err = s.AcquireLock(ctx, id, "b", time.Minute)
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestWithLock(t *testing.T) {
	s := NewMockStorage()
	id := uuid.New()

	called := false
	err := WithLock(context.Background(), s, id, 0, func(ctx context.Context) error {
		called = true
		assert.True(t, s.Locked(id))
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
	assert.False(t, s.Locked(id), "lock must be released after fn returns")

	boom := errors.New("boom")
	err = WithLock(context.Background(), s, id, time.Second, func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, s.Locked(id))

	s.Lock(id, "someone-else")
	err = WithLock(context.Background(), s, id, time.Second, func(context.Context) error {
		t.Error("fn must not run while locked")
		return nil
	})
	assert.ErrorIs(t, err, ErrLocked)
	assert.True(t, s.Locked(id))
}

func TestRedisStorage_TTL(t *testing.T) {
	s, mr := newRedisStorage(t)
	ctx := context.Background()
	gs := sampleState()

	require.NoError(t, s.SaveGameState(ctx, gs.ID, gs))
	assert.Equal(t, time.Hour, mr.TTL("gamestate:"+gs.ID.String()))

	mr.FastForward(2 * time.Hour)
	got, err := s.LoadGameState(ctx, gs.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisStorage_LockExpires(t *testing.T) {
	s, mr := newRedisStorage(t)
	ctx := context.Background()
	id := uuid.New()

	ok, err := s.AcquireLock(ctx, id, "a", 10*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(11 * time.Second)
	ok, err = s.AcquireLock(ctx, id, "b", 10*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisStorage_PingFailure(t *testing.T) {
	s, mr := newRedisStorage(t)
	mr.Close()
	assert.Error(t, s.Ping(context.Background()))
}

func TestNewRedisStorage_URL(t *testing.T) {
	_, err := NewRedisStorage("redis://:pw@localhost:6379/2", time.Minute, nil)
	assert.NoError(t, err)

	_, err = NewRedisStorage("redis://localhost:6379/notadb", time.Minute, nil)
	assert.Error(t, err)
}

func TestSQLiteStorage_Expiry(t *testing.T) {
	s := newSQLiteStorage(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	gs := sampleState()
	require.NoError(t, s.SaveGameState(ctx, gs.ID, gs))

	ok, err := s.AcquireLock(ctx, gs.ID, "a", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	now = now.Add(2 * time.Minute)
	ok, err = s.AcquireLock(ctx, gs.ID, "b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "expired lock can be taken over")

	now = now.Add(2 * time.Hour)
	got, err := s.LoadGameState(ctx, gs.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	n, err := s.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestOpenSQLite_EmptyPath(t *testing.T) {
	_, err := OpenSQLite("  ", time.Minute, nil)
	assert.Error(t, err)
}

func TestMockStorage_Errors(t *testing.T) {
	s := NewMockStorage()
	s.SetPingError(errors.New("down"))
	assert.Error(t, s.Ping(context.Background()))

	s.SetSaveError(errors.New("full"))
	assert.Error(t, s.SaveGameState(context.Background(), uuid.New(), sampleState()))
}
