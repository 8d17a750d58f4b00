package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/anima-narrator/pkg/state"
)

// DefaultLockTTL bounds how long a single turn may hold a game lock.
const DefaultLockTTL = 2 * time.Minute

// ErrLocked is returned by callers that could not take a game lock.
var ErrLocked = errors.New("game is locked by another request")

// Storage persists game states between requests and serializes writers
// per game.
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// GameState operations. LoadGameState returns (nil, nil) when the
	// game does not exist or has expired.
	SaveGameState(ctx context.Context, id uuid.UUID, gs *state.GameState) error
	LoadGameState(ctx context.Context, id uuid.UUID) (*state.GameState, error)
	DeleteGameState(ctx context.Context, id uuid.UUID) error

	// AcquireLock reports whether owner now holds the lock for id. The lock
	// expires after ttl if never released.
	AcquireLock(ctx context.Context, id uuid.UUID, owner string, ttl time.Duration) (bool, error)
	// ReleaseLock drops the lock only if owner still holds it.
	ReleaseLock(ctx context.Context, id uuid.UUID, owner string) error
}

// WithLock runs fn while holding the lock for id. It returns ErrLocked
// without calling fn if another owner holds the lock.
func WithLock(ctx context.Context, s Storage, id uuid.UUID, ttl time.Duration, fn func(ctx context.Context) error) error {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	owner := uuid.NewString()
	ok, err := s.AcquireLock(ctx, id, owner, ttl)
	if err != nil {
		return err
	}
	if !ok {
		return ErrLocked
	}
	defer func() {
		// release on a fresh context so a cancelled request still unlocks
		_ = s.ReleaseLock(context.WithoutCancel(ctx), id, owner)
	}()
	return fn(ctx)
}

func gameStateKey(id uuid.UUID) string {
	return "gamestate:" + id.String()
}

func lockKey(id uuid.UUID) string {
	return "game-lock:" + id.String()
}
