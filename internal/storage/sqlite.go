package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/anima-narrator/pkg/state"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS game_states (
	id         TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	updated_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS game_locks (
	id         TEXT PRIMARY KEY,
	owner      TEXT NOT NULL,
	expires_at INTEGER NOT NULL
);`

// SQLiteStorage implements Storage on a single SQLite file. It is meant for
// single-process deployments and local play.
type SQLiteStorage struct {
	db     *sql.DB
	logger *slog.Logger
	ttl    time.Duration
	now    func() time.Time
}

// Ensure SQLiteStorage implements Storage interface
var _ Storage = (*SQLiteStorage)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// OpenSQLite opens (or creates) the database at path. ":memory:" is accepted.
func OpenSQLite(path string, ttl time.Duration, logger *slog.Logger) (*SQLiteStorage, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if path != ":memory:" {
		path = filepath.Clean(path)
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// one writer; also keeps a :memory: database alive across calls
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStorage{db: db, logger: logger, ttl: ttl, now: time.Now}, nil
}

func (s *SQLiteStorage) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite ping failed: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStorage) SaveGameState(ctx context.Context, id uuid.UUID, gs *state.GameState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(gs)
	if err != nil {
		return fmt.Errorf("failed to marshal gamestate: %w", err)
	}
	now := s.now()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO game_states (id, data, updated_at, expires_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   data = excluded.data,
		   updated_at = excluded.updated_at,
		   expires_at = excluded.expires_at`,
		id.String(), string(data), toMillis(now), toMillis(now.Add(s.ttl)),
	)
	if err != nil {
		s.logger.Error("Failed to save gamestate", "uuid", id, "error", err)
		return fmt.Errorf("failed to save gamestate: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) LoadGameState(ctx context.Context, id uuid.UUID) (*state.GameState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM game_states WHERE id = ? AND expires_at > ?`,
		id.String(), toMillis(s.now()),
	).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load gamestate: %w", err)
	}

	var gs state.GameState
	if err := json.Unmarshal([]byte(data), &gs); err != nil {
		s.logger.Error("Failed to unmarshal gamestate", "uuid", id, "error", err)
		return nil, fmt.Errorf("failed to unmarshal gamestate: %w", err)
	}
	return &gs, nil
}

func (s *SQLiteStorage) DeleteGameState(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM game_states WHERE id = ?`, id.String()); err != nil {
		return fmt.Errorf("failed to delete gamestate: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) AcquireLock(ctx context.Context, id uuid.UUID, owner string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	now := s.now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO game_locks (id, owner, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   owner = excluded.owner,
		   expires_at = excluded.expires_at
		 WHERE game_locks.expires_at <= ?`,
		id.String(), owner, toMillis(now.Add(ttl)), toMillis(now),
	)
	if err != nil {
		return false, fmt.Errorf("failed to acquire game lock: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to acquire game lock: %w", err)
	}
	return n == 1, nil
}

func (s *SQLiteStorage) ReleaseLock(ctx context.Context, id uuid.UUID, owner string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM game_locks WHERE id = ? AND owner = ?`, id.String(), owner,
	); err != nil {
		return fmt.Errorf("failed to release game lock: %w", err)
	}
	return nil
}

// PurgeExpired deletes expired games and locks. It returns the number of
// games removed.
func (s *SQLiteStorage) PurgeExpired(ctx context.Context) (int64, error) {
	now := toMillis(s.now())
	res, err := s.db.ExecContext(ctx, `DELETE FROM game_states WHERE expires_at <= ?`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to purge games: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM game_locks WHERE expires_at <= ?`, now); err != nil {
		return 0, fmt.Errorf("failed to purge locks: %w", err)
	}
	return res.RowsAffected()
}
