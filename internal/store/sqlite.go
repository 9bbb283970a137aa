package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vntrieu/werewolf/internal/memory"
)

// SQLite stores runs in a local SQLite database (modernc driver).
// Timestamps are stored as unix milliseconds.
type SQLite struct {
	db *sql.DB
}

// NewSQLite creates a store on a migrated database. Close closes db.
func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(v int64) time.Time { return time.UnixMilli(v).UTC() }

type scanner interface {
	Scan(dest ...any) error
}

func scanSQLiteGame(row scanner) (*Game, error) {
	var (
		g           Game
		configJSON  string
		playersJSON string
		createdAt   int64
		endedAt     sql.NullInt64
	)
	if err := row.Scan(&g.ID, &g.Status, &g.Winner, &g.Seed, &configJSON, &playersJSON, &createdAt, &endedAt); err != nil {
		return nil, err
	}
	g.CreatedAt = fromMillis(createdAt)
	if endedAt.Valid {
		t := fromMillis(endedAt.Int64)
		g.EndedAt = &t
	}
	decodeGame(&g, []byte(configJSON), []byte(playersJSON))
	return &g, nil
}

func (s *SQLite) CreateGame(ctx context.Context, req CreateGameRequest) (*Game, error) {
	g, configJSON, playersJSON, err := prepareGame(req, time.Now().UTC().Truncate(time.Millisecond))
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO games (id, status, winner, seed, config_json, players_json, created_at) VALUES (?, ?, '', ?, ?, ?, ?)`,
		g.ID, g.Status, g.Seed, string(configJSON), string(playersJSON), toMillis(g.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("create game: %w", err)
	}
	return g, nil
}

func (s *SQLite) GetGame(ctx context.Context, gameID string) (*Game, error) {
	g, err := scanSQLiteGame(s.db.QueryRowContext(ctx, `SELECT `+gameColumns+` FROM games WHERE id = ?`, gameID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get game: %w", err)
	}
	return g, nil
}

func (s *SQLite) ListGames(ctx context.Context, limit int) ([]Game, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+gameColumns+` FROM games ORDER BY created_at DESC, rowid DESC LIMIT ?`, listLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	out := make([]Game, 0)
	for rows.Next() {
		g, err := scanSQLiteGame(rows)
		if err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}

func (s *SQLite) CreateOrUpdateSnapshot(ctx context.Context, gameID string, stateJSON map[string]interface{}) (int32, error) {
	data, err := encodeState(stateJSON)
	if err != nil {
		return 0, err
	}
	var version int32
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO game_state_snapshots (game_id, version, state_json, created_at)
		 SELECT ?, COALESCE(MAX(version), 0) + 1, ?, ? FROM game_state_snapshots WHERE game_id = ?
		 RETURNING version`,
		gameID, string(data), toMillis(time.Now()), gameID).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("create snapshot: %w", err)
	}
	return version, nil
}

func (s *SQLite) GetLatestSnapshot(ctx context.Context, gameID string) (map[string]interface{}, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT state_json FROM game_state_snapshots WHERE game_id = ? ORDER BY version DESC LIMIT 1`,
		gameID).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get latest snapshot: %w", err)
	}
	return decodeState([]byte(data))
}

func (s *SQLite) UpdateGameStatus(ctx context.Context, gameID string, status string, winner string, endedAt *time.Time) error {
	var endAt sql.NullInt64
	if endedAt != nil {
		endAt = sql.NullInt64{Int64: toMillis(*endedAt), Valid: true}
	}
	res, err := s.db.ExecContext(ctx, `UPDATE games SET status = ?, winner = ?, ended_at = ? WHERE id = ?`, status, winner, endAt, gameID)
	if err != nil {
		return fmt.Errorf("update game status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) AppendEvents(ctx context.Context, gameID string, entries []memory.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := toMillis(time.Now())
	for _, e := range entries {
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal event: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO game_events (id, game_id, seq, level, kind, payload_json, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), gameID, e.Seq, string(e.Level), e.Kind, string(payload), now)
		if err != nil {
			return fmt.Errorf("create game event: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLite) GetGameEvents(ctx context.Context, gameID string, afterSeq int) ([]GameEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, payload_json, created_at FROM game_events WHERE game_id = ? AND seq > ? ORDER BY seq`,
		gameID, afterSeq)
	if err != nil {
		return nil, fmt.Errorf("get game events: %w", err)
	}
	defer rows.Close()

	events := make([]GameEvent, 0)
	for rows.Next() {
		var (
			ev        GameEvent
			payload   string
			createdAt int64
		)
		if err := rows.Scan(&ev.ID, &payload, &createdAt); err != nil {
			return nil, fmt.Errorf("scan game event: %w", err)
		}
		ev.Entry, err = decodeEntry([]byte(payload))
		if err != nil {
			return nil, err
		}
		ev.GameID = gameID
		ev.CreatedAt = fromMillis(createdAt)
		events = append(events, ev)
	}
	return events, rows.Err()
}
