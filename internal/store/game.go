package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres stores games, snapshots and events in PostgreSQL.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a store on pool. Close closes the pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Close closes the pool.
func (s *Postgres) Close() error {
	s.pool.Close()
	return nil
}

// uuidToString converts pgtype.UUID to string.
func uuidToString(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	id, err := uuid.FromBytes(u.Bytes[:])
	if err != nil {
		return ""
	}
	return id.String()
}

// stringToUUID converts string to pgtype.UUID.
func stringToUUID(s string) (pgtype.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{}, err
	}
	var u pgtype.UUID
	copy(u.Bytes[:], id[:])
	u.Valid = true
	return u, nil
}

// timestamptzToTime converts a nullable timestamptz to *time.Time.
func timestamptzToTime(ts pgtype.Timestamptz) *time.Time {
	if !ts.Valid {
		return nil
	}
	t := ts.Time
	return &t
}

const gameColumns = `id, status, winner, seed, config_json, players_json, created_at, ended_at`

func scanGame(row pgx.Row) (*Game, error) {
	var (
		id          pgtype.UUID
		g           Game
		configJSON  []byte
		playersJSON []byte
		endedAt     pgtype.Timestamptz
	)
	if err := row.Scan(&id, &g.Status, &g.Winner, &g.Seed, &configJSON, &playersJSON, &g.CreatedAt, &endedAt); err != nil {
		return nil, err
	}
	g.ID = uuidToString(id)
	g.EndedAt = timestamptzToTime(endedAt)
	decodeGame(&g, configJSON, playersJSON)
	return &g, nil
}

// CreateGame inserts a new game with status playing.
func (s *Postgres) CreateGame(ctx context.Context, req CreateGameRequest) (*Game, error) {
	g, configJSON, playersJSON, err := prepareGame(req, time.Now())
	if err != nil {
		return nil, err
	}
	gameUUID, _ := stringToUUID(g.ID)

	row := s.pool.QueryRow(ctx,
		`INSERT INTO games (id, status, seed, config_json, players_json)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+gameColumns,
		gameUUID, g.Status, g.Seed, configJSON, playersJSON)
	created, err := scanGame(row)
	if err != nil {
		return nil, fmt.Errorf("create game: %w", err)
	}
	return created, nil
}

// GetGame returns a game by id.
func (s *Postgres) GetGame(ctx context.Context, gameID string) (*Game, error) {
	gameUUID, err := stringToUUID(gameID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid game_id", ErrNotFound)
	}
	g, err := scanGame(s.pool.QueryRow(ctx, `SELECT `+gameColumns+` FROM games WHERE id = $1`, gameUUID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get game: %w", err)
	}
	return g, nil
}

// ListGames returns the most recent games first.
func (s *Postgres) ListGames(ctx context.Context, limit int) ([]Game, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+gameColumns+` FROM games ORDER BY created_at DESC LIMIT $1`, listLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	out := make([]Game, 0)
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}

// CreateOrUpdateSnapshot creates a new snapshot for the game with the next version number.
// stateJSON is the full state to store. Returns the new snapshot's version.
func (s *Postgres) CreateOrUpdateSnapshot(ctx context.Context, gameID string, stateJSON map[string]interface{}) (int32, error) {
	gameUUID, err := stringToUUID(gameID)
	if err != nil {
		return 0, fmt.Errorf("invalid game_id: %w", err)
	}
	data, err := encodeState(stateJSON)
	if err != nil {
		return 0, err
	}
	var version int32
	err = s.pool.QueryRow(ctx,
		`INSERT INTO game_state_snapshots (game_id, version, state_json)
		 SELECT $1, COALESCE(MAX(version), 0) + 1, $2 FROM game_state_snapshots WHERE game_id = $1
		 RETURNING version`,
		gameUUID, data).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("create snapshot: %w", err)
	}
	return version, nil
}

// GetLatestSnapshot returns the latest game state snapshot as a map, or nil if none exists.
func (s *Postgres) GetLatestSnapshot(ctx context.Context, gameID string) (map[string]interface{}, error) {
	gameUUID, err := stringToUUID(gameID)
	if err != nil {
		return nil, fmt.Errorf("invalid game_id: %w", err)
	}
	var data []byte
	err = s.pool.QueryRow(ctx,
		`SELECT state_json FROM game_state_snapshots WHERE game_id = $1 ORDER BY version DESC LIMIT 1`,
		gameUUID).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get latest snapshot: %w", err)
	}
	return decodeState(data)
}

// UpdateGameStatus updates the game's status, winner and optionally ended_at.
func (s *Postgres) UpdateGameStatus(ctx context.Context, gameID string, status string, winner string, endedAt *time.Time) error {
	gameUUID, err := stringToUUID(gameID)
	if err != nil {
		return fmt.Errorf("invalid game_id: %w", err)
	}
	var endAt pgtype.Timestamptz
	if endedAt != nil {
		endAt = pgtype.Timestamptz{Time: *endedAt, Valid: true}
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE games SET status = $2, winner = $3, ended_at = $4 WHERE id = $1`,
		gameUUID, status, winner, endAt)
	if err != nil {
		return fmt.Errorf("update game status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
