package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/vntrieu/werewolf/internal/memory"
)

// AppendEvents stores entries as ordered game events in one batch.
func (s *Postgres) AppendEvents(ctx context.Context, gameID string, entries []memory.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	gameUUID, err := stringToUUID(gameID)
	if err != nil {
		return fmt.Errorf("invalid game_id: %w", err)
	}

	batch := &pgx.Batch{}
	for _, e := range entries {
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal event: %w", err)
		}
		eventUUID, _ := stringToUUID(uuid.NewString())
		batch.Queue(
			`INSERT INTO game_events (id, game_id, seq, level, kind, payload_json) VALUES ($1, $2, $3, $4, $5, $6)`,
			eventUUID, gameUUID, e.Seq, string(e.Level), e.Kind, payload)
	}
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("create game events: %w", err)
	}
	return nil
}

// GetGameEvents retrieves the events of a game after afterSeq, in order.
func (s *Postgres) GetGameEvents(ctx context.Context, gameID string, afterSeq int) ([]GameEvent, error) {
	gameUUID, err := stringToUUID(gameID)
	if err != nil {
		return nil, fmt.Errorf("invalid game_id: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, payload_json, created_at FROM game_events WHERE game_id = $1 AND seq > $2 ORDER BY seq`,
		gameUUID, afterSeq)
	if err != nil {
		return nil, fmt.Errorf("get game events: %w", err)
	}
	defer rows.Close()

	events := make([]GameEvent, 0)
	for rows.Next() {
		var (
			id      pgtype.UUID
			payload []byte
			ev      GameEvent
		)
		if err := rows.Scan(&id, &payload, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan game event: %w", err)
		}
		ev.Entry, err = decodeEntry(payload)
		if err != nil {
			return nil, err
		}
		ev.ID = uuidToString(id)
		ev.GameID = gameID
		events = append(events, ev)
	}
	return events, rows.Err()
}
