package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/astralis-game/server/internal/models"
)

// ErrStaleTurn is returned by CommitMove when the stored turn no longer
// matches the turn the move was resolved against. The caller must treat the
// in-memory state as ahead of a lost write and not retry blindly.
var ErrStaleTurn = errors.New("match turn changed since the move was resolved")

// CommitMove persists one resolved turn in a single transaction: the match
// row, every tile the move touched, and both participants. The match update
// carries an optimistic guard on the turn number the move was resolved
// against, so a duplicate or late commit cannot overwrite a newer turn.
func CommitMove(ctx context.Context, expectedTurn int, m *models.Match, tiles []*models.Tile, players []*models.Participant) error {
	tx, err := DB.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin move tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE matches
		SET status = $2, turn = $3, active_player_id = $4, open_cards = $5, turn_ends_at = $6, winner_id = $7, finished_at = $8
		WHERE id = $1 AND turn = $9`,
		m.ID, m.Status, m.Turn, nilIfZero(m.ActivePlayerID), m.OpenCards, m.TurnEndsAt, m.WinnerID, m.FinishedAt,
		expectedTurn)
	if err != nil {
		return fmt.Errorf("update match %s: %w", m.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleTurn
	}

	for _, t := range tiles {
		var unitID, ownerID *uuid.UUID
		var unitType *models.UnitType
		if t.Unit != nil {
			unitID = &t.Unit.ID
			ownerID = t.Unit.OwnerID
			unitType = &t.Unit.Type
		}
		if _, err := tx.Exec(ctx, `
			UPDATE tiles SET visible = $2, unit_id = $3, unit_owner_id = $4, unit_type = $5
			WHERE id = $1`,
			t.ID, t.Visible, unitID, ownerID, unitType); err != nil {
			return fmt.Errorf("update tile %s: %w", t.ID, err)
		}
	}

	for _, p := range players {
		if _, err := tx.Exec(ctx, `
			UPDATE participants SET score = $2, bonus_points = $3 WHERE id = $1`,
			p.ID, p.Score, p.BonusPoints); err != nil {
			return fmt.Errorf("update participant %s: %w", p.ID, err)
		}
	}

	return tx.Commit(ctx)
}

// InsertMatchLog appends one audit row. Used asynchronously after a turn
// resolves, never on the move's critical path.
func InsertMatchLog(ctx context.Context, l *models.MatchLog) error {
	payload, err := json.Marshal(l.Payload)
	if err != nil {
		return fmt.Errorf("marshal log payload: %w", err)
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}
	_, err = DB.Exec(ctx, `
		INSERT INTO match_logs (id, match_id, actor_id, action, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		l.ID, l.MatchID, nilIfZero(l.ActorID), l.Action, payload, l.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert match log: %w", err)
	}
	return nil
}
