package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/astralis-game/server/internal/models"
)

// ErrNotFound is returned when a queried row does not exist.
var ErrNotFound = errors.New("not found")

// InsertMatch stores a freshly created match.
func InsertMatch(ctx context.Context, m *models.Match) error {
	_, err := DB.Exec(ctx, `
		INSERT INTO matches (id, status, turn, active_player_id, open_cards, turn_ends_at, winner_id, created_by_id, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		m.ID, m.Status, m.Turn, nilIfZero(m.ActivePlayerID), m.OpenCards, m.TurnEndsAt, m.WinnerID, m.CreatedByID, m.FinishedAt)
	if err != nil {
		return fmt.Errorf("insert match %s: %w", m.ID, err)
	}
	return nil
}

// GetMatch loads one match by id.
func GetMatch(ctx context.Context, id uuid.UUID) (*models.Match, error) {
	m := &models.Match{}
	var activePlayer *uuid.UUID
	err := DB.QueryRow(ctx, `
		SELECT id, status, turn, active_player_id, open_cards, turn_ends_at, winner_id, created_by_id, finished_at
		FROM matches WHERE id = $1`, id).
		Scan(&m.ID, &m.Status, &m.Turn, &activePlayer, &m.OpenCards, &m.TurnEndsAt, &m.WinnerID, &m.CreatedByID, &m.FinishedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get match %s: %w", id, err)
	}
	if activePlayer != nil {
		m.ActivePlayerID = *activePlayer
	}
	return m, nil
}

// UpdateMatch writes the mutable match columns.
func UpdateMatch(ctx context.Context, m *models.Match) error {
	_, err := DB.Exec(ctx, `
		UPDATE matches
		SET status = $2, turn = $3, active_player_id = $4, open_cards = $5, turn_ends_at = $6, winner_id = $7, finished_at = $8
		WHERE id = $1`,
		m.ID, m.Status, m.Turn, nilIfZero(m.ActivePlayerID), m.OpenCards, m.TurnEndsAt, m.WinnerID, m.FinishedAt)
	if err != nil {
		return fmt.Errorf("update match %s: %w", m.ID, err)
	}
	return nil
}

// InsertParticipant stores a joined player.
func InsertParticipant(ctx context.Context, p *models.Participant) error {
	_, err := DB.Exec(ctx, `
		INSERT INTO participants (id, match_id, user_id, player_number, score, bonus_points)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.MatchID, p.UserID, p.PlayerNumber, p.Score, p.BonusPoints)
	if err != nil {
		return fmt.Errorf("insert participant %s: %w", p.ID, err)
	}
	return nil
}

// DeleteParticipant removes a kicked player.
func DeleteParticipant(ctx context.Context, id uuid.UUID) error {
	_, err := DB.Exec(ctx, `DELETE FROM participants WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete participant %s: %w", id, err)
	}
	return nil
}

// GetParticipants loads a match's players ordered by player number.
func GetParticipants(ctx context.Context, matchID uuid.UUID) ([]*models.Participant, error) {
	rows, err := DB.Query(ctx, `
		SELECT id, match_id, user_id, player_number, score, bonus_points
		FROM participants WHERE match_id = $1 ORDER BY player_number`, matchID)
	if err != nil {
		return nil, fmt.Errorf("get participants for match %s: %w", matchID, err)
	}
	defer rows.Close()

	var out []*models.Participant
	for rows.Next() {
		p := &models.Participant{}
		if err := rows.Scan(&p.ID, &p.MatchID, &p.UserID, &p.PlayerNumber, &p.Score, &p.BonusPoints); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// InsertGameSettings stores a match's settings row.
func InsertGameSettings(ctx context.Context, s *models.GameSettings) error {
	ratios, err := json.Marshal(s.TerrainRatios)
	if err != nil {
		return fmt.Errorf("marshal terrain ratios: %w", err)
	}
	_, err = DB.Exec(ctx, `
		INSERT INTO game_settings (id, match_id, map_size, max_turns, turn_time_ms, scoring_rules, terrain_ratios)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.ID, s.MatchID, s.MapSize, s.MaxTurns, s.TurnTimeMS, s.ScoringRules, ratios)
	if err != nil {
		return fmt.Errorf("insert game settings for match %s: %w", s.MatchID, err)
	}
	return nil
}

// GetGameSettings loads the settings row of a match.
func GetGameSettings(ctx context.Context, matchID uuid.UUID) (*models.GameSettings, error) {
	s := &models.GameSettings{}
	var ratios []byte
	err := DB.QueryRow(ctx, `
		SELECT id, match_id, map_size, max_turns, turn_time_ms, scoring_rules, terrain_ratios
		FROM game_settings WHERE match_id = $1`, matchID).
		Scan(&s.ID, &s.MatchID, &s.MapSize, &s.MaxTurns, &s.TurnTimeMS, &s.ScoringRules, &ratios)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get game settings for match %s: %w", matchID, err)
	}
	if len(ratios) > 0 {
		if err := json.Unmarshal(ratios, &s.TerrainRatios); err != nil {
			return nil, fmt.Errorf("unmarshal terrain ratios: %w", err)
		}
	}
	return s, nil
}

// nilIfZero maps uuid.Nil to SQL NULL.
func nilIfZero(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
